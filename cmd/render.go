package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rubiojr/eventa/pkg/core"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1).
			Margin(0, 0, 1, 0)

	resultStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1).
			Margin(0, 0, 1, 2)

	webResultStyle = resultStyle.
			BorderForeground(lipgloss.Color("33"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	urlStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33"))

	noDataStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			Margin(1, 0)
)

// renderResults formats search results for the terminal.
func renderResults(query string, results []core.SearchResult) string {
	var out strings.Builder

	title := fmt.Sprintf("%d results", len(results))
	if query != "" {
		title = fmt.Sprintf("%d results for %q", len(results), query)
	}
	out.WriteString(titleStyle.Render(title))
	out.WriteString("\n")

	if len(results) == 0 {
		out.WriteString(noDataStyle.Render("No events found"))
		out.WriteString("\n")
		return out.String()
	}

	for _, r := range results {
		out.WriteString(renderResult(r))
		out.WriteString("\n")
	}
	return out.String()
}

func renderResult(r core.SearchResult) string {
	var content strings.Builder
	content.WriteString(headerStyle.Render(r.Title))

	when := r.StartAt
	if r.EndAt != r.StartAt {
		when += " → " + r.EndAt
	}
	content.WriteString("\n" + when)

	var place []string
	if r.Venue != nil {
		place = append(place, *r.Venue)
	}
	if r.Address != nil {
		place = append(place, *r.Address)
	}
	if len(place) > 0 {
		content.WriteString("\n" + strings.Join(place, ", "))
	}
	if r.Snippet != "" {
		content.WriteString("\n" + r.Snippet)
	}
	if r.URL != "" {
		content.WriteString("\n" + urlStyle.Render(r.URL))
	}

	meta := []string{r.Source}
	if len(r.Categories) > 0 {
		meta = append(meta, strings.Join(r.Categories, ", "))
	}
	if r.PriceFree != nil && *r.PriceFree {
		meta = append(meta, "free")
	}
	if r.DistanceKm != nil {
		meta = append(meta, fmt.Sprintf("%.1f km", *r.DistanceKm))
	}
	content.WriteString("\n" + metaStyle.Render(strings.Join(meta, " • ")))

	if r.Source == core.SourceWeb {
		return webResultStyle.Render(content.String())
	}
	return resultStyle.Render(content.String())
}

// renderEvent formats a stored event for the moderation listing.
func renderEvent(e *core.Event) string {
	var content strings.Builder
	content.WriteString(headerStyle.Render(e.Title))
	content.WriteString("\n" + e.ID)
	content.WriteString("\n" + core.FormatTimestamp(e.StartAt))
	if place := joinNonEmpty(", ", e.VenueName, e.City); place != "" {
		content.WriteString("\n" + place)
	}
	if e.Description != "" {
		content.WriteString("\n" + e.Description)
	}
	meta := []string{string(e.Status), e.Source}
	if e.ModerationNote != "" {
		meta = append(meta, "note: "+e.ModerationNote)
	}
	content.WriteString("\n" + metaStyle.Render(strings.Join(meta, " • ")))
	return resultStyle.Render(content.String())
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
