// Package search runs the event search pipeline used by the HTTP API and
// the CLI.
//
// # Pipeline
//
// A request flows through four stages:
//
//	normalize -> database search -> web supplement (optional) -> dedup
//
// The query is normalized and expanded with multilingual synonyms, then the
// event store runs a single query combining full-text relevance, category,
// price and date-overlap filters, plus geo distance when the caller sent
// coordinates. When the caller asks for web results and the database returned
// fewer than the configured minimum, the web adapter fills the remaining
// slots. Web results that duplicate a database result by title or URL are
// dropped.
//
// # Failure model
//
// Database errors are returned to the caller. Web search never fails: a
// disabled or broken provider contributes no results.
//
// # Usage
//
//	svc := search.NewService(store, search.WithWeb(webClient, 5))
//	resp, err := svc.Search(ctx, search.Request{
//		Query:      "mercatino natale",
//		Filters:    search.Filters{DateRange: "weekend"},
//		IncludeWeb: true,
//	})
//
// Requests come from JSON bodies (ParseRequest) or query strings
// (ParseQueryParams).
package search
