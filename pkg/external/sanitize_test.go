package external

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"<b>bold</b> text", "bold text"},
		{`<a href="https://x" onclick="evil()">link</a>`, "link"},
		{"<style>p{}</style>visible<script>alert(1)</script>", "visible"},
		{"a<br>b", "a b"},
		{"caf&eacute; &lt;ok&gt;", "café <ok>"},
		{"<!-- hidden -->shown", "shown"},
	}
	for _, tt := range tests {
		if got := CollapseSpace(StripHTML(tt.in)); got != tt.want {
			t.Errorf("StripHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCleanURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://a.com/x?utm_source=y", "https://a.com/x"},
		{"https://a.com/x?id=1&UTM_Campaign=z&fbclid=q", "https://a.com/x?id=1"},
		{"https://a.com/x?id=1", "https://a.com/x?id=1"},
		{"https://a.com/x", "https://a.com/x"},
	}
	for _, tt := range tests {
		if got := CleanURL(tt.in); got != tt.want {
			t.Errorf("CleanURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStripTrackingInText(t *testing.T) {
	in := "See https://a.com/x?utm_source=y and http://b.org/?fbclid=1 now"
	want := "See https://a.com/x and http://b.org/ now"
	if got := StripTracking(in); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("unexpected truncation: %q", got)
	}
	long := strings.Repeat("ά", 300)
	got := Truncate(long, MaxDescriptionLength)
	if n := utf8.RuneCountInString(got); n != MaxDescriptionLength {
		t.Errorf("expected %d runes, got %d", MaxDescriptionLength, n)
	}
	if !strings.HasSuffix(got, "…") {
		t.Error("truncated text should end with an ellipsis")
	}
}

func TestSanitizeDescription(t *testing.T) {
	in := "<div>\n  Hello   <em>world</em>\n</div>"
	if got := SanitizeDescription(in); got != "Hello world" {
		t.Errorf("got %q", got)
	}
}

func TestBlocklist(t *testing.T) {
	b, err := DefaultBlocklist()
	if err != nil {
		t.Fatal(err)
	}
	if b.Len() == 0 {
		t.Fatal("embedded blocklist is empty")
	}
	for _, bad := range []string{"Win Free Crypto Airdrop Now", "CLAIM YOUR PRIZE", "free spins tonight", "XXX party"} {
		if _, hit := b.Match(bad); !hit {
			t.Errorf("%q should be blocked", bad)
		}
	}
	for _, ok := range []string{"Farmers market", "Jazz night at the park", "Wine tasting"} {
		if rule, hit := b.Match(ok); hit {
			t.Errorf("%q blocked by %s", ok, rule)
		}
	}
}

func TestParseBlocklistErrors(t *testing.T) {
	if _, err := ParseBlocklist([]byte("[[rule]]\nname = \"x\"\n")); err == nil {
		t.Error("rule without pattern should fail")
	}
	if _, err := ParseBlocklist([]byte("[[rule]]\nname = \"x\"\npattern = \"(\"\n")); err == nil {
		t.Error("invalid regex should fail")
	}
}
