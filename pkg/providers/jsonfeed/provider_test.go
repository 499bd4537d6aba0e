package jsonfeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rubiojr/eventa/pkg/providers"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    int
		wantErr bool
	}{
		{"array", `[{"title":"a"},{"title":"b"}]`, 2, false},
		{"wrapped", ` {"events":[{"title":"a"}]}`, 1, false},
		{"empty array", `[]`, 0, false},
		{"no events key", `{"items":[]}`, 0, true},
		{"empty", ``, 0, true},
		{"garbage", `<html>`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.body))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d records, want %d", len(got), tt.want)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		cfg     Config
		wantErr bool
	}{
		{Config{URL: "https://feed.example/events.json"}, false},
		{Config{URL: "https://feed.example", Timeout: "5s"}, false},
		{Config{}, true},
		{Config{URL: "file:///etc/passwd"}, true},
		{Config{URL: "https://feed.example", Timeout: "soon"}, true},
	}
	for _, tt := range tests {
		if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
			t.Errorf("Validate(%+v) error = %v, wantErr %v", tt.cfg, err, tt.wantErr)
		}
	}
}

func TestFetchThroughRegistry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "eventa-test" {
			t.Errorf("user agent = %q", r.Header.Get("User-Agent"))
		}
		_, _ = w.Write([]byte(`{"events":[{"title":"Sagra","date":"2025-09-01"}]}`))
	}))
	defer srv.Close()

	reg := providers.GlobalRegistry()
	err := reg.Create("visit_alba", "jsonfeed", map[string]any{"url": srv.URL, "user_agent": "eventa-test"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	p, ok := reg.Get("visit_alba")
	if !ok {
		t.Fatal("provider not registered")
	}
	if p.Type() != "jsonfeed" || p.Name() != "visit_alba" {
		t.Errorf("type/name = %s/%s", p.Type(), p.Name())
	}

	records, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0]["title"] != "Sagra" {
		t.Errorf("records = %v", records)
	}
}

func TestFetchNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p, err := (&Provider{}).Factory("x", &Config{URL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Fetch(context.Background()); err == nil {
		t.Fatal("expected error for 502")
	}
}

func TestCreateRejectsInvalidConfig(t *testing.T) {
	reg := providers.GlobalRegistry()
	if err := reg.Create("bad", "jsonfeed", map[string]any{"url": "ftp://x"}); err == nil {
		t.Fatal("invalid config should be rejected")
	}
}
