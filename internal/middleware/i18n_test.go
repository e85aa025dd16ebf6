package middleware

import (
	"net/http/httptest"
	"testing"
)

func TestDetectLocale(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		headers map[string]string
		country string
		want    string
	}{
		{name: "x_locale_header", headers: map[string]string{"X-Locale": "fr"}, want: "fr"},
		{name: "x_locale_unsupported_falls_back", headers: map[string]string{"X-Locale": "ja"}, want: "en"},
		{name: "accept_language", headers: map[string]string{"Accept-Language": "de-DE,de;q=0.9"}, want: "de"},
		{name: "accept_language_regional", headers: map[string]string{"Accept-Language": "pt-BR"}, want: "pt-BR"},
		{name: "country_default", country: "ID", want: "id"},
		{name: "unknown_country", country: "JP", want: "en"},
		{name: "no_signal", want: "en"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest("GET", "/", nil)
			for k, v := range tc.headers {
				r.Header.Set(k, v)
			}
			if got := detectLocale(r, "", tc.country); got != tc.want {
				t.Fatalf("detectLocale = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestMatchLocale(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want string
	}{
		{in: "es", want: "es"},
		{in: "es-MX", want: "es"},
		{in: "id-ID", want: "id"},
		{in: "garbage!", want: "en"},
		{in: "", want: "en"},
	}
	for _, tc := range cases {
		if got := MatchLocale(tc.in); got != tc.want {
			t.Fatalf("MatchLocale(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestResolveCountryHeaderHints(t *testing.T) {
	t.Parallel()
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("CF-IPCountry", "br")
	if got := ResolveCountry(r, nil); got != "BR" {
		t.Fatalf("ResolveCountry = %q, want %q", got, "BR")
	}
}

func TestResolveCountryUsesLookup(t *testing.T) {
	t.Parallel()
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "203.0.113.9:1234"
	lookup := func(ip string) (string, error) {
		if ip != "203.0.113.9" {
			t.Fatalf("lookup ip = %q", ip)
		}
		return "de", nil
	}
	if got := ResolveCountry(r, lookup); got != "DE" {
		t.Fatalf("ResolveCountry = %q, want %q", got, "DE")
	}
}
