package tracking

import (
	"net/http/httptest"
	"regexp"
	"testing"
	"time"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"cloudflare wins", map[string]string{"CF-Connecting-IP": "1.1.1.1", "X-Forwarded-For": "2.2.2.2", "X-Real-IP": "3.3.3.3"}, "4.4.4.4:1234", "1.1.1.1"},
		{"first forwarded hop", map[string]string{"X-Forwarded-For": " 2.2.2.2 , 10.0.0.1", "X-Real-IP": "3.3.3.3"}, "4.4.4.4:1234", "2.2.2.2"},
		{"real ip", map[string]string{"X-Real-IP": " 3.3.3.3 "}, "4.4.4.4:1234", "3.3.3.3"},
		{"blank headers fall through", map[string]string{"CF-Connecting-IP": " ", "X-Forwarded-For": " ,5.5.5.5"}, "4.4.4.4:1234", "4.4.4.4"},
		{"remote addr", nil, "[2001:db8::1]:443", "2001:db8::1"},
		{"remote without port", nil, "4.4.4.4", "4.4.4.4"},
		{"nothing", nil, "", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProxies_ClientIP(t *testing.T) {
	proxies, err := ParseProxies([]string{"10.0.0.0/8", " 192.0.2.7 ", ""})
	if err != nil {
		t.Fatalf("ParseProxies: %v", err)
	}

	tests := []struct {
		name    string
		proxies *Proxies
		remote  string
		forward string
		want    string
	}{
		{"direct client cannot spoof", proxies, "203.0.113.5:1234", "1.2.3.4", "203.0.113.5"},
		{"trusted range forwards", proxies, "10.1.2.3:1234", "1.2.3.4", "1.2.3.4"},
		{"trusted single address", proxies, "192.0.2.7:80", "5.6.7.8", "5.6.7.8"},
		{"trusted proxy without header", proxies, "10.1.2.3:1234", "", "10.1.2.3"},
		{"no proxies configured", &Proxies{}, "203.0.113.5:1234", "1.2.3.4", "203.0.113.5"},
		{"nil proxies", nil, "203.0.113.5:1234", "1.2.3.4", "203.0.113.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/admin/analytics/login", nil)
			r.RemoteAddr = tt.remote
			if tt.forward != "" {
				r.Header.Set("X-Forwarded-For", tt.forward)
				r.Header.Set("CF-Connecting-IP", tt.forward)
			}
			if got := tt.proxies.ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseProxies_Invalid(t *testing.T) {
	for _, entry := range []string{"not-an-ip", "10.0.0.0/99"} {
		if _, err := ParseProxies([]string{entry}); err == nil {
			t.Errorf("ParseProxies(%q) succeeded", entry)
		}
	}
}

func TestHasher_VisitorID(t *testing.T) {
	h := NewHasher("pepper")
	morning := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 5, 1, 23, 59, 0, 0, time.UTC)
	nextDay := time.Date(2026, 5, 2, 0, 0, 1, 0, time.UTC)

	id := h.VisitorID("203.0.113.1", morning)
	if !regexp.MustCompile(`^[0-9a-f]{16}$`).MatchString(id) {
		t.Fatalf("VisitorID = %q, want 16 hex chars", id)
	}
	if got := h.VisitorID("203.0.113.1", evening); got != id {
		t.Errorf("same ip same day changed: %q vs %q", got, id)
	}
	if got := h.VisitorID("203.0.113.1", nextDay); got == id {
		t.Error("identifier should rotate at the UTC day boundary")
	}
	if got := h.VisitorID("203.0.113.2", morning); got == id {
		t.Error("different ips should not collide")
	}
	if got := NewHasher("other").VisitorID("203.0.113.1", morning); got == id {
		t.Error("different salts should not collide")
	}

	nonUTC := morning.In(time.FixedZone("UTC+10", 10*3600))
	if got := h.VisitorID("203.0.113.1", nonUTC); got != id {
		t.Error("day bucket must be taken in UTC")
	}
}
