package geo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"portfolio/internal/cache"
	"portfolio/internal/geo/mock_geo"
	"portfolio/internal/types"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	gobreaker "github.com/sony/gobreaker/v2"
)

func TestIsPrivate(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"127.0.0.1", true},
		{"10.1.2.3", true},
		{"172.16.0.1", true},
		{"172.31.255.255", true},
		{"192.168.1.1", true},
		{"169.254.1.1", true},
		{"::1", true},
		{"fe80::1", true},
		{"fd00::1", true},
		{"0.0.0.0", true},
		{"unknown", true},
		{"", true},
		{"not-an-ip", true},
		{"172.32.0.1", false},
		{"8.8.8.8", false},
		{"2001:4860:4860::8888", false},
	}

	for _, tt := range tests {
		if got := IsPrivate(tt.ip); got != tt.want {
			t.Errorf("IsPrivate(%q) = %v, want %v", tt.ip, got, tt.want)
		}
	}
}

func TestCountryFlag(t *testing.T) {
	tests := map[string]string{
		"us":  "\U0001F1FA\U0001F1F8",
		"DE":  "\U0001F1E9\U0001F1EA",
		"":    "",
		"USA": "",
		"1A":  "",
	}
	for code, want := range tests {
		if got := CountryFlag(code); got != want {
			t.Errorf("CountryFlag(%q) = %q, want %q", code, got, want)
		}
	}
}

func TestIPAPI_Lookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/json/8.8.8.8" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if !strings.Contains(r.URL.Query().Get("fields"), "countryCode") {
			t.Errorf("fields not requested: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"country":"United States","countryCode":"US","region":"CA","city":"Mountain View","lat":37.4,"lon":-122.1,"isp":"Google LLC","proxy":false,"hosting":true}`))
	}))
	defer srv.Close()

	api := NewIPAPI(srv.Client(), srv.URL+"/")
	info, err := api.Lookup(context.Background(), "8.8.8.8")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}

	want := types.GeoInfo{
		Country: "United States", CountryCode: "US", Region: "CA", City: "Mountain View",
		Lat: 37.4, Lon: -122.1, ISP: "Google LLC", IsHosting: true,
	}
	if info != want {
		t.Errorf("got %+v, want %+v", info, want)
	}
}

func TestIPAPI_PrivateSkipsRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	api := NewIPAPI(srv.Client(), srv.URL)
	info, err := api.Lookup(context.Background(), "192.168.0.10")
	if err != nil || info != (types.GeoInfo{}) {
		t.Errorf("Lookup(private) = %+v, %v", info, err)
	}
	if hits.Load() != 0 {
		t.Errorf("private address reached upstream %d times", hits.Load())
	}
}

func TestIPAPI_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	api := NewIPAPI(srv.Client(), srv.URL)
	ctx := context.Background()

	for i := range breakerTrips {
		_, err := api.Lookup(ctx, "1.1.1.1")
		if !errors.Is(err, ErrBadStatus) {
			t.Fatalf("attempt %d: err = %v, want ErrBadStatus", i, err)
		}
	}

	_, err := api.Lookup(ctx, "1.1.1.1")
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("err = %v, want open breaker", err)
	}
	if got := hits.Load(); got != breakerTrips {
		t.Errorf("upstream hit %d times, want %d", got, breakerTrips)
	}
}

func TestIPAPI_CancelledCallersDoNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"country":"Norway","countryCode":"NO"}`))
	}))
	defer srv.Close()

	api := NewIPAPI(srv.Client(), srv.URL)
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	for i := range breakerTrips * 2 {
		if _, err := api.Lookup(cancelled, "1.1.1.1"); !errors.Is(err, context.Canceled) {
			t.Fatalf("attempt %d: err = %v, want context.Canceled", i, err)
		}
	}

	info, err := api.Lookup(context.Background(), "1.1.1.1")
	if err != nil {
		t.Fatalf("breaker opened on cancelled callers: %v", err)
	}
	if info.Country != "Norway" {
		t.Errorf("country = %q", info.Country)
	}
}

func TestIPAPI_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	api := NewIPAPI(srv.Client(), srv.URL)
	api.timeout = 50 * time.Millisecond

	start := time.Now()
	if _, err := api.Lookup(context.Background(), "1.1.1.1"); err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("lookup took %v", elapsed)
	}
}

func TestCached_ServesRepeatLookupsFromStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mock_geo.NewMockLocator(ctrl)
	want := types.GeoInfo{Country: "Japan", City: "Tokyo"}
	next.EXPECT().Lookup(gomock.Any(), "203.0.113.7").Return(want, nil).Times(1)

	c := NewCached(next, cache.NewLRU[types.GeoInfo](10, time.Hour))
	for range 3 {
		got, err := c.Lookup(context.Background(), "203.0.113.7")
		if err != nil || got != want {
			t.Fatalf("Lookup = %+v, %v", got, err)
		}
	}
}

func TestCached_DoesNotCacheFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mock_geo.NewMockLocator(ctrl)
	boom := errors.New("upstream down")
	gomock.InOrder(
		next.EXPECT().Lookup(gomock.Any(), "203.0.113.8").Return(types.GeoInfo{}, boom),
		next.EXPECT().Lookup(gomock.Any(), "203.0.113.8").Return(types.GeoInfo{Country: "Chile"}, nil),
	)

	c := NewCached(next, cache.NewLRU[types.GeoInfo](10, time.Hour))
	if _, err := c.Lookup(context.Background(), "203.0.113.8"); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	got, err := c.Lookup(context.Background(), "203.0.113.8")
	if err != nil || got.Country != "Chile" {
		t.Errorf("retry = %+v, %v", got, err)
	}
}

func TestCached_PrivateNeverReachesUpstream(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mock_geo.NewMockLocator(ctrl)

	c := NewCached(next, cache.NewLRU[types.GeoInfo](10, time.Hour))
	got, err := c.Lookup(context.Background(), "127.0.0.1")
	if err != nil || got != (types.GeoInfo{}) {
		t.Errorf("Lookup(loopback) = %+v, %v", got, err)
	}
}

func TestNewGeoIP_MissingFile(t *testing.T) {
	if _, err := NewGeoIP(t.TempDir() + "/missing.mmdb"); err == nil {
		t.Error("expected error for missing database")
	}
}
