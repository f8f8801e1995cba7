package geo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"portfolio/internal/types"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
)

const (
	DefaultIPAPIURL = "http://ip-api.com"

	ipAPITimeout  = 3 * time.Second
	ipAPIFields   = "country,countryCode,region,city,lat,lon,isp,proxy,hosting"
	breakerTrips  = 5
	breakerPause  = time.Minute
	breakerProbes = 1
)

var ErrBadStatus = errors.New("geo api returned non-200 status")

type ipAPIResponse struct {
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	Region      string  `json:"region"`
	City        string  `json:"city"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	ISP         string  `json:"isp"`
	Proxy       bool    `json:"proxy"`
	Hosting     bool    `json:"hosting"`
}

// IPAPI queries an ip-api.com compatible HTTP endpoint. Consecutive failures
// open a circuit breaker so a dead upstream costs nothing per request.
type IPAPI struct {
	client  *http.Client
	baseURL string
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker[types.GeoInfo]
}

func NewIPAPI(client *http.Client, baseURL string) *IPAPI {
	if client == nil {
		client = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultIPAPIURL
	}

	cb := gobreaker.NewCircuitBreaker[types.GeoInfo](gobreaker.Settings{
		Name:        "geo-api",
		MaxRequests: breakerProbes,
		Timeout:     breakerPause,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTrips
		},
		// A caller that went away says nothing about upstream health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &IPAPI{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: ipAPITimeout,
		cb:      cb,
	}
}

func (a *IPAPI) Lookup(ctx context.Context, ip string) (types.GeoInfo, error) {
	if IsPrivate(ip) {
		return types.GeoInfo{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	return a.cb.Execute(func() (types.GeoInfo, error) {
		return a.fetch(ctx, ip)
	})
}

func (a *IPAPI) fetch(ctx context.Context, ip string) (types.GeoInfo, error) {
	endpoint := fmt.Sprintf("%s/json/%s?fields=%s", a.baseURL, url.PathEscape(ip), ipAPIFields)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return types.GeoInfo{}, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return types.GeoInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.GeoInfo{}, fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	var body ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return types.GeoInfo{}, fmt.Errorf("decode geo response: %w", err)
	}

	return types.GeoInfo{
		Country:     body.Country,
		CountryCode: body.CountryCode,
		Region:      body.Region,
		City:        body.City,
		Lat:         body.Lat,
		Lon:         body.Lon,
		ISP:         body.ISP,
		IsProxy:     body.Proxy,
		IsHosting:   body.Hosting,
	}, nil
}
