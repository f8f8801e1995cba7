package geo

import (
	"context"
	"fmt"
	"net"
	"portfolio/internal/types"

	"github.com/oschwald/geoip2-golang"
)

// GeoIP resolves addresses against a local MaxMind City database.
type GeoIP struct {
	reader *geoip2.Reader
}

func NewGeoIP(path string) (*GeoIP, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip database: %w", err)
	}
	return &GeoIP{reader: reader}, nil
}

func (g *GeoIP) Lookup(_ context.Context, ip string) (types.GeoInfo, error) {
	if IsPrivate(ip) {
		return types.GeoInfo{}, nil
	}

	record, err := g.reader.City(net.ParseIP(ip))
	if err != nil {
		return types.GeoInfo{}, fmt.Errorf("geoip city lookup: %w", err)
	}

	info := types.GeoInfo{
		CountryCode: record.Country.IsoCode,
		Lat:         record.Location.Latitude,
		Lon:         record.Location.Longitude,
		IsProxy:     record.Traits.IsAnonymousProxy,
	}
	if name, ok := record.Country.Names["en"]; ok {
		info.Country = name
	}
	if name, ok := record.City.Names["en"]; ok {
		info.City = name
	}
	if len(record.Subdivisions) > 0 {
		info.Region = record.Subdivisions[0].IsoCode
	}
	return info, nil
}

func (g *GeoIP) Close() error {
	return g.reader.Close()
}
