package geoip

import (
	"net"

	"github.com/oschwald/geoip2-golang"
)

// Unknown is the placeholder for locations that could not be resolved. The
// analytics layer relies on this exact value to fall back to locale-based
// country codes.
const Unknown = "n.a."

type Location struct {
	Continent string
	Country   string
	City      string
}

// Resolver maps a client IP to a coarse location. Failures degrade to
// Unknown fields, never to an error at the call site.
type Resolver interface {
	Resolve(ip string) Location
	Close() error
}

// MaxMindResolver reads a local GeoIP2/GeoLite2 City database.
type MaxMindResolver struct {
	reader *geoip2.Reader
}

func NewMaxMindResolver(dbPath string) (*MaxMindResolver, error) {
	r, err := geoip2.Open(dbPath)
	if err != nil {
		return nil, err
	}
	return &MaxMindResolver{reader: r}, nil
}

func (r *MaxMindResolver) Resolve(ip string) Location {
	loc := Location{Continent: Unknown, Country: Unknown, City: Unknown}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return loc
	}
	rec, err := r.reader.City(parsed)
	if err != nil {
		return loc
	}
	if v := rec.Continent.Names["en"]; v != "" {
		loc.Continent = v
	}
	if v := rec.Country.Names["en"]; v != "" {
		loc.Country = v
	}
	if v := rec.City.Names["en"]; v != "" {
		loc.City = v
	}
	return loc
}

func (r *MaxMindResolver) Close() error { return r.reader.Close() }

// NoopResolver is used when no GeoIP database is configured.
type NoopResolver struct{}

func NewNoopResolver() *NoopResolver { return &NoopResolver{} }

func (r *NoopResolver) Resolve(ip string) Location {
	_ = ip
	return Location{Continent: Unknown, Country: Unknown, City: Unknown}
}

func (r *NoopResolver) Close() error { return nil }
