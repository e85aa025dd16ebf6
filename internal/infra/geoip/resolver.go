// Package geoip maps client IPs to ISO country codes using a MaxMind
// GeoIP2 database. The API server uses it to pick a default locale for
// requests that carry no language preference.
package geoip

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/oschwald/geoip2-golang"
)

// Resolver answers country lookups from a local MaxMind database file.
// The zero value is unusable; construct one with NewResolver.
type Resolver struct {
	reader *geoip2.Reader
}

func NewResolver(path string) (*Resolver, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("geoip: database path is empty")
	}
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geoip: open database: %w", err)
	}
	return &Resolver{reader: reader}, nil
}

// CountryCode resolves ip to an ISO 3166-1 code. An address the database
// does not know yields an empty code with no error.
func (r *Resolver) CountryCode(ip string) (string, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "", fmt.Errorf("geoip: invalid ip %q", ip)
	}
	record, err := r.reader.Country(parsed)
	if err != nil {
		return "", fmt.Errorf("geoip: lookup country: %w", err)
	}
	if record == nil {
		return "", nil
	}
	return record.Country.IsoCode, nil
}

func (r *Resolver) Close() error {
	return r.reader.Close()
}
