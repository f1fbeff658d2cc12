// Package geo annotates proxy endpoints with their country for the
// end-of-run archive.
package geo

import (
	"fmt"
	"net"
	"net/url"

	"github.com/oschwald/geoip2-golang"
)

// Resolver maps proxy endpoints to ISO country codes using a local
// GeoLite2 database. Lookups never fail the caller; unknown addresses
// resolve to "N/A".
type Resolver struct {
	db *geoip2.Reader
}

func Open(databasePath string) (*Resolver, error) {
	db, err := geoip2.Open(databasePath)
	if err != nil {
		return nil, fmt.Errorf("open geoip database: %w", err)
	}
	return &Resolver{db: db}, nil
}

// Country returns the ISO country code of an endpoint such as
// socks5://10.0.0.1:1080. Hostnames are not resolved; only literal IPs
// yield a country.
func (r *Resolver) Country(endpoint string) string {
	ip := net.ParseIP(endpointHost(endpoint))
	if ip == nil {
		return "N/A"
	}

	record, err := r.db.Country(ip)
	if err != nil || record.Country.IsoCode == "" {
		return "N/A"
	}
	return record.Country.IsoCode
}

func (r *Resolver) Close() error {
	return r.db.Close()
}

func endpointHost(endpoint string) string {
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
	}
	if host, _, err := net.SplitHostPort(endpoint); err == nil {
		return host
	}
	return endpoint
}
