// Package geo resolves client addresses to countries with a MaxMind database.
package geo

import (
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// Locator looks up ISO country codes. A nil *Locator is valid and knows
// nothing.
type Locator struct {
	db *geoip2.Reader
}

// Open loads a GeoLite2/GeoIP2 Country or City database from path.
func Open(path string) (*Locator, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geoip: %w", err)
	}
	return &Locator{db: db}, nil
}

// Country returns the ISO code for host, or "" if unknown.
func (l *Locator) Country(host string) string {
	if l == nil || l.db == nil {
		return ""
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return ""
	}
	record, err := l.db.Country(ip)
	if err != nil {
		return ""
	}
	return record.Country.IsoCode
}

func (l *Locator) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}
