package geoip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// ErrNotFound is returned when no database knows the address.
var ErrNotFound = errors.New("address not found in geoip databases")

type countryReader interface {
	Country(ip net.IP) (*geoip2.Country, error)
	Close() error
}

// Locator resolves client addresses to ISO country codes using an IPv4
// database first and an IPv6 database second.
type Locator struct {
	v4     countryReader
	v6     countryReader
	logger *slog.Logger
}

// Open loads the databases at the given paths. An empty path skips that database.
func Open(v4Path, v6Path string, logger *slog.Logger) (*Locator, error) {
	l := &Locator{logger: logger.With("component", "geoip")}
	if v4Path != "" {
		r, err := geoip2.Open(v4Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open IPv4 geoip database %s: %w", v4Path, err)
		}
		l.v4 = r
	}
	if v6Path != "" {
		r, err := geoip2.Open(v6Path)
		if err != nil {
			l.Close()
			return nil, fmt.Errorf("failed to open IPv6 geoip database %s: %w", v6Path, err)
		}
		l.v6 = r
	}
	return l, nil
}

func newLocator(v4, v6 countryReader, logger *slog.Logger) *Locator {
	return &Locator{v4: v4, v6: v6, logger: logger.With("component", "geoip")}
}

// CountryCode looks addr up in the IPv4 database and, if that errors or has
// no entry, in the IPv6 database.
func (l *Locator) CountryCode(ctx context.Context, addr string) (string, error) {
	ip := net.ParseIP(addr)
	if ip == nil {
		return "", fmt.Errorf("not an IP address: %q", addr)
	}

	var errs []error
	for _, db := range []struct {
		name   string
		reader countryReader
	}{{"ipv4", l.v4}, {"ipv6", l.v6}} {
		if db.reader == nil {
			continue
		}
		rec, err := db.reader.Country(ip)
		if err != nil {
			l.logger.DebugContext(ctx, "GeoIP lookup failed", "database", db.name, "addr", addr, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", db.name, err))
			continue
		}
		if rec.Country.IsoCode != "" {
			return rec.Country.IsoCode, nil
		}
	}

	if len(errs) > 0 {
		return "", errors.Join(append([]error{ErrNotFound}, errs...)...)
	}
	return "", ErrNotFound
}

// Close releases both database readers.
func (l *Locator) Close() error {
	var errs []error
	for _, r := range []countryReader{l.v4, l.v6} {
		if r != nil {
			errs = append(errs, r.Close())
		}
	}
	return errors.Join(errs...)
}
