package app

import (
	"context"
	"log/slog"
	"strings"

	"github.com/nellessen/nexmo-download-link/internal/gateway_service/domain"
)

// GeoLocator maps a client IP address to an ISO country code.
type GeoLocator interface {
	CountryCode(ctx context.Context, addr string) (string, error)
}

// CountryGuesser picks the country used to parse numbers given without an
// international prefix.
type CountryGuesser struct {
	geo            GeoLocator
	defaultCountry string
	logger         *slog.Logger
}

// NewCountryGuesser creates a guesser. geo may be nil when no GeoIP database is configured.
func NewCountryGuesser(geo GeoLocator, defaultCountry string, logger *slog.Logger) *CountryGuesser {
	return &CountryGuesser{
		geo:            geo,
		defaultCountry: strings.ToUpper(defaultCountry),
		logger:         logger.With("component", "country_guesser"),
	}
}

// Guess tries, in order: the explicit country parameter, GeoIP, the
// Accept-Language header, the default country. It always returns a code.
func (g *CountryGuesser) Guess(ctx context.Context, hints domain.RequestHints) string {
	if c := strings.TrimSpace(hints.CountryParam); c != "" {
		return g.found(ctx, "param", c)
	}

	if g.geo != nil && hints.RemoteAddr != "" {
		code, err := g.geo.CountryCode(ctx, hints.RemoteAddr)
		if err == nil && code != "" {
			return g.found(ctx, "geoip", code)
		}
		g.logger.WarnContext(ctx, "Could not locate country for address", "addr", hints.RemoteAddr, "error", err)
	}

	if region := dominantRegion(hints.AcceptLanguage); region != "" {
		return g.found(ctx, "accept_language", region)
	}

	return g.found(ctx, "default", g.defaultCountry)
}

func (g *CountryGuesser) found(ctx context.Context, source, code string) string {
	code = strings.ToUpper(code)
	countryGuessesCounter.WithLabelValues(source).Inc()
	g.logger.DebugContext(ctx, "Determined country", "source", source, "country", code)
	return code
}
