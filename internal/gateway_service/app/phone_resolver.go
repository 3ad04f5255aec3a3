package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/nellessen/nexmo-download-link/internal/gateway_service/domain"
)

// Guesser supplies a country for numbers lacking an international prefix.
type Guesser interface {
	Guess(ctx context.Context, hints domain.RequestHints) string
}

// PhoneResolver parses raw input into a PhoneNumber.
type PhoneResolver struct {
	guesser        Guesser
	guessEnabled   bool
	defaultCountry string
	logger         *slog.Logger
}

func NewPhoneResolver(guesser Guesser, guessEnabled bool, defaultCountry string, logger *slog.Logger) *PhoneResolver {
	return &PhoneResolver{
		guesser:        guesser,
		guessEnabled:   guessEnabled,
		defaultCountry: strings.ToUpper(defaultCountry),
		logger:         logger.With("component", "phone_resolver"),
	}
}

// Resolve parses raw as an international number first. Failing that it parses
// again in the context of a guessed (or the default) country. The error wraps
// domain.ErrInvalidPhoneNumber when both attempts fail.
func (r *PhoneResolver) Resolve(ctx context.Context, raw string, hints domain.RequestHints) (domain.PhoneNumber, error) {
	if num, err := phonenumbers.Parse(raw, phonenumbers.UNKNOWN_REGION); err == nil {
		phoneResolutionsCounter.WithLabelValues("international").Inc()
		return domain.NewPhoneNumber(num), nil
	}

	country := r.defaultCountry
	if r.guessEnabled {
		country = r.guesser.Guess(ctx, hints)
	}

	num, err := phonenumbers.Parse(raw, country)
	if err != nil {
		phoneResolutionsCounter.WithLabelValues("invalid").Inc()
		r.logger.DebugContext(ctx, "Could not parse phone number", "number", raw, "country", country, "error", err)
		return domain.PhoneNumber{}, fmt.Errorf("%w: %q with country %s: %v", domain.ErrInvalidPhoneNumber, raw, country, err)
	}
	phoneResolutionsCounter.WithLabelValues("with_country").Inc()
	return domain.NewPhoneNumber(num), nil
}
