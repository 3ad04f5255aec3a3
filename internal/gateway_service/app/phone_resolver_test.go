package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nellessen/nexmo-download-link/internal/gateway_service/domain"
)

type MockGuesser struct {
	mock.Mock
}

func (m *MockGuesser) Guess(ctx context.Context, hints domain.RequestHints) string {
	return m.Called(ctx, hints).String(0)
}

func TestPhoneResolver_InternationalSkipsGuesser(t *testing.T) {
	guesser := new(MockGuesser)
	r := NewPhoneResolver(guesser, true, "DE", discardLogger())

	num, err := r.Resolve(context.Background(), "+49176123456", domain.RequestHints{})
	require.NoError(t, err)
	assert.Equal(t, "+49 176123456", num.Display())
	assert.Equal(t, "0049176123456", num.Transport())
	assert.Equal(t, int32(49), num.CountryCode())
	assert.Equal(t, uint64(176123456), num.NationalNumber())
	guesser.AssertNotCalled(t, "Guess", mock.Anything, mock.Anything)
}

func TestPhoneResolver_NationalWithAcceptLanguage(t *testing.T) {
	r := NewPhoneResolver(NewCountryGuesser(nil, "DE", discardLogger()), true, "DE", discardLogger())

	international, err := r.Resolve(context.Background(), "+49176123456", domain.RequestHints{})
	require.NoError(t, err)
	national, err := r.Resolve(context.Background(), "0176123456", domain.RequestHints{AcceptLanguage: "DE"})
	require.NoError(t, err)
	assert.Equal(t, international, national)
}

func TestPhoneResolver_UsesGuessedCountry(t *testing.T) {
	r := NewPhoneResolver(NewCountryGuesser(nil, "US", discardLogger()), true, "US", discardLogger())

	num, err := r.Resolve(context.Background(), "0176123456", domain.RequestHints{AcceptLanguage: "de-DE,en;q=0.5"})
	require.NoError(t, err)
	assert.Equal(t, "+49 176123456", num.Display())
}

func TestPhoneResolver_GuessingDisabledUsesDefault(t *testing.T) {
	guesser := new(MockGuesser)
	r := NewPhoneResolver(guesser, false, "de", discardLogger())

	num, err := r.Resolve(context.Background(), "0176123456", domain.RequestHints{CountryParam: "FR"})
	require.NoError(t, err)
	assert.Equal(t, int32(49), num.CountryCode())
	guesser.AssertNotCalled(t, "Guess", mock.Anything, mock.Anything)
}

func TestPhoneResolver_Invalid(t *testing.T) {
	guesser := new(MockGuesser)
	guesser.On("Guess", mock.Anything, mock.Anything).Return("DE")

	for _, enabled := range []bool{true, false} {
		r := NewPhoneResolver(guesser, enabled, "DE", discardLogger())
		_, err := r.Resolve(context.Background(), "abcdefg", domain.RequestHints{})
		assert.ErrorIs(t, err, domain.ErrInvalidPhoneNumber)

		_, err = r.Resolve(context.Background(), "", domain.RequestHints{})
		assert.ErrorIs(t, err, domain.ErrInvalidPhoneNumber)
	}
}
