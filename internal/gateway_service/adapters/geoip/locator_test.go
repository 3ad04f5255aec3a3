package geoip

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"

	"github.com/oschwald/geoip2-golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	codes  map[string]string
	err    error
	calls  int
	closed bool
}

func (f *fakeReader) Country(ip net.IP) (*geoip2.Country, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	rec := &geoip2.Country{}
	rec.Country.IsoCode = f.codes[ip.String()]
	return rec, nil
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLocator_IPv4DatabaseFirst(t *testing.T) {
	v4 := &fakeReader{codes: map[string]string{"81.2.69.160": "GB"}}
	v6 := &fakeReader{codes: map[string]string{"81.2.69.160": "FR"}}
	l := newLocator(v4, v6, discardLogger())

	code, err := l.CountryCode(context.Background(), "81.2.69.160")
	require.NoError(t, err)
	assert.Equal(t, "GB", code)
	assert.Equal(t, 0, v6.calls)
}

func TestLocator_FallsBackToIPv6OnError(t *testing.T) {
	v4 := &fakeReader{err: errors.New("you attempted to look up an IPv6 address in an IPv4-only database")}
	v6 := &fakeReader{codes: map[string]string{"2001:db8::1": "DE"}}
	l := newLocator(v4, v6, discardLogger())

	code, err := l.CountryCode(context.Background(), "2001:db8::1")
	require.NoError(t, err)
	assert.Equal(t, "DE", code)
}

func TestLocator_FallsBackToIPv6WhenNotFound(t *testing.T) {
	v4 := &fakeReader{codes: map[string]string{}}
	v6 := &fakeReader{codes: map[string]string{"10.0.0.1": "AT"}}
	l := newLocator(v4, v6, discardLogger())

	code, err := l.CountryCode(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "AT", code)
}

func TestLocator_NotFoundVersusError(t *testing.T) {
	l := newLocator(&fakeReader{}, &fakeReader{}, discardLogger())
	_, err := l.CountryCode(context.Background(), "10.0.0.1")
	assert.Equal(t, ErrNotFound, err)

	lookupErr := errors.New("corrupt database")
	l = newLocator(&fakeReader{err: lookupErr}, nil, discardLogger())
	_, err = l.CountryCode(context.Background(), "10.0.0.1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, lookupErr)

	_, err = l.CountryCode(context.Background(), "not-an-ip")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestLocator_Close(t *testing.T) {
	v4, v6 := &fakeReader{}, &fakeReader{}
	require.NoError(t, newLocator(v4, v6, discardLogger()).Close())
	assert.True(t, v4.closed)
	assert.True(t, v6.closed)
}

func TestOpen_NoDatabases(t *testing.T) {
	l, err := Open("", "", discardLogger())
	require.NoError(t, err)
	_, err = l.CountryCode(context.Background(), "8.8.8.8")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open("/nonexistent/GeoIP.mmdb", "", discardLogger())
	require.Error(t, err)
}
