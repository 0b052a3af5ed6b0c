package vellum

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlainCookiesSplitsOnSemicolon(t *testing.T) {
	got, err := ParsePlainCookies("a=1; b=2")
	require.NoError(t, err)
	assert.Equal(t, []PlainCookie{{Name: "a", Value: "1"}, {Name: "b", Value: "2"}}, got)
}

func TestParsePlainCookiesEmptyHeader(t *testing.T) {
	got, err := ParsePlainCookies("")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestParsePlainCookiesRejectsIllegalName(t *testing.T) {
	_, err := ParsePlainCookies("bad name=1")
	assert.ErrorIs(t, err, ErrIllegalCookie)
}

func TestFoldPlainCookiesRoundTrip(t *testing.T) {
	cookies := []PlainCookie{{Name: "a", Value: "1"}, {Name: "b", Value: "2"}}
	folded := FoldPlainCookies(cookies)

	got, err := ParsePlainCookies(folded)
	require.NoError(t, err)
	assert.Equal(t, cookies, got)
}

func TestParseSetCookieFoldsKnownAttributes(t *testing.T) {
	sc, err := ParseSetCookie("sid=abc123; Domain=example.com; Path=/app; Secure; HttpOnly; Max-Age=3600")
	require.NoError(t, err)

	assert.Equal(t, "sid", sc.Name)
	assert.Equal(t, "abc123", sc.Value)
	assert.Equal(t, "example.com", sc.Domain)
	assert.Equal(t, "/app", sc.Path)
	assert.True(t, sc.Secure)
	assert.True(t, sc.HttpOnly)
	require.NotNil(t, sc.MaxAge)
	assert.Equal(t, 3600, *sc.MaxAge)
}

func TestParseSetCookieIgnoresUnknownAttributes(t *testing.T) {
	sc, err := ParseSetCookie("sid=abc123; SameSite=Strict")
	require.NoError(t, err)
	assert.Equal(t, "sid", sc.Name)
	assert.Equal(t, "abc123", sc.Value)
}

func TestParseSetCookieRejectsIllegalValue(t *testing.T) {
	_, err := ParseSetCookie("sid=bad value")
	assert.ErrorIs(t, err, ErrIllegalCookie)
}

func TestSetCookieStringRendersAllAttributes(t *testing.T) {
	maxAge := 60
	sc := SetCookie{
		Name: "sid", Value: "abc",
		Domain: "example.com", Path: "/",
		MaxAge: &maxAge, Secure: true, HttpOnly: true,
	}
	s := sc.String()
	assert.Contains(t, s, "sid=abc")
	assert.Contains(t, s, "Domain=example.com")
	assert.Contains(t, s, "Path=/")
	assert.Contains(t, s, "Max-Age=60")
	assert.Contains(t, s, "Secure")
	assert.Contains(t, s, "HttpOnly")
}

func TestSetCookieStringOmitsUnsetAttributes(t *testing.T) {
	sc := SetCookie{Name: "sid", Value: "abc"}
	assert.Equal(t, "sid=abc", sc.String())
}

func TestCookieStorePutThenGet(t *testing.T) {
	store := NewCookieStore()
	err := store.Put("https://example.com/", []SetCookie{{Name: "sid", Value: "abc"}})
	require.NoError(t, err)

	got, err := store.Get("https://example.com/")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, PlainCookie{Name: "sid", Value: "abc"}, got[0])
}

func TestParseSetCookieExpiresParsesHTTPDate(t *testing.T) {
	sc, err := ParseSetCookie("sid=abc; Expires=Fri, 31 Jul 2026 12:00:00 GMT")
	require.NoError(t, err)
	assert.Equal(t, 2026, sc.Expires.Year())
	assert.Equal(t, time.Month(7), sc.Expires.Month())
	assert.Equal(t, 31, sc.Expires.Day())
}
