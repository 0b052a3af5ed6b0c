package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMediaTypeRoundTrip(t *testing.T) {
	mt, err := ParseMediaType("text/html; charset=utf-8")
	require.NoError(t, err)
	assert.Equal(t, "text", mt.Type)
	assert.Equal(t, "html", mt.Subtype)
	assert.Equal(t, "utf-8", mt.Params["charset"])
	assert.Equal(t, "text/html; charset=utf-8", mt.String())
}

func TestMediaTypeMatchesWildcards(t *testing.T) {
	html := MediaType{Type: "text", Subtype: "html"}

	assert.True(t, html.Matches(MediaType{Type: "*", Subtype: "*"}))
	assert.True(t, html.Matches(MediaType{Type: "text", Subtype: "*"}))
	assert.True(t, html.Matches(MediaType{Type: "text", Subtype: "html"}))
	assert.False(t, html.Matches(MediaType{Type: "application", Subtype: "json"}))
}

func TestParseMediaTypeRejectsMalformed(t *testing.T) {
	_, err := ParseMediaType("not a media type;;;")
	assert.Error(t, err)
}
