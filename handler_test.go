package vellum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoalesceEmptyChainPassesThroughUnchanged(t *testing.T) {
	req := NewRequest(GET, "/", HTTP11)
	res := Coalesce(nil, req)
	require.False(t, res.IsResponse())
	assert.Equal(t, req, res.AsRequest())
}

func TestCoalesceShortCircuitsOnFirstResponse(t *testing.T) {
	var ranSecond bool
	handlers := []RequestHandler{
		func(req Request) Result { return Respond(NewResponse(StatusOK)) },
		func(req Request) Result { ranSecond = true; return PassThrough(req) },
	}

	res := Coalesce(handlers, NewRequest(GET, "/", HTTP11))
	require.True(t, res.IsResponse())
	assert.False(t, ranSecond)
}

func TestCoalesceThreadsModifiedRequestThroughPassThroughs(t *testing.T) {
	handlers := []RequestHandler{
		func(req Request) Result { return PassThrough(req.WithHeader("X-A", "1")) },
		func(req Request) Result { return PassThrough(req.WithHeader("X-B", "2")) },
	}

	res := Coalesce(handlers, NewRequest(GET, "/", HTTP11))
	require.False(t, res.IsResponse())
	a, _ := res.AsRequest().Header("X-A")
	b, _ := res.AsRequest().Header("X-B")
	assert.Equal(t, "1", a)
	assert.Equal(t, "2", b)
}

func TestFilterChainEmptyChainReturnsResponseUnchanged(t *testing.T) {
	resp := NewResponse(StatusOK)
	out := FilterChain(nil, NewRequest(GET, "/", HTTP11), resp)
	assert.Equal(t, resp, out)
}

func TestFilterChainAppliesFiltersInOrder(t *testing.T) {
	filters := []ResponseFilter{
		func(req Request, resp Response) Response { return resp.WithHeader("X-Order", "1") },
		func(req Request, resp Response) Response {
			v, _ := resp.Header("X-Order")
			return resp.WithHeader("X-Order", v+"2")
		},
	}

	out := FilterChain(filters, NewRequest(GET, "/", HTTP11), NewResponse(StatusOK))
	v, ok := out.Header("X-Order")
	require.True(t, ok)
	assert.Equal(t, "12", v)
}

func TestPassThroughAndRespondResultIdentity(t *testing.T) {
	req := NewRequest(GET, "/", HTTP11)
	res := PassThrough(req)
	assert.False(t, res.IsResponse())
	assert.Equal(t, req, res.AsRequest())

	resp := NewResponse(StatusNoContent)
	res = Respond(resp)
	assert.True(t, res.IsResponse())
	assert.Equal(t, resp, res.AsResponse())
}
