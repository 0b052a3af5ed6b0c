package conn

import (
	"time"

	"github.com/vellum-http/vellum/internal/headers"
	"github.com/vellum-http/vellum/internal/message"
)

// KeepAliveParams mirrors the root package's KeepAliveParams without
// importing it (internal packages stay below the public API).
type KeepAliveParams struct {
	Enabled bool
	Timeout time.Duration
	Max     int
}

// ShouldKeepAlive implements spec.md §4.5.1: keep-alive is chosen when
// it is globally enabled, the request's Connection contains
// "keep-alive" case-insensitively, the current request count is
// strictly less than keepAliveMax, and the exchange is "safe" (response
// is 2xx, or request is GET/HEAD and response is 3xx).
func ShouldKeepAlive(params KeepAliveParams, requestCount int, req message.HttpRequest, resp message.HttpResponse) bool {
	if !params.Enabled {
		return false
	}
	if !headers.ConnectionHasToken(req.Headers, "keep-alive") {
		return false
	}
	if requestCount >= params.Max {
		return false
	}
	code := resp.Line.Status.Code
	safe := (code >= 200 && code < 300) ||
		((req.Method() == message.GET || req.Method() == message.HEAD) && code >= 300 && code < 400)
	return safe
}

// ApplyConnectionManagement appends the Connection/Keep-Alive headers
// that reflect the decision made by ShouldKeepAlive (spec.md §4.5.1).
// Upgrades are passed through unmodified by the caller before this is
// reached.
func ApplyConnectionManagement(resp message.HttpResponse, keepAlive bool, params KeepAliveParams, requestCount int) message.HttpResponse {
	if keepAlive {
		resp.Headers = headers.SetConnection(resp.Headers, []string{"keep-alive"})
		// requestCount is this (already-served) request's 1-based ordinal,
		// so requestCount-1 of the Max budget is spent; the advertised max
		// is how many more requests this connection will still honor,
		// including the one after this response (spec.md §8 scenario 3:
		// max=2's first response still advertises max=2).
		remaining := params.Max - (requestCount - 1)
		resp.Headers = headers.SetKeepAlive(resp.Headers, int(params.Timeout/time.Second), remaining)
		return resp
	}
	resp.Headers = headers.SetConnection(resp.Headers, []string{"close"})
	return resp
}

// IsUpgrade reports whether resp signals a protocol upgrade (Connection:
// Upgrade), per spec.md §4.5 step 11.
func IsUpgrade(resp message.HttpResponse) bool {
	return headers.ConnectionHasToken(resp.Headers, "upgrade")
}
