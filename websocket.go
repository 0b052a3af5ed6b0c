package vellum

import (
	"crypto/sha1"
	"encoding/base64"
	"net"
	"strings"

	"github.com/vellum-http/vellum/internal/headers"
	"github.com/vellum-http/vellum/internal/message"
)

// webSocketGUID is the fixed suffix RFC 6455 specifies for computing
// Sec-WebSocket-Accept (spec.md §4.4 "WebSocket upgrade").
const webSocketGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// WebSocketApp runs on a hijacked connection after a successful upgrade.
type WebSocketApp func(net.Conn)

// ComputeAccept implements spec.md §8's testable property:
// base64(sha1(key + GUID)). No ecosystem library in the corpus wraps
// this one-line RFC 6455 primitive, so it is computed directly from the
// standard library (DESIGN.md).
func ComputeAccept(secWebSocketKey string) string {
	h := sha1.New()
	h.Write([]byte(secWebSocketKey))
	h.Write([]byte(webSocketGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// WebSocketUpgrade returns a RequestHandler that completes the HTTP/1.1
// WebSocket handshake (spec.md §4.4): on a valid Upgrade: websocket
// request it returns 101 with Sec-WebSocket-Accept and stashes a
// single-use connection.upgrade closure that runs app once the
// connection service hands off the raw socket; any other request passes
// through; a malformed upgrade attempt (right headers, bad key/version)
// returns 400.
func WebSocketUpgrade(app WebSocketApp) RequestHandler {
	return func(req Request) Result {
		upgradeTokens, hasUpgrade := headers.UpgradeOption(req.Headers)
		if !hasUpgrade || !containsFold(upgradeTokens, "websocket") {
			return PassThrough(req)
		}
		if !headers.ConnectionHasToken(req.Headers, "upgrade") {
			return PassThrough(req)
		}

		key, hasKey := req.Header("Sec-WebSocket-Key")
		version, hasVersion := req.Header("Sec-WebSocket-Version")
		if !hasKey || strings.TrimSpace(key) == "" || !hasVersion || version != "13" {
			return Respond(NewResponse(message.StatusBadRequest))
		}

		resp := NewResponse(message.StatusSwitchingProtocols)
		resp.Headers = headers.SetUpgrade(resp.Headers, []string{"websocket"})
		resp.Headers = headers.SetConnection(resp.Headers, []string{"Upgrade"})
		resp.Headers = resp.Headers.Set("Sec-WebSocket-Accept", ComputeAccept(key))
		resp = resp.WithAttr(message.AttrConnectionUpgrade, func(conn net.Conn) { app(conn) })
		return Respond(resp)
	}
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}
