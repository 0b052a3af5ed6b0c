package vellum

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeAcceptKnownVector(t *testing.T) {
	// RFC 6455 §1.3 worked example.
	got := ComputeAccept("dGhlIHNhbXBsZSBub25jZQ==")
	assert.Equal(t, "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=", got)
}

func TestWebSocketUpgradePassesThroughNonUpgradeRequest(t *testing.T) {
	handler := WebSocketUpgrade(func(net.Conn) {})
	res := handler(NewRequest(GET, "/ws", HTTP11))
	assert.False(t, res.IsResponse())
}

func TestWebSocketUpgradeRespondsWithSwitchingProtocols(t *testing.T) {
	handler := WebSocketUpgrade(func(net.Conn) {})

	req := NewRequest(GET, "/ws", HTTP11)
	req.Headers = req.Headers.Set("Upgrade", "websocket")
	req.Headers = req.Headers.Set("Connection", "Upgrade")
	req.Headers = req.Headers.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	req.Headers = req.Headers.Set("Sec-WebSocket-Version", "13")

	res := handler(req)
	require.True(t, res.IsResponse())
	resp := res.AsResponse()
	assert.Equal(t, StatusSwitchingProtocols, resp.Status())

	accept, ok := resp.Headers.Get("Sec-WebSocket-Accept")
	require.True(t, ok)
	assert.Equal(t, "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=", accept)
}

func TestWebSocketUpgradeRejectsBadVersion(t *testing.T) {
	handler := WebSocketUpgrade(func(net.Conn) {})

	req := NewRequest(GET, "/ws", HTTP11)
	req.Headers = req.Headers.Set("Upgrade", "websocket")
	req.Headers = req.Headers.Set("Connection", "Upgrade")
	req.Headers = req.Headers.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	req.Headers = req.Headers.Set("Sec-WebSocket-Version", "8")

	res := handler(req)
	require.True(t, res.IsResponse())
	assert.Equal(t, StatusBadRequest, res.AsResponse().Status())
}

func TestWebSocketUpgradeRejectsMissingKey(t *testing.T) {
	handler := WebSocketUpgrade(func(net.Conn) {})

	req := NewRequest(GET, "/ws", HTTP11)
	req.Headers = req.Headers.Set("Upgrade", "websocket")
	req.Headers = req.Headers.Set("Connection", "Upgrade")
	req.Headers = req.Headers.Set("Sec-WebSocket-Version", "13")

	res := handler(req)
	require.True(t, res.IsResponse())
	assert.Equal(t, StatusBadRequest, res.AsResponse().Status())
}
