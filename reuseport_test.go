package vellum

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSocketListenWithBacklogAcceptsConnections(t *testing.T) {
	ln, err := socketListen("127.0.0.1:0", 16, false)
	require.NoError(t, err)
	defer ln.Close()

	addr := ln.Addr().String()
	accepted := make(chan struct{})
	go func() {
		c, err := ln.Accept()
		if err == nil {
			c.Close()
		}
		close(accepted)
	}()

	client, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer client.Close()

	<-accepted
}

func TestSocketListenWithoutBacklogFallsBackToNetListen(t *testing.T) {
	ln, err := socketListen("127.0.0.1:0", 0, false)
	require.NoError(t, err)
	defer ln.Close()

	assert.NotEmpty(t, ln.Addr().String())
}
