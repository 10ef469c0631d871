package handlers

import (
	"net"
	"testing"
)

// netPipe returns both ends of an in-memory connection, closed on cleanup.
func netPipe(t *testing.T) (client, server net.Conn) {
	t.Helper()
	client, server = net.Pipe()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return client, server
}
