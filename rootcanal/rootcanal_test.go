package rootcanal_test

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/bt-conformance/ptsproxy/rootcanal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testChannel is a fake controller test channel that records selection
// commands and answers each with a fixed status line.
type testChannel struct {
	listener net.Listener
	status   string

	mu       sync.Mutex
	commands []string
}

func newTestChannel(t *testing.T, status string) *testChannel {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	s := &testChannel{listener: listener, status: status}
	go s.serve()

	return s
}

func (s *testChannel) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}

		go func() {
			defer conn.Close()

			reader := bufio.NewReader(conn)
			for {
				line, err := reader.ReadString('\n')
				if err != nil {
					return
				}

				s.mu.Lock()
				s.commands = append(s.commands, strings.TrimSpace(line))
				s.mu.Unlock()

				if _, err := conn.Write([]byte(s.status + "\n")); err != nil {
					return
				}
			}
		}()
	}
}

func (s *testChannel) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string{}, s.commands...)
}

func TestSelectDongle(t *testing.T) {
	server := newTestChannel(t, "ok")

	c := rootcanal.NewController(server.listener.Addr().String(), nil)
	defer c.Close()

	require.NoError(t, c.SelectDongle(context.Background(), rootcanal.CsrRckPtsDongle))
	assert.Equal(t, []string{"select_dongle csr_rck_pts_dongle"}, server.received())
}

func TestSelectDongleIdempotent(t *testing.T) {
	server := newTestChannel(t, "ok")

	c := rootcanal.NewController(server.listener.Addr().String(), nil)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.SelectDongle(ctx, rootcanal.CsrRckPtsDongle))
	require.NoError(t, c.SelectDongle(ctx, rootcanal.CsrRckPtsDongle))
	assert.Len(t, server.received(), 1)

	// Switching to a different preset issues a new command.
	require.NoError(t, c.SelectDongle(ctx, rootcanal.LairdBl654))
	assert.Len(t, server.received(), 2)
}

func TestSelectDongleRejected(t *testing.T) {
	server := newTestChannel(t, "unknown dongle")

	c := rootcanal.NewController(server.listener.Addr().String(), nil)
	defer c.Close()

	err := c.SelectDongle(context.Background(), rootcanal.Dongle("bogus"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown dongle")
}

func TestSelectDongleDisabledWithoutAddress(t *testing.T) {
	c := rootcanal.NewController("", nil)
	defer c.Close()

	require.NoError(t, c.SelectDongle(context.Background(), rootcanal.CsrRckPtsDongle))
}
