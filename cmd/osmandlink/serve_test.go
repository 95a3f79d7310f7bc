package main

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osmandlink/internal/api"
	"osmandlink/pkg/action"
	"osmandlink/pkg/config"
	"osmandlink/pkg/tracker"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestRunServerLifecycle_ClosesSessions(t *testing.T) {
	cfg := config.DefaultConfig()
	tr := tracker.New()
	geo := &stubGeocoder{cands: berlin()}
	bridge := api.NewBridgeHandler(cfg, &action.Lock{}, geo, tr)

	quit := make(chan os.Signal, 1)
	srv := api.NewServer(freeAddr(t), bridge,
		api.NewConfigHandler(cfg),
		api.NewStatsHandler(tr, bridge),
		api.NewLinkHandler(cfg, geo),
		func() {},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- runServerLifecycle(ctx, srv, quit, bridge, time.Second) }()

	var conn *websocket.Conn
	require.Eventually(t, func() bool {
		c, _, err := websocket.DefaultDialer.Dial("ws://"+srv.Addr+"/ws", nil)
		if err != nil {
			return false
		}
		conn = c
		return true
	}, 3*time.Second, 20*time.Millisecond)
	defer conn.Close()

	var hello api.ServerMessage
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, 1, bridge.SessionCount())

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("lifecycle did not return")
	}

	assert.Equal(t, 0, bridge.SessionCount())
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}
