package cluster

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/storegrid/internal/fault"
)

func startEcho(t *testing.T) *Server {
	t.Helper()
	srv, err := Listen("127.0.0.1:0", func(conn *Conn) {
		var req Request
		if err := conn.Receive(&req); err != nil {
			return
		}
		switch req.Command {
		case "echo":
			var s string
			_ = json.Unmarshal(req.Payload, &s)
			reply, _ := OKReply(s)
			_ = conn.Send(reply)
		default:
			_ = conn.Send(ErrReply(fault.ErrNotFound))
		}
	}, nil)
	require.NoError(t, err)
	go srv.Serve()
	t.Cleanup(func() { srv.Close() })
	return srv
}

func TestCall(t *testing.T) {
	srv := startEcho(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	t.Run("success decodes data", func(t *testing.T) {
		var out string
		require.NoError(t, Call(ctx, srv.Addr(), "echo", "hello", &out))
		assert.Equal(t, "hello", out)
	})

	t.Run("error keeps kind", func(t *testing.T) {
		err := Call(ctx, srv.Addr(), "missing", nil, nil)
		assert.ErrorIs(t, err, fault.ErrNotFound)
	})

	t.Run("unreachable", func(t *testing.T) {
		addr := srv.Addr()
		srv.Close()
		err := Call(ctx, addr, "echo", "x", nil)
		assert.ErrorIs(t, err, fault.ErrUnreachable)
	})
}

func TestParseWorker(t *testing.T) {
	w, err := ParseWorker("10.0.0.1:6001")
	require.NoError(t, err)
	assert.Equal(t, Worker{Host: "10.0.0.1", Port: 6001}, w)
	assert.Equal(t, "10.0.0.1:6001", w.Addr())

	_, err = ParseWorker("nope")
	assert.Error(t, err)
}

func TestServerRecoversHandlerPanic(t *testing.T) {
	srv, err := Listen("127.0.0.1:0", func(conn *Conn) {
		var req Request
		if err := conn.Receive(&req); err != nil {
			return
		}
		if req.Command == "boom" {
			panic("handler failure")
		}
		reply, _ := OKReply("alive")
		_ = conn.Send(reply)
	}, nil)
	require.NoError(t, err)
	go srv.Serve()
	t.Cleanup(func() { srv.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = Call(ctx, srv.Addr(), "boom", nil, nil)
	assert.Error(t, err)

	var out string
	require.NoError(t, Call(ctx, srv.Addr(), "ping", nil, &out))
	assert.Equal(t, "alive", out)
}
