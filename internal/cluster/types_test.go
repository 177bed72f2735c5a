package cluster

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/storegrid/internal/fault"
)

func TestWorkerAddr(t *testing.T) {
	tests := []struct {
		name   string
		worker Worker
		want   string
	}{
		{name: "ipv4", worker: Worker{Host: "10.0.0.1", Port: 6000}, want: "10.0.0.1:6000"},
		{name: "hostname", worker: Worker{Host: "shard-2", Port: 6002}, want: "shard-2:6002"},
		{name: "ipv6", worker: Worker{Host: "::1", Port: 6000}, want: "[::1]:6000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.worker.Addr())

			back, err := ParseWorker(tt.want)
			require.NoError(t, err)
			assert.Equal(t, tt.worker, back)
		})
	}
}

func TestParseWorkerErrors(t *testing.T) {
	for _, in := range []string{"", "nohost", "host:", "host:port"} {
		_, err := ParseWorker(in)
		assert.Error(t, err, in)
	}
}

func TestReplyCarriesKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "not found", err: fault.ErrNotFound, want: fault.ErrNotFound},
		{name: "wrapped validation", err: errors.Join(errors.New("ctx"), fault.ErrValidation), want: fault.ErrValidation},
		{name: "already exists", err: fault.ErrAlreadyExists, want: fault.ErrAlreadyExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ErrReply(tt.err)
			assert.False(t, r.OK)
			assert.ErrorIs(t, r.Err(), tt.want)
			assert.Equal(t, tt.err.Error(), r.Err().Error())
		})
	}

	t.Run("untyped error", func(t *testing.T) {
		r := ErrReply(errors.New("boom"))
		assert.Equal(t, "internal", r.Kind)
		assert.EqualError(t, r.Err(), "boom")
	})
}

func TestOKReply(t *testing.T) {
	r, err := OKReply([]string{"a", "b"})
	require.NoError(t, err)
	assert.True(t, r.OK)
	assert.NoError(t, r.Err())
	assert.JSONEq(t, `["a","b"]`, string(r.Data))

	_, err = OKReply(make(chan int))
	assert.Error(t, err)
}
