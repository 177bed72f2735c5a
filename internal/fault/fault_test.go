package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind string
	}{
		{"not found", fmt.Errorf("%w: store Olive", ErrNotFound), "not_found"},
		{"exists", fmt.Errorf("%w: store Olive", ErrAlreadyExists), "already_exists"},
		{"validation", fmt.Errorf("%w: quantity must be positive", ErrValidation), "validation"},
		{"timeout", ErrTimeout, "timeout"},
		{"plain", errors.New("boom"), "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, Kind(tt.err))

			rebuilt := FromKind(Kind(tt.err), tt.err.Error())
			assert.Equal(t, tt.err.Error(), rebuilt.Error())
			assert.Equal(t, tt.kind, Kind(rebuilt))
		})
	}
}

func TestReply(t *testing.T) {
	msg := Reply(fmt.Errorf("%w: store Olive", ErrNotFound))
	assert.Equal(t, "Error: not found: store Olive", msg)
	assert.True(t, IsReply(msg))
	assert.False(t, IsReply("Store registered: Olive"))
	assert.Equal(t, "", Kind(nil))
}
