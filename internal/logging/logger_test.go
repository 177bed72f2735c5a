package logging

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestInit(t *testing.T) {
	defer log.SetLevel(log.GetLevel())

	tests := []struct {
		level string
		want  log.Level
	}{
		{"debug", log.DebugLevel},
		{" WARN ", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"trace", log.TraceLevel},
		{"", log.InfoLevel},
		{"verbose", log.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			Init(tt.level)
			assert.Equal(t, tt.want, log.GetLevel())
		})
	}
}

func TestFor(t *testing.T) {
	e := For("shard")
	assert.Equal(t, "shard", e.Data["component"])
}
