package utils

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetTime(t *testing.T) {
	ts := time.Date(2025, 3, 4, 13, 45, 30, 0, time.UTC)

	tests := []struct {
		granularity string
		expected    time.Time
	}{
		{"minute", time.Date(2025, 3, 4, 13, 45, 0, 0, time.UTC)},
		{"hour", time.Date(2025, 3, 4, 13, 0, 0, 0, time.UTC)},
		{"day", time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)},
		{"week", ts},
	}
	for _, tt := range tests {
		t.Run(tt.granularity, func(t *testing.T) {
			assert.True(t, tt.expected.Equal(ResetTime(ts, tt.granularity)))
		})
	}
}

func TestFromMillis(t *testing.T) {
	got := FromMillis(1499040000000)
	assert.Equal(t, time.Date(2017, 7, 3, 0, 0, 0, 0, time.UTC), got)
}

func TestNewID_SortsByCreation(t *testing.T) {
	prev := NewID()
	require.Len(t, prev, 26)
	for i := 0; i < 100; i++ {
		next := NewID()
		assert.Greater(t, next, prev)
		prev = next
	}
}

func TestSetupLogger(t *testing.T) {
	t.Cleanup(func() {
		logrus.SetLevel(logrus.InfoLevel)
		logrus.SetFormatter(&logrus.TextFormatter{})
	})

	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_FORMAT", "json")
	SetupLogger()
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logrus.StandardLogger().Formatter)

	t.Setenv("LOG_LEVEL", "nonsense")
	t.Setenv("LOG_FORMAT", "")
	SetupLogger()
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logrus.StandardLogger().Formatter)
}
