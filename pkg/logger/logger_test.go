package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, slog.LevelInfo, true)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithLine(ctx, "mnist/cnn")
	l.WithContext(ctx).WithComponent("browser").Info("loaded")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "req-1", rec["request_id"])
	assert.Equal(t, "mnist/cnn", rec["line"])
	assert.Equal(t, "browser", rec["component"])
	assert.Equal(t, "loaded", rec["msg"])
}

func TestContextAccessors(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestIDFromContext(ctx))
	assert.Empty(t, LineFromContext(ctx))

	ctx = ContextWithLine(ContextWithRequestID(ctx, "abc"), "r/l")
	assert.Equal(t, "abc", RequestIDFromContext(ctx))
	assert.Equal(t, "r/l", LineFromContext(ctx))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"", slog.LevelInfo, false},
		{"INFO", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		assert.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
