package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewWithWriter_JSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, Options{Component: "api", Level: "info"})
	l.Debug("hidden")
	l.Info("hello", "order_id", 7)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "api", rec["component"])
	assert.EqualValues(t, 7, rec["order_id"])
}

func TestFromCtx(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, Options{})

	assert.Same(t, l, FromCtx(WithCtx(context.Background(), l)))
	assert.NotNil(t, FromCtx(context.Background()))
}
