package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_FormatFromEnvironment(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		format      string
		wantJSON    bool
	}{
		{"production uses json", "production", "", true},
		{"development uses pretty", "development", "", false},
		{"staging uses pretty", "staging", "", false},
		{"explicit format wins", "development", "json", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(Config{Writer: &buf, Environment: tt.environment, Format: tt.format, Level: slog.LevelInfo})
			log.Info("shelf loaded", "user_id", "user-1")

			if tt.wantJSON {
				assert.Contains(t, buf.String(), `"msg":"shelf loaded"`)
				assert.Contains(t, buf.String(), `"user_id":"user-1"`)
			} else {
				assert.Contains(t, buf.String(), "shelf loaded")
				assert.Contains(t, buf.String(), "user_id=user-1")
				assert.Contains(t, buf.String(), colorReset)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestPrettyHandler_Enabled(t *testing.T) {
	h := NewPrettyHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelInfo})

	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestPrettyHandler_Levels(t *testing.T) {
	for level, want := range map[slog.Level]string{
		slog.LevelDebug: "DBG",
		slog.LevelInfo:  "INF",
		slog.LevelWarn:  "WRN",
		slog.LevelError: "ERR",
	} {
		var buf bytes.Buffer
		log := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		log.Log(context.Background(), level, "x")
		assert.Contains(t, buf.String(), want)
	}
}

func TestPrettyHandler_AttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, nil)

	assert.Same(t, h, h.WithGroup(""))

	log := slog.New(h.WithAttrs([]slog.Attr{slog.String("component", "shelf")})).
		WithGroup("req").
		With("id", "r1")
	log.Info("handled", "status", 200)

	out := buf.String()
	assert.Contains(t, out, "component=shelf")
	assert.Contains(t, out, "req.id=r1")
	assert.Contains(t, out, "req.status=200")
}

func TestPrettyHandler_WithSource(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{AddSource: true}))
	log.Info("with source")

	assert.Contains(t, buf.String(), "logger_test.go:")
}

func TestFormatValue(t *testing.T) {
	now := time.Now()
	assert.Equal(t, "test", formatValue(slog.StringValue("test")))
	assert.Equal(t, now.Format(time.RFC3339), formatValue(slog.TimeValue(now)))
	assert.Equal(t, "5s", formatValue(slog.DurationValue(5*time.Second)))
	assert.Equal(t, "42", formatValue(slog.IntValue(42)))
}

func TestLogger_WithError(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "json"})

	log.WithError(errors.New("disk full")).Warn("save failed")

	assert.Contains(t, buf.String(), `"error":"disk full"`)
}
