package logging

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/rs/zerolog"
)

// NewZerolog returns a zerolog.Logger whose events are re-emitted through
// logger, so components built on zerolog share the slog sinks.
func NewZerolog(logger *slog.Logger, component string) zerolog.Logger {
	return zerolog.New(slogWriter{logger: logger}).
		Level(zerolog.DebugLevel).
		With().Str("component", component).Logger()
}

type slogWriter struct {
	logger *slog.Logger
}

// Write decodes one zerolog JSON event and logs it at the matching level.
func (w slogWriter) Write(p []byte) (int, error) {
	var event map[string]any
	if err := json.Unmarshal(p, &event); err != nil {
		w.logger.Info(string(p))
		return len(p), nil
	}

	lvl := zerologLevel(event[zerolog.LevelFieldName])
	msg, _ := event[zerolog.MessageFieldName].(string)
	delete(event, zerolog.LevelFieldName)
	delete(event, zerolog.MessageFieldName)

	attrs := make([]slog.Attr, 0, len(event))
	for k, v := range event {
		attrs = append(attrs, slog.Any(k, v))
	}
	w.logger.LogAttrs(context.Background(), lvl, msg, attrs...)
	return len(p), nil
}

func zerologLevel(v any) slog.Level {
	s, _ := v.(string)
	l, err := zerolog.ParseLevel(s)
	if err != nil || l == zerolog.NoLevel {
		return slog.LevelInfo
	}
	switch {
	case l <= zerolog.DebugLevel:
		return slog.LevelDebug
	case l == zerolog.InfoLevel:
		return slog.LevelInfo
	case l == zerolog.WarnLevel:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
