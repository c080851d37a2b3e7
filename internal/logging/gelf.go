package logging

import (
	"fmt"
	"log/slog"

	"github.com/Graylog2/go-gelf/gelf"
)

// NewGraylogHandler returns a JSON handler that ships records to a Graylog
// GELF UDP input at address. The returned writer must be closed.
func NewGraylogHandler(address, level string) (slog.Handler, *gelf.Writer, error) {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return nil, nil, fmt.Errorf("graylog writer %s: %w", address, err)
	}
	w.Facility = instrumentationScope
	return slog.NewJSONHandler(w, handlerOptions(level)), w, nil
}
