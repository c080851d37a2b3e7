// Package parser turns recorded replay logs and raw agent commands into
// typed values. It has no dependencies beyond a logger.
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/OCAP2/luxreplay/pkg/core"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// ErrInvalidReplay is returned when a replay log is structurally unusable.
var ErrInvalidReplay = errors.New("invalid replay")

// parseIntFromFloat parses a string that may be an integer ("32") or float ("32.00") into int64.
// Agents written in dynamic languages often format coordinates as floats.
func parseIntFromFloat(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("parseIntFromFloat: %q is not a valid int64", s)
	}
	return int64(f), nil
}

// Parser converts raw replay input into core values.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger) *Parser {
	return &Parser{logger: logger}
}

// rawReplay mirrors the replay log layout. Fields beyond the ones the engine
// needs (team details, version) are ignored.
type rawReplay struct {
	Seed        *json.Number           `json:"seed"`
	MapType     string                 `json:"mapType"`
	Width       int                    `json:"width"`
	Height      int                    `json:"height"`
	AllCommands *[][]core.CommandEntry `json:"allCommands"`
}

// ParseReplay decodes a replay log. A turn recorded as null stays nil in
// AllCommands and is reported as missing during generation.
func (p *Parser) ParseReplay(r io.Reader) (*core.Replay, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw rawReplay
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("error decoding replay: %w", err)
	}
	if raw.Width <= 0 || raw.Height <= 0 {
		return nil, fmt.Errorf("%w: map size %dx%d", ErrInvalidReplay, raw.Width, raw.Height)
	}
	if raw.AllCommands == nil {
		return nil, fmt.Errorf("%w: no allCommands", ErrInvalidReplay)
	}

	replay := &core.Replay{
		MapType:     raw.MapType,
		Width:       raw.Width,
		Height:      raw.Height,
		AllCommands: *raw.AllCommands,
	}
	if raw.Seed != nil {
		seed, err := parseIntFromFloat(raw.Seed.String())
		if err != nil {
			return nil, fmt.Errorf("%w: seed: %v", ErrInvalidReplay, err)
		}
		replay.Seed = seed
	}

	p.logger.Debug("Parsed replay",
		"seed", replay.Seed,
		"mapType", replay.MapType,
		"width", replay.Width,
		"height", replay.Height,
		"turns", len(replay.AllCommands))
	return replay, nil
}

// ParseReplayFile reads a replay log from disk. Files ending in .gz or .zst
// are decompressed on the fly.
func (p *Parser) ParseReplayFile(path string) (*core.Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open replay: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	case ".zst":
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open zstd stream: %w", err)
		}
		defer zr.Close()
		r = zr
	}
	return p.ParseReplay(r)
}
