// internal/storage/memory/export.go
package memory

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	v1 "github.com/OCAP2/luxreplay/internal/storage/memory/export/v1"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Export codecs
const (
	CodecGzip = "gzip"
	CodecZstd = "zstd"
)

// exportJSON writes the replay to a JSON file under the output directory
func (b *Backend) exportJSON() error {
	export := v1.Build(*b.meta, b.frames)

	replayName := strings.ReplaceAll(b.meta.Name, " ", "_")
	replayName = strings.ReplaceAll(replayName, ":", "_")
	if replayName == "" {
		replayName = "replay"
	}
	filename := fmt.Sprintf("%s_%s%s", replayName, b.meta.StartedAt.Format("20060102_150405"), b.extension())

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)
	if err := WriteExport(outputPath, export); err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) extension() string {
	if !b.cfg.CompressOutput {
		return ".json"
	}
	if b.cfg.Codec == CodecZstd {
		return ".json.zst"
	}
	return ".json.gz"
}

// WriteExport writes export to path. The codec is chosen by extension:
// .gz for gzip, .zst for zstd, anything else is plain JSON.
func WriteExport(path string, export v1.Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	var w io.WriteCloser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		w = gzip.NewWriter(f)
	case ".zst":
		zw, err := zstd.NewWriter(f)
		if err != nil {
			return fmt.Errorf("failed to create zstd writer: %w", err)
		}
		w = zw
	}

	var out io.Writer = f
	if w != nil {
		out = w
	}
	if err := json.NewEncoder(out).Encode(export); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	if w != nil {
		if err := w.Close(); err != nil {
			return fmt.Errorf("failed to finish compressed stream: %w", err)
		}
	}
	return f.Close()
}

// ReadExport reads an export written by WriteExport.
func ReadExport(path string) (v1.Export, error) {
	var export v1.Export

	f, err := os.Open(path)
	if err != nil {
		return export, fmt.Errorf("failed to open export: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		gz, err := gzip.NewReader(f)
		if err != nil {
			return export, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	case ".zst":
		zr, err := zstd.NewReader(f)
		if err != nil {
			return export, fmt.Errorf("failed to open zstd stream: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return export, fmt.Errorf("failed to decode export: %w", err)
	}
	if export.Version != v1.FormatVersion {
		return export, fmt.Errorf("unsupported export version %d", export.Version)
	}
	return export, nil
}
