// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

package launch

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/x/ansi"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// zstdEncoder is reused across calls to avoid repeated initialization
// overhead. zstd.Encoder is safe for concurrent use.
var zstdEncoder *zstd.Encoder

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if err != nil {
		panic("launch: zstd encoder initialization failed: " + err.Error())
	}
}

// Sanitize strips terminal control sequences from captured output.
// tmux reproduces whatever the client drew, colors and cursor
// movement included; the archived file should be plain text.
func Sanitize(data []byte) []byte {
	return []byte(ansi.Strip(string(data)))
}

// WriteCapture archives one rover's terminal output under dir with
// the requested compression ("zstd", "lz4", or "none") and returns
// the written path. Both compressed forms are standalone frame files
// readable with the stock zstd and lz4 command-line tools.
func WriteCapture(dir, name string, data []byte, compression string) (string, error) {
	var path string
	var payload []byte
	switch compression {
	case "zstd":
		path = filepath.Join(dir, name+".capture.zst")
		payload = zstdEncoder.EncodeAll(data, nil)
	case "lz4":
		path = filepath.Join(dir, name+".capture.lz4")
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return "", fmt.Errorf("lz4 compress: %w", err)
		}
		if err := w.Close(); err != nil {
			return "", fmt.Errorf("lz4 compress: %w", err)
		}
		payload = buf.Bytes()
	case "none":
		path = filepath.Join(dir, name+".capture")
		payload = data
	default:
		return "", fmt.Errorf("unknown capture compression %q", compression)
	}

	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("writing capture: %w", err)
	}
	return path, nil
}
