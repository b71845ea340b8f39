/*
Copyright (C) 2026  The kvs Authors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package kv

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	lz4 "github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// Archiver receives a copy of a retired generation file before the
// compactor unlinks it (§4.10). Archival is best-effort: a failure is
// logged by the caller and never blocks or fails the compaction.
type Archiver interface {
	Archive(ctx context.Context, generation uint64, path string) error
}

// CompressionTier selects how a FileArchiver encodes archived generations.
type CompressionTier int

const (
	// CompressionFast compresses with lz4: low CPU cost, modest ratio.
	// This is the default tier.
	CompressionFast CompressionTier = iota
	// CompressionCold compresses with xz: higher ratio, more CPU, meant
	// for generations unlikely to ever be read back.
	CompressionCold
)

// FileArchiver copies retired generation files into a sibling directory,
// optionally compressed.
type FileArchiver struct {
	Dir        string
	Compress   bool
	Tier       CompressionTier
}

func (a *FileArchiver) Archive(_ context.Context, generation uint64, path string) error {
	if err := os.MkdirAll(a.Dir, 0750); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	defer src.Close()

	name := fmt.Sprintf("%d.log", generation)
	if a.Compress {
		if a.Tier == CompressionCold {
			name += ".xz"
		} else {
			name += ".lz4"
		}
	}
	dstPath := filepath.Join(a.Dir, name)
	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0640)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	defer dst.Close()

	var w io.Writer = dst
	var closer io.Closer
	if a.Compress {
		if a.Tier == CompressionCold {
			xw, err := xz.NewWriter(dst)
			if err != nil {
				return fmt.Errorf("archive: %w", err)
			}
			w, closer = xw, xw
		} else {
			lw := lz4.NewWriter(dst)
			w, closer = lw, lw
		}
	}

	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	if closer != nil {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("archive: %w", err)
		}
	}
	return nil
}
