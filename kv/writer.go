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
	"bufio"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	units "github.com/docker/go-units"
)

// compactionThreshold is the uncompacted-byte watermark (§4.4) past which a
// Set or Remove synchronously triggers compaction.
const compactionThreshold = 1 << 20 // 1 MiB

// appendFile is a buffered, position-tracking append stream for one
// generation's log file.
type appendFile struct {
	f   *os.File
	w   *bufio.Writer
	pos int64
}

func createAppendFile(dir string, gen uint64) (*appendFile, error) {
	f, err := os.OpenFile(logFileName(dir, gen), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0640)
	if err != nil {
		return nil, fmt.Errorf("creating generation %d: %w", gen, err)
	}
	return &appendFile{f: f, w: bufio.NewWriterSize(f, 64*1024)}, nil
}

// append writes data and flushes the user-space buffer to the OS (not
// fsync: durability here is best-effort against a process crash, not a
// power loss, matching this codebase's own log-writer trade-off).
func (a *appendFile) append(data []byte) (offset int64, err error) {
	offset = a.pos
	if _, err = a.w.Write(data); err != nil {
		return offset, fmt.Errorf("appending record: %w", err)
	}
	if err = a.w.Flush(); err != nil {
		return offset, fmt.Errorf("flushing record: %w", err)
	}
	a.pos += int64(len(data))
	return offset, nil
}

func (a *appendFile) close() error {
	if err := a.w.Flush(); err != nil {
		a.f.Close()
		return err
	}
	return a.f.Close()
}

// Writer owns the single append path for one engine instance: the active
// generation's stream, the uncompacted-byte counter, and the index. Every
// Set/Remove, and any compaction it triggers, runs under writer.mu, exactly
// as §4.4/§4.5 require ("held across full operations including
// compaction").
type Writer struct {
	mu sync.Mutex

	dir       string
	index     *Index
	registry  *generationRegistry
	safePoint *atomic.Uint64

	curGen          uint64
	file            *appendFile
	uncompacted     uint64
	compactionCount uint64

	archiver Archiver
	audit    AuditSink
	logf     func(string, ...any)
}

func newWriter(dir string, index *Index, registry *generationRegistry, safePoint *atomic.Uint64, curGen uint64, archiver Archiver, audit AuditSink, logf func(string, ...any)) (*Writer, error) {
	f, err := createAppendFile(dir, curGen)
	if err != nil {
		return nil, err
	}
	registry.add(curGen)
	return &Writer{
		dir:       dir,
		index:     index,
		registry:  registry,
		safePoint: safePoint,
		curGen:    curGen,
		file:      f,
		archiver:  archiver,
		audit:     audit,
		logf:      logf,
	}, nil
}

// Set appends a Set record and installs its CommandPos in the index,
// following the six numbered steps of §4.4.
func (w *Writer) Set(key, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	encoded, err := encodeSet(key, value)
	if err != nil {
		return err
	}
	normalizedKey := normalizeKey(key)

	p0, err := w.file.append(encoded)
	if err != nil {
		return err
	}
	length := uint64(len(encoded))

	if old, had := w.index.Get(normalizedKey); had {
		w.uncompacted += old.Length
	}
	w.index.Set(normalizedKey, CommandPos{Gen: w.curGen, Offset: uint64(p0), Length: length})

	return w.maybeCompact()
}

// Remove appends a Remove record, failing with ErrKeyNotFound if the key
// is not currently alive (writing nothing in that case), per §4.4.
func (w *Writer) Remove(key string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	normalizedKey := normalizeKey(key)
	old, had := w.index.Get(normalizedKey)
	if !had {
		return fmt.Errorf("remove %q: %w", key, ErrKeyNotFound)
	}

	encoded, err := encodeRemove(key)
	if err != nil {
		return err
	}
	if _, err := w.file.append(encoded); err != nil {
		return err
	}

	w.index.Remove(normalizedKey)
	w.uncompacted += old.Length + uint64(len(encoded))

	return w.maybeCompact()
}

// maybeCompact invokes compaction when the uncompacted-byte watermark is
// exceeded. Must be called with w.mu held.
func (w *Writer) maybeCompact() error {
	if w.uncompacted <= compactionThreshold {
		return nil
	}
	return w.compact()
}

func (w *Writer) uncompactedSnapshot() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.uncompacted
}

func (w *Writer) currentGeneration() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.curGen
}

func (w *Writer) compactionCountSnapshot() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.compactionCount
}

func (w *Writer) setAudit(audit AuditSink) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.audit = audit
}

func (w *Writer) humanSize(n uint64) string {
	return units.BytesSize(float64(n))
}

func (w *Writer) close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.close()
}
