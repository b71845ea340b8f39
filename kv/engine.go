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
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
)

// Options configures an engine instance opened with Open. The zero value is
// a usable engine with no archival, no audit mirror, and logging to
// standard output.
type Options struct {
	Archiver Archiver
	Audit    AuditSink
	Logf     func(string, ...any)
}

func (o Options) logf() func(string, ...any) {
	if o.Logf != nil {
		return o.Logf
	}
	return func(format string, args ...any) { fmt.Printf(format+"\n", args...) }
}

// KvStore is the log-structured key/value engine described by the data
// model: an in-memory Index over an append-only sequence of generation log
// files, one active Writer, and a watchdog over the generation registry.
// It implements Engine.
type KvStore struct {
	dir       string
	lock      *dirLock
	index     *Index
	registry  *generationRegistry
	safePoint *atomic.Uint64
	writer    *Writer
	stopWatch func()

	// readerPool hands out readerCaches to callers of Get, so a goroutine
	// that calls Get repeatedly tends to reuse the same cached file
	// handles instead of reopening generations on every call, the same
	// intent as one persistent cache per worker (§4.3) without requiring
	// Get's callers to manage worker-scoped state themselves.
	readerPool sync.Pool
}

// Open replays dir's existing generation files (if any) into a fresh index
// and returns a ready KvStore, per the open-time contract of §4.3/§4.6: a
// single flock'd instance per directory, oldest-to-newest replay so later
// records win, and a safePoint seeded at the smallest generation still on
// disk.
func Open(dir string, opts Options) (*KvStore, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("open %s: %w", dir, err)
	}

	lock, err := acquireDirLock(dir)
	if err != nil {
		return nil, err
	}

	store, err := openLocked(dir, opts, lock)
	if err != nil {
		lock.release()
		return nil, err
	}
	return store, nil
}

func openLocked(dir string, opts Options, lock *dirLock) (*KvStore, error) {
	gens, err := sortedGenerations(dir)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dir, err)
	}

	index := NewIndex()
	for _, gen := range gens {
		if err := replayGeneration(dir, gen, index); err != nil {
			return nil, fmt.Errorf("open %s: replaying generation %d: %w", dir, gen, err)
		}
	}

	registry := newGenerationRegistry(gens)
	safePoint := new(atomic.Uint64)
	if min, ok := registry.min(); ok {
		safePoint.Store(min)
	}

	curGen := uint64(1)
	if len(gens) > 0 {
		curGen = gens[len(gens)-1] + 1
	}

	logf := opts.logf()
	writer, err := newWriter(dir, index, registry, safePoint, curGen, opts.Archiver, opts.Audit, logf)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dir, err)
	}

	stopWatch, err := watchDirectory(dir, func(gen uint64) bool { return gen < safePoint.Load() }, logf)
	if err != nil {
		logf("open %s: directory watcher unavailable: %v", dir, err)
		stopWatch = func() {}
	}

	store := &KvStore{
		dir:       dir,
		lock:      lock,
		index:     index,
		registry:  registry,
		safePoint: safePoint,
		writer:    writer,
		stopWatch: stopWatch,
	}
	store.readerPool.New = func() any { return newReaderCache(store.dir, store.safePoint) }
	return store, nil
}

// replayGeneration reads one generation file front-to-back, applying each
// decoded command to index so that the last write to a key wins across the
// whole directory.
func replayGeneration(dir string, gen uint64, index *Index) error {
	f, err := os.Open(logFileName(dir, gen))
	if err != nil {
		return err
	}
	defer f.Close()

	r := bufferedLogReader(f)
	var offset uint64
	for {
		cmd, n, err := decodeCommand(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		key := normalizeKey(cmd.Key)
		switch cmd.Op {
		case opSet:
			index.Set(key, CommandPos{Gen: gen, Offset: offset, Length: uint64(n)})
		case opRm:
			index.Remove(key)
		default:
			return ErrUnexpectedCommandType
		}
		offset += uint64(n)
	}
	return nil
}

// Set writes key -> value durably and updates the index, triggering
// compaction transparently if the uncompacted-byte watermark is crossed.
func (s *KvStore) Set(key, value string) error {
	return s.writer.Set(key, value)
}

// Get returns the current value for key, or ErrKeyNotFound.
func (s *KvStore) Get(key string) (string, error) {
	pos, ok := s.index.Get(normalizeKey(key))
	if !ok {
		return "", fmt.Errorf("get %q: %w", key, ErrKeyNotFound)
	}

	reader := s.readerPool.Get().(*readerCache)
	defer s.readerPool.Put(reader)

	var cmd command
	err := reader.withBoundedReader(pos, func(r io.Reader) error {
		br := bufferedLogReader(r)
		decoded, _, decodeErr := decodeCommand(br)
		if decodeErr != nil {
			return decodeErr
		}
		cmd = decoded
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("get %q: %w", key, err)
	}
	if cmd.Op != opSet {
		return "", fmt.Errorf("get %q: %w", key, ErrUnexpectedCommandType)
	}
	return cmd.Value, nil
}

// Remove deletes key, returning ErrKeyNotFound if it was not alive.
func (s *KvStore) Remove(key string) error {
	return s.writer.Remove(key)
}

// Stat returns a point-in-time snapshot of engine counters.
func (s *KvStore) Stat() EngineStats {
	return EngineStats{
		CurrentGeneration: s.writer.currentGeneration(),
		UncompactedBytes:  s.writer.uncompactedSnapshot(),
		LiveKeys:          s.index.Len(),
		CompactionCount:   s.writer.compactionCountSnapshot(),
	}
}

// SetAudit replaces the engine's compaction audit sink, letting a server
// wire it up only once its dependents (like the monitoring surface) exist.
func (s *KvStore) SetAudit(audit AuditSink) {
	s.writer.setAudit(audit)
}

// Close flushes the active generation file and releases the directory
// lock. The KvStore must not be used afterwards.
func (s *KvStore) Close() error {
	s.stopWatch()
	err := s.writer.close()
	s.lock.release()
	return err
}
