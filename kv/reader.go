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
	"io"
	"os"
	"sync/atomic"
)

// readerCache is a cache of open file handles, one per generation. It is
// not safe for concurrent use: KvStore.Get borrows one from the store's
// sync.Pool for the length of a single read and puts it back, and
// compaction builds its own, so no cache is used by two goroutines at once.
type readerCache struct {
	dir       string
	safePoint *atomic.Uint64
	handles   map[uint64]*os.File
}

func newReaderCache(dir string, safePoint *atomic.Uint64) *readerCache {
	return &readerCache{
		dir:       dir,
		safePoint: safePoint,
		handles:   make(map[uint64]*os.File),
	}
}

// evictStale discards cached handles for generations that have fallen
// behind safePoint, bounding how long a reader may keep an unlinked file
// open.
func (c *readerCache) evictStale() {
	sp := c.safePoint.Load()
	for gen, f := range c.handles {
		if gen < sp {
			f.Close()
			delete(c.handles, gen)
		}
	}
}

func (c *readerCache) handle(gen uint64) (*os.File, error) {
	if f, ok := c.handles[gen]; ok {
		return f, nil
	}
	f, err := os.Open(logFileName(c.dir, gen))
	if err != nil {
		return nil, fmt.Errorf("opening generation %d: %w", gen, err)
	}
	c.handles[gen] = f
	return f, nil
}

// withBoundedReader seeks the cached handle for pos.Gen to pos.Offset and
// invokes fn with a reader that yields exactly pos.Length bytes and no
// more, so a reader can never run past a record boundary even if the
// underlying generation is concurrently compacted away.
func (c *readerCache) withBoundedReader(pos CommandPos, fn func(io.Reader) error) error {
	c.evictStale()
	f, err := c.handle(pos.Gen)
	if err != nil {
		return err
	}
	if _, err := f.Seek(int64(pos.Offset), io.SeekStart); err != nil {
		return fmt.Errorf("seeking generation %d: %w", pos.Gen, err)
	}
	bounded := io.LimitReader(f, int64(pos.Length))
	return fn(bounded)
}

func (c *readerCache) close() {
	for _, f := range c.handles {
		f.Close()
	}
	c.handles = nil
}

// bufferedLogReader wraps a reader (a generation file for sequential
// replay, or a bounded single-record reader for point lookups) with a
// bufio.Reader that reports consumed-byte counts via decodeCommand.
func bufferedLogReader(r io.Reader) *bufio.Reader {
	return bufio.NewReaderSize(r, 64*1024)
}
