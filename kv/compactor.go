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
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// compact rewrites every live record into a fresh generation and retires
// the old ones, following the nine steps of §4.5. It runs on the writer's
// own goroutine with w.mu already held, so no other Set/Remove can
// interleave with it.
func (w *Writer) compact() error {
	gensBefore := w.registry.ascending()

	// compactionGen = curGen + 1; curGen := compactionGen + 1. Two fresh
	// generations guarantee compaction output and live appends never
	// share a file (the pinned Open Question from the design notes).
	compactionGen := w.curGen + 1
	nextGen := compactionGen + 1

	compactionFile, err := createAppendFile(w.dir, compactionGen)
	if err != nil {
		return fmt.Errorf("compaction: %w", err)
	}
	w.registry.add(compactionGen)

	newCurFile, err := createAppendFile(w.dir, nextGen)
	if err != nil {
		compactionFile.close()
		return fmt.Errorf("compaction: %w", err)
	}
	w.registry.add(nextGen)

	reader := newReaderCache(w.dir, w.safePoint)
	defer reader.close()

	snapshot := w.index.Snapshot()
	var curPos int64
	for _, entry := range snapshot {
		var buf bytes.Buffer
		readErr := reader.withBoundedReader(entry.Pos, func(r io.Reader) error {
			_, copyErr := io.CopyN(&buf, r, int64(entry.Pos.Length))
			return copyErr
		})
		if readErr != nil {
			compactionFile.close()
			newCurFile.close()
			return fmt.Errorf("compaction: reading %q: %w", entry.Key, readErr)
		}
		if _, err := compactionFile.append(buf.Bytes()); err != nil {
			compactionFile.close()
			newCurFile.close()
			return fmt.Errorf("compaction: %w", err)
		}
		w.index.Set(entry.Key, CommandPos{Gen: compactionGen, Offset: uint64(curPos), Length: entry.Pos.Length})
		curPos += int64(len(buf.Bytes()))
	}

	if err := compactionFile.close(); err != nil {
		newCurFile.close()
		return fmt.Errorf("compaction: flushing output: %w", err)
	}

	// Publish safePoint before retiring old generations so readers that
	// miss cache re-resolve via the new generation, not a stale one.
	w.safePoint.Store(compactionGen)

	reclaimed := uint64(0)
	for _, g := range gensBefore {
		path := logFileName(w.dir, g)
		if info, statErr := os.Stat(path); statErr == nil {
			reclaimed += uint64(info.Size())
		}
		if w.archiver != nil {
			if archErr := w.archiver.Archive(context.Background(), g, path); archErr != nil {
				w.logf("compaction: archiving generation %d: %v", g, archErr)
			}
		}
		if err := os.Remove(path); err != nil {
			w.logf("compaction: unlinking generation %d: %v (will retry next compaction)", g, err)
			continue
		}
		w.registry.remove(g)
	}

	w.curGen = nextGen
	w.file.close()
	w.file = newCurFile
	liveKeys := w.index.Len()
	w.uncompacted = 0
	w.compactionCount++

	w.logf("compaction: rewrote %d live keys into generation %d, retired %d generations, reclaimed %s",
		liveKeys, compactionGen, len(gensBefore), w.humanSize(reclaimed))

	if w.audit != nil {
		event := CompactionEvent{
			Generation:     compactionGen,
			BytesReclaimed: reclaimed,
			LiveKeys:       liveKeys,
			Timestamp:      time.Now(),
		}
		if auditErr := w.audit.RecordCompaction(event); auditErr != nil {
			w.logf("compaction: audit mirror: %v", auditErr)
		}
	}

	return nil
}
