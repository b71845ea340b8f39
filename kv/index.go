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
	nlrm "github.com/launix-de/NonLockingReadMap"
)

// CommandPos locates exactly one Set or Remove record on disk: the
// generation it lives in, its byte offset within that generation's log
// file, and the number of bytes it occupies.
type CommandPos struct {
	Gen    uint64
	Offset uint64
	Length uint64
}

// indexEntry adapts CommandPos to NonLockingReadMap's KeyGetter contract.
type indexEntry struct {
	key string
	pos CommandPos
}

func (e indexEntry) GetKey() string { return e.key }

// ComputeSize approximates the entry's retained memory: the key bytes plus
// a fixed struct/pointer/slot overhead, mirroring the accounting this
// codebase's own cache does for its map entries.
func (e indexEntry) ComputeSize() uint {
	return uint(len(e.key)) + 64
}

// Index is the key -> CommandPos map described in the data model: readers
// proceed without blocking the writer (binary search over an
// atomically-swapped sorted slice), and the writer applies one-key updates
// atomically via compare-and-swap, retried on contention. A
// reader/writer-locked tree is deliberately not used here, as it would
// serialize readers against compaction.
type Index struct {
	m nlrm.NonLockingReadMap[indexEntry, string]
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{m: nlrm.New[indexEntry, string]()}
}

// Get returns the CommandPos for key, if the key is currently alive.
func (idx *Index) Get(key string) (CommandPos, bool) {
	e := idx.m.Get(key)
	if e == nil {
		return CommandPos{}, false
	}
	return e.pos, true
}

// Set installs key -> pos, returning the previous CommandPos if one
// existed. The swap is atomic: concurrent readers observe either the old
// or the new entry, never a partially updated one.
func (idx *Index) Set(key string, pos CommandPos) (CommandPos, bool) {
	old := idx.m.Set(&indexEntry{key: key, pos: pos})
	if old == nil {
		return CommandPos{}, false
	}
	return old.pos, true
}

// Remove deletes key from the index, returning its prior CommandPos.
func (idx *Index) Remove(key string) (CommandPos, bool) {
	old := idx.m.Remove(key)
	if old == nil {
		return CommandPos{}, false
	}
	return old.pos, true
}

// Len returns the number of currently-alive keys.
func (idx *Index) Len() int {
	return len(idx.m.GetAll())
}

// IndexSnapshotEntry is one (key, CommandPos) pair returned by Snapshot.
type IndexSnapshotEntry struct {
	Key string
	Pos CommandPos
}

// Snapshot returns a stable point-in-time copy of every alive key and its
// CommandPos, used by the compactor to decide what to rewrite. Mutations
// that happen after Snapshot returns are not reflected in it.
func (idx *Index) Snapshot() []IndexSnapshotEntry {
	all := idx.m.GetAll()
	out := make([]IndexSnapshotEntry, 0, len(all))
	for _, e := range all {
		out = append(out, IndexSnapshotEntry{Key: e.key, Pos: e.pos})
	}
	return out
}
