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
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/google/btree"
)

func logFileName(dir string, gen uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%d.log", gen))
}

// sortedGenerations enumerates <uint64>.log files in dir and returns their
// generation numbers in ascending order. Entries whose stem does not parse
// as a uint64, and sub-directories, are ignored. It fails only on I/O
// errors enumerating the directory.
func sortedGenerations(dir string) ([]uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	gens := make([]uint64, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".log") {
			continue
		}
		stem := strings.TrimSuffix(name, ".log")
		gen, parseErr := strconv.ParseUint(stem, 10, 64)
		if parseErr != nil {
			continue
		}
		gens = append(gens, gen)
	}
	sort.Slice(gens, func(i, j int) bool { return gens[i] < gens[j] })
	return gens, nil
}

// generationRegistry tracks the set of generations currently live on disk,
// kept as an ordered tree so that "smallest live generation" and the
// ascending list a compaction retires are cheap and never require a fresh
// sort.
type generationRegistry struct {
	mu   sync.Mutex
	tree *btree.BTreeG[uint64]
}

func newGenerationRegistry(initial []uint64) *generationRegistry {
	r := &generationRegistry{
		tree: btree.NewG(32, func(a, b uint64) bool { return a < b }),
	}
	for _, g := range initial {
		r.tree.ReplaceOrInsert(g)
	}
	return r
}

func (r *generationRegistry) add(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tree.ReplaceOrInsert(gen)
}

func (r *generationRegistry) remove(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tree.Delete(gen)
}

// min returns the smallest live generation, used to seed safePoint.
func (r *generationRegistry) min() (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tree.Min()
}

func (r *generationRegistry) ascending() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uint64, 0, r.tree.Len())
	r.tree.Ascend(func(g uint64) bool {
		out = append(out, g)
		return true
	})
	return out
}

// watchDirectory is a diagnostic-only background watcher: if a generation
// file the registry still considers live disappears without going through
// the compactor's own unlink path, something other than this engine
// instance touched the directory. It never changes engine behavior, it
// only logs a warning.
func watchDirectory(dir string, isExpectedRemoval func(gen uint64) bool, logf func(string, ...any)) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("directory watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("directory watcher: %w", err)
	}
	done := make(chan struct{})
	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				name := filepath.Base(ev.Name)
				if !strings.HasSuffix(name, ".log") {
					continue
				}
				gen, perr := strconv.ParseUint(strings.TrimSuffix(name, ".log"), 10, 64)
				if perr != nil {
					continue
				}
				if !isExpectedRemoval(gen) {
					logf("registry: generation %d.log vanished outside of compaction; the data directory may be shared by another process", gen)
				}
			case watchErr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logf("registry: directory watch error: %v", watchErr)
			case <-done:
				return
			}
		}
	}()
	return func() {
		close(done)
		watcher.Close()
	}, nil
}
