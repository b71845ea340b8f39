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

import "fmt"

// SledEngine is a placeholder for the "sled" storage backend named by
// "--engine sled" (§1 Out of scope, §6). The real sled engine is an
// external, unimplemented collaborator; this stub only lets the CLI
// recognize and record the choice, refusing every operation clearly
// rather than silently behaving like the kvs engine.
type SledEngine struct {
	dir string
}

// OpenSled records dir as a sled-backed store without implementing it.
func OpenSled(dir string) (*SledEngine, error) {
	return &SledEngine{dir: dir}, nil
}

var errSledUnimplemented = fmt.Errorf("sled engine is not implemented")

func (s *SledEngine) Set(key, value string) error {
	return errSledUnimplemented
}

func (s *SledEngine) Get(key string) (string, error) {
	return "", errSledUnimplemented
}

func (s *SledEngine) Remove(key string) error {
	return errSledUnimplemented
}

func (s *SledEngine) Stat() EngineStats {
	return EngineStats{}
}

func (s *SledEngine) Close() error {
	return nil
}
