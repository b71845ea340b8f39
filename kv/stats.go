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

import "time"

// EngineStats is a point-in-time snapshot of engine counters, consumed by
// the optional monitoring surface (§4.12). It never exposes key/value
// contents.
type EngineStats struct {
	CurrentGeneration uint64
	UncompactedBytes  uint64
	LiveKeys          int
	CompactionCount   uint64
}

// CompactionEvent summarizes one completed compaction, mirrored to the
// optional audit sink (§4.11).
type CompactionEvent struct {
	Generation     uint64
	BytesReclaimed uint64
	LiveKeys       int
	Timestamp      time.Time
}
