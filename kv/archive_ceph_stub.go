//go:build !ceph

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
)

// CephArchiver is a non-functional stand-in used when the binary is built
// without the ceph tag (the default), so the rest of the package can refer
// to the type without requiring librados at build time.
type CephArchiver struct {
	ConfigFile string
	Pool       string
	Prefix     string
}

func (a *CephArchiver) Archive(_ context.Context, _ uint64, _ string) error {
	return fmt.Errorf("ceph archiver: built without the \"ceph\" build tag")
}

func (a *CephArchiver) Close() {}
