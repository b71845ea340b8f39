//go:build ceph

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
	"os"

	"github.com/ceph/go-ceph/rados"
)

// CephArchiver writes retired generation files as RADOS objects, mirroring
// this codebase's cgo-gated Ceph persistence backend: built only when the
// ceph build tag is set, since it links against librados.
type CephArchiver struct {
	ConfigFile string
	Pool       string
	Prefix     string

	conn  *rados.Conn
	ioctx *rados.IOContext
}

func (a *CephArchiver) ensureConn() error {
	if a.conn != nil {
		return nil
	}
	conn, err := rados.NewConn()
	if err != nil {
		return fmt.Errorf("ceph archiver: %w", err)
	}
	if err := conn.ReadConfigFile(a.ConfigFile); err != nil {
		return fmt.Errorf("ceph archiver: reading config: %w", err)
	}
	if err := conn.Connect(); err != nil {
		return fmt.Errorf("ceph archiver: connecting: %w", err)
	}
	ioctx, err := conn.OpenIOContext(a.Pool)
	if err != nil {
		conn.Shutdown()
		return fmt.Errorf("ceph archiver: opening pool %q: %w", a.Pool, err)
	}
	a.conn = conn
	a.ioctx = ioctx
	return nil
}

func (a *CephArchiver) objectName(generation uint64) string {
	if a.Prefix == "" {
		return fmt.Sprintf("%d.log", generation)
	}
	return fmt.Sprintf("%s/%d.log", a.Prefix, generation)
}

func (a *CephArchiver) Archive(_ context.Context, generation uint64, path string) error {
	if err := a.ensureConn(); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("ceph archiver: %w", err)
	}
	if err := a.ioctx.WriteFull(a.objectName(generation), data); err != nil {
		return fmt.Errorf("ceph archiver: writing generation %d: %w", generation, err)
	}
	return nil
}

func (a *CephArchiver) Close() {
	if a.ioctx != nil {
		a.ioctx.Destroy()
	}
	if a.conn != nil {
		a.conn.Shutdown()
	}
}
