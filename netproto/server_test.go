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

package netproto

import (
	"testing"

	"github.com/kvsd/kvs/kv"
	"github.com/kvsd/kvs/threadpool"
)

func TestServerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := kv.Open(dir, kv.Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	pool := threadpool.New(2, nil, nil)
	defer pool.Stop()

	server, err := Listen("127.0.0.1:0", store, pool, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer server.Close()
	go server.Serve()

	client, err := Dial(server.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	if err := client.Set("k", "v"); err != nil {
		t.Fatal(err)
	}
	value, found, err := client.Get("k")
	if err != nil {
		t.Fatal(err)
	}
	if !found || value != "v" {
		t.Fatalf("got value=%q found=%v, want v/true", value, found)
	}

	if err := client.Remove("k"); err != nil {
		t.Fatal(err)
	}
	_, found, err = client.Get("k")
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("expected key to be gone after remove")
	}
}

func TestServerMultipleRequestsOneConnection(t *testing.T) {
	dir := t.TempDir()
	store, err := kv.Open(dir, kv.Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	pool := threadpool.New(2, nil, nil)
	defer pool.Stop()

	server, err := Listen("127.0.0.1:0", store, pool, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer server.Close()
	go server.Serve()

	client, err := Dial(server.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	for i := 0; i < 10; i++ {
		if err := client.Set("k", "v"); err != nil {
			t.Fatal(err)
		}
	}
	value, found, err := client.Get("k")
	if err != nil {
		t.Fatal(err)
	}
	if !found || value != "v" {
		t.Fatalf("got value=%q found=%v", value, found)
	}
}
