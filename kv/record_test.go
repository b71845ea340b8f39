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
	"bytes"
	"testing"
)

func TestEncodeDecodeSetRoundTrip(t *testing.T) {
	encoded, err := encodeSet("k", "v")
	if err != nil {
		t.Fatal(err)
	}
	cmd, n, err := decodeCommand(bufio.NewReader(bytes.NewReader(encoded)))
	if err != nil {
		t.Fatal(err)
	}
	if n != len(encoded) {
		t.Fatalf("consumed %d bytes, want %d", n, len(encoded))
	}
	if cmd.Op != opSet || cmd.Key != "k" || cmd.Value != "v" {
		t.Fatalf("got %+v", cmd)
	}
}

func TestEncodeDecodeRemoveRoundTrip(t *testing.T) {
	encoded, err := encodeRemove("k")
	if err != nil {
		t.Fatal(err)
	}
	cmd, _, err := decodeCommand(bufio.NewReader(bytes.NewReader(encoded)))
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Op != opRm || cmd.Key != "k" {
		t.Fatalf("got %+v", cmd)
	}
}

func TestEncodeSetRejectsEmptyKey(t *testing.T) {
	if _, err := encodeSet("", "v"); err == nil {
		t.Fatal("expected an error for an empty key")
	}
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	r := bufio.NewReader(bytes.NewReader([]byte("not json\n")))
	if _, _, err := decodeCommand(r); err == nil {
		t.Fatal("expected a decode error")
	}
}

func TestConcatenatedRecordsDecodeIndependently(t *testing.T) {
	a, err := encodeSet("a", "1")
	if err != nil {
		t.Fatal(err)
	}
	b, err := encodeSet("b", "2")
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	buf.Write(a)
	buf.Write(b)

	r := bufio.NewReader(&buf)
	first, _, err := decodeCommand(r)
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := decodeCommand(r)
	if err != nil {
		t.Fatal(err)
	}
	if first.Key != "a" || second.Key != "b" {
		t.Fatalf("got %+v, %+v", first, second)
	}
}
