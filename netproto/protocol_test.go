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
	"bufio"
	"bytes"
	"testing"
)

func TestRequestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	want := Request{Op: OpSet, Key: "k", Value: "v"}
	if err := WriteRequest(w, want); err != nil {
		t.Fatal(err)
	}
	got, err := ReadRequest(bufio.NewReader(&buf))
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestReadRequestRejectsUnknownOp(t *testing.T) {
	r := bufio.NewReader(bytes.NewBufferString(`{"op":"frobnicate","key":"k"}` + "\n"))
	if _, err := ReadRequest(r); err == nil {
		t.Fatal("expected an error for an unknown op")
	}
}

func TestResponseRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	want := Response{Ok: true, Found: true, Value: "v"}
	if err := WriteResponse(w, want); err != nil {
		t.Fatal(err)
	}
	got, err := ReadResponse(bufio.NewReader(&buf))
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestMultipleRequestsOnOneStream(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	reqs := []Request{
		{Op: OpSet, Key: "a", Value: "1"},
		{Op: OpGet, Key: "a"},
		{Op: OpRm, Key: "a"},
	}
	for _, req := range reqs {
		if err := WriteRequest(w, req); err != nil {
			t.Fatal(err)
		}
	}
	r := bufio.NewReader(&buf)
	for _, want := range reqs {
		got, err := ReadRequest(r)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	}
}
