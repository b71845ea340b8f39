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
	"fmt"
	"net"

	"github.com/kvsd/kvs/kv"
)

// Client is a single-connection client for the wire protocol in §6, used
// by kvs-client.
type Client struct {
	conn net.Conn
	r    *bufio.Reader
	w    *bufio.Writer
}

// Dial connects to addr.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}
	return &Client{conn: conn, r: bufio.NewReader(conn), w: bufio.NewWriter(conn)}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) roundTrip(req Request) (Response, error) {
	if err := WriteRequest(c.w, req); err != nil {
		return Response{}, err
	}
	resp, err := ReadResponse(c.r)
	if err != nil {
		return Response{}, err
	}
	return resp, nil
}

// Set sends a set request and returns ErrServer (wrapping the remote
// message) if the server reports failure.
func (c *Client) Set(key, value string) error {
	resp, err := c.roundTrip(Request{Op: OpSet, Key: key, Value: value})
	if err != nil {
		return err
	}
	if !resp.Ok {
		return fmt.Errorf("%w: %s", kv.ErrServer, resp.Error)
	}
	return nil
}

// Get returns the value and true if found, "" and false if the key is not
// present, or an error wrapping ErrServer on remote failure.
func (c *Client) Get(key string) (string, bool, error) {
	resp, err := c.roundTrip(Request{Op: OpGet, Key: key})
	if err != nil {
		return "", false, err
	}
	if !resp.Ok {
		return "", false, fmt.Errorf("%w: %s", kv.ErrServer, resp.Error)
	}
	return resp.Value, resp.Found, nil
}

// Remove sends a rm request. The caller can recognize a missing key by
// comparing the returned message against kv.ErrKeyNotFound.Error(), since
// the sentinel itself cannot cross the wire.
func (c *Client) Remove(key string) error {
	resp, err := c.roundTrip(Request{Op: OpRm, Key: key})
	if err != nil {
		return err
	}
	if !resp.Ok {
		return fmt.Errorf("%w: %s", kv.ErrServer, resp.Error)
	}
	return nil
}
