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
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/google/uuid"

	"github.com/kvsd/kvs/kv"
	"github.com/kvsd/kvs/threadpool"
)

// Server accepts TCP connections and dispatches each to the worker pool as
// one long-running task that serves every request the client sends on that
// connection (§4.8).
type Server struct {
	ln     net.Listener
	engine kv.Engine
	pool   *threadpool.Pool
	logf   func(string, ...any)
}

// Listen binds addr and returns a Server ready to Serve.
func Listen(addr string, engine kv.Engine, pool *threadpool.Pool, logf func(string, ...any)) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Server{ln: ln, engine: engine, pool: pool, logf: logf}, nil
}

// Addr returns the listener's bound address, useful when addr was "host:0".
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Serve accepts connections until the listener is closed, handing each to
// the worker pool. It returns nil when Close causes Accept to fail.
func (s *Server) Serve() error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		connID := uuid.New()
		s.pool.Submit(func() {
			s.handleConn(conn, connID)
		})
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	return s.ln.Close()
}

func (s *Server) handleConn(conn net.Conn, connID uuid.UUID) {
	defer conn.Close()

	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)
	var seq uint64

	for {
		req, err := ReadRequest(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			if errors.Is(err, errMalformedRequest) {
				seq++
				s.logf("conn %s seq %d: %v", connID, seq, err)
				_ = WriteResponse(w, Response{Ok: false, Error: err.Error()})
				continue
			}
			s.logf("conn %s: read error: %v", connID, err)
			return
		}
		seq++
		resp := s.dispatch(req)
		if err := WriteResponse(w, resp); err != nil {
			s.logf("conn %s seq %d: write error: %v", connID, seq, err)
			return
		}
	}
}

func (s *Server) dispatch(req Request) Response {
	switch req.Op {
	case OpSet:
		if err := s.engine.Set(req.Key, req.Value); err != nil {
			return Response{Ok: false, Error: err.Error()}
		}
		return Response{Ok: true}
	case OpGet:
		value, err := s.engine.Get(req.Key)
		if err != nil {
			if errors.Is(err, kv.ErrKeyNotFound) {
				return Response{Ok: true, Found: false}
			}
			return Response{Ok: false, Error: err.Error()}
		}
		return Response{Ok: true, Found: true, Value: value}
	case OpRm:
		if err := s.engine.Remove(req.Key); err != nil {
			return Response{Ok: false, Error: err.Error()}
		}
		return Response{Ok: true}
	default:
		return Response{Ok: false, Error: fmt.Sprintf("unknown op %q", req.Op)}
	}
}
