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
	"encoding/json"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// command is the on-disk/on-wire shape of a single log record. One JSON
// object per line, exactly like this codebase's existing FileLogfile
// encoding in the sibling storage package: self-delimiting, concatenated
// without separators beyond the trailing newline.
type command struct {
	Op    string `json:"op"`
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

const (
	opSet = "set"
	opRm  = "rm"
)

// normalizeKey folds visually-identical Unicode encodings of the same key
// onto one representative NFC form, so two byte-distinct but
// canonically-equivalent keys address the same index entry.
func normalizeKey(key string) string {
	return norm.NFC.String(key)
}

func validateCommandString(field, s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%s: %w: not valid UTF-8", field, ErrDecode)
	}
	return nil
}

// encodeSet renders a Set command as a single newline-terminated JSON line.
func encodeSet(key, value string) ([]byte, error) {
	if key == "" || value == "" {
		return nil, fmt.Errorf("set: %w: key and value must be non-empty", ErrDecode)
	}
	if err := validateCommandString("key", key); err != nil {
		return nil, err
	}
	if err := validateCommandString("value", value); err != nil {
		return nil, err
	}
	return marshalLine(command{Op: opSet, Key: normalizeKey(key), Value: value})
}

// encodeRemove renders a Remove command as a single newline-terminated JSON line.
func encodeRemove(key string) ([]byte, error) {
	if key == "" {
		return nil, fmt.Errorf("rm: %w: key must be non-empty", ErrDecode)
	}
	if err := validateCommandString("key", key); err != nil {
		return nil, err
	}
	return marshalLine(command{Op: opRm, Key: normalizeKey(key)})
}

func marshalLine(c command) ([]byte, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode: %w: %v", ErrDecode, err)
	}
	b = append(b, '\n')
	return b, nil
}

// decodeCommand decodes exactly one JSON line read from r, returning the
// command and the exact number of bytes consumed (including the trailing
// newline) so the caller can compute CommandPos offsets.
func decodeCommand(r *bufio.Reader) (command, int, error) {
	line, err := r.ReadBytes('\n')
	if len(line) == 0 {
		return command{}, 0, err
	}
	if err != nil && err != io.EOF {
		return command{}, 0, fmt.Errorf("reading record: %w", err)
	}
	var c command
	payload := line
	if payload[len(payload)-1] == '\n' {
		payload = payload[:len(payload)-1]
	}
	if jsonErr := json.Unmarshal(payload, &c); jsonErr != nil {
		return command{}, 0, fmt.Errorf("%w: %v", ErrDecode, jsonErr)
	}
	switch c.Op {
	case opSet, opRm:
	default:
		return command{}, 0, fmt.Errorf("%w: unknown op %q", ErrDecode, c.Op)
	}
	return c, len(line), nil
}
