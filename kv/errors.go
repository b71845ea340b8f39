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

import "errors"

// Sentinel errors, checked with errors.Is by callers on both sides of the
// wire (the server maps these to string responses; the client maps known
// strings back to these for exit-code purposes).
var (
	ErrKeyNotFound           = errors.New("key not found")
	ErrDecode                = errors.New("malformed record")
	ErrUnexpectedCommandType = errors.New("index entry resolved to a non-Set command")
	ErrAlreadyOpen           = errors.New("data directory already open by another instance")
	ErrServer                = errors.New("server error")
)
