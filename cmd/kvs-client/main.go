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

// Command kvs-client is the CLI counterpart to kvs-server: set/get/rm
// subcommands speaking the wire protocol of §6.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/kvsd/kvs/kv"
	"github.com/kvsd/kvs/netproto"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var errUsage = errors.New("usage: kvs-client [--addr IP:PORT] <set KEY VALUE|get KEY|rm KEY>")

func run(args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	sub := args[0]
	rest := args[1:]

	flagSet := flag.NewFlagSet(sub, flag.ContinueOnError)
	addr := flagSet.String("addr", "127.0.0.1:4000", "server address")
	if err := flagSet.Parse(rest); err != nil {
		return err
	}
	positional := flagSet.Args()

	client, err := netproto.Dial(*addr)
	if err != nil {
		return err
	}
	defer client.Close()

	switch sub {
	case "set":
		if len(positional) != 2 {
			return fmt.Errorf("%w: set requires KEY and VALUE", errUsage)
		}
		return client.Set(positional[0], positional[1])
	case "get":
		if len(positional) != 1 {
			return fmt.Errorf("%w: get requires KEY", errUsage)
		}
		value, found, err := client.Get(positional[0])
		if err != nil {
			return err
		}
		if !found {
			fmt.Println("Key not found")
			return nil
		}
		fmt.Println(value)
		return nil
	case "rm":
		if len(positional) != 1 {
			return fmt.Errorf("%w: rm requires KEY", errUsage)
		}
		if err := client.Remove(positional[0]); err != nil {
			if isRemoteKeyNotFound(err) {
				fmt.Println("Key not found")
				os.Exit(1)
			}
			return err
		}
		return nil
	default:
		return errUsage
	}
}

// isRemoteKeyNotFound recognizes a "key not found" failure reported by the
// server. The sentinel itself cannot cross the wire, so this matches on
// the message text the server's error responses carry.
func isRemoteKeyNotFound(err error) bool {
	return strings.Contains(err.Error(), kv.ErrKeyNotFound.Error())
}
