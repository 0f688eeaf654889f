// Command ignitekv-client is the CLI front end over internal/client: a
// set/get/rm subcommand surface against a configurable --addr.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dreamerlzl/ignitekv/internal/client"
	"github.com/dreamerlzl/ignitekv/pkg/options"
)

func main() {
	addr := flag.String("addr", options.DefaultAddr, "IP:PORT of the ignitekv server")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		usage()
		os.Exit(1)
	}

	c, err := client.Dial(*addr)
	if err != nil {
		fail(err)
	}
	defer c.Close()

	switch args[0] {
	case "set":
		if len(args) != 3 {
			usage()
			os.Exit(1)
		}
		if err := c.Set(args[1], args[2]); err != nil {
			fail(err)
		}

	case "get":
		if len(args) != 2 {
			usage()
			os.Exit(1)
		}
		value, found, err := c.Get(args[1])
		if err != nil {
			fail(err)
		}
		if !found {
			fmt.Println("Key not found")
			return
		}
		fmt.Println(value)

	case "rm":
		if len(args) != 2 {
			usage()
			os.Exit(1)
		}
		if err := c.Remove(args[1]); err != nil {
			fail(err)
		}

	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: ignitekv-client {set <key> <value> | get <key> | rm <key>} [--addr IP:PORT]")
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
