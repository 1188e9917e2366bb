// Command addrspace is a small debugging tool for exploring how a set of
// memory objects resolves a pointer. It has no bearing on the resolver's
// own semantics — there is no wire protocol or on-disk format at the
// resolver layer itself — it exists only to make the algorithm pokeable
// from a terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err == flag.ErrHelp {
		os.Exit(1)
	} else if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	var cmd string
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "", "-h", "--help", "help":
		usage()
		return flag.ErrHelp
	case "resolve":
		return NewResolveCommand().Run(ctx, args)
	default:
		return fmt.Errorf("addrspace %s: unknown command", cmd)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `
addrspace is a tool for exploring pointer resolution against a set of
memory objects.

Usage:

	addrspace <command> [arguments]

The commands are:

	resolve    resolve a pointer against a synthetic set of objects
	help       this screen
`[1:])
}
