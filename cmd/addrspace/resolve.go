package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	addrspacepkg "github.com/mkeeler/addrspace"
	"github.com/mkeeler/addrspace/expr"
	"github.com/mkeeler/addrspace/internal/refsolver"
)

// ResolveCommand builds a synthetic flat address space from a
// comma-separated object list and resolves a single pointer against it.
type ResolveCommand struct{}

// NewResolveCommand returns a new instance of ResolveCommand.
func NewResolveCommand() *ResolveCommand {
	return &ResolveCommand{}
}

// Run executes the "resolve" subcommand.
func (cmd *ResolveCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("addrspace-resolve", flag.ContinueOnError)
	objects := fs.String("objects", "", "comma-separated base:size pairs, e.g. 0x1000:16,0x2000:32")
	addr := fs.String("addr", "", "concrete address to resolve, e.g. 0x1004")
	symbolWidth := fs.Uint("symbol-width", 64, "bit width for -symbolic-max")
	symbolicMax := fs.String("symbolic-max", "", "if set, resolve a symbolic offset constrained to [0, symbolic-max] instead of -addr")
	fs.Usage = cmd.usage
	if err := fs.Parse(args); err != nil {
		return err
	}

	as := addrspacepkg.NewAddressSpace()
	for _, spec := range strings.Split(*objects, ",") {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		mo, err := parseObjectSpec(spec)
		if err != nil {
			return err
		}
		as.BindObject(mo, addrspacepkg.NewObjectState(mo.Size.(*expr.ConstantExpr).Value, false))
	}

	if *symbolicMax != "" {
		return cmd.resolveSymbolic(as, *symbolicMax, *symbolWidth)
	}
	return cmd.resolveConstant(as, *addr)
}

func (cmd *ResolveCommand) resolveConstant(as *addrspacepkg.AddressSpace, addrFlag string) error {
	if addrFlag == "" {
		return fmt.Errorf("-addr is required unless -symbolic-max is set")
	}
	value, err := strconv.ParseUint(addrFlag, 0, 64)
	if err != nil {
		return fmt.Errorf("invalid -addr %q: %w", addrFlag, err)
	}

	ptr := addrspacepkg.NewFlatPointer(expr.Const(value, 64))
	mo, _, found := addrspacepkg.ResolveConstant(as, ptr)
	if !found {
		fmt.Fprintf(os.Stdout, "%#x: unresolved\n", value)
		return nil
	}
	fmt.Fprintf(os.Stdout, "%#x: %s\n", value, mo)
	return nil
}

func (cmd *ResolveCommand) resolveSymbolic(as *addrspacepkg.AddressSpace, maxFlag string, width uint) error {
	max, err := strconv.ParseUint(maxFlag, 0, 64)
	if err != nil {
		return fmt.Errorf("invalid -symbolic-max %q: %w", maxFlag, err)
	}

	offset := expr.NewSymbol("offset", width)
	cs := addrspacepkg.ConstraintSet{
		Constraints: []expr.Expr{expr.Ule(offset, expr.Const(max, width))},
		Metadata:    addrspacepkg.QueryMetadata{Purpose: "addrspace-resolve-cli"},
	}
	ptr := addrspacepkg.NewFlatPointer(offset)

	solver := refsolver.New()
	mo, _, success, ok := addrspacepkg.ResolveOne(as, solver, cs, ptr)
	if !ok {
		return fmt.Errorf("solver failure")
	}
	if !success {
		fmt.Fprintf(os.Stdout, "offset<=%#x: unresolved\n", max)
		return nil
	}
	fmt.Fprintf(os.Stdout, "offset<=%#x: %s\n", max, mo)
	return nil
}

func parseObjectSpec(spec string) (*addrspacepkg.MemoryObject, error) {
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid object spec %q: want base:size", spec)
	}
	base, err := strconv.ParseUint(parts[0], 0, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid base in %q: %w", spec, err)
	}
	size, err := strconv.ParseUint(parts[1], 0, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid size in %q: %w", spec, err)
	}
	return addrspacepkg.NewMemoryObject(base, expr.Const(size, 64), 0, false), nil
}

func (cmd *ResolveCommand) usage() {
	fmt.Fprintln(os.Stderr, `
usage: addrspace resolve [arguments]

Arguments:

	-objects string
	    Comma-separated base:size pairs, e.g. 0x1000:16,0x2000:32.
	-addr string
	    Concrete address to resolve.
	-symbolic-max string
	    If set, resolve a symbolic offset constrained to [0, symbolic-max]
	    instead of -addr, exercising the symbolic single-resolver.
	-symbol-width uint
	    Bit width of the symbolic offset (default 64).
`[1:])
}
