package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/joshuapare/plcmirror/coordinator"
	"github.com/joshuapare/plcmirror/internal/fakebus"
	"github.com/joshuapare/plcmirror/pkg/model"
	"github.com/spf13/cobra"
)

// demoCoord is shared by every demo subcommand: plcmirrorctl has no real
// transport to dial, so "demo" always mirrors the in-memory Quick Look
// fixture rather than a controller.
var demoCoord *coordinator.Coordinator

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Inspect the built-in in-memory fixture",
	Long: `The demo command group mirrors internal/fakebus's Quick Look fixture
instead of dialing a real controller, so plcmirrorctl's read/write/tree
commands can be exercised with nothing but this binary.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		demoCoord = coordinator.New("demo", fakebus.NewMainProgram())
		return demoCoord.Initialize(context.Background())
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if demoCoord == nil {
			return nil
		}
		return demoCoord.Kill(context.Background())
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)
	demoCmd.AddCommand(newDemoTreeCmd())
	demoCmd.AddCommand(newDemoGetCmd())
	demoCmd.AddCommand(newDemoSetCmd())
	demoCmd.AddCommand(newDemoClearCmd())
}

// resolvePath walks a dotted path ("MAIN.structuredValue.stringValue")
// through namespaces and children, returning the SymbolNode the path names
// (a leaf or a composite).
func resolvePath(path string) (model.SymbolNode, error) {
	parts := strings.Split(path, ".")
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty path")
	}
	ns, ok := demoCoord.Namespace(parts[0])
	if !ok {
		return nil, fmt.Errorf("no such namespace %q", parts[0])
	}
	var node model.SymbolNode = ns
	for _, part := range parts[1:] {
		composite, ok := node.(model.CompositeSymbol)
		if !ok {
			return nil, fmt.Errorf("%q is a leaf, cannot descend into %q", node.Path(), part)
		}
		if idx, err := strconv.Atoi(part); err == nil {
			child, ok := composite.Index(idx)
			if !ok {
				return nil, fmt.Errorf("index %d out of range under %q", idx, node.Path())
			}
			node = child
			continue
		}
		child, ok := composite.Child(part)
		if !ok {
			return nil, fmt.Errorf("no such child %q under %q", part, node.Path())
		}
		node = child
	}
	return node, nil
}

func newDemoTreeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree [path]",
		Short: "Print the namespace tree rooted at path (or every namespace)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				node, err := resolvePath(args[0])
				if err != nil {
					return err
				}
				printTree(node, 0)
				return nil
			}
			names := make([]string, 0)
			for name := range demoCoord.Namespaces() {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				ns, _ := demoCoord.Namespace(name)
				printTree(ns, 0)
			}
			return nil
		},
	}
}

func printTree(node model.SymbolNode, depth int) {
	printInfo("%s%s\n", strings.Repeat("  ", depth), node.Path())
	composite, ok := node.(model.CompositeSymbol)
	if !ok {
		return
	}
	_ = composite.Each(func(key string, child model.SymbolNode) error {
		printTree(child, depth+1)
		return nil
	})
}

func newDemoGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <path>",
		Short: "Read a symbol's current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			node, err := resolvePath(args[0])
			if err != nil {
				return err
			}
			printVerbose("reading %s\n", node.Path())
			v, err := node.Get(context.Background())
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(v)
			}
			printInfo("%v\n", v)
			return nil
		},
	}
}

func newDemoSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <path> <json-value>",
		Short: "Write a symbol's value, given as a JSON literal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			node, err := resolvePath(args[0])
			if err != nil {
				return err
			}
			var value any
			if err := json.Unmarshal([]byte(args[1]), &value); err != nil {
				return fmt.Errorf("parse value: %w", err)
			}
			written, err := node.Set(context.Background(), value)
			if err != nil {
				return err
			}
			printVerbose("wrote %s = %v\n", node.Path(), written)
			return nil
		},
	}
}

func newDemoClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <path>",
		Short: "Reset a symbol (and its writable descendants) to default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			node, err := resolvePath(args[0])
			if err != nil {
				return err
			}
			if err := node.Clear(context.Background()); err != nil {
				return err
			}
			printVerbose("cleared %s\n", node.Path())
			return nil
		},
	}
}
