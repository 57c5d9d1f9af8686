package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/minigit-scm/minigit/ginternals/object"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"
)

func newCatFileCmd(cfg *config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cat-file OBJECT",
		Short: "Provide contents of repository objects",
		Args:  cobra.ExactArgs(1),
	}

	prettyPrint := cmd.Flags().BoolP("p", "p", false, "Pretty-print the contents of <object> based on its type.")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return catFileCmd(cmd.OutOrStdout(), cfg, *prettyPrint, args[0])
	}
	return cmd
}

func catFileCmd(out io.Writer, cfg *config, prettyPrint bool, name string) error {
	if !prettyPrint {
		return errors.New("option -p is required")
	}

	r, err := loadRepository(cfg)
	if err != nil {
		return err
	}

	oid, err := r.ResolveName(name)
	if err != nil {
		return err
	}
	o, err := r.Object(oid)
	if err != nil {
		return err
	}

	switch o.Type() {
	case object.TypeBlob, object.TypeCommit, object.TypeTag:
		fmt.Fprint(out, string(o.Bytes()))
	case object.TypeTree:
		tree, err := o.AsTree()
		if err != nil {
			return xerrors.Errorf("could not parse tree %s: %w", name, err)
		}
		printTreeEntries(out, tree.Entries(), false)
	default:
		return xerrors.Errorf("cannot display a %s", o.Type().String())
	}
	return nil
}
