package main

import (
	"io"

	"github.com/minigit-scm/minigit/ginternals"
	"github.com/minigit-scm/minigit/ginternals/object"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"
)

func newLsTreeCmd(cfg *config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls-tree TREE",
		Short: "List the contents of a tree object",
		Args:  cobra.ExactArgs(1),
	}

	nameOnly := cmd.Flags().Bool("name-only", false, "List only filenames, one per line.")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return lsTreeCmd(cmd.OutOrStdout(), cfg, *nameOnly, args[0])
	}

	return cmd
}

func lsTreeCmd(out io.Writer, cfg *config, nameOnly bool, name string) error {
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
	if o.Type() != object.TypeTree {
		return xerrors.Errorf("%s is a %s, not a tree: %w", name, o.Type().String(), ginternals.ErrWrongObjectType)
	}

	tree, err := o.AsTree()
	if err != nil {
		return err
	}
	printTreeEntries(out, tree.Entries(), nameOnly)
	return nil
}
