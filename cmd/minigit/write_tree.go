package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newWriteTreeCmd(cfg *config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "write-tree",
		Short: "Create a tree object from the current working tree",
		Args:  cobra.NoArgs,
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return writeTreeCmd(cmd.OutOrStdout(), cfg)
	}

	return cmd
}

func writeTreeCmd(out io.Writer, cfg *config) error {
	r, err := loadRepository(cfg)
	if err != nil {
		return err
	}

	oid, err := r.WriteTreeFromDirectory()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, oid.String())
	return nil
}
