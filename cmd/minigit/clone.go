package main

import (
	"fmt"
	"io"

	minigit "github.com/minigit-scm/minigit"
	"github.com/minigit-scm/minigit/fetch"
	"github.com/spf13/cobra"
)

func newCloneCmd(cfg *config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clone URL DIRECTORY",
		Short: "Clone a repository into a new directory",
		Args:  cobra.ExactArgs(2),
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return cloneCmd(cmd.OutOrStdout(), args[0], args[1])
	}

	return cmd
}

func cloneCmd(out io.Writer, remote, dir string) error {
	if _, err := minigit.Clone(fetch.NewHTTPTransport(), remote, dir); err != nil {
		return err
	}
	fmt.Fprintf(out, "cloned remote %s to %s\n", remote, dir)
	return nil
}
