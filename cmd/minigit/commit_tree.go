package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newCommitTreeCmd(cfg *config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commit-tree TREE",
		Short: "Create a commit object from an existing tree",
		Args:  cobra.ExactArgs(1),
	}

	message := cmd.Flags().StringP("message", "m", "", "The commit message.")
	parent := cmd.Flags().StringP("parent", "p", "", "The id of the parent commit, if any.")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return commitTreeCmd(cmd.OutOrStdout(), cfg, args[0], *parent, *message)
	}

	return cmd
}

func commitTreeCmd(out io.Writer, cfg *config, tree, parent, message string) error {
	if message == "" {
		return errors.New("a commit message is required")
	}

	r, err := loadRepository(cfg)
	if err != nil {
		return err
	}

	oid, err := r.CommitTree(tree, parent, message)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, oid.String())
	return nil
}
