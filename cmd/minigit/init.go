package main

import (
	"fmt"
	"io"

	minigit "github.com/minigit-scm/minigit"
	"github.com/spf13/cobra"
)

func newInitCmd(cfg *config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create an empty repository",
		Args:  cobra.NoArgs,
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return initCmd(cmd.OutOrStdout(), cfg)
	}

	return cmd
}

func initCmd(out io.Writer, cfg *config) error {
	if _, err := minigit.InitRepository(cfg.C); err != nil {
		return err
	}
	fmt.Fprintln(out, "Initialized git directory")
	return nil
}
