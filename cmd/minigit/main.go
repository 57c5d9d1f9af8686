package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// config represents the global flags shared by every command
type config struct {
	// C makes the command run as if it was started in the provided
	// path. Simpler version of git's -C:
	// https://git-scm.com/docs/git#Documentation/git.txt--Cltpathgt
	C string
}

func main() {
	err := newRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "minigit",
		Short:         "minimal git implementation in pure Go",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cfg := &config{}
	cmd.PersistentFlags().StringVarP(&cfg.C, "C", "C", ".", "Run as if minigit was started in the provided path instead of the current working directory.")

	// porcelain
	cmd.AddCommand(newInitCmd(cfg))
	cmd.AddCommand(newCloneCmd(cfg))

	// plumbing
	cmd.AddCommand(newCatFileCmd(cfg))
	cmd.AddCommand(newHashObjectCmd(cfg))
	cmd.AddCommand(newLsTreeCmd(cfg))
	cmd.AddCommand(newWriteTreeCmd(cfg))
	cmd.AddCommand(newCommitTreeCmd(cfg))

	return cmd
}
