package main

import (
	"fmt"
	"io"
	"os"

	"github.com/minigit-scm/minigit/ginternals/object"
	"github.com/spf13/cobra"
)

func newHashObjectCmd(cfg *config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash-object FILE",
		Short: "Compute object ID and optionally create a blob from a file",
		Args:  cobra.ExactArgs(1),
	}

	write := cmd.Flags().BoolP("w", "w", false, "Actually write the object into the object database.")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return hashObjectCmd(cmd.OutOrStdout(), cfg, *write, args[0])
	}

	return cmd
}

func hashObjectCmd(out io.Writer, cfg *config, write bool, filePath string) error {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	o := object.New(object.TypeBlob, content)
	if write {
		r, err := loadRepository(cfg)
		if err != nil {
			return err
		}
		if _, err := r.WriteObject(o); err != nil {
			return err
		}
	}

	fmt.Fprintln(out, o.ID().String())
	return nil
}
