package main

import (
	"fmt"
	"io"

	minigit "github.com/minigit-scm/minigit"
	"github.com/minigit-scm/minigit/ginternals/object"
)

func loadRepository(cfg *config) (*minigit.Repository, error) {
	return minigit.OpenRepository(cfg.C)
}

// printTreeEntries writes tree entries the way ls-tree does:
// "{mode} {type} {id}    {name}", or only the names
func printTreeEntries(out io.Writer, entries []object.TreeEntry, nameOnly bool) {
	for _, e := range entries {
		if nameOnly {
			fmt.Fprintln(out, e.Path)
			continue
		}
		fmt.Fprintf(out, "%06o %s %s    %s\n", e.Mode, e.Mode.ObjectType().String(), e.ID.String(), e.Path)
	}
}
