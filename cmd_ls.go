package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/datawire/scmversion/pkg/scm"
	"github.com/datawire/scmversion/pkg/scmengine"
)

func init() {
	var root string

	cmd := &cobra.Command{
		Use:   "ls [flags]",
		Short: "List version-controlled files (delegates to the VCS file-finder)",
		Args:  cobra.NoArgs,
		RunE: func(flags *cobra.Command, args []string) error {
			if root == "" {
				root = "."
			}

			resolvedRoot, backend, ok := scm.Discover(root, true, scmengine.Backends(nil), scm.IgnoredRoots())
			if !ok {
				return fmt.Errorf("no Git or Mercurial checkout found at or above %s", root)
			}

			files, err := backend.ListFiles(flags.Context(), resolvedRoot)
			if err != nil {
				return err
			}

			for _, f := range files {
				fmt.Fprintln(flags.OutOrStdout(), f)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "Root directory to search from (default: current directory)")

	argparser.AddCommand(cmd)
}
