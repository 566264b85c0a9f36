package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/podcopic-labs/vectodb"
)

func clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove base.fvecs, every persisted index file, and the manifest under --dir",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := vectodb.ClearWorkDir(flagDir); err != nil {
				return err
			}
			fmt.Printf("cleared %s\n", flagDir)
			return nil
		},
	}
}
