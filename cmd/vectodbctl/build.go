package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/podcopic-labs/vectodb"
)

func buildCmd() *cobra.Command {
	var exhaustThreshold int
	var force bool
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a candidate index from the current base store and activate it",
		RunE: func(cmd *cobra.Command, args []string) error {
			metric, err := parseMetric(flagMetric)
			if err != nil {
				return err
			}

			db, err := vectodb.Open(flagDir, flagDim, metric, flagIndexKey, flagQueryParams)
			if err != nil {
				return err
			}
			defer db.Close()

			var res *vectodb.BuildResult
			if force {
				res, err = db.BuildIndex()
			} else {
				res, err = db.TryBuildIndex(exhaustThreshold)
			}
			if err != nil {
				return err
			}
			if res.Empty() {
				fmt.Println("nothing to build")
				return nil
			}
			if err := db.ActivateIndex(res); err != nil {
				return err
			}
			fmt.Printf("activated index, ntrain=%d\n", res.Ntrain())
			return nil
		},
	}
	cmd.Flags().IntVar(&exhaustThreshold, "exhaust-threshold", 0, "skip the build unless the flat tail has grown past this many rows (ignored with --force)")
	cmd.Flags().BoolVar(&force, "force", false, "build unconditionally instead of respecting --exhaust-threshold")
	return cmd
}
