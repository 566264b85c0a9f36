package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/podcopic-labs/vectodb"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print dim, index key, ntrain, ntotal, and base store size",
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

			s := db.Stats()
			fmt.Printf("dim=%d index_key=%s ntrain=%d ntotal=%d n=%d\n", s.Dim, s.IndexKey, s.Ntrain, s.Ntotal, s.N)
			return nil
		},
	}
}
