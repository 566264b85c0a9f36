package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/podcopic-labs/vectodb"
)

func searchCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run one or more queries from a JSON file ({\"vectors\": [[...], ...]})",
		RunE: func(cmd *cobra.Command, args []string) error {
			metric, err := parseMetric(flagMetric)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}
			var req struct {
				Vectors [][]float32 `json:"vectors"`
			}
			if err := json.Unmarshal(data, &req); err != nil {
				return fmt.Errorf("parse %s: %w", file, err)
			}
			if len(req.Vectors) == 0 {
				return fmt.Errorf("no vectors in %s", file)
			}

			db, err := vectodb.Open(flagDir, flagDim, metric, flagIndexKey, flagQueryParams)
			if err != nil {
				return err
			}
			defer db.Close()

			xq := make([]float32, 0, len(req.Vectors)*flagDim)
			for _, v := range req.Vectors {
				xq = append(xq, v...)
			}

			distances, ids, err := db.Search(len(req.Vectors), xq)
			if err != nil {
				return err
			}
			for i := range ids {
				fmt.Printf("query %d: id=%d distance=%g\n", i, ids[i], distances[i])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "JSON file of {vectors} to query")
	cmd.MarkFlagRequired("file")
	return cmd
}
