package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/podcopic-labs/vectodb"
)

// addRequest is the JSON shape read from --file: a batch of (id, vector)
// pairs to append in one call.
type addRequest struct {
	IDs     []int64     `json:"ids"`
	Vectors [][]float32 `json:"vectors"`
}

func addCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append vectors from a JSON file ({\"ids\": [...], \"vectors\": [[...], ...]})",
		RunE: func(cmd *cobra.Command, args []string) error {
			metric, err := parseMetric(flagMetric)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}
			var req addRequest
			if err := json.Unmarshal(data, &req); err != nil {
				return fmt.Errorf("parse %s: %w", file, err)
			}
			if len(req.IDs) != len(req.Vectors) {
				return fmt.Errorf("ids and vectors length mismatch: %d vs %d", len(req.IDs), len(req.Vectors))
			}

			db, err := vectodb.Open(flagDir, flagDim, metric, flagIndexKey, flagQueryParams)
			if err != nil {
				return err
			}
			defer db.Close()

			flat := make([]float32, 0, len(req.Vectors)*flagDim)
			for _, v := range req.Vectors {
				flat = append(flat, v...)
			}
			if err := db.AddWithIds(req.IDs, flat); err != nil {
				return err
			}
			fmt.Printf("added %d vectors\n", len(req.IDs))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "JSON file of {ids, vectors} to append")
	cmd.MarkFlagRequired("file")
	return cmd
}
