package main

import (
	"github.com/spf13/cobra"

	"github.com/podcopic-labs/vectodb/internal/annkernel"
)

var (
	flagDir         string
	flagDim         int
	flagMetric      string
	flagIndexKey    string
	flagQueryParams string
)

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "vectodbctl",
		Short: "Exercise a vectodb working directory from the command line",
	}

	root.PersistentFlags().StringVar(&flagDir, "dir", "./vectodb-data", "working directory")
	root.PersistentFlags().IntVar(&flagDim, "dim", 0, "vector dimension (required on every open; must match the directory's manifest)")
	root.PersistentFlags().StringVar(&flagMetric, "metric", "l2", "distance metric: l2 or ip")
	root.PersistentFlags().StringVar(&flagIndexKey, "index-key", "Flat", "kernel factory string, e.g. Flat or IVF256,Flat")
	root.PersistentFlags().StringVar(&flagQueryParams, "query-params", "", "opaque kernel tuning string, e.g. nprobe=8")

	root.AddCommand(addCmd())
	root.AddCommand(searchCmd())
	root.AddCommand(buildCmd())
	root.AddCommand(statsCmd())
	root.AddCommand(clearCmd())
	return root
}

func parseMetric(s string) (annkernel.Metric, error) {
	switch s {
	case "l2", "L2":
		return annkernel.MetricL2, nil
	case "ip", "IP", "inner-product":
		return annkernel.MetricInnerProduct, nil
	default:
		return 0, errInvalidMetric(s)
	}
}

type errInvalidMetric string

func (e errInvalidMetric) Error() string { return "invalid --metric " + string(e) + " (want l2 or ip)" }
