package cmd

import (
	"io"
	"os"

	"github.com/sarchlab/ftlsim/workload"
	"github.com/spf13/cobra"
)

func newGenCmd() *cobra.Command {
	gen := &cobra.Command{
		Use:   "gen",
		Short: "Generate a random trace.",
		Long: "Generate a random trace sized for the configured device. " +
			"Reads and trims only target LBAs written earlier.",
		Args: cobra.NoArgs,
		RunE: genTrace,
	}

	gen.Flags().IntP("count", "n", 10000, "Number of requests.")
	gen.Flags().Uint64("seed", 1, "Random seed.")
	gen.Flags().Float64("read-ratio", 0.2, "Share of reads.")
	gen.Flags().Float64("trim-ratio", 0, "Share of trims.")
	gen.Flags().Float64("hot-fraction", 0,
		"Fraction of the LBAs forming a hot spot. 0 means uniform traffic.")
	gen.Flags().Float64("hot-traffic", 0.8,
		"Share of the requests going to the hot spot.")
	gen.Flags().StringP("output", "o", "", "Output file. Stdout when empty.")

	return gen
}

func genTrace(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	count, _ := flags.GetInt("count")
	seed, _ := flags.GetUint64("seed")
	readRatio, _ := flags.GetFloat64("read-ratio")
	trimRatio, _ := flags.GetFloat64("trim-ratio")
	hotFraction, _ := flags.GetFloat64("hot-fraction")
	hotTraffic, _ := flags.GetFloat64("hot-traffic")

	g := workload.MakeGenerator().
		WithCapacity(cfg.Geometry.Addressable(cfg.Overprovisioning)).
		WithSeed(seed).
		WithReadRatio(readRatio).
		WithTrimRatio(trimRatio).
		WithHotSpot(hotFraction, hotTraffic)

	if err := g.Validate(); err != nil {
		return err
	}

	var out io.Writer = cmd.OutOrStdout()

	if path, _ := flags.GetString("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()

		out = f
	}

	return workload.Format(out, g.Generate(count))
}
