package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newRecomputeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recompute [movie-id]",
		Short: "Recompute rating and popularity for one movie or all movies",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid movie id %q", args[0])
				}
				agg, err := a.aggregates.RecomputeMovie(ctx, id)
				if err != nil {
					return err
				}
				rating := "null"
				if agg.Rating != nil {
					rating = strconv.FormatFloat(*agg.Rating, 'f', 2, 64)
				}
				fmt.Fprintf(out, "movie %d: rating=%s popularity=%.2f\n", id, rating, agg.Popularity)
				return nil
			}

			n, err := a.aggregates.RecomputeAll(ctx)
			fmt.Fprintf(out, "recomputed %d movies\n", n)
			return err
		},
	}
}
