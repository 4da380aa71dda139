package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/bikecount/pipeline"
	"github.com/YuminosukeSato/bikecount/tuning"
)

func newPredictCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "predict",
		Short: "Fit on the train set and write the test submission",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			res, err := pipeline.RunPredict(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d predictions to %s (%s)\n",
				len(res.Predictions), cfg.OutputPath, res.Elapsed.Round(time.Millisecond))
			return nil
		},
	}
}

func newEvaluateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate",
		Short: "Cross-validate the model with time-ordered folds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			res, err := pipeline.RunEvaluate(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for k, v := range res.FoldRMSE {
				fmt.Fprintf(out, "fold %d: rmse %.4f\n", k, v)
			}
			fmt.Fprintf(out, "mean rmse %.4f (std %.4f)\n", res.MeanRMSE(), res.StdRMSE())
			return nil
		},
	}
}

func newTuneCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tune",
		Short: "Search boosting hyperparameters by cross-validated RMSE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			study, err := pipeline.RunTune(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			best, err := study.BestTrial()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "best trial %d: rmse %.4f\n", best.Number, best.Value)
			fmt.Fprintln(out, tuning.FormatParams(best.Params))
			return nil
		},
	}
}
