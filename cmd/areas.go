package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/landgrid/geoaudit/internal/store"
)

var (
	areasPage         int
	areasLimit        int
	areasEncroached   bool
	areasManualReview bool
)

var areasCmd = &cobra.Command{
	Use:   "areas",
	Short: "Query audited areas",
}

var areasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audited areas",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), "store")
		if err != nil {
			return err
		}
		defer env.Close()

		page, err := env.Store.ListAreas(cmd.Context(), store.AreaFilter{
			Page:         areasPage,
			Limit:        areasLimit,
			Encroached:   areasEncroached,
			ManualReview: areasManualReview,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), page)
	},
}

var areasGetCmd = &cobra.Command{
	Use:   "get <area-id>",
	Short: "Show one area with all plots",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), "store")
		if err != nil {
			return err
		}
		defer env.Close()

		area, err := env.Store.GetArea(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), area)
	},
}

var areasDeleteCmd = &cobra.Command{
	Use:   "delete <area-id>",
	Short: "Delete an area and release its stored images",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), "delete")
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Pipeline.DeleteArea(cmd.Context(), args[0]); err != nil {
			return err
		}
		zap.L().Info("area deleted", zap.String("area", args[0]))
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show dashboard counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), "store")
		if err != nil {
			return err
		}
		defer env.Close()

		stats, err := env.Store.Stats(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), stats)
	},
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	areasListCmd.Flags().IntVar(&areasPage, "page", 1, "page number")
	areasListCmd.Flags().IntVar(&areasLimit, "limit", 10, "page size")
	areasListCmd.Flags().BoolVar(&areasEncroached, "encroached", false, "only areas with encroached plots")
	areasListCmd.Flags().BoolVar(&areasManualReview, "manual-review", false, "only areas with plots awaiting manual review")
	areasCmd.AddCommand(areasListCmd, areasGetCmd, areasDeleteCmd)
	rootCmd.AddCommand(areasCmd, statsCmd)
}
