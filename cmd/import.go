package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/landgrid/geoaudit/internal/importer"
)

var (
	importArea  string
	importSheet string
	importSkip  int
)

var importCmd = &cobra.Command{
	Use:   "import <register.xlsx>",
	Short: "Import plot owners from an allotment register workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), "store")
		if err != nil {
			return err
		}
		defer env.Close()

		allotments, err := importer.ReadRegister(args[0], importer.Options{
			SheetName: importSheet,
			SkipRows:  importSkip,
		})
		if err != nil {
			return err
		}

		res, err := importer.ApplyOwners(cmd.Context(), env.Lifecycle, importArea, allotments)
		if err != nil {
			return err
		}
		if len(res.Skipped) > 0 {
			zap.L().Warn("register rows referenced unknown plots", zap.Strings("plots", res.Skipped))
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	importCmd.Flags().StringVar(&importArea, "area", "", "area identifier (required)")
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "sheet name (default first sheet)")
	importCmd.Flags().IntVar(&importSkip, "skip-rows", 1, "header rows to skip")
	importCmd.MarkFlagRequired("area")
	rootCmd.AddCommand(importCmd)
}
