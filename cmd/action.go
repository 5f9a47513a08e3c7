package main

import (
	"github.com/spf13/cobra"

	"github.com/landgrid/geoaudit/internal/model"
)

var (
	actionArea  string
	actionPlot  string
	actionType  string
	actionEmail string
)

var actionCmd = &cobra.Command{
	Use:   "action",
	Short: "Execute an administrative action against a plot",
	Long:  "Resolves the report recipient, transitions the plot status where the action demands it, records the audit entry and dispatches the report.",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), "action")
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Lifecycle.ExecuteAction(cmd.Context(), actionArea, actionPlot, model.ActionType(actionType), actionEmail)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	},
}

func init() {
	actionCmd.Flags().StringVar(&actionArea, "area", "", "area identifier (required)")
	actionCmd.Flags().StringVar(&actionPlot, "plot", "", "plot identifier (required)")
	actionCmd.Flags().StringVar(&actionType, "type", "", "action type: SEND_TO_SELF or ISSUE_WARNING (required)")
	actionCmd.Flags().StringVar(&actionEmail, "email", "", "acting administrator address (default from config)")
	actionCmd.MarkFlagRequired("area")
	actionCmd.MarkFlagRequired("plot")
	actionCmd.MarkFlagRequired("type")
	rootCmd.AddCommand(actionCmd)
}
