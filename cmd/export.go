package main

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/landgrid/geoaudit/internal/export"
	"github.com/landgrid/geoaudit/internal/geometry"
)

var exportOutDir string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export audited areas for field offices",
}

var exportShapefileCmd = &cobra.Command{
	Use:   "shapefile <area-id>",
	Short: "Write per-layer shapefiles for an area",
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

		paths, err := geometry.WriteShapefiles(area, exportOutDir)
		if err != nil {
			return err
		}
		zap.L().Info("shapefiles written",
			zap.String("area", area.AreaID),
			zap.Strings("files", paths),
		)
		return nil
	},
}

var exportRegisterCmd = &cobra.Command{
	Use:   "register <area-id>",
	Short: "Write the xlsx compliance register for an area",
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

		path := filepath.Join(exportOutDir, area.AreaID+"_register.xlsx")
		if err := export.WriteRegister(area, path); err != nil {
			return err
		}
		zap.L().Info("register written",
			zap.String("area", area.AreaID),
			zap.String("path", path),
		)
		return nil
	},
}

func init() {
	exportCmd.PersistentFlags().StringVar(&exportOutDir, "out", ".", "output directory")
	exportCmd.AddCommand(exportShapefileCmd, exportRegisterCmd)
	rootCmd.AddCommand(exportCmd)
}
