package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/landgrid/geoaudit/internal/pipeline"
)

var (
	scanAreaID    string
	scanAreaName  string
	scanSatellite string
	scanLayout    string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run the detection merge pipeline on a satellite/layout image pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), "scan")
		if err != nil {
			return err
		}
		defer env.Close()

		// The pipeline deletes its input files when the run ends, so hand it
		// scratch copies and leave the user's originals alone.
		satPath, err := copyToTemp(scanSatellite)
		if err != nil {
			return err
		}
		mapPath, err := copyToTemp(scanLayout)
		if err != nil {
			removeScratch(satPath)
			return err
		}

		area, err := env.Pipeline.Run(cmd.Context(), pipeline.ScanRequest{
			AreaID:        scanAreaID,
			AreaName:      scanAreaName,
			SatellitePath: satPath,
			PlotMapPath:   mapPath,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(area)
	},
}

func copyToTemp(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", eris.Wrapf(err, "open %s", path)
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "geoaudit-scan-*")
	if err != nil {
		return "", eris.Wrap(err, "create scratch file")
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		removeScratch(tmp.Name())
		return "", eris.Wrapf(err, "copy %s", path)
	}
	if err := tmp.Close(); err != nil {
		removeScratch(tmp.Name())
		return "", eris.Wrap(err, "close scratch file")
	}
	return tmp.Name(), nil
}

func removeScratch(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		zap.L().Warn("remove scratch file", zap.String("path", path), zap.Error(err))
	}
}

func init() {
	scanCmd.Flags().StringVar(&scanAreaID, "area-id", "", "area identifier (generated when empty)")
	scanCmd.Flags().StringVar(&scanAreaName, "area-name", "", "human-readable area name")
	scanCmd.Flags().StringVar(&scanSatellite, "satellite", "", "path to the satellite image (required)")
	scanCmd.Flags().StringVar(&scanLayout, "layout", "", "path to the plot-map layout image (required)")
	scanCmd.MarkFlagRequired("satellite")
	scanCmd.MarkFlagRequired("layout")
	rootCmd.AddCommand(scanCmd)
}
