package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/chargescope/chargescope/pkg/export"
)

var anomaliesCmd = &cobra.Command{
	Use:   "anomalies",
	Short: "Detect stations with unusual usage patterns",
	RunE:  runAnomalies,
}

func init() {
	rootCmd.AddCommand(anomaliesCmd)
}

func runAnomalies(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	defer closeService(svc)

	anomalies, err := svc.Engine.DetectAnomalies(context.Background())
	if err != nil {
		return err
	}
	return export.WriteJSON(cmd.OutOrStdout(), anomalies)
}
