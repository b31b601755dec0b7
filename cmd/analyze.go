package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/chargescope/chargescope/infra/logger"
	"github.com/chargescope/chargescope/pkg/export"
)

var analyzeStation string

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run analyses against the stored data",
}

var analyzePatternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Identify usage patterns",
	RunE:  runPatterns,
}

var analyzeCorrelationCmd = &cobra.Command{
	Use:   "correlation",
	Short: "Correlate weather and traffic with usage",
	RunE:  runCorrelation,
}

var analyzeInsightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Build the business intelligence report",
	RunE:  runInsights,
}

func init() {
	analyzeCmd.PersistentFlags().StringVarP(&analyzeStation, "station", "s", "", "restrict the analysis to one station")
	analyzeCmd.AddCommand(analyzePatternsCmd)
	analyzeCmd.AddCommand(analyzeCorrelationCmd)
	analyzeCmd.AddCommand(analyzeInsightsCmd)
	rootCmd.AddCommand(analyzeCmd)
}

func runPatterns(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	defer closeService(svc)

	patterns, err := svc.Engine.UsagePatterns(context.Background(), analyzeStation)
	if err != nil {
		return err
	}
	return export.WriteJSON(cmd.OutOrStdout(), patterns)
}

func runCorrelation(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	defer closeService(svc)

	report, err := svc.Engine.CorrelationReport(context.Background(), analyzeStation)
	if err != nil {
		return err
	}
	return export.WriteJSON(cmd.OutOrStdout(), report)
}

func runInsights(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	defer closeService(svc)

	ctx := context.Background()
	if analyzeStation != "" {
		report, err := svc.Engine.StationInsights(ctx, analyzeStation)
		if err != nil {
			return err
		}
		return export.WriteJSON(cmd.OutOrStdout(), report)
	}
	report, err := svc.Engine.NetworkInsights(ctx)
	if err != nil {
		return err
	}
	return export.WriteJSON(cmd.OutOrStdout(), report)
}

func closeService(svc interface{ Close() error }) {
	if err := svc.Close(); err != nil {
		logger.New("main").Errorf("service close: %v", err)
	}
}
