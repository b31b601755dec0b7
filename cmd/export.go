package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/chargescope/chargescope/pkg/export"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export [patterns|anomalies|recommendations]",
	Short: "Run an analysis and export its results",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "output format: json or csv")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file, defaults to stdout")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	defer closeService(svc)

	var w io.Writer = cmd.OutOrStdout()
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	ctx := context.Background()
	switch args[0] {
	case "patterns":
		patterns, err := svc.Engine.UsagePatterns(ctx, "")
		if err != nil {
			return err
		}
		if exportFormat == "csv" {
			return export.WritePatternsCSV(w, patterns)
		}
		return export.WriteJSON(w, patterns)
	case "anomalies":
		anomalies, err := svc.Engine.DetectAnomalies(ctx)
		if err != nil {
			return err
		}
		if exportFormat == "csv" {
			return export.WriteAnomaliesCSV(w, anomalies)
		}
		return export.WriteJSON(w, anomalies)
	case "recommendations":
		report, err := svc.Engine.NetworkInsights(ctx)
		if err != nil {
			return err
		}
		if exportFormat == "csv" {
			return export.WriteRecommendationsCSV(w, report.Recommendations)
		}
		return export.WriteJSON(w, report.Recommendations)
	default:
		return fmt.Errorf("unknown export kind %s", args[0])
	}
}
