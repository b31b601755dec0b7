// Package export renders analysis results for downstream consumption.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chargescope/chargescope/core/features"
	"github.com/chargescope/chargescope/core/insight"
	"github.com/chargescope/chargescope/core/pattern"
)

// WriteJSON writes any result value to w as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WritePatternsCSV writes detected patterns to w in CSV format. Details are
// flattened to a JSON column.
func WritePatternsCSV(w io.Writer, patterns []pattern.Pattern) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"kind", "station_id", "description", "confidence", "details"}); err != nil {
		return err
	}
	for _, p := range patterns {
		details, err := json.Marshal(p.Details)
		if err != nil {
			return err
		}
		rec := []string{
			string(p.Kind),
			p.StationID,
			p.Description,
			strconv.FormatFloat(p.Confidence, 'f', -1, 64),
			string(details),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteAnomaliesCSV writes detected anomalies to w in CSV format.
func WriteAnomaliesCSV(w io.Writer, anomalies []features.Anomaly) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "station_id", "type", "severity", "detected_at", "description", "resolved"}); err != nil {
		return err
	}
	for _, a := range anomalies {
		rec := []string{
			a.ID,
			a.StationID,
			a.Type,
			strconv.FormatFloat(a.Severity, 'f', -1, 64),
			a.DetectedAt.Format(time.RFC3339),
			a.Description,
			strconv.FormatBool(a.Resolved),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteRecommendationsCSV writes recommendations to w in CSV format.
func WriteRecommendationsCSV(w io.Writer, recs []insight.Recommendation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"type", "priority", "recommendation", "station_id", "affected_stations", "states"}); err != nil {
		return err
	}
	for _, r := range recs {
		rec := []string{
			r.Type,
			string(r.Priority),
			r.Recommendation,
			r.StationID,
			strings.Join(r.AffectedStations, ";"),
			strings.Join(r.States, ";"),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
