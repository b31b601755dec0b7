package features

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/chargescope/chargescope/core/logger"
)

// OutlierModel is the unsupervised statistical primitive behind anomaly
// scoring. Any conforming implementation can be substituted without touching
// the feature engineer.
type OutlierModel interface {
	// Fit trains the model on the feature matrix.
	Fit(x *mat.Dense) error
	// Scores returns the per-row decision margin. Negative margins mark
	// outliers; magnitude is the severity.
	Scores(x *mat.Dense) []float64
	// Predict returns the per-row outlier flag.
	Predict(x *mat.Dense) []bool
}

// Anomaly records one station flagged by the outlier model.
type Anomaly struct {
	ID          string    `json:"id"`
	StationID   string    `json:"station_id"`
	Type        string    `json:"anomaly_type"`
	Severity    float64   `json:"severity_score"`
	DetectedAt  time.Time `json:"detected_at"`
	Description string    `json:"description"`
	Resolved    bool      `json:"is_resolved"`
}

// Detector pairs the feature engineer with an outlier model.
type Detector struct {
	model OutlierModel
	log   logger.Logger
}

// NewDetector returns a Detector using the given model.
func NewDetector(model OutlierModel, log logger.Logger) *Detector {
	return &Detector{model: model, log: log}
}

// matrix assembles the numeric feature columns into a dense matrix. The
// boolean storm flag is excluded: only numeric columns feed the model.
func matrix(vectors []Vector) *mat.Dense {
	if len(vectors) == 0 {
		return nil
	}
	const cols = 5
	x := mat.NewDense(len(vectors), cols, nil)
	for i, v := range vectors {
		x.Set(i, 0, v.AvgDowntimeMin)
		x.Set(i, 1, v.EnergyPerTraffic)
		x.Set(i, 2, v.AvgWaitTimeMin)
		x.Set(i, 3, v.TotalSessions)
		x.Set(i, 4, v.TotalEnergyKWh)
	}
	return x
}

// Detect fits the model on the feature set and reports flagged stations.
// An empty feature set yields an empty list, never an error.
func (d *Detector) Detect(vectors []Vector, now time.Time) []Anomaly {
	x := matrix(vectors)
	if x == nil {
		return nil
	}
	if err := d.model.Fit(x); err != nil {
		d.log.Errorf("outlier model fit: %v", err)
		return nil
	}
	scores := d.model.Scores(x)
	flags := d.model.Predict(x)

	var anomalies []Anomaly
	for i, v := range vectors {
		if !flags[i] {
			continue
		}
		sev := scores[i]
		if sev < 0 {
			sev = -sev
		}
		anomalies = append(anomalies, Anomaly{
			ID:          uuid.New().String(),
			StationID:   v.StationID,
			Type:        "usage_pattern",
			Severity:    sev,
			DetectedAt:  now.UTC(),
			Description: fmt.Sprintf("Unusual usage pattern detected with score: %.3f", scores[i]),
			Resolved:    false,
		})
	}
	return anomalies
}
