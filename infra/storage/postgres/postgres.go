// Package postgres implements the repository on PostgreSQL using sqlx.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/chargescope/chargescope/core/features"
	"github.com/chargescope/chargescope/core/insight"
	"github.com/chargescope/chargescope/core/model"
	"github.com/chargescope/chargescope/core/pattern"
)

// Repository persists all engine inputs and outputs in PostgreSQL.
type Repository struct {
	db *sqlx.DB
}

// Connect opens the pool and verifies the connection.
func Connect(dsn string, maxOpenConns int) (*Repository, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxOpenConns / 2)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Repository{db: db}, nil
}

// Close releases the pool.
func (r *Repository) Close() error { return r.db.Close() }

const schema = `
CREATE TABLE IF NOT EXISTS stations (
	id        TEXT PRIMARY KEY,
	name      TEXT NOT NULL DEFAULT '',
	latitude  DOUBLE PRECISION NOT NULL,
	longitude DOUBLE PRECISION NOT NULL,
	address   TEXT NOT NULL DEFAULT '',
	city      TEXT NOT NULL DEFAULT '',
	state     TEXT NOT NULL DEFAULT '',
	country   TEXT NOT NULL DEFAULT '',
	operator  TEXT NOT NULL DEFAULT '',
	network   TEXT NOT NULL DEFAULT '',
	status    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS charging_points (
	id             TEXT PRIMARY KEY,
	station_id     TEXT NOT NULL,
	power_kw       DOUBLE PRECISION NOT NULL DEFAULT 0,
	connector_type TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_points_station ON charging_points (station_id);

CREATE TABLE IF NOT EXISTS usage_sessions (
	id            TEXT PRIMARY KEY,
	station_id    TEXT NOT NULL,
	session_start TIMESTAMPTZ NOT NULL,
	session_end   TIMESTAMPTZ,
	energy_kwh    DOUBLE PRECISION NOT NULL DEFAULT 0,
	duration_min  DOUBLE PRECISION NOT NULL DEFAULT 0,
	has_duration  BOOLEAN NOT NULL DEFAULT FALSE,
	cost          DOUBLE PRECISION NOT NULL DEFAULT 0,
	user_type     TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_sessions_station ON usage_sessions (station_id, session_start);

CREATE TABLE IF NOT EXISTS weather_observations (
	station_id       TEXT NOT NULL,
	ts               TIMESTAMPTZ NOT NULL,
	temperature_c    DOUBLE PRECISION NOT NULL DEFAULT 0,
	humidity_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
	pressure_hpa     DOUBLE PRECISION NOT NULL DEFAULT 0,
	wind_speed_ms    DOUBLE PRECISION NOT NULL DEFAULT 0,
	precipitation_mm DOUBLE PRECISION NOT NULL DEFAULT 0,
	condition        TEXT NOT NULL DEFAULT '',
	visibility_km    DOUBLE PRECISION NOT NULL DEFAULT 0,
	PRIMARY KEY (station_id, ts)
);

CREATE TABLE IF NOT EXISTS traffic_observations (
	station_id        TEXT NOT NULL,
	ts                TIMESTAMPTZ NOT NULL,
	traffic_density   DOUBLE PRECISION NOT NULL DEFAULT 0,
	average_speed_kmh DOUBLE PRECISION NOT NULL DEFAULT 0,
	congestion_level  TEXT NOT NULL DEFAULT 'unknown',
	road_type         TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (station_id, ts)
);

CREATE TABLE IF NOT EXISTS patterns (
	id          BIGSERIAL PRIMARY KEY,
	kind        TEXT NOT NULL,
	station_id  TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	details     JSONB,
	confidence  DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS anomalies (
	id          TEXT PRIMARY KEY,
	station_id  TEXT NOT NULL,
	type        TEXT NOT NULL,
	severity    DOUBLE PRECISION NOT NULL,
	detected_at TIMESTAMPTZ NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	resolved    BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS recommendations (
	id                BIGSERIAL PRIMARY KEY,
	type              TEXT NOT NULL,
	priority          TEXT NOT NULL,
	recommendation    TEXT NOT NULL,
	affected_stations JSONB,
	station_id        TEXT NOT NULL DEFAULT '',
	states            JSONB,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Migrate creates the schema when missing.
func (r *Repository) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

type stationRow struct {
	ID        string  `db:"id"`
	Name      string  `db:"name"`
	Latitude  float64 `db:"latitude"`
	Longitude float64 `db:"longitude"`
	Address   string  `db:"address"`
	City      string  `db:"city"`
	State     string  `db:"state"`
	Country   string  `db:"country"`
	Operator  string  `db:"operator"`
	Network   string  `db:"network"`
	Status    string  `db:"status"`
}

// Stations returns every stored station.
func (r *Repository) Stations(ctx context.Context) ([]model.Station, error) {
	var rows []stationRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT id, name, latitude, longitude, address, city, state, country, operator, network, status
		 FROM stations ORDER BY id`)
	if err != nil {
		return nil, err
	}
	out := make([]model.Station, 0, len(rows))
	for _, row := range rows {
		out = append(out, model.Station(row))
	}
	return out, nil
}

type pointRow struct {
	ID            string  `db:"id"`
	StationID     string  `db:"station_id"`
	PowerKW       float64 `db:"power_kw"`
	ConnectorType string  `db:"connector_type"`
	Status        string  `db:"status"`
}

// ChargingPoints returns every stored charging point.
func (r *Repository) ChargingPoints(ctx context.Context) ([]model.ChargingPoint, error) {
	var rows []pointRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT id, station_id, power_kw, connector_type, status FROM charging_points ORDER BY id`)
	if err != nil {
		return nil, err
	}
	out := make([]model.ChargingPoint, 0, len(rows))
	for _, row := range rows {
		out = append(out, model.ChargingPoint(row))
	}
	return out, nil
}

type sessionRow struct {
	ID           string     `db:"id"`
	StationID    string     `db:"station_id"`
	SessionStart time.Time  `db:"session_start"`
	SessionEnd   *time.Time `db:"session_end"`
	EnergyKWh    float64    `db:"energy_kwh"`
	DurationMin  float64    `db:"duration_min"`
	HasDuration  bool       `db:"has_duration"`
	Cost         float64    `db:"cost"`
	UserType     string     `db:"user_type"`
}

// Sessions returns usage sessions, optionally filtered to one station.
func (r *Repository) Sessions(ctx context.Context, stationID string) ([]model.UsageSession, error) {
	query := `SELECT id, station_id, session_start, session_end, energy_kwh, duration_min, has_duration, cost, user_type
		 FROM usage_sessions`
	args := []any{}
	if stationID != "" {
		query += ` WHERE station_id = $1`
		args = append(args, stationID)
	}
	query += ` ORDER BY session_start`
	var rows []sessionRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]model.UsageSession, 0, len(rows))
	for _, row := range rows {
		s := model.UsageSession{
			ID:           row.ID,
			StationID:    row.StationID,
			SessionStart: row.SessionStart,
			EnergyKWh:    row.EnergyKWh,
			DurationMin:  row.DurationMin,
			HasDuration:  row.HasDuration,
			Cost:         row.Cost,
			UserType:     row.UserType,
		}
		if row.SessionEnd != nil {
			s.SessionEnd = *row.SessionEnd
		}
		out = append(out, s)
	}
	return out, nil
}

type weatherRow struct {
	StationID       string    `db:"station_id"`
	Timestamp       time.Time `db:"ts"`
	TemperatureC    float64   `db:"temperature_c"`
	HumidityPercent float64   `db:"humidity_percent"`
	PressureHPa     float64   `db:"pressure_hpa"`
	WindSpeedMS     float64   `db:"wind_speed_ms"`
	PrecipitationMM float64   `db:"precipitation_mm"`
	Condition       string    `db:"condition"`
	VisibilityKM    float64   `db:"visibility_km"`
}

// Weather returns weather observations, optionally filtered to one station.
func (r *Repository) Weather(ctx context.Context, stationID string) ([]model.WeatherObservation, error) {
	query := `SELECT station_id, ts, temperature_c, humidity_percent, pressure_hpa, wind_speed_ms, precipitation_mm, condition, visibility_km
		 FROM weather_observations`
	args := []any{}
	if stationID != "" {
		query += ` WHERE station_id = $1`
		args = append(args, stationID)
	}
	query += ` ORDER BY ts`
	var rows []weatherRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]model.WeatherObservation, 0, len(rows))
	for _, row := range rows {
		out = append(out, model.WeatherObservation(row))
	}
	return out, nil
}

type trafficRow struct {
	StationID       string    `db:"station_id"`
	Timestamp       time.Time `db:"ts"`
	TrafficDensity  float64   `db:"traffic_density"`
	AverageSpeedKMH float64   `db:"average_speed_kmh"`
	CongestionLevel string    `db:"congestion_level"`
	RoadType        string    `db:"road_type"`
}

// Traffic returns traffic observations, optionally filtered to one station.
func (r *Repository) Traffic(ctx context.Context, stationID string) ([]model.TrafficObservation, error) {
	query := `SELECT station_id, ts, traffic_density, average_speed_kmh, congestion_level, road_type
		 FROM traffic_observations`
	args := []any{}
	if stationID != "" {
		query += ` WHERE station_id = $1`
		args = append(args, stationID)
	}
	query += ` ORDER BY ts`
	var rows []trafficRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]model.TrafficObservation, 0, len(rows))
	for _, row := range rows {
		out = append(out, model.TrafficObservation(row))
	}
	return out, nil
}

// SaveStations upserts stations by id.
func (r *Repository) SaveStations(ctx context.Context, stations []model.Station) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, s := range stations {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO stations (id, name, latitude, longitude, address, city, state, country, operator, network, status)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
				 ON CONFLICT (id) DO UPDATE SET
					name = EXCLUDED.name, latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude,
					address = EXCLUDED.address, city = EXCLUDED.city, state = EXCLUDED.state,
					country = EXCLUDED.country, operator = EXCLUDED.operator, network = EXCLUDED.network,
					status = EXCLUDED.status`,
				s.ID, s.Name, s.Latitude, s.Longitude, s.Address, s.City, s.State, s.Country, s.Operator, s.Network, s.Status)
			if err != nil {
				return fmt.Errorf("upsert station %s: %w", s.ID, err)
			}
		}
		return nil
	})
}

// SaveChargingPoints upserts charging points by id.
func (r *Repository) SaveChargingPoints(ctx context.Context, points []model.ChargingPoint) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, p := range points {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO charging_points (id, station_id, power_kw, connector_type, status)
				 VALUES ($1, $2, $3, $4, $5)
				 ON CONFLICT (id) DO UPDATE SET
					station_id = EXCLUDED.station_id, power_kw = EXCLUDED.power_kw,
					connector_type = EXCLUDED.connector_type, status = EXCLUDED.status`,
				p.ID, p.StationID, p.PowerKW, p.ConnectorType, p.Status)
			if err != nil {
				return fmt.Errorf("upsert charging point %s: %w", p.ID, err)
			}
		}
		return nil
	})
}

// SaveSessions upserts usage sessions by id.
func (r *Repository) SaveSessions(ctx context.Context, sessions []model.UsageSession) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, s := range sessions {
			var end *time.Time
			if !s.SessionEnd.IsZero() {
				end = &s.SessionEnd
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO usage_sessions (id, station_id, session_start, session_end, energy_kwh, duration_min, has_duration, cost, user_type)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				 ON CONFLICT (id) DO UPDATE SET
					station_id = EXCLUDED.station_id, session_start = EXCLUDED.session_start,
					session_end = EXCLUDED.session_end, energy_kwh = EXCLUDED.energy_kwh,
					duration_min = EXCLUDED.duration_min, has_duration = EXCLUDED.has_duration,
					cost = EXCLUDED.cost, user_type = EXCLUDED.user_type`,
				s.ID, s.StationID, s.SessionStart, end, s.EnergyKWh, s.DurationMin, s.HasDuration, s.Cost, s.UserType)
			if err != nil {
				return fmt.Errorf("upsert session %s: %w", s.ID, err)
			}
		}
		return nil
	})
}

// SaveWeather upserts weather observations by station and timestamp.
func (r *Repository) SaveWeather(ctx context.Context, obs []model.WeatherObservation) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, o := range obs {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO weather_observations (station_id, ts, temperature_c, humidity_percent, pressure_hpa, wind_speed_ms, precipitation_mm, condition, visibility_km)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				 ON CONFLICT (station_id, ts) DO UPDATE SET
					temperature_c = EXCLUDED.temperature_c, humidity_percent = EXCLUDED.humidity_percent,
					pressure_hpa = EXCLUDED.pressure_hpa, wind_speed_ms = EXCLUDED.wind_speed_ms,
					precipitation_mm = EXCLUDED.precipitation_mm, condition = EXCLUDED.condition,
					visibility_km = EXCLUDED.visibility_km`,
				o.StationID, o.Timestamp, o.TemperatureC, o.HumidityPercent, o.PressureHPa, o.WindSpeedMS, o.PrecipitationMM, o.Condition, o.VisibilityKM)
			if err != nil {
				return fmt.Errorf("upsert weather %s/%s: %w", o.StationID, o.Timestamp, err)
			}
		}
		return nil
	})
}

// SaveTraffic upserts traffic observations by station and timestamp.
func (r *Repository) SaveTraffic(ctx context.Context, obs []model.TrafficObservation) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, o := range obs {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO traffic_observations (station_id, ts, traffic_density, average_speed_kmh, congestion_level, road_type)
				 VALUES ($1, $2, $3, $4, $5, $6)
				 ON CONFLICT (station_id, ts) DO UPDATE SET
					traffic_density = EXCLUDED.traffic_density, average_speed_kmh = EXCLUDED.average_speed_kmh,
					congestion_level = EXCLUDED.congestion_level, road_type = EXCLUDED.road_type`,
				o.StationID, o.Timestamp, o.TrafficDensity, o.AverageSpeedKMH, o.CongestionLevel, o.RoadType)
			if err != nil {
				return fmt.Errorf("upsert traffic %s/%s: %w", o.StationID, o.Timestamp, err)
			}
		}
		return nil
	})
}

// SavePatterns appends detected patterns.
func (r *Repository) SavePatterns(ctx context.Context, patterns []pattern.Pattern) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, p := range patterns {
			details, err := json.Marshal(p.Details)
			if err != nil {
				return fmt.Errorf("marshal pattern details: %w", err)
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO patterns (kind, station_id, description, details, confidence)
				 VALUES ($1, $2, $3, $4, $5)`,
				string(p.Kind), p.StationID, p.Description, details, p.Confidence)
			if err != nil {
				return fmt.Errorf("insert pattern %s: %w", p.Kind, err)
			}
		}
		return nil
	})
}

// SaveAnomalies upserts anomalies by id.
func (r *Repository) SaveAnomalies(ctx context.Context, anomalies []features.Anomaly) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, a := range anomalies {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO anomalies (id, station_id, type, severity, detected_at, description, resolved)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)
				 ON CONFLICT (id) DO UPDATE SET
					severity = EXCLUDED.severity, description = EXCLUDED.description,
					resolved = EXCLUDED.resolved`,
				a.ID, a.StationID, a.Type, a.Severity, a.DetectedAt, a.Description, a.Resolved)
			if err != nil {
				return fmt.Errorf("upsert anomaly %s: %w", a.ID, err)
			}
		}
		return nil
	})
}

// SaveRecommendations appends recommendations.
func (r *Repository) SaveRecommendations(ctx context.Context, recs []insight.Recommendation) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, rec := range recs {
			affected, err := json.Marshal(rec.AffectedStations)
			if err != nil {
				return fmt.Errorf("marshal affected stations: %w", err)
			}
			states, err := json.Marshal(rec.States)
			if err != nil {
				return fmt.Errorf("marshal states: %w", err)
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO recommendations (type, priority, recommendation, affected_stations, station_id, states)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				rec.Type, string(rec.Priority), rec.Recommendation, affected, rec.StationID, states)
			if err != nil {
				return fmt.Errorf("insert recommendation %s: %w", rec.Type, err)
			}
		}
		return nil
	})
}

func (r *Repository) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}
