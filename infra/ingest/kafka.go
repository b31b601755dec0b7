// Package ingest consumes collector records from Kafka and loads them into
// the repository. One consumer group member per topic; offsets commit only
// after the record is stored, so a crash replays rather than drops.
package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/chargescope/chargescope/core/logger"
	coremetrics "github.com/chargescope/chargescope/core/metrics"
	"github.com/chargescope/chargescope/core/model"
	"github.com/chargescope/chargescope/core/store"
	infralogger "github.com/chargescope/chargescope/infra/logger"
)

// handler stores one decoded message in the repository.
type handler func(ctx context.Context, value []byte) error

// Ingestor runs one Kafka reader per configured topic.
type Ingestor struct {
	cfg  Config
	repo store.Repository
	rec  coremetrics.IngestRecorder
	log  logger.Logger

	mu      sync.Mutex
	readers []*kafka.Reader
}

// New builds an Ingestor. A nil recorder disables ingest metrics.
func New(cfg Config, repo store.Repository, rec coremetrics.IngestRecorder, log logger.Logger) *Ingestor {
	cfg.SetDefaults()
	if rec == nil {
		rec = coremetrics.NopSink{}
	}
	if log == nil {
		log = infralogger.NopLogger{}
	}
	return &Ingestor{cfg: cfg, repo: repo, rec: rec, log: log}
}

// Start launches the consumers and blocks until ctx is canceled.
func (i *Ingestor) Start(ctx context.Context) error {
	topics := []struct {
		name   string
		handle handler
	}{
		{i.cfg.StationsTopic, i.handleStation},
		{i.cfg.SessionsTopic, i.handleSession},
		{i.cfg.WeatherTopic, i.handleWeather},
		{i.cfg.TrafficTopic, i.handleTraffic},
	}

	var wg sync.WaitGroup
	for _, t := range topics {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:     i.cfg.Brokers,
			Topic:       t.name,
			GroupID:     i.cfg.GroupID,
			MinBytes:    1,
			MaxBytes:    10e6,
			StartOffset: kafka.LastOffset,
		})
		i.mu.Lock()
		i.readers = append(i.readers, reader)
		i.mu.Unlock()

		wg.Add(1)
		go func(topic string, r *kafka.Reader, h handler) {
			defer wg.Done()
			i.consume(ctx, topic, r, h)
		}(t.name, reader, t.handle)
	}
	wg.Wait()
	return ctx.Err()
}

// Close shuts the readers down, unblocking any in-flight fetch.
func (i *Ingestor) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	var first error
	for _, r := range i.readers {
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (i *Ingestor) consume(ctx context.Context, topic string, r *kafka.Reader, h handler) {
	i.log.Infof("consuming topic %s", topic)
	for {
		msg, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			i.log.Errorf("fetch from %s: %v", topic, err)
			return
		}
		if err := h(ctx, msg.Value); err != nil {
			// Malformed records are logged and committed; retrying
			// them can never succeed.
			i.log.Warnf("topic %s offset %d: %v", topic, msg.Offset, err)
			i.observe(topic, 0, true)
		} else {
			i.observe(topic, 1, false)
		}
		if err := r.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return
			}
			i.log.Errorf("commit on %s: %v", topic, err)
		}
	}
}

func (i *Ingestor) observe(topic string, records int, failed bool) {
	ev := coremetrics.IngestEvent{Topic: topic, Records: records, Failed: failed, Time: time.Now()}
	if err := i.rec.RecordIngest(ev); err != nil {
		i.log.Warnf("record ingest metrics: %v", err)
	}
}

func (i *Ingestor) handleStation(ctx context.Context, value []byte) error {
	station, points, err := decodeStation(value)
	if err != nil {
		return err
	}
	cleaned := model.CleanStations([]model.Station{station})
	if len(cleaned) > 0 {
		if err := i.repo.SaveStations(ctx, cleaned); err != nil {
			return err
		}
	}
	if len(points) > 0 {
		return i.repo.SaveChargingPoints(ctx, points)
	}
	return nil
}

func (i *Ingestor) handleSession(ctx context.Context, value []byte) error {
	session, err := decodeSession(value)
	if err != nil {
		return err
	}
	cleaned := model.CleanSessions([]model.UsageSession{session})
	if len(cleaned) == 0 {
		return nil
	}
	return i.repo.SaveSessions(ctx, cleaned)
}

func (i *Ingestor) handleWeather(ctx context.Context, value []byte) error {
	obs, err := decodeWeather(value)
	if err != nil {
		return err
	}
	cleaned := model.CleanWeather([]model.WeatherObservation{obs})
	if len(cleaned) == 0 {
		return nil
	}
	return i.repo.SaveWeather(ctx, cleaned)
}

func (i *Ingestor) handleTraffic(ctx context.Context, value []byte) error {
	obs, err := decodeTraffic(value)
	if err != nil {
		return err
	}
	cleaned := model.CleanTraffic([]model.TrafficObservation{obs})
	if len(cleaned) == 0 {
		return nil
	}
	return i.repo.SaveTraffic(ctx, cleaned)
}
