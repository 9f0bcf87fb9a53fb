// Package db implements the storage.Backend interface on a GORM database:
// Postgres when reachable, local SQLite otherwise. Samples arrive at ~60 Hz,
// so they are buffered and flushed in batches on a timer rather than written
// row by row.
package db

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hmdlab/headtrack/internal/database"
	"github.com/hmdlab/headtrack/internal/model"
	"github.com/hmdlab/headtrack/internal/queue"
	"github.com/hmdlab/headtrack/pkg/core"
)

// Config holds db backend settings.
type Config struct {
	FlushInterval time.Duration
	SqlitePath    string
}

// Backend buffers sample rows and writes them in batches.
type Backend struct {
	cfg Config
	log zerolog.Logger
	db  *database.Manager

	mu        sync.Mutex
	session   *model.Session
	lastWrite time.Duration

	pending *queue.Queue[model.Sample]

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a new db backend.
func New(cfg Config, log zerolog.Logger) *Backend {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	return &Backend{
		cfg:      cfg,
		log:      log,
		db:       database.NewManager(log, cfg.SqlitePath),
		pending:  queue.New[model.Sample](),
		stopChan: make(chan struct{}),
	}
}

// Init connects, migrates the schema and starts the flush goroutine.
func (b *Backend) Init() error {
	if err := b.db.Connect(); err != nil {
		return fmt.Errorf("db backend connect: %w", err)
	}
	if err := b.db.Setup(); err != nil {
		return fmt.Errorf("db backend migrate: %w", err)
	}

	b.wg.Add(1)
	go b.flushLoop()
	return nil
}

// Close flushes outstanding rows and closes the connection.
func (b *Backend) Close() error {
	close(b.stopChan)
	b.wg.Wait()
	b.flush()
	return b.db.Close()
}

// StartSession inserts the session row that samples will reference.
func (b *Backend) StartSession(info *core.SessionInfo, bounds core.TrackingBounds) error {
	start, err := time.Parse(time.RFC3339, info.StartTime)
	if err != nil {
		start = time.Now()
	}
	session := model.Session{
		Tag:       info.Tag,
		Source:    info.Source,
		StartTime: start,
	}
	if err := b.db.DB.Create(&session).Error; err != nil {
		return fmt.Errorf("create session row: %w", err)
	}

	b.mu.Lock()
	b.session = &session
	b.mu.Unlock()
	b.pending.Clear()

	b.log.Info().Uint("sessionId", session.ID).Str("tag", session.Tag).
		Msg("Session recording started")
	return nil
}

// EndSession flushes outstanding samples and stamps the end time.
func (b *Backend) EndSession() error {
	b.flush()

	b.mu.Lock()
	session := b.session
	b.session = nil
	b.mu.Unlock()

	if session == nil {
		return nil
	}
	session.EndTime = time.Now()
	if err := b.db.DB.Save(session).Error; err != nil {
		return fmt.Errorf("finalize session row: %w", err)
	}
	return nil
}

// RecordSample stages one sample row for the next batch write.
func (b *Backend) RecordSample(s *core.PoseSample) error {
	b.mu.Lock()
	session := b.session
	b.mu.Unlock()

	if session == nil {
		return nil
	}
	b.pending.Push(model.SampleFromCore(session.ID, s))
	return nil
}

// SaveCalibration writes a calibration record row immediately; calibration
// saves are rare and explicit.
func (b *Backend) SaveCalibration(r *core.CalibrationRecord) error {
	b.mu.Lock()
	var sessionID uint
	if b.session != nil {
		sessionID = b.session.ID
	}
	b.mu.Unlock()

	row, err := model.CalibrationFromCore(sessionID, r)
	if err != nil {
		return fmt.Errorf("encode calibration record: %w", err)
	}
	if err := b.db.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("write calibration record: %w", err)
	}
	return nil
}

// GetLastWriteDuration returns the duration of the last batch write in
// milliseconds.
func (b *Backend) GetLastWriteDuration() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return float64(b.lastWrite.Milliseconds())
}

func (b *Backend) flushLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			b.flush()
		}
	}
}

// flush writes all staged sample rows in one batch.
func (b *Backend) flush() {
	rows := b.pending.Drain()
	if len(rows) == 0 {
		return
	}

	start := time.Now()
	if err := b.db.DB.Create(&rows).Error; err != nil {
		b.log.Error().Err(err).Int("rows", len(rows)).Msg("Error writing sample batch")
		return
	}

	b.mu.Lock()
	b.lastWrite = time.Since(start)
	b.mu.Unlock()

	b.log.Debug().Int("rows", len(rows)).Dur("took", time.Since(start)).
		Msg("Flushed sample batch")
}
