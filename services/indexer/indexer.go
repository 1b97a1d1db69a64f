package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"lessonchain/core/events"
	"lessonchain/crypto"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	// DefaultHistoryLimit caps History when the caller passes no limit.
	DefaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

// Entry is the caller-facing view of an indexed event.
type Entry struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	LessonID   *int              `json:"lessonId,omitempty"`
	Record     string            `json:"record,omitempty"`
	Payer      string            `json:"payer,omitempty"`
	Mint       string            `json:"mint,omitempty"`
	Metadata   string            `json:"metadata,omitempty"`
	Attributes map[string]string `json:"attributes"`
	IndexedAt  time.Time         `json:"indexedAt"`
}

// Indexer persists committed events and answers history queries. It
// implements events.Emitter.
type Indexer struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

var _ events.Emitter = (*Indexer)(nil)

// Open connects to the configured database and migrates the schema.
func Open(driver, dsn string, logger *slog.Logger) (*Indexer, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverSQLite, "":
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("indexer: unsupported driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("indexer: open database: %w", err)
	}
	return New(db, logger)
}

// New wraps an existing gorm handle.
func New(db *gorm.DB, logger *slog.Logger) (*Indexer, error) {
	if db == nil {
		return nil, errors.New("indexer: database required")
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("indexer: migrate: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{db: db, logger: logger, now: time.Now}, nil
}

// Emit implements events.Emitter. Events without an attribute payload are
// ignored; storage failures are logged.
func (ix *Indexer) Emit(evt events.Event) {
	if ix == nil || evt == nil {
		return
	}
	payload, ok := events.Payload(evt)
	if !ok {
		return
	}
	if err := ix.Record(context.Background(), payload.Type, payload.Attributes); err != nil {
		ix.logger.Error("index event", slog.String("type", payload.Type), slog.Any("error", err))
	}
}

// Record stores one event.
func (ix *Indexer) Record(ctx context.Context, eventType string, attrs map[string]string) error {
	encoded, err := json.Marshal(attrs)
	if err != nil {
		return err
	}
	row := Event{
		EventID:     uuid.New(),
		Type:        eventType,
		Participant: attrs["user"],
		Record:      attrs["record"],
		Payer:       attrs["payer"],
		Mint:        attrs["mint"],
		Metadata:    attrs["metadata"],
		Attributes:  string(encoded),
		CreatedAt:   ix.now().UTC(),
	}
	if raw, ok := attrs["lessonId"]; ok {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("indexer: invalid lessonId %q: %w", raw, err)
		}
		row.LessonID = &id
	}
	return ix.db.WithContext(ctx).Create(&row).Error
}

// History returns the events recorded for participant, oldest first.
func (ix *Indexer) History(ctx context.Context, participant [20]byte, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	owner := crypto.FromRaw(crypto.ParticipantPrefix, participant).String()
	var rows []Event
	err := ix.db.WithContext(ctx).
		Where("participant = ?", owner).
		Order("seq ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		attrs := map[string]string{}
		if row.Attributes != "" {
			if err := json.Unmarshal([]byte(row.Attributes), &attrs); err != nil {
				return nil, fmt.Errorf("indexer: decode attributes for %s: %w", row.EventID, err)
			}
		}
		entries = append(entries, Entry{
			ID:         row.EventID.String(),
			Type:       row.Type,
			LessonID:   row.LessonID,
			Record:     row.Record,
			Payer:      row.Payer,
			Mint:       row.Mint,
			Metadata:   row.Metadata,
			Attributes: attrs,
			IndexedAt:  row.CreatedAt,
		})
	}
	return entries, nil
}

// Close releases the underlying connection pool.
func (ix *Indexer) Close() error {
	if ix == nil || ix.db == nil {
		return nil
	}
	sqlDB, err := ix.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
