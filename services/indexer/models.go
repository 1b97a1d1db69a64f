package indexer

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Event is a committed progress event as persisted by the indexer.
type Event struct {
	Seq         uint      `gorm:"primaryKey;autoIncrement"`
	EventID     uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	Type        string    `gorm:"size:64;index"`
	Participant string    `gorm:"size:96;index"`
	LessonID    *int
	Record      string `gorm:"size:96"`
	Payer       string `gorm:"size:96"`
	Mint        string `gorm:"size:96;index"`
	Metadata    string `gorm:"size:96"`
	Attributes  string `gorm:"type:text"`
	CreatedAt   time.Time
}

// TableName pins the table name independent of the struct name.
func (Event) TableName() string { return "progress_events" }

// AutoMigrate performs all schema migrations for the indexer.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Event{})
}
