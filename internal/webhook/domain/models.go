package domain

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EventRecord dedupes gateway deliveries on (provider, provider_event_id).
// ProcessedAt is set only after the member mutation committed, so a crash
// between insert and dispatch leaves the row claimable by a redelivery.
type EventRecord struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider        string         `json:"provider" gorm:"type:text;not null"`
	ProviderEventID string         `json:"provider_event_id" gorm:"type:text;not null"`
	EventType       string         `json:"event_type" gorm:"type:text;not null"`
	MemberID        snowflake.ID   `json:"member_id" gorm:"not null"`
	Payload         datatypes.JSON `json:"payload" gorm:"type:jsonb"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt     *time.Time     `json:"processed_at"`
}

func (EventRecord) TableName() string { return "gateway_events" }

type Repository interface {
	FindEvent(ctx context.Context, db *gorm.DB, provider, providerEventID string) (*EventRecord, error)
	// InsertEvent reports false when the (provider, provider_event_id) pair
	// already exists.
	InsertEvent(ctx context.Context, db *gorm.DB, event *EventRecord) (bool, error)
	MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time) error
}

// Service ingests signed gateway callbacks and reconciles them onto the
// member rows.
type Service interface {
	Handle(ctx context.Context, payload []byte, headers http.Header) error
}

var ErrEventAlreadyProcessed = errors.New("event_already_processed")
