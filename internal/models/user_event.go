package models

import (
	"time"
)

// EventType classifies a tracked user interaction
type EventType string

const (
	EventViewItem      EventType = "view_item"
	EventViewCategory  EventType = "view_category"
	EventSearch        EventType = "search"
	EventContactSeller EventType = "contact_seller"
	EventFavorite      EventType = "favorite"
)

// Valid reports whether the event type is one of the known types
func (t EventType) Valid() bool {
	switch t {
	case EventViewItem, EventViewCategory, EventSearch, EventContactSeller, EventFavorite:
		return true
	}
	return false
}

// RequiresEntity reports whether events of this type must reference an entity
func (t EventType) RequiresEntity() bool {
	return t == EventViewItem || t == EventFavorite
}

// UserEvent is one append-only row in the behavior event log.
// Rows are immutable once written; there is no soft delete and no update path.
// Referential integrity with content tables is intentionally not enforced here,
// so consumers must tolerate dangling entity references.
type UserEvent struct {
	ID         string            `gorm:"primaryKey;type:uuid" json:"id"`
	UserID     string            `gorm:"not null;index:idx_user_created" json:"user_id"`
	EventType  EventType         `gorm:"not null;index" json:"event_type"`
	EntityID   *string           `gorm:"index" json:"entity_id,omitempty"`
	CategoryID *string           `gorm:"index" json:"category_id,omitempty"`
	Metadata   map[string]string `gorm:"type:jsonb;serializer:json" json:"metadata,omitempty"`
	CreatedAt  time.Time         `gorm:"index:idx_user_created" json:"created_at"`
}

// TableName specifies the table name
func (UserEvent) TableName() string {
	return "user_events"
}
