package models

import "time"

// IdempotencyKey stores the first completed response for a caller-supplied key.
// Repeated submissions with the same key return the stored response instead of
// re-executing the guarded operation. There is no automatic expiry; retention
// is an operational concern handled by the admin CLI prune command.
type IdempotencyKey struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Key            string    `gorm:"size:128;uniqueIndex;not null" json:"key"`
	UserID         string    `gorm:"size:128;index" json:"user_id"`
	ResponseStatus int       `json:"response_status"`
	ResponseBody   []byte    `json:"-"` // raw JSON response
	CreatedAt      time.Time `json:"created_at"`
}

// TableName specifies the table name
func (IdempotencyKey) TableName() string {
	return "idempotency_keys"
}
