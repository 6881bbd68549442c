package model

import "time"

// Delivery channels this service knows how to drive. The column is a free
// string; unknown tags fail their own attempt and leave siblings alone.
const (
	ChannelEmail    = "email"
	ChannelWhatsApp = "whatsapp"
)

// ChannelAttempt is the per-channel execution row, many-to-one with
// Operation. Its terminal status is independent of other channels.
type ChannelAttempt struct {
	ID           string    `db:"id" json:"id"`
	OperationID  string    `db:"operation_id" json:"operation_id"`
	Channel      string    `db:"channel" json:"channel"`
	Status       Status    `db:"status" json:"status"`
	ErrorMessage *string   `db:"error_message" json:"error_message,omitempty"`
	Attempts     int       `db:"attempts" json:"attempts"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
