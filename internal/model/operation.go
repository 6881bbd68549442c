package model

import "time"

// Status is the lifecycle state shared by operations and channel attempts.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusDone, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether s permits no further transitions besides a
// repeated failure write.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// CanTransition reports whether the move from s to next is legal.
// The machine is monotone: pending -> running -> {done|failed}. A failed
// row may be re-marked failed so later channel failures can refresh the
// error message; done is final.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusRunning || next == StatusDone || next == StatusFailed
	case StatusRunning:
		return next == StatusDone || next == StatusFailed
	case StatusFailed:
		return next == StatusFailed
	default:
		return false
	}
}

// Operation is the top-level unit of work.
type Operation struct {
	ID            string    `db:"id" json:"id"`
	OperationType string    `db:"operation_type" json:"operation_type"`
	Status        Status    `db:"status" json:"status"`
	ErrorMessage  *string   `db:"error_message" json:"error_message,omitempty"`
	IsAsync       bool      `db:"is_async" json:"is_async"`
	Metadata      *string   `db:"metadata" json:"metadata,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Well-known operation types. The column is a free string, these are the
// ones this service writes itself.
const (
	OperationTypeSendNotification = "send_notification"
	OperationTypeSendUnifiedEmail = "send_unified_email"
	OperationTypeGeneratePDF      = "generate_pdf"
)

// CreateOperationRequest is the payload for POST /api/operations.
type CreateOperationRequest struct {
	OperationType string  `json:"operation_type" binding:"required"`
	IsAsync       bool    `json:"is_async"`
	Metadata      *string `json:"metadata"`
}

// CreateOperationResponse carries the freshly minted operation id.
type CreateOperationResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// ListOperationsResponse is a paginated operation listing.
type ListOperationsResponse struct {
	Total    int64        `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
	Items    []*Operation `json:"items"`
}
