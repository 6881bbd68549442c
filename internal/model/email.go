package model

import "time"

// Email audit row statuses. These are deliberately separate from Status:
// the audit row records the outcome of one SMTP send, not a state machine.
const (
	EmailStatusPending = "pending"
	EmailStatusSent    = "sent"
	EmailStatusFailed  = "failed"
)

// EmailRecord is the audit row written for every email send. Recipients are
// joined with ";" into the recipient column.
type EmailRecord struct {
	ID           string    `db:"id" json:"id"`
	OperationID  string    `db:"operation_id" json:"operation_id"`
	Recipient    string    `db:"recipient" json:"recipient"`
	Subject      string    `db:"subject" json:"subject"`
	Body         string    `db:"body" json:"body"`
	Status       string    `db:"status" json:"status"`
	ErrorMessage *string   `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Attachment is a binary payload carried alongside a send. Data is
// base64-encoded on the wire (encoding/json does that for []byte).
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// EmailConfig carries the SMTP relay parameters for one send.
type EmailConfig struct {
	SMTPHost   string   `json:"smtp_host"`
	SMTPPort   int      `json:"smtp_port"`
	SMTPUser   string   `json:"smtp_user"`
	SMTPPass   string   `json:"smtp_pass"`
	Recipients []string `json:"recipients"`
}

// SendUniversalEmailRequest is the payload for POST /api/email/send-unified:
// multiple recipients, optional generated PDF, optional extra attachments,
// sync or async.
type SendUniversalEmailRequest struct {
	SMTPHost   string   `json:"smtp_host" binding:"required"`
	SMTPPort   int      `json:"smtp_port" binding:"required"`
	SMTPUser   string   `json:"smtp_user" binding:"required"`
	SMTPPass   string   `json:"smtp_pass" binding:"required"`
	Recipients []string `json:"recipients" binding:"required,min=1"`
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
	AsyncSend  bool     `json:"async_send"`

	PDFHTML           *string      `json:"pdf_html"`
	PDFOrientation    *Orientation `json:"pdf_orientation"`
	PDFPageSizePreset *PagePreset  `json:"pdf_page_size_preset"`
	PDFCustomPageSize *PageSize    `json:"pdf_custom_page_size"`
	PDFMargins        *PdfMargins  `json:"pdf_margins"`
	PDFScale          *float64     `json:"pdf_scale"`
	PDFAttachmentName *string      `json:"pdf_attachment_name"`

	OtherAttachments []Attachment `json:"other_attachments"`
}

// EmailConfig view of the unified request, for the shared sender path.
func (r *SendUniversalEmailRequest) EmailConfig() EmailConfig {
	return EmailConfig{
		SMTPHost:   r.SMTPHost,
		SMTPPort:   r.SMTPPort,
		SMTPUser:   r.SMTPUser,
		SMTPPass:   r.SMTPPass,
		Recipients: r.Recipients,
	}
}

// EmailStatusResponse answers GET /api/email/status/{op_id}.
type EmailStatusResponse struct {
	ID     string  `json:"id"`
	Status string  `json:"status"`
	Error  *string `json:"error,omitempty"`
}
