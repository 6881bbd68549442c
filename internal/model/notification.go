package model

// WhatsAppConfig carries the gateway recipients (chat ids) for one send.
type WhatsAppConfig struct {
	Recipients []string `json:"recipients"`
}

// NotificationRequest drives one fan-out over the listed channels.
type NotificationRequest struct {
	// Channels in delivery order, e.g. ["email", "whatsapp"]. Unknown tags
	// fail their own attempt only.
	Channels []string `json:"channels" binding:"required"`

	EmailConfig    *EmailConfig    `json:"email_config"`
	WhatsAppConfig *WhatsAppConfig `json:"whatsapp_config"`

	// Subject and Body are shared by every channel; Body doubles as the
	// WhatsApp message text.
	Subject string `json:"subject"`
	Body    string `json:"body"`

	// AsyncSend makes the HTTP boundary answer right after the operation
	// row exists.
	AsyncSend bool `json:"async_send"`

	// Optional PDF generated before any channel runs and attached first.
	PDFHTML           *string      `json:"pdf_html"`
	PDFOrientation    *Orientation `json:"pdf_orientation"`
	PDFPageSizePreset *PagePreset  `json:"pdf_page_size_preset"`
	PDFCustomPageSize *PageSize    `json:"pdf_custom_page_size"`
	PDFMargins        *PdfMargins  `json:"pdf_margins"`
	PDFScale          *float64     `json:"pdf_scale"`
	PDFAttachmentName *string      `json:"pdf_attachment_name"`

	OtherAttachments []Attachment `json:"other_attachments"`
}

// NotificationResponse answers POST /api/notifications/send.
type NotificationResponse struct {
	Success     bool   `json:"success"`
	OperationID string `json:"operation_id"`
	Message     string `json:"message"`
}
