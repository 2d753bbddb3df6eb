package mailing

import "github.com/legacycamp/camp-api/internal/domain"

// Params carries the kind-specific inputs of a render.
type Params struct {
	// NewStatus is the status announced by status_update emails.
	NewStatus string
	// Subject and Message are the free text of custom emails.
	Subject string
	Message string
	// PaymentLink is the card checkout link of payment_instructions emails.
	PaymentLink string
}

// Sender is the From identity of every outbound message.
type Sender struct {
	Name    string
	Address string
}

// Outcome describes one Deliver call. It is logged, never persisted.
type Outcome struct {
	Success   bool                `json:"success"`
	Attempts  int                 `json:"attempts"`
	LastError string              `json:"last_error,omitempty"`
	Provider  domain.ProviderType `json:"provider"`
	MessageID string              `json:"message_id,omitempty"`
}
