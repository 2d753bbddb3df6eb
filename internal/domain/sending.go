package domain

import "time"

// ProviderType identifies the delivery provider used for sending.
type ProviderType string

const (
	ProviderSMTP      ProviderType = "smtp"
	ProviderGmail     ProviderType = "gmail"
	ProviderResend    ProviderType = "resend"
	ProviderWeb3Forms ProviderType = "web3forms"
	ProviderSES       ProviderType = "ses"
)

// EmailKind names the transactional templates.
type EmailKind string

const (
	KindWelcome             EmailKind = "welcome"
	KindStatusUpdate        EmailKind = "status_update"
	KindCustom              EmailKind = "custom"
	KindPaymentInstructions EmailKind = "payment_instructions"
	KindContract            EmailKind = "contract"
)

// Attachment is a single binary file carried by an outbound message.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"-"`
	// Source records where the bytes were loaded from (URL, path, s3://).
	Source string `json:"source,omitempty"`
}

// OutboundMessage is the fully-rendered message handed to a provider.
// It is built per send and discarded afterwards.
type OutboundMessage struct {
	ID          string      `json:"id"`
	FromName    string      `json:"from_name"`
	FromEmail   string      `json:"from_email"`
	To          string      `json:"to"`
	Subject     string      `json:"subject"`
	HTMLContent string      `json:"html_content"`
	Attachment  *Attachment `json:"attachment,omitempty"`
}

// SendResult is returned by a provider after it accepted a message.
type SendResult struct {
	MessageID string       `json:"message_id"`
	Provider  ProviderType `json:"provider"`
	SentAt    time.Time    `json:"sent_at"`
}
