package mailing

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/legacycamp/camp-api/internal/domain"
	"gopkg.in/gomail.v2"
)

// newGomailMessage builds the gomail representation of msg: an HTML body
// and, when present, the attachment as a multipart/mixed part. Non-ASCII
// headers are RFC 2047 encoded by gomail.
func newGomailMessage(msg *domain.OutboundMessage) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", msg.FromEmail, msg.FromName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-ID", messageID(msg))
	m.SetBody("text/html", msg.HTMLContent)

	if att := msg.Attachment; att != nil {
		content := att.Content
		m.Attach(att.Filename,
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(content)
				return err
			}),
			gomail.SetHeader(map[string][]string{
				"Content-Type": {contentTypeOf(att)},
			}),
		)
	}
	return m
}

// buildMIME renders msg as a raw RFC 5322 message.
func buildMIME(msg *domain.OutboundMessage) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := newGomailMessage(msg).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("build mime: %w", err)
	}
	return buf.Bytes(), nil
}

func messageID(msg *domain.OutboundMessage) string {
	id := msg.ID
	if id == "" {
		id = uuid.New().String()
	}
	host := "legacycamp.local"
	if at := strings.LastIndex(msg.FromEmail, "@"); at >= 0 && at < len(msg.FromEmail)-1 {
		host = msg.FromEmail[at+1:]
	}
	return fmt.Sprintf("<%s@%s>", id, host)
}

func contentTypeOf(att *domain.Attachment) string {
	if att.ContentType != "" {
		return att.ContentType
	}
	if strings.HasSuffix(strings.ToLower(att.Filename), ".pdf") {
		return "application/pdf"
	}
	return "application/octet-stream"
}
