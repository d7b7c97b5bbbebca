package mailer

import (
	"bytes"
	"fmt"
	"net/mail"

	"github.com/jordan-wright/email"
)

// Content is the output of rendering a template.
type Content struct {
	Subject string
	Preview string
	Text    string
	HTML    string
}

// Message is a fully assembled email ready for a transport.
type Message struct {
	From        string
	To          string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

// Attachment represents an email attachment.
type Attachment struct {
	Filename    string // Display name for the attachment
	ContentType string // MIME type (e.g., "application/pdf")
	Content     []byte // Raw file content
}

// Envelope returns the bare sender and recipient addresses for SMTP MAIL FROM / RCPT TO.
func (m *Message) Envelope() (from string, to []string, err error) {
	sender, err := mail.ParseAddress(m.From)
	if err != nil {
		return "", nil, fmt.Errorf("parse from address: %w", err)
	}
	list, err := mail.ParseAddressList(m.To)
	if err != nil {
		return "", nil, fmt.Errorf("parse to address: %w", err)
	}
	to = make([]string, len(list))
	for i, a := range list {
		to[i] = a.Address
	}
	return sender.Address, to, nil
}

// Recipients splits To into single addresses for APIs that take a list.
// Display names are kept.
func (m *Message) Recipients() ([]string, error) {
	list, err := mail.ParseAddressList(m.To)
	if err != nil {
		return nil, fmt.Errorf("parse to address: %w", err)
	}
	out := make([]string, len(list))
	for i, a := range list {
		if a.Name == "" {
			out[i] = a.Address
			continue
		}
		out[i] = a.String()
	}
	return out, nil
}

// Bytes encodes the message as RFC 5322 multipart MIME.
func (m *Message) Bytes() ([]byte, error) {
	e := email.NewEmail()
	e.From = m.From
	e.To = []string{m.To}
	e.Subject = m.Subject
	e.Text = []byte(m.Text)
	e.HTML = []byte(m.HTML)
	for _, a := range m.Attachments {
		if _, err := e.Attach(bytes.NewReader(a.Content), a.Filename, a.ContentType); err != nil {
			return nil, fmt.Errorf("attach %q: %w", a.Filename, err)
		}
	}
	return e.Bytes()
}
