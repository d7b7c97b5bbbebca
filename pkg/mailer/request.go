package mailer

import (
	"fmt"
	"net/mail"

	"github.com/dmitrymomot/mailroom/pkg/params"
)

// AttachmentRef points at a file already persisted by the upload layer.
type AttachmentRef struct {
	Filename    string // optional display name
	Path        string
	ContentType string // optional; sniffed from content when empty
}

// Request is everything a caller supplies to send a template.
// Attachments never come from JSON; the multipart handler fills them.
type Request struct {
	From        string          `json:"from"`
	To          string          `json:"to"`
	Params      params.Value    `json:"params"`
	Attachments []AttachmentRef `json:"-"`
}

// Validate checks the addresses. It runs before template lookup.
func (r Request) Validate() error {
	if r.From == "" {
		return fmt.Errorf("%w: missing field `from`", ErrInvalidRequest)
	}
	if r.To == "" {
		return fmt.Errorf("%w: missing field `to`", ErrInvalidRequest)
	}
	if _, err := mail.ParseAddress(r.From); err != nil {
		return fmt.Errorf("%w: invalid `from` address: %v", ErrInvalidRequest, err)
	}
	if _, err := mail.ParseAddressList(r.To); err != nil {
		return fmt.Errorf("%w: invalid `to` address: %v", ErrInvalidRequest, err)
	}
	for i, a := range r.Attachments {
		if a.Path == "" {
			return fmt.Errorf("%w: attachment %d has no path", ErrInvalidRequest, i)
		}
	}
	return nil
}
