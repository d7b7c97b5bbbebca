package mailer

import (
	"fmt"
	"mime"
	"net/http"
	"os"

	"github.com/google/uuid"
)

// Assemble combines rendered content with the request addresses and reads
// every referenced attachment, keeping their order.
// An unreadable file fails with ErrAttachment.
func Assemble(c Content, req Request) (*Message, error) {
	msg := &Message{
		From:    req.From,
		To:      req.To,
		Subject: c.Subject,
		Text:    c.Text,
		HTML:    c.HTML,
	}
	if len(req.Attachments) == 0 {
		return msg, nil
	}

	msg.Attachments = make([]Attachment, 0, len(req.Attachments))
	for _, ref := range req.Attachments {
		a, err := resolveAttachment(ref)
		if err != nil {
			return nil, err
		}
		msg.Attachments = append(msg.Attachments, a)
	}
	return msg, nil
}

func resolveAttachment(ref AttachmentRef) (Attachment, error) {
	content, err := os.ReadFile(ref.Path)
	if err != nil {
		return Attachment{}, fmt.Errorf("%w: %v", ErrAttachment, err)
	}

	contentType := ref.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(content)
	}

	filename := ref.Filename
	if filename == "" {
		filename = synthesizeFilename(contentType)
	}

	return Attachment{
		Filename:    filename,
		ContentType: contentType,
		Content:     content,
	}, nil
}

// synthesizeFilename returns a random name with an extension matching contentType when one is known.
func synthesizeFilename(contentType string) string {
	name := uuid.NewString()
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return name
	}
	if exts, _ := mime.ExtensionsByType(mediaType); len(exts) > 0 {
		return name + exts[0]
	}
	return name
}
