package mailer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, content, 0o600))
	return p
}

func TestAssemble_NoAttachments(t *testing.T) {
	t.Parallel()

	msg, err := Assemble(
		Content{Subject: "Hi", Text: "text", HTML: "<p>html</p>"},
		Request{From: "a@example.com", To: "b@example.com"},
	)
	require.NoError(t, err)
	require.Equal(t, &Message{
		From:    "a@example.com",
		To:      "b@example.com",
		Subject: "Hi",
		Text:    "text",
		HTML:    "<p>html</p>",
	}, msg)
}

func TestAssemble_PreservesOrder(t *testing.T) {
	t.Parallel()

	refs := []AttachmentRef{
		{Path: writeFile(t, "1", []byte("one")), Filename: "z.txt", ContentType: "text/plain"},
		{Path: writeFile(t, "2", []byte("two")), Filename: "a.txt", ContentType: "text/plain"},
		{Path: writeFile(t, "3", []byte("three")), Filename: "m.txt", ContentType: "text/plain"},
	}

	msg, err := Assemble(Content{}, Request{Attachments: refs})
	require.NoError(t, err)
	require.Len(t, msg.Attachments, 3)
	for i, want := range []string{"z.txt", "a.txt", "m.txt"} {
		require.Equal(t, want, msg.Attachments[i].Filename)
	}
	require.Equal(t, []byte("three"), msg.Attachments[2].Content)
}

func TestAssemble_SynthesizesFilename(t *testing.T) {
	t.Parallel()

	p := writeFile(t, "upload", []byte("%PDF-1.4"))
	refs := []AttachmentRef{
		{Path: p, ContentType: "application/pdf"},
		{Path: p, ContentType: "application/pdf"},
		{Path: p, ContentType: "application/x-unknown-thing"},
	}

	msg, err := Assemble(Content{}, Request{Attachments: refs})
	require.NoError(t, err)

	first, second, third := msg.Attachments[0].Filename, msg.Attachments[1].Filename, msg.Attachments[2].Filename
	require.True(t, strings.HasSuffix(first, ".pdf"), first)
	require.Len(t, strings.TrimSuffix(first, ".pdf"), 36)
	require.NotEqual(t, first, second)
	require.Len(t, third, 36)
}

func TestAssemble_DetectsContentType(t *testing.T) {
	t.Parallel()

	p := writeFile(t, "doc", []byte("%PDF-1.7 body"))

	msg, err := Assemble(Content{}, Request{Attachments: []AttachmentRef{{Path: p, Filename: "doc.pdf"}}})
	require.NoError(t, err)
	require.Equal(t, "application/pdf", msg.Attachments[0].ContentType)
}

func TestAssemble_MissingFile(t *testing.T) {
	t.Parallel()

	refs := []AttachmentRef{
		{Path: writeFile(t, "ok", []byte("ok")), Filename: "ok.txt"},
		{Path: filepath.Join(t.TempDir(), "missing"), Filename: "missing.txt"},
	}

	msg, err := Assemble(Content{}, Request{Attachments: refs})
	require.ErrorIs(t, err, ErrAttachment)
	require.Nil(t, msg)
	require.Equal(t, KindInternal, Classify(err).Kind)
}
