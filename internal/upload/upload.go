// Package upload streams multipart email requests to disk.
package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/dmitrymomot/mailroom/pkg/mailer"
)

// AttachmentField is the form name of file parts.
const AttachmentField = "attachments"

// maxFieldBytes bounds a single non-file field such as params.
const maxFieldBytes = 1 << 20

var (
	ErrMalformed     = errors.New("upload: malformed multipart body")
	ErrFieldTooLarge = errors.New("upload: field too large")
	ErrStorage       = errors.New("upload: failed to store attachment")
)

// Form is a parsed multipart request. Attachments live in a private
// directory until Cleanup is called.
type Form struct {
	Fields      map[string]string
	Attachments []mailer.AttachmentRef
	dir         string
}

// Value returns a text field or "".
func (f *Form) Value(name string) string {
	return f.Fields[name]
}

// Cleanup removes every stored attachment.
func (f *Form) Cleanup() error {
	if f == nil || f.dir == "" {
		return nil
	}
	return os.RemoveAll(f.dir)
}

// Parse reads r's multipart body part by part. Parts named AttachmentField
// are written to a fresh directory under root (os.TempDir when empty) in
// arrival order; other parts become text fields. Files are stored under
// random names, the client filename is kept only as metadata. On error
// nothing is left on disk.
func Parse(r *http.Request, root string) (*Form, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if root == "" {
		root = os.TempDir()
	}
	dir, err := os.MkdirTemp(root, "mailroom-")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	form := &Form{Fields: make(map[string]string), dir: dir}
	if err := form.read(mr); err != nil {
		_ = form.Cleanup()
		return nil, err
	}
	return form, nil
}

func (f *Form) read(mr *multipart.Reader) error {
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return classifyReadErr(err)
		}

		if part.FormName() == AttachmentField {
			ref, err := f.store(part)
			_ = part.Close()
			if err != nil {
				return err
			}
			f.Attachments = append(f.Attachments, ref)
			continue
		}

		value, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
		_ = part.Close()
		if err != nil {
			return classifyReadErr(err)
		}
		if len(value) > maxFieldBytes {
			return fmt.Errorf("%w: %s", ErrFieldTooLarge, part.FormName())
		}
		f.Fields[part.FormName()] = string(value)
	}
}

func (f *Form) store(part *multipart.Part) (mailer.AttachmentRef, error) {
	path := filepath.Join(f.dir, uuid.NewString())
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return mailer.AttachmentRef{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	copyErr := copyPart(file, part)
	closeErr := file.Close()
	if copyErr != nil {
		return mailer.AttachmentRef{}, copyErr
	}
	if closeErr != nil {
		return mailer.AttachmentRef{}, fmt.Errorf("%w: %v", ErrStorage, closeErr)
	}

	return mailer.AttachmentRef{
		Filename:    part.FileName(),
		Path:        path,
		ContentType: part.Header.Get("Content-Type"),
	}, nil
}

// copyPart streams src into dst. Failures reading the request body are
// classified with classifyReadErr; failures writing dst are ErrStorage.
func copyPart(dst io.Writer, src io.Reader) error {
	r := &readErrReader{r: src}
	if _, err := io.Copy(dst, r); err != nil {
		if r.err != nil {
			return classifyReadErr(r.err)
		}
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

// readErrReader remembers the last non-EOF read error.
type readErrReader struct {
	r   io.Reader
	err error
}

func (r *readErrReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		r.err = err
	}
	return n, err
}

// classifyReadErr keeps body-size errors recognizable for the caller.
func classifyReadErr(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrMalformed, err)
}
