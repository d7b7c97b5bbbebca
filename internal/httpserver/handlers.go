package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/mailroom/internal/upload"
	"github.com/dmitrymomot/mailroom/pkg/mailer"
	"github.com/dmitrymomot/mailroom/pkg/params"
)

func (s *Server) listTemplates(w http.ResponseWriter, _ *http.Request) error {
	list := s.templates.Templates()
	if list == nil {
		list = []mailer.Template{}
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}

func (s *Server) sendTemplate(w http.ResponseWriter, r *http.Request) error {
	name := chi.URLParam(r, "name")

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	req, cleanup, err := s.decodeRequest(r)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := s.mailer.Send(r.Context(), name, req); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// decodeRequest reads a JSON or multipart body. The returned cleanup removes
// uploaded files and must be called once the request has been sent.
func (s *Server) decodeRequest(r *http.Request) (mailer.Request, func(), error) {
	noop := func() {}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return mailer.Request{}, noop, ErrBadRequest("missing or invalid Content-Type")
	}

	switch mediaType {
	case "application/json":
		var req mailer.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return mailer.Request{}, noop, bodyError("invalid JSON body", err)
		}
		return req, noop, nil

	case "multipart/form-data":
		form, err := upload.Parse(r, s.cfg.UploadDir)
		if err != nil {
			if errors.Is(err, upload.ErrStorage) {
				return mailer.Request{}, noop, ErrInternal(err.Error(), WithError(err))
			}
			return mailer.Request{}, noop, bodyError("invalid multipart body", err)
		}
		cleanup := func() {
			if err := form.Cleanup(); err != nil {
				s.logger.WarnContext(r.Context(), "failed to remove uploads", slog.String("error", err.Error()))
			}
		}

		req := mailer.Request{
			From:        form.Value("from"),
			To:          form.Value("to"),
			Attachments: form.Attachments,
		}
		if raw := form.Value("params"); raw != "" {
			p, err := params.Parse([]byte(raw))
			if err != nil {
				cleanup()
				return mailer.Request{}, noop, ErrBadRequest(fmt.Sprintf("invalid params: %v", err), WithError(err))
			}
			req.Params = p
		}
		return req, cleanup, nil
	}

	return mailer.Request{}, noop, ErrBadRequest(fmt.Sprintf("unsupported content type %q", mediaType))
}

func bodyError(prefix string, err error) *HTTPError {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return ErrBadRequest(fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), WithError(err))
	}
	return ErrBadRequest(fmt.Sprintf("%s: %v", prefix, err), WithError(err))
}
