package mailer

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		kind Kind
	}{
		{"invalid request", fmt.Errorf("%w: missing field", ErrInvalidRequest), KindBadRequest},
		{"interpolation", fmt.Errorf("%w: bad tag", ErrInterpolation), KindBadRequest},
		{"not found", fmt.Errorf("%w: x", ErrTemplateNotFound), KindNotFound},
		{"compilation", fmt.Errorf("%w: line 1", ErrCompilation), KindInternal},
		{"attachment", fmt.Errorf("%w: gone", ErrAttachment), KindInternal},
		{"acquire", fmt.Errorf("%w: timeout", ErrAcquireConnection), KindInternal},
		{"send", errors.Join(ErrSendFailed, errors.New("454")), KindInternal},
		{"unknown", errors.New("boom"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := Classify(tt.err)
			require.NotNil(t, e)
			require.Equal(t, tt.kind, e.Kind)
			require.Equal(t, tt.err.Error(), e.Message)
			require.ErrorIs(t, e, tt.err)
		})
	}
}

func TestClassify_Nil(t *testing.T) {
	t.Parallel()

	require.Nil(t, Classify(nil))
}

func TestClassify_AlreadyClassified(t *testing.T) {
	t.Parallel()

	orig := &Error{Kind: KindNotFound, Message: "gone"}
	require.Same(t, orig, Classify(fmt.Errorf("wrapped: %w", orig)))
}

func TestKind(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Bad Request", KindBadRequest.String())
	require.Equal(t, "Not Found", KindNotFound.String())
	require.Equal(t, "Internal Server Error", KindInternal.String())

	require.Equal(t, http.StatusBadRequest, KindBadRequest.HTTPStatus())
	require.Equal(t, http.StatusNotFound, KindNotFound.HTTPStatus())
	require.Equal(t, http.StatusInternalServerError, KindInternal.HTTPStatus())
}

func TestBadRequest(t *testing.T) {
	t.Parallel()

	e := BadRequest(errors.New("unexpected end of JSON input"))
	require.Equal(t, KindBadRequest, e.Kind)
	require.Equal(t, "unexpected end of JSON input", e.Message)
	require.ErrorIs(t, e, ErrInvalidRequest)
	require.Equal(t, "Bad Request: unexpected end of JSON input", e.Error())
}
