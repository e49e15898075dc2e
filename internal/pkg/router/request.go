package router

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/shandysiswandi/minibank/internal/pkg/goerror"
)

// maxBodyBytes caps every JSON body; identity payloads are a few hundred bytes.
const maxBodyBytes = 64 << 10

// Request is what handlers receive. It embeds the underlying *http.Request.
type Request struct {
	*http.Request
}

// GetParam returns the named path parameter, or "" when the route has none.
func (r *Request) GetParam(key string) string {
	return httprouter.ParamsFromContext(r.Context()).ByName(key)
}

// DecodeBody reads exactly one JSON object into dst. Unknown fields, trailing
// data and oversized bodies are rejected as an invalid format.
func (r *Request) DecodeBody(dst any) error {
	if r == nil || r.Request == nil || r.Body == nil || r.Body == http.NoBody {
		return goerror.NewInvalidFormat()
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes+1))
	dec.DisallowUnknownFields()

	if dec.Decode(dst) != nil {
		return goerror.NewInvalidFormat()
	}
	if dec.InputOffset() > maxBodyBytes {
		return goerror.NewInvalidFormat()
	}
	if err := dec.Decode(&json.RawMessage{}); !errors.Is(err, io.EOF) {
		return goerror.NewInvalidFormat()
	}

	return nil
}
