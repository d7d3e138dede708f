package orgapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"orgmgr/internal/lifecycle"
	"orgmgr/pkg/middleware"
	"orgmgr/pkg/problems"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeBody reads a JSON body into v and writes a 400 problem on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		problems.Write(w, problems.New(http.StatusBadRequest, lifecycle.CodeInvalid, "bad json"))
		return false
	}
	return true
}

func missingParam(name string) error {
	return fmt.Errorf("%w: query parameter %s is required", lifecycle.ErrInvalidRequest, name)
}

// writeError renders a lifecycle error as a problem document. Internal errors are logged
// and their detail withheld.
func (a *App) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := lifecycle.HTTPStatus(err)
	code := lifecycle.Code(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		a.log.Errorw("request failed", "path", r.URL.Path, "err", err,
			"request_id", middleware.RequestIDFrom(r.Context()))
		detail = ""
	}
	if errors.Is(err, lifecycle.ErrUnauthorized) {
		detail = "invalid credentials"
	}
	problems.Write(w, problems.New(status, code, detail))
}
