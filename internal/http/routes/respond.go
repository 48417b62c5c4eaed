package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/hlog"
)

// isoLayout matches JavaScript's Date.toISOString
const isoLayout = "2006-01-02T15:04:05.000Z"

func isoTime(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("error writing response")
	}
}

func writeFailure(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, r, status, map[string]any{
		"success": false,
		"error":   message,
	})
}

// admin adapts an error-returning handler. Errors and panics become a 500
// carrying the stable failMessage; details only reach the log.
func (s *Server) admin(failMessage string, h func(http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := func() (err error) {
			defer func() {
				if p := recover(); p != nil {
					err = fmt.Errorf("panic: %v", p)
				}
			}()
			return h(w, r)
		}()
		if err == nil {
			return
		}

		hlog.FromRequest(r).Error().Err(err).Str("path", r.URL.Path).Msg(failMessage)
		writeFailure(w, r, http.StatusInternalServerError, failMessage)
	}
}

var errBadBody = errors.New("invalid request body")

// decodeBody reads a JSON body of at most limit bytes
func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errBadBody, err)
	}
	return nil
}
