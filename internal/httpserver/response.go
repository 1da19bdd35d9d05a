package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"studytube/backend/internal/apperror"
)

const maxBodyBytes = 1 << 20

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError renders err through the normalizer.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	resp := s.errors.Normalize(err)
	writeJSON(w, resp.StatusCode, resp)
}

// decodeJSON reads a JSON object from the request body into dst. An empty
// body leaves dst untouched so missing fields surface as validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.New(http.StatusRequestEntityTooLarge, "Request body too large")
		}
		return apperror.Validation("Invalid JSON payload")
	}
}
