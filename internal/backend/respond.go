package backend

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	apperrors "project-tracker/internal/errors"
	"project-tracker/internal/repository/rest"
	"project-tracker/internal/validation"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	code := apperrors.GetErrorCode(err)
	if appErr, ok := apperrors.AsAppError(err); ok {
		status = appErr.Type.HTTPStatus()
	}
	if apperrors.ShouldLogError(err) {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, rest.ErrorBody{Error: apperrors.GetUserMessage(err), Code: code})
}

func pathID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewInvalidInputError("id", raw, "must be a positive integer")
	}
	return id, nil
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.NewValidationError("invalid request body", err)
	}
	return nil
}

// validationError converts validation failures into app errors.
func validationError(err error) error {
	var ve *validation.ValidationError
	if errors.As(err, &ve) {
		return ve.AsAppError()
	}
	return err
}
