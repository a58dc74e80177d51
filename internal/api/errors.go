package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/alecgard/clawdeck/internal/agent"
	"github.com/alecgard/clawdeck/internal/skill"
)

// maxBodySize is the maximum allowed request body size (1 MB).
const maxBodySize = 1 << 20

// errorEnvelope is the standard error response shape.
type errorEnvelope struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError writes a JSON error response with the given status code.
func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, errorEnvelope{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// writeJSON writes a JSON response with the given status code and data.
func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// readJSON decodes the request body into v, enforcing a size limit.
func readJSON(r *http.Request, v any) error {
	lr := io.LimitReader(r.Body, maxBodySize)
	return json.NewDecoder(lr).Decode(v)
}

func writeNotFound(w http.ResponseWriter, what string) {
	writeError(w, http.StatusNotFound, "not_found", what+" not found")
}

// validationErrors are the sentinels that map to 422.
var validationErrors = []error{
	agent.ErrNameRequired,
	agent.ErrInvalidStatus,
	agent.ErrInvalidType,
	agent.ErrInvalidProvider,
	agent.ErrInvalidKeyStatus,
	agent.ErrInvalidPeriod,
	agent.ErrInvalidActivity,
	agent.ErrTemperatureRange,
	agent.ErrMaxTokensRange,
	agent.ErrNegativeAmount,
	agent.ErrThresholdRange,
	agent.ErrKeyRequired,
	agent.ErrMessageRequired,
	agent.ErrLimitTargetMissing,
	skill.ErrUnknownListing,
	skill.ErrEnvKeyInvalid,
	skill.ErrSkillIDRequired,
	skill.ErrInvalidExecutionState,
	skill.ErrConfigRequired,
	errTokensNegative,
	errAPIKeyIDRequired,
	errLimitParam,
	errTimeParam,
}

var (
	errTokensNegative   = errors.New("tokens must not be negative")
	errAPIKeyIDRequired = errors.New("api_key_id is required")
	errLimitParam       = errors.New("limit must be a positive integer")
)

// isValidationError reports whether err came from input validation.
func isValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// writeInputError answers 422 for validation failures and 400 for anything
// else that could not be read from the request.
func writeInputError(w http.ResponseWriter, err error) {
	if isValidationError(err) {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}
	writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
}

// parseLimit reads an optional positive ?limit= parameter, falling back to def.
func parseLimit(r *http.Request, def int) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, errLimitParam
	}
	return n, nil
}
