package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gideonheart/voicegateway/internal/domain"
	"github.com/gideonheart/voicegateway/internal/logging"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeError maps the two-class error taxonomy (spec §7) onto an HTTP
// status and a safe JSON body; operator detail is logged, never
// returned.
func writeError(w http.ResponseWriter, logger logging.Logger, err error) {
	switch e := err.(type) {
	case *domain.UserError:
		status := userErrorStatus(e.Code())
		respondJSON(w, status, errorBody{Error: e.PublicMessage(), Code: e.Code()})
	case *domain.OperatorError:
		logger.Error(e, "operator error")
		respondJSON(w, http.StatusBadGateway, errorBody{Error: "upstream dependency unavailable", Code: e.Code()})
	default:
		logger.Error(err, "unhandled error")
		respondJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error", Code: domain.CodeInternal})
	}
}

// userErrorStatus maps each closed UserError code to its status. Codes
// that are themselves gate rejections (CORS/rate-limit/not-ready) are
// normally written directly by the middleware that detects them, but
// routing them through here too keeps a single source of truth.
func userErrorStatus(code string) int {
	switch code {
	case domain.CodeCorsRejected:
		return http.StatusForbidden
	case domain.CodeRateLimited:
		return http.StatusTooManyRequests
	case domain.CodeNotReady:
		return http.StatusServiceUnavailable
	case domain.CodeAudioTooLarge, domain.CodeInvalidAudio, domain.CodeInvalidContentType, domain.CodeInvalidConfig:
		return http.StatusBadRequest
	case domain.CodeOpenclawTimeout, domain.CodeOpenclawSessionErr:
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

// codeOf extracts a closed-set error code from any CodedError,
// falling back to INTERNAL_ERROR for anything that escaped the
// domain taxonomy.
func codeOf(err error) string {
	if coded, ok := err.(domain.CodedError); ok {
		return coded.Code()
	}
	return domain.CodeInternal
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
