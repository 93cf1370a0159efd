package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/MrEthical07/storeauth"
	"github.com/MrEthical07/storeauth/catalog"
)

// Catalog error codes. Engine errors use the storeauth codes.
const (
	CodeNotFound      = "not_found"
	CodeDuplicateName = "duplicate_store"
)

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

var statusByCode = map[string]int{
	storeauth.CodeAuthorizationRequired: http.StatusUnauthorized,
	storeauth.CodeInvalidToken:          http.StatusUnauthorized,
	storeauth.CodeTokenExpired:          http.StatusUnauthorized,
	storeauth.CodeTokenRevoked:          http.StatusUnauthorized,
	storeauth.CodeInvalidCredentials:    http.StatusUnauthorized,
	storeauth.CodeDuplicateUser:         http.StatusConflict,
	storeauth.CodeValidationFailed:      http.StatusBadRequest,
	storeauth.CodeUserNotFound:          http.StatusNotFound,
	storeauth.CodeLoginRateLimited:      http.StatusTooManyRequests,
	storeauth.CodeStorageUnavailable:    http.StatusServiceUnavailable,
	storeauth.CodeRevocationUnavailable: http.StatusServiceUnavailable,
	storeauth.CodeInternalError:         http.StatusInternalServerError,
	CodeNotFound:                        http.StatusNotFound,
	CodeDuplicateName:                   http.StatusConflict,
}

func classify(err error) errorBody {
	var (
		sve *storeauth.ValidationError
		cve *catalog.ValidationError
	)
	switch {
	case errors.As(err, &sve):
		return errorBody{Code: storeauth.CodeValidationFailed, Fields: sve.Fields}
	case errors.As(err, &cve):
		return errorBody{Code: storeauth.CodeValidationFailed, Fields: cve.Fields}
	case errors.Is(err, catalog.ErrNotFound):
		return errorBody{Code: CodeNotFound}
	case errors.Is(err, catalog.ErrDuplicateName):
		return errorBody{Code: CodeDuplicateName}
	case errors.Is(err, catalog.ErrUnavailable):
		return errorBody{Code: storeauth.CodeStorageUnavailable}
	default:
		return errorBody{Code: storeauth.Code(err)}
	}
}

// writeError renders err as the JSON error body. It is also the Guard's
// rejection handler.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	body := classify(err)
	body.Message = strings.ReplaceAll(body.Code, "_", " ")

	status, ok := statusByCode[body.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("code", body.Code),
			zap.Error(err),
		)
	}
	if status == http.StatusUnauthorized && body.Code != storeauth.CodeInvalidCredentials {
		w.Header().Set("WWW-Authenticate", `Bearer error="`+body.Code+`"`)
	}

	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type messageBody struct {
	Message string `json:"message"`
}
