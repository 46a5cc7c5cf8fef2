package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/fjod/go_cart/storefront/pkg/logger"
	"go.uber.org/zap"
)

const maxRequestBodySize = 1 << 20 // 1MB

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

var kindStatus = map[service.Kind]int{
	service.KindValidation:        http.StatusBadRequest,
	service.KindNotFound:          http.StatusBadRequest,
	service.KindDuplicateItem:     http.StatusBadRequest,
	service.KindInsufficientStock: http.StatusBadRequest,
	service.KindEmptyCart:         http.StatusBadRequest,
	service.KindUnauthorized:      http.StatusUnauthorized,
	service.KindConflict:          http.StatusConflict,
	service.KindInternal:          http.StatusInternalServerError,
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// nothing useful can be sent once the header is out
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError maps a service failure to its HTTP status. Internal
// failures are logged and answered with a fixed message.
func handleServiceError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	kind := service.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	var svcErr *service.Error
	if status == http.StatusInternalServerError || !errors.As(err, &svcErr) {
		logger.WithContext(r.Context(), log).Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, string(service.KindInternal), "internal server error")
		return
	}

	respondError(w, status, string(kind), svcErr.Message)
}

func respondValidation(w http.ResponseWriter, format string, args ...any) {
	respondError(w, http.StatusBadRequest, string(service.KindValidation), fmt.Sprintf(format, args...))
}

// decodeJSON reads a JSON body of bounded size into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondValidation(w, "invalid JSON body")
		return false
	}
	return true
}
