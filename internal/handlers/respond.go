package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"wayfare/api/internal/apperr"
)

const timeFormat = time.RFC3339

type errorBody struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Fields  []fieldError `json:"fields,omitempty"`
}

type fieldError struct {
	Field   string `json:"field"`
	Problem string `json:"problem"`
}

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// sendError maps the error taxonomy onto HTTP statuses. Internal causes are
// logged by middleware; the body never leaks them.
func sendError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := statusForKind(kind)

	body := errorBody{Code: string(kind), Message: "internal error"}
	var appErr *apperr.Error
	if errors.As(err, &appErr) && kind != apperr.KindInternal {
		body.Message = appErr.Message
		for _, f := range appErr.Fields {
			body.Fields = append(body.Fields, fieldError{Field: f.Field, Problem: f.Problem})
		}
	}

	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}

	c.JSON(status, gin.H{"error": body})
}

func sendBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{
		Code:    string(apperr.KindBadRequest),
		Message: err.Error(),
	}})
}
