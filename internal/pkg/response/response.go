// internal/pkg/response/response.go
package response

import (
	"errors"
	"net/http"

	xerrors "paysandbox-service/internal/pkg/errors"

	"github.com/gin-gonic/gin"
)

// Response defines the standard API response format.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// Success sends a successful response with a message and optional data.
func Success(c *gin.Context, status int, message string, data interface{}) {
	if status == 0 {
		status = http.StatusOK
	}

	c.JSON(status, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error sends a standardized error response.
func Error(c *gin.Context, code int, message string, err error, data ...interface{}) {
	// Abort before writing so later handlers in the chain do not run
	c.Abort()

	resp := Response{
		Success: false,
		Message: message,
	}

	if err != nil {
		resp.Error = err.Error()
		if kind := xerrors.KindOf(err); kind != 0 {
			resp.Code = kind.String()
		}
	}

	if len(data) > 0 {
		resp.Data = data[0]
	}

	c.JSON(code, resp)
}

// StatusFor maps engine errors onto HTTP status codes.
func StatusFor(err error) int {
	switch xerrors.KindOf(err) {
	case xerrors.KindValidation:
		return http.StatusBadRequest
	case xerrors.KindNotFound:
		return http.StatusNotFound
	case xerrors.KindInvalidState:
		return http.StatusConflict
	case xerrors.KindFraudBlocked:
		return http.StatusForbidden
	case xerrors.KindReviewRequired:
		return http.StatusAccepted
	}

	switch {
	case errors.Is(err, xerrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, xerrors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, xerrors.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, xerrors.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, xerrors.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// FromError writes err using the status code from StatusFor. A review hold is
// not a failure: it is reported as a pending 202 with the review reference.
func FromError(c *gin.Context, message string, err error) {
	status := StatusFor(err)

	var e *xerrors.Error
	if status == http.StatusAccepted && errors.As(err, &e) {
		c.Abort()
		c.JSON(status, Response{
			Success: true,
			Message: "payment pending review",
			Data:    gin.H{"status": "pending_review", "review_id": e.Ref},
			Code:    e.Kind.String(),
		})
		return
	}

	if status == http.StatusInternalServerError {
		Error(c, status, message, errors.New("internal server error"))
		return
	}
	Error(c, status, message, err)
}

// ValidationError sends a 400 Bad Request response for invalid input.
func ValidationError(c *gin.Context, message string, err error) {
	Error(c, http.StatusBadRequest, message, err)
}

// Unauthorized sends a 401 Unauthorized response.
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message, nil)
}
