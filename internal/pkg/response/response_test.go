package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	xerrors "paysandbox-service/internal/pkg/errors"

	"github.com/gin-gonic/gin"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", xerrors.Validation("bad"), http.StatusBadRequest},
		{"not found", xerrors.NotFound("plan", "pl_1"), http.StatusNotFound},
		{"invalid state", xerrors.InvalidState("nope", "expired"), http.StatusConflict},
		{"blocked", xerrors.FraudBlocked(95), http.StatusForbidden},
		{"review", xerrors.ReviewRequired("frv_1", 65), http.StatusAccepted},
		{"repo not found", xerrors.Wrap(xerrors.ErrNotFound, "find"), http.StatusNotFound},
		{"plain", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusFor(tt.err); got != tt.want {
				t.Fatalf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFromErrorReviewIsPending(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	FromError(c, "failed to process session", xerrors.ReviewRequired("frv_42", 70))

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Status   string `json:"status"`
			ReviewID string `json:"review_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.ReviewID != "frv_42" || body.Data.Status != "pending_review" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestFromErrorHidesInternalDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	FromError(c, "failed", errors.New("pq: password authentication failed"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var body Response
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body.Error != "internal server error" {
		t.Fatalf("internal error leaked: %q", body.Error)
	}
}
