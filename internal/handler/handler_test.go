package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ashwinyue/mnemosyne/internal/apperr"
	"github.com/ashwinyue/mnemosyne/internal/service/dialogue"
	"github.com/ashwinyue/mnemosyne/internal/service/search"
	"github.com/gin-gonic/gin"
)

func testContext(target string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, rec
}

func TestGetPagination(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantPage int
		wantSize int
	}{
		{"defaults", "/", 1, 20},
		{"explicit", "/?page=2&size=50", 2, 50},
		{"zero page", "/?page=0&size=10", 1, 10},
		{"negative values", "/?page=-3&size=-1", 1, 20},
		{"size over cap", "/?page=1&size=500", 1, 20},
		{"garbage input", "/?page=abc&size=xyz", 1, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := testContext(tt.query)
			page, size := getPagination(c)
			if page != tt.wantPage || size != tt.wantSize {
				t.Errorf("getPagination() = (%d, %d), want (%d, %d)", page, size, tt.wantPage, tt.wantSize)
			}
		})
	}
}

func TestErrorResponseStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation", apperr.NewValidation("mode is required"), http.StatusBadRequest},
		{"session ended", apperr.ErrSessionEnded, http.StatusBadRequest},
		{"not found", apperr.NewNotFound("session", "abc"), http.StatusNotFound},
		{"busy", apperr.ErrSessionBusy, http.StatusConflict},
		{"inference", apperr.NewInference(apperr.InferenceTimeout, errors.New("deadline")), http.StatusBadGateway},
		{"search unavailable", search.ErrUnavailable, http.StatusServiceUnavailable},
		{"unknown", errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := testContext("/")
			errorResponse(c, tt.err)
			if rec.Code != tt.wantStatus {
				t.Errorf("errorResponse(%v) status = %d, want %d", tt.err, rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestSubmissionOutcome(t *testing.T) {
	tests := []struct {
		name   string
		result *dialogue.SubmitResult
		err    error
		want   string
	}{
		{"success", &dialogue.SubmitResult{}, nil, "success"},
		{"ended", &dialogue.SubmitResult{Ended: true}, nil, "ended"},
		{"busy", nil, apperr.ErrSessionBusy, "busy"},
		{"session ended", nil, apperr.ErrSessionEnded, "rejected"},
		{"validation", nil, apperr.NewValidation("message is required"), "rejected"},
		{"not found", nil, apperr.NewNotFound("session", "abc"), "not_found"},
		{"inference timeout", nil, apperr.NewInference(apperr.InferenceTimeout, errors.New("deadline")), "inference_timeout"},
		{"other", nil, errors.New("disk full"), "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := submissionOutcome(tt.result, tt.err); got != tt.want {
				t.Errorf("submissionOutcome() = %q, want %q", got, tt.want)
			}
		})
	}
}
