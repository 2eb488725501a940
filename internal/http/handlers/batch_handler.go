// Batch HTTP handler.
//
//   - POST /batches   (generate and schedule ideas over a timeframe)
//
// A batch runs synchronously and can take minutes; clients should send an
// Idempotency-Key so a retried request replays the stored result instead of
// generating a second batch.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-ideas-backend/internal/schedule"
	"github.com/tbourn/go-ideas-backend/internal/services"
)

// CreateBatchRequest is the JSON payload for a batch.
type CreateBatchRequest struct {
	// Timeframe is week, month or year.
	Timeframe string `json:"timeframe" example:"week"`
	// StartDate is the first calendar day (YYYY-MM-DD); defaults to today (UTC).
	StartDate string `json:"start_date" example:"2024-03-04"`
	// Pillars are assigned to slots round-robin; at least one is required.
	Pillars      []string `json:"pillars" example:"tips,stories"`
	Category     string   `json:"category" example:"education"`
	Subcategory  string   `json:"subcategory" example:"study-skills"`
	LengthBucket string   `json:"length_bucket" example:"30-60s"`
	Focus        string   `json:"focus,omitempty" example:"exam season"`
	Style        string   `json:"style,omitempty" example:"listicle"`
	Tone         string   `json:"tone,omitempty" example:"upbeat"`
}

// BatchResponse is the best-effort batch outcome. Success is true when at
// least one idea was persisted.
type BatchResponse struct {
	Success bool `json:"success"`
	*services.BatchResult
}

// CreateBatch godoc
// @ID          createBatch
// @Summary     Generate and schedule a batch of ideas
// @Description Expands the timeframe into dated slots, applies the owner's quota and fills each slot with one generated idea and one calendar entry. Slots that fail are reported and skipped; the ideas that succeeded are always returned.
// @Tags        Batches
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "Owner ID (demo header)"        example(user123)
// @Param       Idempotency-Key  header  string  false "Replays the stored result when reused"  example(batch-2024-03-04)
// @Param       body             body    handlers.CreateBatchRequest  true  "Batch request"
//
// @Success     201  {object}  handlers.BatchResponse  "At least one idea created"
// @Success     200  {object}  handlers.BatchResponse  "No idea could be created"
// @Header      201  {string}  Idempotency-Replayed    "true when served from the idempotency store"
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid timeframe, pillars, start date or over-long field"
// @Failure     429  {object}  handlers.ErrorResponse  "Daily limit reached or rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /batches [post]
func (h *Handlers) CreateBatch(c *gin.Context) {
	var req CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	now := h.now()
	start := schedule.Day(now.UTC())
	if s := strings.TrimSpace(req.StartDate); s != "" {
		d, err := schedule.ParseDate(s)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeInvalidStartDate, "start_date must be YYYY-MM-DD")
			return
		}
		start = d
	}

	job := services.BatchJob{
		Timeframe:    strings.ToLower(strings.TrimSpace(req.Timeframe)),
		StartDate:    start,
		Pillars:      req.Pillars,
		Category:     strings.TrimSpace(req.Category),
		Subcategory:  strings.TrimSpace(req.Subcategory),
		LengthBucket: strings.TrimSpace(req.LengthBucket),
		Focus:        strings.TrimSpace(req.Focus),
		Style:        strings.TrimSpace(req.Style),
		Tone:         strings.TrimSpace(req.Tone),
	}

	res, err := h.batches.Run(c.Request.Context(), userID(c), job, now)
	switch {
	case errors.Is(err, services.ErrInvalidTimeframe):
		fail(c, http.StatusBadRequest, ErrCodeInvalidTimeframe, "timeframe must be week, month or year")
		return
	case errors.Is(err, services.ErrEmptyPillarSet):
		fail(c, http.StatusBadRequest, ErrCodeEmptyPillarSet, "at least one pillar is required")
		return
	case errors.Is(err, services.ErrInvalidStartDate):
		fail(c, http.StatusBadRequest, ErrCodeInvalidStartDate, "start_date must be YYYY-MM-DD")
		return
	case errors.Is(err, services.ErrFieldTooLong):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	case errors.Is(err, services.ErrInvalidOwner):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "owner is required")
		return
	case errors.Is(err, services.ErrDailyLimitReached):
		fail(c, http.StatusTooManyRequests, ErrCodeDailyLimitReached, "daily limit reached")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeBatchFailed, "batch could not be started")
		return
	}

	status := http.StatusOK
	if res.SucceededCount > 0 {
		status = http.StatusCreated
	}
	ok(c, status, BatchResponse{Success: res.SucceededCount > 0, BatchResult: res})
}
