// Package handlers exposes the REST surface of the ideas service.
//
// Handlers are transport-thin: they validate input, call application
// services through the narrow interfaces below and translate results and
// sentinel errors into HTTP responses. The owner of every request is the id
// resolved by middleware.Identity.
package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-ideas-backend/internal/domain"
	"github.com/tbourn/go-ideas-backend/internal/http/middleware"
	"github.com/tbourn/go-ideas-backend/internal/services"
	"github.com/tbourn/go-ideas-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// BatchRunner runs one batch for an owner. Implementations must honor ctx
// cancellation between slots and return partial results rather than an error.
type BatchRunner interface {
	Run(ctx context.Context, ownerID string, job services.BatchJob, now time.Time) (*services.BatchResult, error)
}

// IdeaService lists, fetches and deletes persisted ideas.
type IdeaService interface {
	ListPage(ctx context.Context, ownerID string, page, pageSize int) ([]domain.Idea, int64, error)
	// Stats feeds the list ETag.
	Stats(ctx context.Context, ownerID string) (int64, *time.Time, error)
	GetBySlug(ctx context.Context, ownerID, slug string) (*domain.Idea, error)
	Delete(ctx context.Context, ownerID, id string) error
}

// CalendarService lists and updates calendar entries.
type CalendarService interface {
	ListRange(ctx context.Context, ownerID, from, to string) ([]domain.CalendarEntry, error)
	Stats(ctx context.Context, ownerID, from, to string) (int64, *time.Time, error)
	SetCompleted(ctx context.Context, ownerID, id string, completed bool) (*domain.CalendarEntry, error)
	Delete(ctx context.Context, ownerID, id string) error
}

// QuotaReporter reports an owner's allowance.
type QuotaReporter interface {
	QuotaStatus(ctx context.Context, ownerID string, now time.Time) (*services.QuotaStatus, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints.
type Handlers struct {
	batches  BatchRunner
	ideas    IdeaService
	calendar CalendarService
	quota    QuotaReporter

	now func() time.Time
}

// New constructs Handlers bound to the given services.
func New(batches BatchRunner, ideas IdeaService, calendar CalendarService, quota QuotaReporter) *Handlers {
	return &Handlers{batches: batches, ideas: ideas, calendar: calendar, quota: quota, now: time.Now}
}

func userID(c *gin.Context) string { return middleware.UserID(c) }

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// clampPagination parses and bounds the page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	return utils.ClampPage(
		utils.AtoiDefault(c.Query("page"), 1),
		utils.AtoiDefault(c.Query("page_size"), utils.DefaultPageSize),
	)
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := utils.TotalPages(total, pageSize)
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}
