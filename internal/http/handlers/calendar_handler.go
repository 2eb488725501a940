// Calendar HTTP handlers.
//
//   - GET    /calendar?from=&to=   (entries in a date range, ETag support)
//   - PATCH  /calendar/{id}        (mark completed / not completed)
//   - DELETE /calendar/{id}        (the referenced idea is kept)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-ideas-backend/internal/domain"
	"github.com/tbourn/go-ideas-backend/internal/services"
)

// ListCalendarResponse holds the entries of a range ordered by date.
type ListCalendarResponse struct {
	From    string                 `json:"from,omitempty" example:"2024-03-01"`
	To      string                 `json:"to,omitempty" example:"2024-03-31"`
	Entries []domain.CalendarEntry `json:"entries"`
}

// UpdateCalendarEntryRequest is the PATCH payload.
type UpdateCalendarEntryRequest struct {
	Completed *bool `json:"completed" binding:"required" example:"true"`
}

// ListCalendar godoc
// @ID          listCalendar
// @Summary     List calendar entries
// @Description Returns the owner's entries with from <= date <= to. Either bound may be omitted. Supports weak ETag via If-None-Match.
// @Tags        Calendar
// @Produce     json
//
// @Param       X-User-ID      header  string  false "Owner ID (demo header)"       example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       from           query   string  false "First day (YYYY-MM-DD)"       example(2024-03-01)
// @Param       to             query   string  false "Last day (YYYY-MM-DD)"        example(2024-03-31)
//
// @Success     200  {object} handlers.ListCalendarResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Invalid date range"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /calendar [get]
func (h *Handlers) ListCalendar(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	from, to := c.Query("from"), c.Query("to")

	if count, last, err := h.calendar.Stats(ctx, uid, from, to); err == nil {
		if checkETag(c, "calendar", count, last, uid, from, to) {
			return
		}
	}

	entries, err := h.calendar.ListRange(ctx, uid, from, to)
	switch {
	case errors.Is(err, services.ErrInvalidDateRange):
		fail(c, http.StatusBadRequest, ErrCodeInvalidDateRange, "from and to must be YYYY-MM-DD with from <= to")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list calendar")
		return
	}
	ok(c, http.StatusOK, ListCalendarResponse{From: from, To: to, Entries: entries})
}

// UpdateCalendarEntry godoc
// @ID          updateCalendarEntry
// @Summary     Update a calendar entry
// @Description Sets the completed flag of an entry owned by the current user and returns the entry.
// @Tags        Calendar
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "Owner ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Entry ID (UUID)"          format(uuid)
// @Param       body       body    handlers.UpdateCalendarEntryRequest  true  "Completion flag"
//
// @Success     200  {object} domain.CalendarEntry
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Entry not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /calendar/{id} [patch]
func (h *Handlers) UpdateCalendarEntry(c *gin.Context) {
	var req UpdateCalendarEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Completed == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "completed (bool) is required")
		return
	}

	e, err := h.calendar.SetCompleted(c.Request.Context(), userID(c), c.Param("id"), *req.Completed)
	switch {
	case errors.Is(err, services.ErrEntryNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "calendar entry not found")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, "could not update calendar entry")
		return
	}
	ok(c, http.StatusOK, e)
}

// DeleteCalendarEntry godoc
// @ID          deleteCalendarEntry
// @Summary     Delete a calendar entry
// @Description Removes an entry owned by the current user. The idea it points at is not deleted.
// @Tags        Calendar
// @Produce     json
//
// @Param       X-User-ID  header  string  false "Owner ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Entry ID (UUID)"          format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     404  {object} handlers.ErrorResponse "Entry not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /calendar/{id} [delete]
func (h *Handlers) DeleteCalendarEntry(c *gin.Context) {
	err := h.calendar.Delete(c.Request.Context(), userID(c), c.Param("id"))
	switch {
	case errors.Is(err, services.ErrEntryNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "calendar entry not found")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeDeleteFailed, "could not delete calendar entry")
		return
	}
	noContent(c)
}
