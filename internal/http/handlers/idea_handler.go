// Idea HTTP handlers.
//
//   - GET    /ideas          (list, paginated, ETag support)
//   - GET    /ideas/{slug}   (fetch by slug; owner or public)
//   - GET    /ideas/{slug}/export?format=md|html
//   - DELETE /ideas/{id}     (soft delete; calendar entries are kept)
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-ideas-backend/internal/domain"
	"github.com/tbourn/go-ideas-backend/internal/export"
	"github.com/tbourn/go-ideas-backend/internal/services"
)

// ListIdeasResponse wraps a page of ideas and pagination information.
type ListIdeasResponse struct {
	Ideas      []domain.Idea `json:"ideas"`
	Pagination Pagination    `json:"pagination"`
}

// ListIdeas godoc
// @ID          listIdeas
// @Summary     List ideas (paginated)
// @Description Returns a page of the owner's ideas, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Ideas
// @Produce     json
//
// @Param       X-User-ID      header  string  false "Owner ID (demo header)"       example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"ideas:user123:1:20:3:0\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListIdeasResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /ideas [get]
func (h *Handlers) ListIdeas(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if count, last, err := h.ideas.Stats(ctx, uid); err == nil {
		if checkETag(c, "ideas", count, last, uid, strconv.Itoa(page), strconv.Itoa(pageSize)) {
			return
		}
	}

	items, total, err := h.ideas.ListPage(ctx, uid, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list ideas")
		return
	}
	ok(c, http.StatusOK, ListIdeasResponse{Ideas: items, Pagination: newPagination(page, pageSize, total)})
}

// GetIdea godoc
// @ID          getIdea
// @Summary     Get an idea by slug
// @Description Returns the idea when it belongs to the owner or is public.
// @Tags        Ideas
// @Produce     json
//
// @Param       X-User-ID  header  string  false "Owner ID (demo header)"  example(user123)
// @Param       slug       path    string  true  "Idea slug"                example(five-tips-1)
//
// @Success     200  {object} domain.Idea
// @Failure     404  {object} handlers.ErrorResponse "Idea not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /ideas/{slug} [get]
func (h *Handlers) GetIdea(c *gin.Context) {
	idea, err := h.ideas.GetBySlug(c.Request.Context(), userID(c), strings.TrimSpace(c.Param("slug")))
	switch {
	case errors.Is(err, services.ErrIdeaNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "idea not found")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load idea")
		return
	}
	ok(c, http.StatusOK, idea)
}

// ExportIdea godoc
// @ID          exportIdea
// @Summary     Export an idea as a brief
// @Description Renders the idea as Markdown (default) or as an HTML fragment.
// @Tags        Ideas
// @Produce     text/markdown
// @Produce     text/html
//
// @Param       X-User-ID  header  string  false "Owner ID (demo header)"  example(user123)
// @Param       slug       path    string  true  "Idea slug"                example(five-tips-1)
// @Param       format     query   string  false "md or html"               Enums(md, markdown, html)
//
// @Success     200  {string} string "Rendered brief"
// @Failure     400  {object} handlers.ErrorResponse "Unsupported format"
// @Failure     404  {object} handlers.ErrorResponse "Idea not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /ideas/{slug}/export [get]
func (h *Handlers) ExportIdea(c *gin.Context) {
	format, valid := export.ParseFormat(c.Query("format"))
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeUnsupportedFormat, "format must be md or html")
		return
	}
	idea, err := h.ideas.GetBySlug(c.Request.Context(), userID(c), strings.TrimSpace(c.Param("slug")))
	switch {
	case errors.Is(err, services.ErrIdeaNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "idea not found")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load idea")
		return
	}
	body, err := export.Render(*idea, format)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not render idea")
		return
	}
	c.Data(http.StatusOK, format.ContentType(), []byte(body))
}

// DeleteIdea godoc
// @ID          deleteIdea
// @Summary     Delete an idea
// @Description Soft-deletes an idea owned by the current user. Its slug stays reserved and its calendar entries are kept.
// @Tags        Ideas
// @Produce     json
//
// @Param       X-User-ID  header  string  false "Owner ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Idea ID (UUID)"           format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     404  {object} handlers.ErrorResponse "Idea not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /ideas/{id} [delete]
func (h *Handlers) DeleteIdea(c *gin.Context) {
	err := h.ideas.Delete(c.Request.Context(), userID(c), c.Param("id"))
	switch {
	case errors.Is(err, services.ErrIdeaNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "idea not found")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeDeleteFailed, "could not delete idea")
		return
	}
	noContent(c)
}
