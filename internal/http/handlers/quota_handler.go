package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetQuota godoc
// @ID          getQuota
// @Summary     Current quota
// @Description Reports the owner's tier, ideas generated today and what is left. Paid owners are unlimited per day and capped per batch.
// @Tags        Quota
// @Produce     json
//
// @Param       X-User-ID  header  string  false "Owner ID (demo header)"  example(user123)
//
// @Success     200  {object} services.QuotaStatus
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /quota [get]
func (h *Handlers) GetQuota(c *gin.Context) {
	st, err := h.quota.QuotaStatus(c.Request.Context(), userID(c), h.now())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeQuotaFailed, "could not load quota")
		return
	}
	ok(c, http.StatusOK, st)
}
