// Package admin provides HTTP handlers for operator-only settlement endpoints.
package admin

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/orris-inc/offramp/internal/application/settlement/dto"
	"github.com/orris-inc/offramp/internal/application/settlement/usecases"
	"github.com/orris-inc/offramp/internal/shared/authorization"
	"github.com/orris-inc/offramp/internal/shared/logger"
	"github.com/orris-inc/offramp/internal/shared/utils"
)

var _ = dto.SettlementDTO{} // referenced by swagger annotations

type listSettlementsUseCase interface {
	Execute(ctx context.Context, q usecases.ListSettlementsQuery) (*usecases.ListSettlementsResult, error)
	ListUnmatched(ctx context.Context, page, pageSize int) (*usecases.ListUnmatchedResult, error)
}

type retrySettlementUseCase interface {
	Execute(ctx context.Context, intentID, operator string) (*usecases.RetrySettlementResult, error)
}

// SettlementHandler handles admin settlement operations
type SettlementHandler struct {
	listUC  listSettlementsUseCase
	retryUC retrySettlementUseCase
	logger  logger.Interface
}

func NewSettlementHandler(listUC listSettlementsUseCase, retryUC retrySettlementUseCase, logger logger.Interface) *SettlementHandler {
	return &SettlementHandler{
		listUC:  listUC,
		retryUC: retryUC,
		logger:  logger,
	}
}

// ListSettlements godoc
// @Summary List settlements
// @Description List settlement records, newest first, optionally filtered by state and owner
// @Security Bearer
// @Tags admin
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Param state query string false "Comma separated states" example(swap_failed,payout_failed)
// @Param owner query string false "Intent owner"
// @Success 200 {object} utils.APIResponse{data=utils.ListResponse{items=[]dto.SettlementDTO}}
// @Failure 400 {object} utils.APIResponse "Invalid filter"
// @Failure 401 {object} utils.APIResponse "Unauthorized"
// @Failure 403 {object} utils.APIResponse "Forbidden - Requires admin role"
// @Router /admin/settlements [get]
func (h *SettlementHandler) ListSettlements(c *gin.Context) {
	p := utils.ParsePagination(c)
	query := usecases.ListSettlementsQuery{
		States:   splitList(c.Query("state")),
		Owner:    strings.TrimSpace(c.Query("owner")),
		Page:     p.Page,
		PageSize: p.PageSize,
	}

	result, err := h.listUC.Execute(c.Request.Context(), query)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.ListSuccessResponse(c, result.Items, result.Total, p.Page, p.PageSize)
}

// ListUnmatched godoc
// @Summary List unmatched deposits
// @Description List deposits held for operator triage
// @Security Bearer
// @Tags admin
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} utils.APIResponse{data=utils.ListResponse{items=[]dto.UnmatchedDepositDTO}}
// @Failure 401 {object} utils.APIResponse "Unauthorized"
// @Failure 403 {object} utils.APIResponse "Forbidden - Requires admin role"
// @Router /admin/unmatched-deposits [get]
func (h *SettlementHandler) ListUnmatched(c *gin.Context) {
	p := utils.ParsePagination(c)

	result, err := h.listUC.ListUnmatched(c.Request.Context(), p.Page, p.PageSize)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.ListSuccessResponse(c, result.Items, result.Total, p.Page, p.PageSize)
}

// RetrySettlement godoc
// @Summary Retry settlement
// @Description Resume a failed swap with its original key, or start a new payout attempt for a failed payout
// @Security Bearer
// @Tags admin
// @Produce json
// @Param intent_id path string true "Intent ID"
// @Success 200 {object} utils.APIResponse{data=usecases.RetrySettlementResult} "Settlement retried"
// @Failure 400 {object} utils.APIResponse "Settlement needs a payout destination"
// @Failure 401 {object} utils.APIResponse "Unauthorized"
// @Failure 403 {object} utils.APIResponse "Forbidden - Requires admin role"
// @Failure 404 {object} utils.APIResponse "Settlement not found"
// @Failure 409 {object} utils.APIResponse "Settlement is not retryable"
// @Router /admin/settlements/{intent_id}/retry [post]
func (h *SettlementHandler) RetrySettlement(c *gin.Context) {
	intentID := c.Param("intent_id")
	operator := authorization.Subject(c)

	result, err := h.retryUC.Execute(c.Request.Context(), intentID, operator)
	if err != nil {
		h.logger.Warnw("settlement retry rejected", "intent_id", intentID, "operator", operator, "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	h.logger.Infow("settlement retried", "intent_id", intentID, "operator", operator, "outcome", result.Outcome)
	utils.SuccessResponse(c, http.StatusOK, "settlement retried", result)
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
