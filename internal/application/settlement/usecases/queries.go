package usecases

import (
	"context"
	"errors"

	"github.com/orris-inc/offramp/internal/application/settlement/dto"
	"github.com/orris-inc/offramp/internal/domain/intent"
	"github.com/orris-inc/offramp/internal/domain/settlement"
	vo "github.com/orris-inc/offramp/internal/domain/settlement/valueobjects"
	apperrors "github.com/orris-inc/offramp/internal/shared/errors"
	"github.com/orris-inc/offramp/internal/shared/logger"
)

const maxPageSize = 100

// IntentView is an intent together with its settlement, if one exists.
type IntentView struct {
	Intent     *dto.IntentDTO     `json:"intent"`
	Settlement *dto.SettlementDTO `json:"settlement,omitempty"`
}

type GetIntentUseCase struct {
	intents intent.Repository
	records settlement.Repository
	logger  logger.Interface
}

func NewGetIntentUseCase(intents intent.Repository, records settlement.Repository, log logger.Interface) *GetIntentUseCase {
	return &GetIntentUseCase{intents: intents, records: records, logger: log.Named("get_intent")}
}

// Execute returns the intent when owner holds it; isAdmin bypasses the check.
func (uc *GetIntentUseCase) Execute(ctx context.Context, owner, intentID string, isAdmin bool) (*IntentView, error) {
	si, err := uc.intents.GetByID(ctx, intentID)
	if err != nil {
		if errors.Is(err, intent.ErrIntentNotFound) {
			return nil, apperrors.NewNotFoundError("sell intent not found", intentID)
		}
		uc.logger.Errorw("failed to load sell intent", "intent_id", intentID, "error", err)
		return nil, apperrors.NewInternalError("failed to load sell intent")
	}
	if !isAdmin && si.Owner() != owner {
		return nil, apperrors.NewNotFoundError("sell intent not found", intentID)
	}

	view := &IntentView{Intent: dto.ToIntentDTO(si)}
	rec, err := uc.records.GetByIntentID(ctx, si.ID())
	switch {
	case err == nil:
		view.Settlement = dto.ToSettlementDTO(rec)
	case !errors.Is(err, settlement.ErrRecordNotFound):
		uc.logger.Errorw("failed to load settlement", "intent_id", intentID, "error", err)
		return nil, apperrors.NewInternalError("failed to load settlement")
	}
	return view, nil
}

type ListSettlementsQuery struct {
	States   []string
	Owner    string
	Page     int
	PageSize int
}

type ListSettlementsResult struct {
	Items []*dto.SettlementDTO `json:"items"`
	Total int64                `json:"total"`
}

type ListSettlementsUseCase struct {
	records   settlement.Repository
	unmatched settlement.UnmatchedDepositRepository
	logger    logger.Interface
}

func NewListSettlementsUseCase(records settlement.Repository, unmatched settlement.UnmatchedDepositRepository, log logger.Interface) *ListSettlementsUseCase {
	return &ListSettlementsUseCase{records: records, unmatched: unmatched, logger: log.Named("list_settlements")}
}

func (uc *ListSettlementsUseCase) Execute(ctx context.Context, q ListSettlementsQuery) (*ListSettlementsResult, error) {
	states := make([]vo.SettlementState, 0, len(q.States))
	for _, s := range q.States {
		state := vo.SettlementState(s)
		if !state.IsValid() {
			return nil, apperrors.NewValidationError("invalid settlement state", s)
		}
		states = append(states, state)
	}
	offset, limit := pageBounds(q.Page, q.PageSize)

	records, total, err := uc.records.List(ctx, settlement.ListFilter{
		States: states,
		Owner:  q.Owner,
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		uc.logger.Errorw("failed to list settlements", "error", err)
		return nil, apperrors.NewInternalError("failed to list settlements")
	}

	items := make([]*dto.SettlementDTO, 0, len(records))
	for _, rec := range records {
		items = append(items, dto.ToSettlementDTO(rec))
	}
	return &ListSettlementsResult{Items: items, Total: total}, nil
}

type ListUnmatchedResult struct {
	Items []*dto.UnmatchedDepositDTO `json:"items"`
	Total int64                      `json:"total"`
}

func (uc *ListSettlementsUseCase) ListUnmatched(ctx context.Context, page, pageSize int) (*ListUnmatchedResult, error) {
	offset, limit := pageBounds(page, pageSize)
	deposits, total, err := uc.unmatched.List(ctx, offset, limit)
	if err != nil {
		uc.logger.Errorw("failed to list unmatched deposits", "error", err)
		return nil, apperrors.NewInternalError("failed to list unmatched deposits")
	}
	items := make([]*dto.UnmatchedDepositDTO, 0, len(deposits))
	for _, d := range deposits {
		items = append(items, dto.ToUnmatchedDepositDTO(d))
	}
	return &ListUnmatchedResult{Items: items, Total: total}, nil
}

func pageBounds(page, pageSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = 20
	}
	return (page - 1) * pageSize, pageSize
}
