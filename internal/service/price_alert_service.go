package service

import (
	"context"
	"strings"

	"github.com/pocketbroker/internal/errors"
	"github.com/pocketbroker/internal/models"
	"github.com/pocketbroker/internal/storage"
	"github.com/pocketbroker/internal/types"
)

// PriceAlertRepository interface for price alert data operations
type PriceAlertRepository interface {
	Create(ctx context.Context, a *models.PriceAlert) error
	GetByID(ctx context.Context, id int64) (*models.PriceAlert, error)
	List(ctx context.Context, filter storage.PriceAlertFilter) ([]*models.PriceAlert, error)
	Update(ctx context.Context, id int64, update models.PriceAlertUpdate) (*models.PriceAlert, error)
	Delete(ctx context.Context, id int64) (*models.PriceAlert, error)
}

// PriceAlertService manages user price alerts
type PriceAlertService struct {
	repo PriceAlertRepository
}

// NewPriceAlertService creates a new price alert service
func NewPriceAlertService(repo PriceAlertRepository) *PriceAlertService {
	return &PriceAlertService{repo: repo}
}

type CreatePriceAlertInput struct {
	UserID       types.FlexInt        `json:"userId"`
	TokenSymbol  string               `json:"tokenSymbol"`
	TokenAddress string               `json:"tokenAddress"`
	Condition    types.AlertCondition `json:"condition"`
	TargetPrice  types.FlexFloat      `json:"targetPrice"`
	CurrentPrice types.FlexFloat      `json:"currentPrice"`
}

type UpdatePriceAlertInput struct {
	TokenSymbol  *string               `json:"tokenSymbol"`
	TokenAddress *string               `json:"tokenAddress"`
	Condition    *types.AlertCondition `json:"condition"`
	TargetPrice  types.FlexFloat       `json:"targetPrice"`
	CurrentPrice types.FlexFloat       `json:"currentPrice"`
	Triggered    *bool                 `json:"triggered"`
	Notified     *bool                 `json:"notified"`
}

const alertNotFoundCode = "ALERT_NOT_FOUND"

func invalidConditionError() error {
	return errors.NewValidationError("INVALID_CONDITION", `condition must be either "above" or "below"`)
}

func invalidTargetPriceError() error {
	return errors.NewValidationError("INVALID_PRICE", "targetPrice must be a valid number greater than 0")
}

func invalidCurrentPriceError() error {
	return errors.NewValidationError("INVALID_PRICE", "currentPrice must be a valid number")
}

// Create validates and stores a price alert
func (s *PriceAlertService) Create(ctx context.Context, input *CreatePriceAlertInput) (*models.PriceAlert, error) {
	symbol := strings.TrimSpace(input.TokenSymbol)
	address := strings.TrimSpace(input.TokenAddress)
	switch {
	case !input.UserID.Present:
		return nil, errors.NewMissingFieldsError("userId is required")
	case symbol == "":
		return nil, errors.NewMissingFieldsError("tokenSymbol is required")
	case address == "":
		return nil, errors.NewMissingFieldsError("tokenAddress is required")
	case input.Condition == "":
		return nil, errors.NewMissingFieldsError("condition is required")
	case !input.TargetPrice.Present:
		return nil, errors.NewMissingFieldsError("targetPrice is required")
	}
	if !input.UserID.Valid {
		return nil, errors.NewValidationError(CodeInvalidUserID, "userId must be a valid integer")
	}
	if !input.Condition.IsValid() {
		return nil, invalidConditionError()
	}
	if !input.TargetPrice.Valid || input.TargetPrice.Value <= 0 {
		return nil, invalidTargetPriceError()
	}
	if input.CurrentPrice.Present && !input.CurrentPrice.Valid {
		return nil, invalidCurrentPriceError()
	}

	a := &models.PriceAlert{
		UserID:       input.UserID.Value,
		TokenSymbol:  symbol,
		TokenAddress: address,
		Condition:    input.Condition,
		TargetPrice:  input.TargetPrice.Value,
		CurrentPrice: input.CurrentPrice.Ptr(),
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, errors.NewDatabaseError("create price alert", err)
	}
	return a, nil
}

func (s *PriceAlertService) Get(ctx context.Context, id int64) (*models.PriceAlert, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "get price alert", alertNotFoundCode, "Price alert not found")
	}
	return a, nil
}

func (s *PriceAlertService) List(ctx context.Context, filter storage.PriceAlertFilter) ([]*models.PriceAlert, error) {
	alerts, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, errors.NewDatabaseError("list price alerts", err)
	}
	return alerts, nil
}

// Update applies a partial update, including the evaluation flags
func (s *PriceAlertService) Update(ctx context.Context, id int64, input *UpdatePriceAlertInput) (*models.PriceAlert, error) {
	update := models.PriceAlertUpdate{
		Triggered: input.Triggered,
		Notified:  input.Notified,
	}
	if input.TokenSymbol != nil {
		v := strings.TrimSpace(*input.TokenSymbol)
		update.TokenSymbol = &v
	}
	if input.TokenAddress != nil {
		v := strings.TrimSpace(*input.TokenAddress)
		update.TokenAddress = &v
	}
	if input.Condition != nil {
		if !input.Condition.IsValid() {
			return nil, invalidConditionError()
		}
		update.Condition = input.Condition
	}
	if input.TargetPrice.Present {
		if !input.TargetPrice.Valid || input.TargetPrice.Value <= 0 {
			return nil, invalidTargetPriceError()
		}
		update.TargetPrice = input.TargetPrice.Ptr()
	}
	if input.CurrentPrice.Present {
		if !input.CurrentPrice.Valid {
			return nil, invalidCurrentPriceError()
		}
		update.CurrentPrice = input.CurrentPrice.Ptr()
	}

	a, err := s.repo.Update(ctx, id, update)
	if err != nil {
		return nil, notFound(err, "update price alert", alertNotFoundCode, "Price alert not found")
	}
	return a, nil
}

func (s *PriceAlertService) Delete(ctx context.Context, id int64) (*models.PriceAlert, error) {
	a, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, notFound(err, "delete price alert", alertNotFoundCode, "Price alert not found")
	}
	return a, nil
}
