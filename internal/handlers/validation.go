package handlers

import (
	"context"
	"errors"
	"strings"

	"coinvest/internal/models"
	"coinvest/internal/money"

	"github.com/shopspring/decimal"
)

var errInvalidMinAmount = errors.New("invalid min_amount")
var errInvalidRate = errors.New("invalid daily_return_rate")

func parsePlanNumbers(rawMin, rawRate string) (string, string, error) {
	minAmount, err := money.ParsePositive(rawMin)
	if err != nil {
		return "", "", errInvalidMinAmount
	}
	rate, err := decimal.NewFromString(rawRate)
	if err != nil || rate.LessThanOrEqual(decimal.Zero) || rate.GreaterThan(decimal.NewFromInt(1)) {
		return "", "", errInvalidRate
	}
	if rate.Exponent() < -6 {
		return "", "", errInvalidRate
	}
	return money.Format(minAmount), rate.String(), nil
}

func planFromRequest(id, name, minAmount, dailyRate string, durationDays int, isActive bool) models.InvestmentPlan {
	return models.InvestmentPlan{
		ID:              id,
		Name:            name,
		MinAmount:       minAmount,
		DailyReturnRate: dailyRate,
		DurationDays:    durationDays,
		IsActive:        isActive,
	}
}

func (h *Handler) resolveUserID(ctx context.Context, identifier string) (string, error) {
	if strings.Contains(identifier, "@") {
		user, err := h.users.GetByEmail(ctx, identifier)
		if err != nil {
			return "", err
		}
		return user.ID, nil
	}
	user, err := h.users.GetByUsername(ctx, identifier)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}
