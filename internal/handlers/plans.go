package handlers

import (
	"database/sql"
	"net/http"

	"coinvest/internal/models"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.plans.ListActive(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load plans")
		return
	}
	respondJSON(w, http.StatusOK, normalizePlans(plans))
}

func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "id")
	plan, err := h.plans.GetByID(r.Context(), planID)
	if err != nil {
		if err == sql.ErrNoRows {
			respondError(w, http.StatusNotFound, "plan not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load plan")
		return
	}
	respondJSON(w, http.StatusOK, normalizePlan(plan))
}

func normalizePlan(plan models.InvestmentPlan) map[string]any {
	return map[string]any{
		"id":                plan.ID,
		"name":              plan.Name,
		"min_amount":        valueToMoney(plan.MinAmount),
		"daily_return_rate": plan.DailyReturnRate,
		"duration_days":     plan.DurationDays,
		"is_active":         plan.IsActive,
		"created_at":        plan.CreatedAt,
	}
}

func normalizePlans(plans []models.InvestmentPlan) []map[string]any {
	normalized := make([]map[string]any, 0, len(plans))
	for _, plan := range plans {
		normalized = append(normalized, normalizePlan(plan))
	}
	return normalized
}
