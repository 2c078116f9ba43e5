package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"

	"coinvest/internal/auth"
	"coinvest/internal/middleware"
	"coinvest/internal/services"
	"coinvest/internal/validator"
	"coinvest/internal/websocket"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

func (h *Handler) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListAll(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load users")
		return
	}
	normalized := make([]map[string]any, 0, len(users))
	for _, user := range users {
		normalized = append(normalized, map[string]any{
			"id":              user.ID,
			"username":        user.Username,
			"email":           user.Email,
			"balance":         valueToMoney(user.Balance),
			"current_plan_id": user.CurrentPlanID,
			"created_at":      user.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, normalized)
}

type adjustBalanceRequest struct {
	Balance string `json:"balance"`
}

func (h *Handler) AdminAdjustBalance(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	targetID := chi.URLParam(r, "id")
	var req adjustBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := h.service.AdjustBalance(r.Context(), adminID, targetID, req.Balance); err != nil {
		switch {
		case err == services.ErrInvalidAmount:
			respondError(w, http.StatusBadRequest, "invalid_balance")
		case err == sql.ErrNoRows:
			respondError(w, http.StatusNotFound, "user not found")
		default:
			respondError(w, http.StatusInternalServerError, "unable to adjust balance")
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type setPlanRequest struct {
	PlanID *string `json:"plan_id"`
}

func (h *Handler) AdminSetUserPlan(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	targetID := chi.URLParam(r, "id")
	var req setPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.PlanID != nil {
		plan, err := h.plans.GetByID(r.Context(), *req.PlanID)
		if err != nil {
			if err == sql.ErrNoRows {
				respondError(w, http.StatusNotFound, "plan not found")
				return
			}
			respondError(w, http.StatusInternalServerError, "unable to load plan")
			return
		}
		if !plan.IsActive {
			respondError(w, http.StatusBadRequest, "plan_not_active")
			return
		}
	}
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.users.SetCurrentPlan(r.Context(), tx, targetID, req.PlanID); err != nil {
			return err
		}
		planID := ""
		if req.PlanID != nil {
			planID = *req.PlanID
		}
		data, _ := json.Marshal(map[string]string{"user_id": targetID, "plan_id": planID})
		return h.audit.Log(r.Context(), tx, adminID, "set_user_plan", "user", targetID, string(data))
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to set plan")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type planRequest struct {
	Name            string `json:"name"`
	MinAmount       string `json:"min_amount"`
	DailyReturnRate string `json:"daily_return_rate"`
	DurationDays    int    `json:"duration_days"`
	IsActive        *bool  `json:"is_active"`
}

func (h *Handler) AdminCreatePlan(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := validator.ValidatePlanName(req.Name); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	minAmount, dailyRate, err := parsePlanNumbers(req.MinAmount, req.DailyReturnRate)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.DurationDays <= 0 {
		respondError(w, http.StatusBadRequest, "duration_days must be positive")
		return
	}
	planID := uuid.NewString()
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.plans.Create(r.Context(), tx, planFromRequest(planID, req.Name, minAmount, dailyRate, req.DurationDays, active)); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{"name": req.Name, "min_amount": minAmount, "daily_return_rate": dailyRate})
		return h.audit.Log(r.Context(), tx, adminID, "create_plan", "plan", planID, string(data))
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to create plan")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"id": planID})
}

func (h *Handler) AdminUpdatePlan(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	planID := chi.URLParam(r, "id")
	if _, err := h.plans.GetByID(r.Context(), planID); err != nil {
		if err == sql.ErrNoRows {
			respondError(w, http.StatusNotFound, "plan not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load plan")
		return
	}
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	minAmount, dailyRate, err := parsePlanNumbers(req.MinAmount, req.DailyReturnRate)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.plans.Update(r.Context(), tx, planID, minAmount, dailyRate, active); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]any{"min_amount": minAmount, "daily_return_rate": dailyRate, "is_active": active})
		return h.audit.Log(r.Context(), tx, adminID, "update_plan", "plan", planID, string(data))
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to update plan")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) AdminListTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	status := query.Get("status")
	limit := parseInt(query.Get("limit"), 50)
	page := parseInt(query.Get("page"), 1)
	offset := (page - 1) * limit
	var err error
	var rows []map[string]any
	if status != "" {
		transactions, listErr := h.transactions.ListByStatus(r.Context(), status, limit, offset)
		err = listErr
		rows = normalizeTransactions(transactions)
	} else {
		transactions, listErr := h.transactions.ListAll(r.Context(), limit, offset)
		err = listErr
		rows = normalizeTransactions(transactions)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load transactions")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *Handler) AdminConfirmTransaction(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	transactionID := chi.URLParam(r, "id")
	if err := h.service.Confirm(r.Context(), adminID, transactionID); err != nil {
		switch {
		case err == services.ErrTransactionNotPending:
			respondError(w, http.StatusConflict, "transaction_not_pending")
		case err == services.ErrInsufficientFunds:
			respondError(w, http.StatusBadRequest, "insufficient_funds")
		case err == services.ErrPlanNotFound:
			respondError(w, http.StatusBadRequest, "plan_not_found")
		case err == services.ErrPlanNotActive:
			respondError(w, http.StatusBadRequest, "plan_not_active")
		case err == sql.ErrNoRows:
			respondError(w, http.StatusNotFound, "transaction not found")
		default:
			respondError(w, http.StatusInternalServerError, "unable to confirm transaction")
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "confirmed"})
}

func (h *Handler) AdminRejectTransaction(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	transactionID := chi.URLParam(r, "id")
	if err := h.service.Reject(r.Context(), adminID, transactionID); err != nil {
		switch {
		case err == services.ErrTransactionNotPending:
			respondError(w, http.StatusConflict, "transaction_not_pending")
		case err == sql.ErrNoRows:
			respondError(w, http.StatusNotFound, "transaction not found")
		default:
			respondError(w, http.StatusInternalServerError, "unable to reject transaction")
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

func (h *Handler) AdminListAccrualRuns(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 50)
	runs, err := h.accrualRuns.ListRecent(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load accrual runs")
		return
	}
	respondJSON(w, http.StatusOK, runs)
}

type promoteRequest struct {
	Identifier string `json:"identifier"`
}

func (h *Handler) PromoteAdmin(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	_, isSuper, err := h.admin.IsAdmin(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to verify admin")
		return
	}
	if !isSuper {
		respondError(w, http.StatusForbidden, "super_admin_required")
		return
	}
	var req promoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Identifier == "" {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	targetUserID, err := h.resolveUserID(r.Context(), req.Identifier)
	if err != nil {
		if err == sql.ErrNoRows {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to resolve user")
		return
	}
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.admin.CreateAdmin(r.Context(), tx, targetUserID, false, &userID); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{
			"target_user_id": targetUserID,
		})
		return h.audit.Log(r.Context(), tx, userID, "promote_admin", "admin", targetUserID, string(data))
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to promote admin")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"status": "promoted"})
}

type grantRoleRequest struct {
	AdminUserID string `json:"admin_user_id"`
	Role        string `json:"role"`
}

func (h *Handler) GrantRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	_, isSuper, err := h.admin.IsAdmin(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to verify admin")
		return
	}
	if !isSuper {
		respondError(w, http.StatusForbidden, "super_admin_required")
		return
	}
	var req grantRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AdminUserID == "" || req.Role == "" {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	isAdmin, targetSuper, err := h.admin.IsAdmin(r.Context(), req.AdminUserID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to verify target admin")
		return
	}
	if !isAdmin {
		respondError(w, http.StatusBadRequest, "target is not an admin")
		return
	}
	if targetSuper {
		respondError(w, http.StatusBadRequest, "cannot assign roles to super admin")
		return
	}
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.admin.GrantRole(r.Context(), tx, req.AdminUserID, req.Role); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{
			"admin_user_id": req.AdminUserID,
			"role":          req.Role,
		})
		return h.audit.Log(r.Context(), tx, userID, "grant_role", "admin_role", req.AdminUserID, string(data))
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to grant role")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"status": "role_granted"})
}

func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := parseInt(query.Get("limit"), 50)
	page := parseInt(query.Get("page"), 1)
	offset := (page - 1) * limit
	rows, err := h.audit.List(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load audit logs")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *Handler) WSBalances(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		authHeader := r.Header.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	if token == "" {
		respondError(w, http.StatusUnauthorized, "missing token")
		return
	}
	claims, err := auth.ParseToken(h.cfg.JWTSecret, token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	websocket.ServeWS(w, r, h.hub, claims.UserID)
}
