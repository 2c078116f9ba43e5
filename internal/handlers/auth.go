package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"coinvest/internal/auth"
	"coinvest/internal/middleware"
	"coinvest/internal/validator"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := validator.ValidateUsername(req.Username); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validator.ValidateEmail(req.Email); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validator.ValidatePassword(req.Password); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to secure password")
		return
	}
	userID := uuid.NewString()
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.users.Create(r.Context(), tx, userID, req.Username, req.Email, passwordHash); err != nil {
			return err
		}
		hasAdmin, err := h.admin.HasAnyAdmin(r.Context(), tx)
		if err != nil {
			return err
		}
		if !hasAdmin {
			if err := h.admin.CreateAdmin(r.Context(), tx, userID, true, nil); err != nil {
				return err
			}
		}
		data, _ := json.Marshal(map[string]string{
			"user_id":    userID,
			"ip":         r.RemoteAddr,
			"user_agent": r.UserAgent(),
		})
		return h.audit.Log(r.Context(), tx, userID, "register", "user", userID, string(data))
	})
	if err != nil {
		if pgErr, ok := err.(*pq.Error); ok {
			if pgErr.Code == "23505" {
				respondError(w, http.StatusConflict, "username or email already exists")
				return
			}
		}
		respondError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	token, err := auth.GenerateToken(h.cfg.JWTSecret, userID, h.cfg.TokenTTL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{
		"token": token,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		respondError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		data, _ := json.Marshal(map[string]string{
			"user_id":    user.ID,
			"ip":         r.RemoteAddr,
			"user_agent": r.UserAgent(),
		})
		return h.audit.Log(r.Context(), tx, user.ID, "login", "user", user.ID, string(data))
	}); err != nil {
		respondError(w, http.StatusInternalServerError, "login failed")
		return
	}
	token, err := auth.GenerateToken(h.cfg.JWTSecret, user.ID, h.cfg.TokenTTL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"token": token,
	})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load user")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"id":              user.ID,
		"username":        user.Username,
		"email":           user.Email,
		"balance":         valueToMoney(user.Balance),
		"current_plan_id": user.CurrentPlanID,
		"created_at":      user.CreatedAt,
	})
}
