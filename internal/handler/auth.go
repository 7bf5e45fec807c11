package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"

	"github.com/taskdeck/taskdeck/internal/auth"
	"github.com/taskdeck/taskdeck/internal/model"
	"github.com/taskdeck/taskdeck/internal/service"
)

// AuthHandler handles registration, login and account management.
type AuthHandler struct {
	svc    *service.UserService
	tokens *auth.TokenManager
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *service.UserService, tokens *auth.TokenManager, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:    svc,
		tokens: tokens,
		logger: logger,
	}
}

// Routes returns the chi router with auth routes. Profile, password and
// account routes require authentication; register/login/logout do not.
func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(h.tokens))
		r.Get("/profile", h.Profile)
		r.Put("/profile", h.UpdateProfile)
		r.Put("/password", h.ChangePassword)
		r.Delete("/account", h.DeleteAccount)
	})

	return r
}

// Register creates a new account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ctx, span := tracer.Start(ctx, "AuthHandler.Register")
	defer span.End()

	var req model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid input data")
		return
	}

	if err := req.Validate(); err != nil {
		h.logger.WarnContext(ctx, "validation failed", slog.Any("error", err))
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.svc.Register(ctx, &req)
	if err != nil {
		if errors.Is(err, model.ErrEmailTaken) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(ctx, "failed to register user", slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	span.SetAttributes(attribute.String("user.id", user.ID))
	h.logger.InfoContext(ctx, "user registered", slog.String("id", user.ID))

	respondData(w, http.StatusCreated, user)
}

// Login verifies credentials and sets the auth cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ctx, span := tracer.Start(ctx, "AuthHandler.Login")
	defer span.End()

	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid input data")
		return
	}

	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.svc.Login(ctx, &req)
	if err != nil {
		if errors.Is(err, model.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, err.Error())
			return
		}
		h.logger.ErrorContext(ctx, "failed to log in user", slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	token, err := h.tokens.Generate(user.ID, user.Email)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate token", slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	h.setAuthCookie(w, token)
	span.SetAttributes(attribute.String("user.id", user.ID))
	h.logger.InfoContext(ctx, "user logged in", slog.String("id", user.ID))

	respondData(w, http.StatusOK, user)
}

// Logout clears the auth cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "AuthHandler.Logout")
	defer span.End()

	h.clearAuthCookie(w)
	h.logger.InfoContext(ctx, "user logged out")
	respondMessage(w, http.StatusOK, "Logged out successfully")
}

// Profile returns the caller's account.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ctx, span := tracer.Start(ctx, "AuthHandler.Profile")
	defer span.End()

	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	user, err := h.svc.GetProfile(ctx, claims.UserID)
	if err != nil {
		h.userError(ctx, w, err, "Failed to get profile")
		return
	}

	respondData(w, http.StatusOK, user)
}

// UpdateProfile applies a partial update to the caller's account.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ctx, span := tracer.Start(ctx, "AuthHandler.UpdateProfile")
	defer span.End()

	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req model.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid input data")
		return
	}

	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.svc.UpdateProfile(ctx, claims.UserID, &req)
	if err != nil {
		if errors.Is(err, model.ErrEmailTaken) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.userError(ctx, w, err, "Failed to update profile")
		return
	}

	h.logger.InfoContext(ctx, "profile updated", slog.String("id", user.ID))
	respondData(w, http.StatusOK, user)
}

// ChangePassword replaces the caller's password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ctx, span := tracer.Start(ctx, "AuthHandler.ChangePassword")
	defer span.End()

	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req model.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid input data")
		return
	}

	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.ChangePassword(ctx, claims.UserID, &req); err != nil {
		if errors.Is(err, model.ErrInvalidPassword) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.userError(ctx, w, err, "Failed to update password")
		return
	}

	h.logger.InfoContext(ctx, "password changed", slog.String("id", claims.UserID))
	respondMessage(w, http.StatusOK, "Password updated successfully")
}

// DeleteAccount removes the caller's account and all owned tasks.
func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ctx, span := tracer.Start(ctx, "AuthHandler.DeleteAccount")
	defer span.End()

	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req model.DeleteAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid input data")
		return
	}

	if err := h.svc.DeleteAccount(ctx, claims.UserID, req.Password); err != nil {
		if errors.Is(err, model.ErrInvalidPassword) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.userError(ctx, w, err, "Failed to delete account")
		return
	}

	h.clearAuthCookie(w)
	h.logger.InfoContext(ctx, "account deleted", slog.String("id", claims.UserID))
	respondMessage(w, http.StatusOK, "Account deleted successfully")
}

func (h *AuthHandler) userError(ctx context.Context, w http.ResponseWriter, err error, fallback string) {
	if errors.Is(err, model.ErrUserNotFound) {
		respondError(w, http.StatusNotFound, model.ErrUserNotFound.Message)
		return
	}
	h.logger.ErrorContext(ctx, fallback, slog.Any("error", err))
	respondError(w, http.StatusInternalServerError, fallback)
}

func (h *AuthHandler) setAuthCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokens.Expiry().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
