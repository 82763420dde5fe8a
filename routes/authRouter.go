package routes

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/estateplan/apiv1/auth"
	"github.com/estateplan/apiv1/middlewares"
	"github.com/estateplan/apiv1/models"
	"github.com/estateplan/apiv1/utils"
	"github.com/gorilla/mux"
)

// AuthResponse is the envelope every endpoint answers with.
type AuthResponse struct {
	Success      bool         `json:"success"`
	Message      string       `json:"message"`
	Token        string       `json:"token,omitempty"`
	RefreshToken string       `json:"refreshToken,omitempty"`
	Requires2FA  bool         `json:"requires2FA,omitempty"`
	UserID       string       `json:"userId,omitempty"`
	TempToken    string       `json:"tempToken,omitempty"`
	User         *models.User `json:"user,omitempty"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required,min=1,max=64"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type VerifyTwoFactorRequest struct {
	Email            string `json:"email" validate:"required,email"`
	VerificationCode string `json:"verificationCode" validate:"required,len=6,numeric"`
	TempToken        string `json:"tempToken" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type RequestBody interface {
	RegisterRequest | LoginRequest | VerifyTwoFactorRequest |
		ForgotPasswordRequest | ResetPasswordRequest | RefreshRequest
}

func DecodeValidBody[B RequestBody](r *http.Request) (B, error) {
	decoder := json.NewDecoder(r.Body)
	var requestBody B
	err := decoder.Decode(&requestBody)
	if err != nil {
		return requestBody, err
	}
	err = validate.Struct(requestBody)
	if err != nil {
		return requestBody, err
	}
	return requestBody, nil
}

type authHandler struct {
	svc *auth.Service
}

func AuthRouter(s *mux.Router, svc *auth.Service) {
	h := &authHandler{svc: svc}
	s.HandleFunc("/register", h.Register).Methods("POST", "OPTIONS")
	s.HandleFunc("/login", h.Login).Methods("POST", "OPTIONS")
	s.HandleFunc("/verify-2fa", h.VerifyTwoFactor).Methods("POST", "OPTIONS")
	s.HandleFunc("/verify", middlewares.IsAccessTokenAuthorized(svc, h.Verify)).Methods("GET", "OPTIONS")
	s.HandleFunc("/forgot-password", h.ForgotPassword).Methods("POST", "OPTIONS")
	s.HandleFunc("/reset-password", h.ResetPassword).Methods("POST", "OPTIONS")
	s.HandleFunc("/reset-password/validate", h.ValidateResetToken).Methods("GET", "OPTIONS")
	s.HandleFunc("/refresh", h.Refresh).Methods("POST", "OPTIONS")
	s.HandleFunc("/account", middlewares.IsAccessTokenAuthorized(svc, h.DeactivateAccount)).Methods("DELETE", "OPTIONS")
}

func writeJSON(w http.ResponseWriter, status int, body AuthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("request failed", "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, AuthResponse{Message: utils.INTERNAL_ERROR_MESSAGE})
}

func (h *authHandler) Register(w http.ResponseWriter, r *http.Request) {
	req, err := DecodeValidBody[RegisterRequest](r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, AuthResponse{Message: utils.MISSING_REQUEST_DATA})
		return
	}
	user, accessToken, refreshToken, err := h.svc.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrWeakPassword):
			writeJSON(w, http.StatusBadRequest, AuthResponse{Message: err.Error()})
		case errors.Is(err, auth.ErrEmailTaken):
			writeJSON(w, http.StatusConflict, AuthResponse{Message: utils.EMAIL_TAKEN_SIGNUP_ERROR})
		default:
			internalError(w, r, err)
		}
		return
	}
	writeJSON(w, http.StatusCreated, AuthResponse{
		Success:      true,
		Message:      "Account created.",
		Token:        accessToken,
		RefreshToken: refreshToken,
		User:         user,
	})
}

func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, err := DecodeValidBody[LoginRequest](r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, AuthResponse{Message: utils.MISSING_REQUEST_DATA})
		return
	}
	result, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeJSON(w, http.StatusUnauthorized, AuthResponse{Message: utils.GENERIC_LOGIN_ERROR})
		case errors.Is(err, auth.ErrAccountLocked):
			writeJSON(w, http.StatusLocked, AuthResponse{Message: utils.ACCOUNT_LOCKED_ERROR})
		default:
			internalError(w, r, err)
		}
		return
	}
	if result.RequiresTwoFactor {
		writeJSON(w, http.StatusOK, AuthResponse{
			Success:     true,
			Message:     "A verification code has been sent to your email.",
			Requires2FA: true,
			UserID:      result.User.ID,
			TempToken:   result.TempToken,
		})
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{
		Success:      true,
		Message:      "Logged in.",
		Token:        result.AccessToken,
		RefreshToken: result.RefreshToken,
		User:         result.User,
	})
}

func (h *authHandler) VerifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	req, err := DecodeValidBody[VerifyTwoFactorRequest](r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, AuthResponse{Message: utils.MISSING_REQUEST_DATA})
		return
	}
	result, err := h.svc.VerifyTwoFactor(r.Context(), req.Email, req.VerificationCode, req.TempToken)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrCodeExpired),
			errors.Is(err, auth.ErrCodeMismatch),
			errors.Is(err, utils.ErrTokenExpired),
			errors.Is(err, utils.ErrTokenInvalid):
			writeJSON(w, http.StatusUnauthorized, AuthResponse{Message: utils.INVALID_2FA_ERROR})
		default:
			internalError(w, r, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{
		Success:      true,
		Message:      "Logged in.",
		Token:        result.AccessToken,
		RefreshToken: result.RefreshToken,
		User:         result.User,
	})
}

func (h *authHandler) Verify(w http.ResponseWriter, r *http.Request) {
	user, ok := middlewares.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, AuthResponse{Message: utils.INVALID_SESSION_ERROR})
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Success: true, Message: "Session valid.", User: user})
}

func (h *authHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	req, err := DecodeValidBody[ForgotPasswordRequest](r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, AuthResponse{Message: utils.MISSING_REQUEST_DATA})
		return
	}
	if err := h.svc.ForgotPassword(r.Context(), req.Email); err != nil {
		internalError(w, r, err)
		return
	}
	// identical for known and unknown emails
	writeJSON(w, http.StatusOK, AuthResponse{Success: true, Message: utils.GENERIC_FORGOT_PASSWORD_MESSAGE})
}

func (h *authHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	req, err := DecodeValidBody[ResetPasswordRequest](r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, AuthResponse{Message: utils.MISSING_REQUEST_DATA})
		return
	}
	_, err = h.svc.ResetPassword(r.Context(), req.Token, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrWeakPassword):
			writeJSON(w, http.StatusBadRequest, AuthResponse{Message: err.Error()})
		case errors.Is(err, auth.ErrResetTokenInvalid):
			writeJSON(w, http.StatusBadRequest, AuthResponse{Message: utils.INVALID_RESET_TOKEN_ERROR})
		default:
			internalError(w, r, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Success: true, Message: utils.PASSWORD_RESET_SUCCESS_MESSAGE})
}

// ValidateResetToken lets the reset form check a link before the user types a
// new password. The token is not consumed.
func (h *authHandler) ValidateResetToken(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeJSON(w, http.StatusBadRequest, AuthResponse{Message: utils.MISSING_REQUEST_DATA})
		return
	}
	if _, err := h.svc.ValidateResetToken(r.Context(), token); err != nil {
		if errors.Is(err, auth.ErrResetTokenInvalid) {
			writeJSON(w, http.StatusBadRequest, AuthResponse{Message: utils.INVALID_RESET_TOKEN_ERROR})
			return
		}
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Success: true, Message: "Reset link is valid."})
}

func (h *authHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	req, err := DecodeValidBody[RefreshRequest](r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, AuthResponse{Message: utils.MISSING_REQUEST_DATA})
		return
	}
	accessToken, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrRefreshInvalid),
			errors.Is(err, auth.ErrAccountDeactivated),
			errors.Is(err, utils.ErrTokenExpired),
			errors.Is(err, utils.ErrTokenInvalid):
			writeJSON(w, http.StatusUnauthorized, AuthResponse{Message: utils.INVALID_REFRESH_ERROR})
		default:
			internalError(w, r, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Success: true, Message: "Token refreshed.", Token: accessToken})
}

func (h *authHandler) DeactivateAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := middlewares.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, AuthResponse{Message: utils.INVALID_SESSION_ERROR})
		return
	}
	if err := h.svc.DeactivateAccount(r.Context(), user.ID); err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Success: true, Message: "Account deactivated."})
}
