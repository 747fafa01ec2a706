package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	errors "github.com/frahmantamala/training-identity/internal"
	"github.com/frahmantamala/training-identity/internal/core/account"
	"github.com/frahmantamala/training-identity/internal/transport"
	"github.com/frahmantamala/training-identity/internal/transport/middleware"
	"github.com/frahmantamala/training-identity/pkg/logger"
)

// Binder adapts the generic handler to one account kind.
type Binder[T account.Account] interface {
	// DecodeSignup reads a signup body into a new account and its password.
	DecodeSignup(r *http.Request, decode func(dst interface{}) error) (T, string, error)
	// Current returns the authenticated account of this kind.
	Current(ctx context.Context) (T, bool)
}

type Handler[T account.Account] struct {
	*transport.BaseHandler
	Flow    *Flow[T]
	Binder  Binder[T]
	Cookies *transport.CookieSettings
	record  func(kind, event, outcome string)
}

func NewHandler[T account.Account](flow *Flow[T], binder Binder[T], cookies *transport.CookieSettings) *Handler[T] {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler[T]{
		BaseHandler: transport.NewBaseHandler(lg),
		Flow:        flow,
		Binder:      binder,
		Cookies:     cookies,
		record:      middleware.RecordAuthAttempt,
	}
}

func (h *Handler[T]) observe(event string, err error) {
	outcome := "success"
	if err != nil {
		outcome = string(errors.ErrCodeInternal)
		if appErr, ok := errors.IsAppError(err); ok {
			outcome = string(appErr.Code)
		}
	}
	h.record(strings.ToLower(string(h.Flow.Policy().Kind)), event, outcome)
}

func (h *Handler[T]) decoder(w http.ResponseWriter, r *http.Request) func(dst interface{}) error {
	return func(dst interface{}) error {
		return h.DecodeJSON(w, r, dst)
	}
}

func (h *Handler[T]) Signup(w http.ResponseWriter, r *http.Request) {
	acc, password, err := h.Binder.DecodeSignup(r, h.decoder(w, r))
	if err != nil {
		h.observe("signup", err)
		h.WriteAppError(w, r, err)
		return
	}

	result, err := h.Flow.Signup(r.Context(), acc, password)
	h.observe("signup", err)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	h.Cookies.SetUntil(w, result.Token, result.ExpiresAt)
	message := "Signup successful! Please verify your email."
	if h.Flow.Policy().VerifyWithOTP {
		message = "Signup successful! Please enter the code sent to your email."
	}
	h.WriteSession(w, http.StatusCreated, message, result.Token, map[string]interface{}{"account": result.Account})
}

func (h *Handler[T]) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.observe("login", err)
		h.WriteAppError(w, r, err)
		return
	}

	result, err := h.Flow.Login(r.Context(), dto.Fields())
	h.observe("login", err)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	if result.OTPRequired {
		h.WriteSuccess(w, http.StatusOK, "OTP sent to you via "+string(result.Method)+" successfully", LoginResponse{
			OTPRequired: true,
			AccountID:   result.AccountID,
			Method:      string(result.Method),
		})
		return
	}

	h.Cookies.SetUntil(w, result.Token, result.ExpiresAt)
	h.WriteSession(w, http.StatusOK, "Logged in successfully", result.Token, map[string]interface{}{"account": result.Account})
}

// Verify handles the link from the verification email.
func (h *Handler[T]) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("id") == "" || q.Get("token") == "" {
		h.WriteAppError(w, r, errors.NewMissingFieldsError([]string{"id", "token"}))
		return
	}

	_, err := h.Flow.VerifyByToken(r.Context(), q.Get("id"), q.Get("token"))
	h.observe("verify", err)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Email verified successfully", nil)
}

func (h *Handler[T]) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var dto VerifyOTPDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	result, err := h.Flow.VerifyByOTP(r.Context(), dto.ID, dto.OTP)
	h.observe("verify_otp", err)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	h.Cookies.SetUntil(w, result.Token, result.ExpiresAt)
	h.WriteSession(w, http.StatusOK, "OTP verified successfully", result.Token, map[string]interface{}{"account": result.Account})
}

func (h *Handler[T]) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var dto PasswordResetRequestDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	err := h.Flow.RequestPasswordReset(r.Context(), dto.Email)
	h.observe("password_reset_request", err)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "If an account with that email exists, a password reset link has been sent", nil)
}

func (h *Handler[T]) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var dto ResetPasswordDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	_, err := h.Flow.ResetPassword(r.Context(), dto.ID, dto.Token, dto.Password, dto.PasswordConfirm)
	h.observe("password_reset", err)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Password updated successfully", nil)
}

// Logout needs no session; it always overwrites the cookie.
func (h *Handler[T]) Logout(w http.ResponseWriter, r *http.Request) {
	h.Cookies.Clear(w)
	h.observe("logout", nil)
	h.WriteSuccess(w, http.StatusOK, "Logged out successfully", nil)
}

func (h *Handler[T]) ConfigureMFA(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.Binder.Current(r.Context())
	if !ok {
		h.WriteAppError(w, r, errors.ErrUnauthenticated)
		return
	}
	var dto ConfigureMFADTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	setup, err := h.Flow.ConfigureMFA(r.Context(), acc, account.MFAMethod(dto.Method))
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	message := "Two-factor authentication enabled"
	if setup.Secret != "" {
		message = "Scan the secret with your authenticator app and confirm with a code"
	}
	h.WriteSuccess(w, http.StatusOK, message, setup)
}

func (h *Handler[T]) ConfirmMFA(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.Binder.Current(r.Context())
	if !ok {
		h.WriteAppError(w, r, errors.ErrUnauthenticated)
		return
	}
	var dto ConfirmMFADTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	if err := h.Flow.ConfirmAuthenticator(r.Context(), acc, dto.Code); err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Authenticator app enabled", nil)
}

func (h *Handler[T]) DisableMFA(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.Binder.Current(r.Context())
	if !ok {
		h.WriteAppError(w, r, errors.ErrUnauthenticated)
		return
	}
	var dto DisableMFADTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	if err := h.Flow.DisableMFA(r.Context(), acc, dto.Password); err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Two-factor authentication disabled", nil)
}
