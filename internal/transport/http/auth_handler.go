// Copyright 2026 The Agency Edge Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/finestafrica/agencyedge/internal/audit"
	"github.com/finestafrica/agencyedge/internal/identity"
	"github.com/finestafrica/agencyedge/internal/observability/logger"
	"github.com/finestafrica/agencyedge/internal/passwordreset"
	"github.com/finestafrica/agencyedge/internal/tenant"
)

// Branding is the public face of an agency shown on its login page.
type Branding struct {
	Name           string  `json:"name"`
	Subdomain      string  `json:"subdomain"`
	LogoURL        *string `json:"logo_url,omitempty"`
	PrimaryColor   string  `json:"primary_color"`
	SecondaryColor string  `json:"secondary_color"`
}

func brandingOf(t *tenant.Tenant) Branding {
	return Branding{
		Name:           t.Name,
		Subdomain:      t.Subdomain,
		LogoURL:        t.LogoURL,
		PrimaryColor:   t.PrimaryColor,
		SecondaryColor: t.SecondaryColor,
	}
}

// AgencyHome returns the agency branding for the site root
func (h *Handler) AgencyHome(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"agency": brandingOf(GetAgency(r.Context())),
	})
}

// LoginPage returns the branding the login screen renders
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"agency": brandingOf(GetAgency(r.Context())),
		"next":   r.URL.Query().Get("next"),
	})
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates against the current agency and starts a session
// @Summary Login
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} session.Principal
// @Failure 401 {object} map[string]string
// @Router /agency/{subdomain}/auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	agency := GetAgency(r.Context())

	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.users.Authenticate(r.Context(), agency.ID, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		slog.ErrorContext(r.Context(), "authentication failed", logger.TenantID(agency.ID), logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to sign in")
		return
	}

	raw, sess, err := h.sessions.Create(r.Context(), user.ID, 0, clientMeta(r))
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to create session", logger.UserID(user.ID), logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	h.setSessionCookie(w, raw)

	respondJSON(w, http.StatusOK, map[string]any{
		"user_id":          user.ID,
		"agency_id":        agency.ID,
		"email":            user.Email,
		"name":             user.Name,
		"agency_name":      agency.Name,
		"agency_subdomain": agency.Subdomain,
		"expires_at":       sess.ExpiresAt,
	})
}

// Logout revokes the current session. It succeeds without a session too.
// A session that belongs to another agency is left alone; only the local
// cookie is cleared.
// @Summary Logout
// @Tags Auth
// @Produce json
// @Success 200 {object} map[string]string
// @Router /agency/{subdomain}/auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	agency := GetAgency(r.Context())
	if raw := h.getSessionFromCookie(r); raw != "" && agency != nil {
		p, err := h.sessions.Validate(r.Context(), raw)
		switch {
		case err != nil:
			// expired or unknown, nothing to revoke
		case p.TenantID != agency.ID:
			slog.WarnContext(r.Context(), "logout with session of foreign agency",
				logger.UserID(p.UserID),
				logger.TenantID(agency.ID),
			)
		default:
			if err := h.sessions.Delete(r.Context(), raw); err != nil {
				slog.ErrorContext(r.Context(), "failed to delete session", logger.Error(err))
			}
			h.auditLogger.Log(r.Context(), audit.Event{
				Type:      audit.TypeLogout,
				TenantID:  p.TenantID,
				ActorID:   p.UserID,
				Resource:  "session",
				IPAddress: getClientIP(r),
				UserAgent: r.UserAgent(),
			})
		}
	}

	h.clearSessionCookie(w)

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "logged out successfully",
	})
}

// GetCurrentUser returns the authenticated principal
// @Summary Current user
// @Tags Auth
// @Produce json
// @Success 200 {object} session.Principal
// @Failure 401 {object} map[string]string
// @Router /agency/{subdomain}/auth/me [get]
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, GetPrincipal(r.Context()))
}

// Dashboard returns the data the agency dashboard renders
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"agency": brandingOf(GetAgency(r.Context())),
		"user":   GetPrincipal(r.Context()),
	})
}

// ForgotPasswordRequest represents a reset link request
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

const forgotPasswordMessage = "If an account exists for this email, a reset link has been sent."

// ForgotPassword emails a reset link. The response never reveals whether
// the email belongs to an account.
// @Summary Request password reset
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body ForgotPasswordRequest true "Email"
// @Success 200 {object} map[string]string
// @Router /agency/{subdomain}/auth/forgot-password [post]
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	agency := GetAgency(r.Context())

	var req ForgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email != "" {
		if err := h.resets.RequestReset(r.Context(), agency, req.Email, clientMeta(r)); err != nil {
			slog.ErrorContext(r.Context(), "password reset request failed",
				logger.TenantID(agency.ID),
				logger.Error(err),
			)
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": forgotPasswordMessage,
	})
}

// ValidateResetToken reports whether a reset link is still usable for this agency
// @Summary Validate reset token
// @Tags Auth
// @Produce json
// @Param token query string true "Reset token"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /agency/{subdomain}/auth/reset-password/validate [get]
func (h *Handler) ValidateResetToken(w http.ResponseWriter, r *http.Request) {
	if !h.resetTokenValid(r, r.URL.Query().Get("token")) {
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"valid": false,
			"error": passwordreset.ErrInvalidToken.Error(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"valid": true})
}

// ResetPasswordPage serves the target of the emailed reset link
func (h *Handler) ResetPasswordPage(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"agency": brandingOf(GetAgency(r.Context())),
		"valid":  h.resetTokenValid(r, r.URL.Query().Get("token")),
	})
}

// resetTokenValid checks the token without consuming it and confirms it
// was minted for a user of the current agency.
func (h *Handler) resetTokenValid(r *http.Request, raw string) bool {
	agency := GetAgency(r.Context())

	userID, err := h.resets.Validate(r.Context(), raw)
	if err == nil {
		var user *identity.User
		user, err = h.users.GetUser(r.Context(), userID)
		if err == nil && user.TenantID != agency.ID {
			err = passwordreset.ErrInvalidToken
		}
	}
	if err != nil {
		if !errors.Is(err, passwordreset.ErrInvalidToken) && !errors.Is(err, identity.ErrUserNotFound) {
			slog.ErrorContext(r.Context(), "reset token validation failed", logger.Error(err))
		}
		return false
	}
	return true
}

// ResetPasswordRequest represents a password reset submission
type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ResetPassword redeems a reset token and sets a new password
// @Summary Reset password
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "Token and new password"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /agency/{subdomain}/auth/reset-password [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	agency := GetAgency(r.Context())

	var req ResetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.resets.ResetPassword(r.Context(), agency.ID, req.Token, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, passwordreset.ErrInvalidToken):
			respondError(w, http.StatusBadRequest, passwordreset.ErrInvalidToken.Error())
		case errors.Is(err, identity.ErrWeakPassword):
			respondError(w, http.StatusBadRequest, "password does not meet security requirements")
		default:
			slog.ErrorContext(r.Context(), "password reset failed", logger.TenantID(agency.ID), logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to reset password")
		}
		return
	}

	h.clearSessionCookie(w)

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "password has been reset",
	})
}

// ChangePasswordRequest represents password change data
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword changes the password of the signed-in user. Every session
// is revoked by the change; the caller gets a fresh one.
// @Summary Change Password
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body ChangePasswordRequest true "Password Change Data"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /agency/{subdomain}/auth/change-password [post]
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	var req ChangePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.users.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidCredentials):
			respondError(w, http.StatusUnauthorized, "invalid current password")
		case errors.Is(err, identity.ErrWeakPassword):
			respondError(w, http.StatusBadRequest, "new password does not meet security requirements")
		default:
			slog.ErrorContext(r.Context(), "failed to change password", logger.UserID(userID), logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to change password")
		}
		return
	}

	raw, _, err := h.sessions.Create(r.Context(), userID, 0, clientMeta(r))
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to re-issue session", logger.UserID(userID), logger.Error(err))
		h.clearSessionCookie(w)
	} else {
		h.setSessionCookie(w, raw)
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "password changed successfully",
	})
}
