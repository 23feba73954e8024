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
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/finestafrica/agencyedge/internal/identity"
	"github.com/finestafrica/agencyedge/internal/observability/logger"
	"github.com/finestafrica/agencyedge/internal/tenant"
)

const adminActor = "admin-api"

// CheckAvailability reports whether a subdomain can still be claimed
// @Summary Subdomain availability
// @Tags Agency
// @Produce json
// @Param subdomain query string true "Subdomain"
// @Success 200 {object} map[string]any
// @Router /api/agencies/availability [get]
func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	subdomain := tenant.NormalizeSubdomain(r.URL.Query().Get("subdomain"))
	if err := tenant.ValidateSubdomain(subdomain); err != nil {
		respondJSON(w, http.StatusOK, map[string]any{
			"subdomain": subdomain,
			"available": false,
			"reason":    err.Error(),
		})
		return
	}

	available, err := h.directory.CheckAvailability(r.Context(), subdomain)
	if err != nil {
		slog.ErrorContext(r.Context(), "availability check failed", logger.Subdomain(subdomain), logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to check availability")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"subdomain": subdomain,
		"available": available,
	})
}

// CreateAgency handles agency creation
// @Summary Create Agency
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body tenant.CreateTenantInput true "Agency Data"
// @Success 201 {object} tenant.Tenant
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/admin/agencies [post]
func (h *Handler) CreateAgency(w http.ResponseWriter, r *http.Request) {
	var req tenant.CreateTenantInput
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.tenants.CreateTenant(r.Context(), adminActor, req)
	if err != nil {
		switch {
		case errors.Is(err, tenant.ErrSubdomainTaken):
			respondJSON(w, http.StatusConflict, map[string]string{
				"error":   "subdomain_taken",
				"message": "This subdomain is already in use",
			})
		case errors.Is(err, tenant.ErrInvalidSubdomain), errors.Is(err, tenant.ErrInvalidTenant):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			slog.ErrorContext(r.Context(), "failed to create agency", logger.Subdomain(req.Subdomain), logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to create agency")
		}
		return
	}

	respondJSON(w, http.StatusCreated, t)
}

// ListAgencies lists agencies, newest first
// @Summary List Agencies
// @Tags Admin
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} map[string]any
// @Router /api/admin/agencies [get]
func (h *Handler) ListAgencies(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	agencies, err := h.tenants.ListTenants(r.Context(), limit, offset)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list agencies", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list agencies")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"agencies": agencies,
		"count":    len(agencies),
	})
}

// GetAgency returns a single agency by ID
func (h *Handler) GetAgency(w http.ResponseWriter, r *http.Request) {
	t, err := h.tenants.GetTenant(r.Context(), chi.URLParam(r, "agencyID"))
	if err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			respondError(w, http.StatusNotFound, "agency not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to get agency", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to get agency")
		return
	}
	respondJSON(w, http.StatusOK, t)
}

// ProvisionUserRequest represents agency user provisioning data
type ProvisionUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// ProvisionAgencyUser creates a login for an agency
// @Summary Provision Agency User
// @Tags Admin
// @Accept json
// @Produce json
// @Param agencyID path string true "Agency ID"
// @Param request body ProvisionUserRequest true "User Data"
// @Success 201 {object} map[string]any
// @Router /api/admin/agencies/{agencyID}/users [post]
func (h *Handler) ProvisionAgencyUser(w http.ResponseWriter, r *http.Request) {
	agencyID := chi.URLParam(r, "agencyID")
	if _, err := h.tenants.GetTenant(r.Context(), agencyID); err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			respondError(w, http.StatusNotFound, "agency not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get agency")
		return
	}

	var req ProvisionUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.users.CreateUser(r.Context(), agencyID, req.Email, req.Name, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrUserAlreadyExists):
			respondError(w, http.StatusConflict, "user already exists")
		case errors.Is(err, identity.ErrInvalidEmail):
			respondError(w, http.StatusBadRequest, "invalid email address")
		case errors.Is(err, identity.ErrWeakPassword):
			respondError(w, http.StatusBadRequest, "password does not meet security requirements")
		default:
			slog.ErrorContext(r.Context(), "failed to provision user", logger.TenantID(agencyID), logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to create user")
		}
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"user_id":   user.ID,
		"agency_id": user.TenantID,
		"email":     user.Email,
		"name":      user.Name,
	})
}
