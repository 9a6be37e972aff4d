package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/jmail/domaincheck/internal/core"
	apperrors "github.com/jmail/domaincheck/internal/errors"
	"github.com/jmail/domaincheck/internal/observability"
)

const maxCheckBodyBytes = 64 << 10

// DomainVerifier runs every check for one raw domain.
type DomainVerifier interface {
	Check(ctx context.Context, rawDomain string) (*core.DomainCheckReport, error)
}

// CheckDomainHandler serves POST /api/check-domain.
type CheckDomainHandler struct {
	Verifier DomainVerifier
	// ExposeDetails adds the underlying error message to 500 bodies.
	ExposeDetails bool
}

type checkDomainRequest struct {
	Domain any `json:"domain"`
}

// ServeHTTP always answers 200 with a report once the domain is accepted,
// whatever the individual checks found.
func (h *CheckDomainHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req checkDomainRequest
	body := http.MaxBytesReader(w, r.Body, maxCheckBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		h.fail(w, r, fmt.Errorf("decode request body: %w", err))
		return
	}

	domain, ok := req.Domain.(string)
	if !ok || domain == "" {
		apperrors.RespondWithAPIError(w, r, http.StatusBadRequest, "Domain is required", "", nil)
		return
	}

	if h.Verifier == nil {
		h.fail(w, r, fmt.Errorf("domain verifier is not configured"))
		return
	}

	report, err := h.Verifier.Check(r.Context(), domain)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if logger := observability.ServerLogger; logger != nil {
		logger.Info("Domain checked",
			zap.String("domain", report.Domain),
			zap.Int("failed_checks", len(report.Errors)))
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *CheckDomainHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	details := ""
	if h.ExposeDetails {
		details = strings.TrimPrefix(err.Error(), "decode request body: ")
	}
	apperrors.RespondWithAPIError(w, r, http.StatusInternalServerError, "Failed to check domain", details, err)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
