package controllers

import (
	"context"
	"net/http"

	"github.com/aelharati/brandpulse-backend/api/responses"
	"github.com/aelharati/brandpulse-backend/api/validators"
	"github.com/aelharati/brandpulse-backend/internal/extraction"
	pkgerrors "github.com/aelharati/brandpulse-backend/pkg/errors"
	"github.com/aelharati/brandpulse-backend/pkg/logger"
)

// Analyzer extracts structured invoice data from an image.
type Analyzer interface {
	Analyze(ctx context.Context, req extraction.AnalyzeRequest) (*extraction.Extraction, error)
}

// AnalyzeInvoice handles POST /v1/invoices/analyze.
func AnalyzeInvoice(svc Analyzer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "extraction service unavailable"))
			return
		}

		var req extraction.AnalyzeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if req.ImageURL == "" && req.ImageBase64 == "" {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "provide either imageUrl or imageBase64"))
			return
		}

		result, err := svc.Analyze(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
