package handlers

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"shelfscan/internal/backend"
	"shelfscan/internal/navctx"
	"shelfscan/pkg/models"
)

type ScanHandler struct {
	client *backend.Client
	nav    *navctx.Context
}

func NewScanHandler(client *backend.Client, nav *navctx.Context) *ScanHandler {
	return &ScanHandler{client: client, nav: nav}
}

// ScanRequest carries a captured image for identification. The image is a
// base64 string, optionally in data-URL form as produced by the capture UI.
type ScanRequest struct {
	ImageBase64 string `json:"image_base64" validate:"required"`
	ImageName   string `json:"image_name"`
}

// ScanResponse is the identification result plus the navigation outcome.
// When the backend is confident and there is exactly one obvious candidate,
// AutoResolved is set and ProductLocation points straight at the detail
// view; no user selection step is needed.
type ScanResponse struct {
	models.IdentifyResponse
	AutoResolved    bool   `json:"auto_resolved"`
	ProductLocation string `json:"product_location,omitempty"`
}

// SelectRequest is the user's pick from the candidate list.
type SelectRequest struct {
	Product       models.Product `json:"product" validate:"required"`
	CapturedImage string         `json:"captured_image"`
}

// Scan identifies a captured product photo.
func (h *ScanHandler) Scan(c echo.Context) error {
	var req ScanRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	image, err := decodeImage(req.ImageBase64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid image data"})
	}

	result, err := h.client.Identify(c.Request().Context(), image, req.ImageName)
	if err != nil {
		log.Error().Err(err).Msg("Identify call failed")
		return c.JSON(http.StatusBadGateway, map[string]any{
			"error":     "identification failed, please try again",
			"retryable": true,
		})
	}

	resp := ScanResponse{IdentifyResponse: *result}

	// Confident single match: hand the candidate (and any pre-fetched
	// explanation) to the detail view so it does not re-query the backend,
	// which can return the wrong record for duplicated codes.
	if !result.NeedsConfirmation && result.BestMatch != nil && len(result.Candidates) > 0 {
		code := result.BestMatch.ProductCode
		product := result.Candidates[0].Product
		h.nav.PutProduct(code, &product)
		if result.BestMatchExplanation != nil {
			h.nav.PutExplanation(code, result.BestMatchExplanation)
		}
		h.nav.MarkPendingSave(code, req.ImageName)

		resp.AutoResolved = true
		resp.ProductLocation = "/api/v1/products/" + code
	}

	return c.JSON(http.StatusOK, resp)
}

// Select stashes the candidate the user picked and returns where the detail
// view lives. Selection counts as a fresh scan for history purposes.
func (h *ScanHandler) Select(c echo.Context) error {
	var req SelectRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.Product.ProductCode == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "product_code is required"})
	}

	code := req.Product.ProductCode
	product := req.Product
	h.nav.PutProduct(code, &product)
	h.nav.MarkPendingSave(code, req.CapturedImage)

	return c.JSON(http.StatusOK, map[string]string{
		"product_location": "/api/v1/products/" + code,
	})
}

// decodeImage accepts plain base64 or a data URL.
func decodeImage(raw string) ([]byte, error) {
	if idx := strings.Index(raw, ";base64,"); idx >= 0 {
		raw = raw[idx+len(";base64,"):]
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(raw))
}
