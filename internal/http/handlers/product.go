package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"shelfscan/internal/backend"
	"shelfscan/internal/category"
	"shelfscan/internal/explain"
	"shelfscan/internal/history"
	"shelfscan/internal/navctx"
	"shelfscan/pkg/models"
)

type ProductHandler struct {
	client       *backend.Client
	nav          *navctx.Context
	explanations *explain.Controller
	history      *history.Store
}

func NewProductHandler(client *backend.Client, nav *navctx.Context, explanations *explain.Controller, historyStore *history.Store) *ProductHandler {
	return &ProductHandler{
		client:       client,
		nav:          nav,
		explanations: explanations,
		history:      historyStore,
	}
}

// ProductDetailResponse is the detail view model. Explanation is nil when
// the enrichment call failed or has not settled; the product and nutrition
// data are always present regardless.
type ProductDetailResponse struct {
	Product          models.Product              `json:"product"`
	Nutrition        map[string]any              `json:"nutrition"`
	Explanation      *models.ExplanationResponse `json:"explanation"`
	ExplanationState string                      `json:"explanation_state"`
	Nutriscore       explain.GradeDisplay        `json:"nutriscore"`
	Ecoscore         explain.GradeDisplay        `json:"ecoscore"`
	Category         category.Info               `json:"category"`
}

// Detail resolves the product detail view for a code: product from the
// navigation handoff or a backend lookup, history append on a fresh scan,
// and the explanation through the lifecycle controller.
func (h *ProductHandler) Detail(c echo.Context) error {
	code := c.Param("code")
	ctx := c.Request().Context()

	product := h.nav.TakeProduct(code)
	if product == nil {
		p, err := h.client.GetProduct(ctx, code)
		if err != nil {
			// Product lookup failure blocks the view.
			log.Error().Err(err).Str("code", code).Msg("Product lookup failed")
			return c.JSON(http.StatusBadGateway, map[string]any{
				"error":     "product not found",
				"retryable": true,
			})
		}
		product = p
	}

	// Only a fresh scan writes history; arriving via the history list or a
	// deep link leaves the log untouched.
	if pending, capturedImage := h.nav.TakePendingSave(code); pending {
		h.history.Append(ctx, product, capturedImage)
	}

	handoff := h.nav.TakeExplanation(code)
	done := h.explanations.Mount(ctx, code, handoff, product)
	select {
	case <-done:
	case <-ctx.Done():
		// The client gave up waiting; respond with whatever has resolved.
	}

	snapshot := h.explanations.Snapshot()
	var explanation *models.ExplanationResponse
	state := explain.StateUnresolved
	if snapshot.Code == code {
		explanation = snapshot.Explanation
		state = snapshot.State
	}

	var predictedNutri, predictedEco string
	if explanation != nil {
		predictedNutri = explanation.PredictedNutriscore
		predictedEco = explanation.PredictedEcoscore
	}

	return c.JSON(http.StatusOK, ProductDetailResponse{
		Product:          *product,
		Nutrition:        product.Nutrition(),
		Explanation:      explanation,
		ExplanationState: state.String(),
		Nutriscore:       explain.DisplayGrade(product.NutriscoreGrade, predictedNutri),
		Ecoscore:         explain.DisplayGrade(product.EcoscoreGrade, predictedEco),
		Category:         category.Classify(product.Categories, category.ParseTags(product.CategoriesTags), product.ProductName),
	})
}

// AlternativesRequest asks for greener alternatives using the full product
// record, avoiding a second lookup by a possibly ambiguous code.
type AlternativesRequest struct {
	Product models.Product `json:"product" validate:"required"`
}

// Alternatives returns greener alternatives for a product code.
func (h *ProductHandler) Alternatives(c echo.Context) error {
	code := c.Param("code")

	products, err := h.client.Recommend(c.Request().Context(), code)
	if err != nil {
		log.Error().Err(err).Str("code", code).Msg("Recommend call failed")
		return c.JSON(http.StatusBadGateway, map[string]any{
			"error":     "recommendations failed",
			"retryable": true,
		})
	}
	return c.JSON(http.StatusOK, products)
}

// AlternativesFromProduct returns greener alternatives computed from the
// posted product fields.
func (h *ProductHandler) AlternativesFromProduct(c echo.Context) error {
	var req AlternativesRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.Product.ProductCode == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "product_code is required"})
	}

	products, err := h.client.RecommendFromProduct(c.Request().Context(), &req.Product)
	if err != nil {
		log.Error().Err(err).Str("code", req.Product.ProductCode).Msg("Recommend call failed")
		return c.JSON(http.StatusBadGateway, map[string]any{
			"error":     "recommendations failed",
			"retryable": true,
		})
	}
	return c.JSON(http.StatusOK, products)
}
