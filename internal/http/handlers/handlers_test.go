package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"shelfscan/internal/app"
	"shelfscan/internal/backend"
	"shelfscan/internal/explain"
	"shelfscan/internal/history"
	"shelfscan/internal/navctx"
	"shelfscan/internal/storage"
	"shelfscan/pkg/models"
)

type testValidator struct {
	validator *validator.Validate
}

func (v *testValidator) Validate(i interface{}) error {
	if err := v.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// backendCalls counts requests per backend route so tests can assert which
// calls a flow did (and did not) make.
type backendCalls struct {
	identify int32
	product  int32
	explain  int32
}

func newTestEnv(t *testing.T, confident bool, explainStatus int) (*echo.Echo, *app.Services, *backendCalls) {
	t.Helper()
	calls := &backendCalls{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/identify":
			atomic.AddInt32(&calls.identify, 1)
			json.NewEncoder(w).Encode(map[string]any{
				"gemini_guesses": []string{"cola zero"},
				"best_match": map[string]any{
					"product_code": "123", "product_name": "Cola Zero",
					"brands": "Acme", "confidence": 0.93, "ecoscore_grade": "c",
				},
				"best_match_explanation": map[string]any{
					"nutrition_summary": "Zero sugar, heavy sweeteners.",
					"advice":            "Water is greener.",
				},
				"candidates": []map[string]any{{
					"product_code": "123", "product_name": "Cola Zero",
					"brands": "Acme", "categories": "Beverages, Sodas",
					"nutriscore_grade": "", "ecoscore_grade": "c",
					"confidence": 0.93,
				}},
				"needs_confirmation": !confident,
			})
		case strings.HasPrefix(r.URL.Path, "/api/product/"):
			atomic.AddInt32(&calls.product, 1)
			json.NewEncoder(w).Encode(map[string]any{
				"product_code": "456", "product_name": "Lentil Soup",
				"categories": "Soups", "nutriscore_grade": "a",
			})
		case strings.HasPrefix(r.URL.Path, "/api/explain"):
			atomic.AddInt32(&calls.explain, 1)
			if explainStatus != http.StatusOK {
				http.Error(w, "explain unavailable", explainStatus)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"nutrition_summary": "Balanced.",
				"advice":            "Good pick.",
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	kv := storage.NewMemoryStore()
	client := backend.NewClient(server.URL)
	cache := explain.NewCache(kv)
	services := &app.Services{
		KV:           kv,
		Backend:      client,
		NavContext:   navctx.New(),
		Explanations: explain.NewController(client, cache),
		Cache:        cache,
		History:      history.NewStore(kv),
	}

	e := echo.New()
	e.Validator = &testValidator{validator: validator.New()}
	SetupRoutes(e.Group("/api/v1"), services)
	return e, services, calls
}

func postJSON(e *echo.Echo, path string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(raw)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func get(e *echo.Echo, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func scanBody() map[string]string {
	return map[string]string{
		"image_base64": base64.StdEncoding.EncodeToString([]byte("fake-jpeg")),
		"image_name":   "capture.jpg",
	}
}

// A confident identification with a single candidate resolves straight to
// the detail view: no selection step, no re-query of the product, and the
// pre-fetched explanation is used as-is.
func TestScanAutoResolvesToDetail(t *testing.T) {
	e, services, calls := newTestEnv(t, true, http.StatusOK)

	rec := postJSON(e, "/api/v1/scan", scanBody())
	if rec.Code != http.StatusOK {
		t.Fatalf("scan status = %d, body %s", rec.Code, rec.Body.String())
	}

	var scanResp ScanResponse
	json.Unmarshal(rec.Body.Bytes(), &scanResp)
	if !scanResp.AutoResolved {
		t.Fatal("expected auto_resolved = true")
	}
	if scanResp.ProductLocation != "/api/v1/products/123" {
		t.Fatalf("product_location = %q", scanResp.ProductLocation)
	}

	rec = get(e, scanResp.ProductLocation)
	if rec.Code != http.StatusOK {
		t.Fatalf("detail status = %d, body %s", rec.Code, rec.Body.String())
	}

	var detail ProductDetailResponse
	json.Unmarshal(rec.Body.Bytes(), &detail)
	if detail.Product.ProductName != "Cola Zero" {
		t.Errorf("product_name = %q, expected the handoff candidate", detail.Product.ProductName)
	}
	if detail.Explanation == nil || detail.Explanation.Advice != "Water is greener." {
		t.Errorf("explanation = %+v, expected the pre-fetched one", detail.Explanation)
	}
	if detail.ExplanationState != "locked_from_handoff" {
		t.Errorf("explanation_state = %q", detail.ExplanationState)
	}
	if detail.Category.Label != "Drinks" {
		t.Errorf("category = %+v, expected Drinks", detail.Category)
	}

	if n := atomic.LoadInt32(&calls.product); n != 0 {
		t.Errorf("product lookup called %d times, expected 0 (handoff)", n)
	}
	if n := atomic.LoadInt32(&calls.explain); n != 0 {
		t.Errorf("explain called %d times, expected 0 (handoff)", n)
	}

	// A fresh scan creates exactly one history entry.
	entries := services.History.List(context.Background())
	if len(entries) != 1 || entries[0].ProductCode != "123" {
		t.Errorf("history = %+v, expected one entry for 123", entries)
	}

	// Re-visiting the detail view is not a fresh scan: no second entry.
	get(e, scanResp.ProductLocation)
	if got := len(services.History.List(context.Background())); got != 1 {
		t.Errorf("history has %d entries after re-visit, expected 1", got)
	}
}

func TestScanNeedsConfirmationDoesNotResolve(t *testing.T) {
	e, services, _ := newTestEnv(t, false, http.StatusOK)

	rec := postJSON(e, "/api/v1/scan", scanBody())
	var scanResp ScanResponse
	json.Unmarshal(rec.Body.Bytes(), &scanResp)
	if scanResp.AutoResolved {
		t.Error("expected auto_resolved = false when confirmation is needed")
	}
	if len(services.History.List(context.Background())) != 0 {
		t.Error("history written before the user confirmed a candidate")
	}
}

func TestSelectThenDetailSavesHistory(t *testing.T) {
	e, services, calls := newTestEnv(t, false, http.StatusOK)

	rec := postJSON(e, "/api/v1/scan/select", map[string]any{
		"product": map[string]any{
			"product_code": "123", "product_name": "Cola Zero",
			"categories": "Beverages",
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("select status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = get(e, "/api/v1/products/123")
	if rec.Code != http.StatusOK {
		t.Fatalf("detail status = %d", rec.Code)
	}
	if n := atomic.LoadInt32(&calls.product); n != 0 {
		t.Errorf("product lookup called %d times, expected 0 (selection handoff)", n)
	}

	entries := services.History.List(context.Background())
	if len(entries) != 1 || entries[0].ProductCode != "123" {
		t.Errorf("history = %+v, expected one entry for 123", entries)
	}
}

func TestDetailWithoutHandoffFetchesEverything(t *testing.T) {
	e, services, calls := newTestEnv(t, true, http.StatusOK)

	rec := get(e, "/api/v1/products/456")
	if rec.Code != http.StatusOK {
		t.Fatalf("detail status = %d, body %s", rec.Code, rec.Body.String())
	}

	var detail ProductDetailResponse
	json.Unmarshal(rec.Body.Bytes(), &detail)
	if detail.Product.ProductName != "Lentil Soup" {
		t.Errorf("product_name = %q", detail.Product.ProductName)
	}
	if detail.ExplanationState != "settled" {
		t.Errorf("explanation_state = %q, expected settled", detail.ExplanationState)
	}
	if detail.Nutriscore.Grade != "a" || detail.Nutriscore.Predicted {
		t.Errorf("nutriscore = %+v, expected authoritative a", detail.Nutriscore)
	}

	if n := atomic.LoadInt32(&calls.product); n != 1 {
		t.Errorf("product lookup called %d times, expected 1", n)
	}
	if n := atomic.LoadInt32(&calls.explain); n != 1 {
		t.Errorf("explain called %d times, expected 1", n)
	}

	// Deep navigation is not a scan: nothing in history.
	if got := len(services.History.List(context.Background())); got != 0 {
		t.Errorf("history has %d entries after deep navigation, expected 0", got)
	}
}

// Explanation failure never blocks the view: product and nutrition stay
// usable, only the enrichment is absent.
func TestDetailSurvivesExplainFailure(t *testing.T) {
	e, _, _ := newTestEnv(t, true, http.StatusInternalServerError)

	rec := get(e, "/api/v1/products/456")
	if rec.Code != http.StatusOK {
		t.Fatalf("detail status = %d, expected 200 despite explain failure", rec.Code)
	}

	var detail ProductDetailResponse
	json.Unmarshal(rec.Body.Bytes(), &detail)
	if detail.Explanation != nil {
		t.Errorf("explanation = %+v, expected nil", detail.Explanation)
	}
	if detail.ExplanationState != "failed" {
		t.Errorf("explanation_state = %q, expected failed", detail.ExplanationState)
	}
	if detail.Product.ProductName != "Lentil Soup" {
		t.Error("product data lost on explanation failure")
	}
}

func TestScanRejectsMissingImage(t *testing.T) {
	e, _, calls := newTestEnv(t, true, http.StatusOK)

	rec := postJSON(e, "/api/v1/scan", map[string]string{"image_name": "x.jpg"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, expected 400", rec.Code)
	}
	if n := atomic.LoadInt32(&calls.identify); n != 0 {
		t.Errorf("identify called %d times for invalid request, expected 0", n)
	}
}

func TestHistoryEndpoints(t *testing.T) {
	e, services, _ := newTestEnv(t, true, http.StatusOK)

	ctx := context.Background()
	first := services.History.Append(ctx, &models.Product{ProductCode: "a", ProductName: "A"}, "")
	services.History.Append(ctx, &models.Product{ProductCode: "b", ProductName: "B"}, "")

	rec := get(e, "/api/v1/history")
	var entries []models.ScanHistoryEntry
	json.Unmarshal(rec.Body.Bytes(), &entries)
	if len(entries) != 2 || entries[0].ProductCode != "b" {
		t.Fatalf("history list = %+v", entries)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/history/"+first.ID, nil)
	del := httptest.NewRecorder()
	e.ServeHTTP(del, req)
	if del.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", del.Code)
	}
	if got := services.History.List(ctx); len(got) != 1 || got[0].ProductCode != "b" {
		t.Errorf("history after delete = %+v", got)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/history", nil)
	cleared := httptest.NewRecorder()
	e.ServeHTTP(cleared, req)
	if cleared.Code != http.StatusNoContent {
		t.Errorf("clear status = %d", cleared.Code)
	}
	if got := services.History.List(ctx); len(got) != 0 {
		t.Errorf("history after clear = %+v", got)
	}
}
