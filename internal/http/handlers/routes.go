package handlers

import (
	"github.com/labstack/echo/v4"

	"shelfscan/internal/app"
)

// SetupRoutes sets up all API routes
func SetupRoutes(api *echo.Group, services *app.Services) {
	scanHandler := NewScanHandler(services.Backend, services.NavContext)
	productHandler := NewProductHandler(services.Backend, services.NavContext, services.Explanations, services.History)
	historyHandler := NewHistoryHandler(services.History)

	api.POST("/scan", scanHandler.Scan)
	api.POST("/scan/select", scanHandler.Select)

	api.GET("/products/:code", productHandler.Detail)
	api.GET("/products/:code/alternatives", productHandler.Alternatives)
	api.POST("/alternatives", productHandler.AlternativesFromProduct)

	api.GET("/history", historyHandler.List)
	api.DELETE("/history/:id", historyHandler.Delete)
	api.DELETE("/history", historyHandler.Clear)
}
