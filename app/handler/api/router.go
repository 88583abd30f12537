package handler

import (
	"storefront/pkg/metrics"

	"github.com/gofiber/fiber/v2"
)

func SetupCatalogRouter(app *fiber.App, productHandler *ProductHandler) {
	app.Get("/metrics", metrics.Handler())

	products := app.Group("/products")
	products.Get("/", productHandler.GetAll)
	products.Post("/", productHandler.Create)
	products.Get("/:id", productHandler.GetByID)
	products.Put("/:id", productHandler.Update)
	products.Delete("/:id", productHandler.Delete)
}

func SetupBasketRouter(app *fiber.App, basketHandler *BasketHandler) {
	app.Get("/metrics", metrics.Handler())

	basket := app.Group("/basket")
	basket.Get("/:user_name", basketHandler.Get)
	basket.Post("/", basketHandler.Store)
	basket.Delete("/:user_name", basketHandler.Delete)
}
