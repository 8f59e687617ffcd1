package routes

import (
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/handlers"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/middleware"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/models"

	"github.com/gin-gonic/gin"
)

// SetupOrderRoutes wires the order lifecycle endpoints.
func SetupOrderRoutes(r *gin.RouterGroup, orderHandler *handlers.OrderHandler, jwtSecret string) {
	orders := r.Group("/orders")
	orders.Use(middleware.AuthRequired(jwtSecret))
	{
		orders.POST("", middleware.CustomerRequired(), orderHandler.CreateOrder)
		orders.GET("/my", middleware.CustomerRequired(), orderHandler.ListMyOrders)
		orders.GET("/number/:number", orderHandler.GetOrderByNumber)
		orders.GET("/:id", orderHandler.GetOrder)
		orders.PATCH("/:id/status", orderHandler.UpdateStatus)
		orders.POST("/:id/cancel", orderHandler.CancelOrder)
		orders.POST("/:id/rate", middleware.CustomerRequired(), orderHandler.RateOrder)
	}

	restaurant := r.Group("/restaurant/orders")
	restaurant.Use(middleware.AuthRequired(jwtSecret), middleware.RestaurantRequired())
	{
		restaurant.GET("", orderHandler.ListRestaurantOrders)
	}

	admin := r.Group("/admin/orders")
	admin.Use(middleware.AuthRequired(jwtSecret), middleware.RoleRequired(models.RoleAdmin))
	{
		admin.GET("/:id", orderHandler.GetOrder)
		admin.POST("/:id/cancel", orderHandler.CancelOrder)
	}
}
