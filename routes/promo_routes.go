package routes

import (
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/handlers"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupPromoRoutes wires promo validation for customers and the admin
// management surface.
func SetupPromoRoutes(r *gin.RouterGroup, promoHandler *handlers.PromoHandler, jwtSecret string) {
	promos := r.Group("/promos")
	promos.Use(middleware.AuthRequired(jwtSecret))
	{
		promos.POST("/validate", middleware.CustomerRequired(), promoHandler.ValidatePromo)
	}

	admin := r.Group("/admin/promos")
	admin.Use(middleware.AuthRequired(jwtSecret), middleware.AdminRequired())
	{
		admin.POST("", promoHandler.CreatePromo)
		admin.GET("", promoHandler.ListPromos)
		admin.GET("/:id", promoHandler.GetPromo)
		admin.PATCH("/:id", promoHandler.UpdatePromo)
		admin.DELETE("/:id", promoHandler.DeletePromo)
	}
}
