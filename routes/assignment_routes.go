package routes

import (
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/handlers"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupAssignmentRoutes wires the rider-facing dispatch endpoints.
func SetupAssignmentRoutes(r *gin.RouterGroup, assignmentHandler *handlers.AssignmentHandler, jwtSecret string) {
	rider := r.Group("/rider")
	rider.Use(middleware.AuthRequired(jwtSecret), middleware.RiderRequired())
	{
		rider.GET("/orders/open", assignmentHandler.OpenOrders)
		rider.POST("/orders/:id/accept", assignmentHandler.AcceptOrder)
		rider.POST("/orders/:id/release", assignmentHandler.ReleaseOrder)
		rider.PUT("/location", assignmentHandler.UpdateLocation)
		rider.PUT("/availability", assignmentHandler.SetOnline)
	}

	admin := r.Group("/admin/dispatch")
	admin.Use(middleware.AuthRequired(jwtSecret), middleware.AdminRequired())
	{
		admin.GET("/restaurants/:restaurantId/candidates", assignmentHandler.CandidateRiders)
		admin.POST("/orders/:id/reassign", assignmentHandler.ReassignOrder)
	}
}
