package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/tambolalive/tambola-backend/controllers"
)

func SetupRoutes(r *gin.Engine, rooms *controllers.RoomsController) {
	api := r.Group("/api")

	// ----------------------
	// Game routes
	// ----------------------
	g := api.Group("/game")
	g.POST("/create", rooms.CreateRoom)      // Open a room (host)
	g.GET("/active", rooms.ListActive)       // List joinable rooms
	g.GET("/:code", rooms.RoomStatus)        // Room snapshot
	g.POST("/:code/start", rooms.ForceStart) // Host-forced start
	g.POST("/buy-ticket", rooms.BuyTicket)   // Capture charge + issue tickets
}
