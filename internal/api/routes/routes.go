// server/internal/api/routes/routes.go
package routes

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"freight-bid-api-server/config"
	"freight-bid-api-server/internal/api/handlers"
	"freight-bid-api-server/internal/api/middleware"
	"freight-bid-api-server/internal/bidding"
	"freight-bid-api-server/internal/socket"
)

// SetupRouter wires the handlers onto the Gin engine.
func SetupRouter(
	cfg config.Config,
	db *mongo.Database,
	bidService *bidding.Service,
	wsHub *socket.Hub,
) *gin.Engine {
	router := gin.Default()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORS.AllowedOrigins
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	if len(corsConfig.AllowOrigins) == 1 && corsConfig.AllowOrigins[0] == "*" {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	userHandler := &handlers.UserHandler{DB: db, Cfg: cfg}
	loadHandler := &handlers.LoadHandler{DB: db, Service: bidService}
	bidHandler := &handlers.BidHandler{Service: bidService}
	webSocketHandler := &handlers.WebSocketHandler{Hub: wsHub}

	apiV1 := router.Group("/api/v1")
	{
		apiV1.GET("/ws", webSocketHandler.ServeWs)

		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", userHandler.Register)
			auth.POST("/login", userHandler.Login)
		}

		// The load board itself is public to browse.
		public := apiV1.Group("/")
		{
			public.GET("/loads", loadHandler.GetLoads)
			public.GET("/loads/:id", loadHandler.GetLoad)
		}

		authenticated := apiV1.Group("/")
		authenticated.Use(middleware.Authenticate())
		{
			authenticated.GET("/auth/me", userHandler.GetMe)
			authenticated.GET("/loads/:id/bids", bidHandler.GetBidsForLoad)
			authenticated.GET("/loads/:id/bids/lowest", bidHandler.GetLowestBid)
			authenticated.GET("/bids/:id", bidHandler.GetBid)
			authenticated.PUT("/loads/:id/status", loadHandler.UpdateLoadStatus)

			shipperRoutes := authenticated.Group("/")
			shipperRoutes.Use(middleware.Authorize("shipper"))
			{
				shipperRoutes.POST("/loads", loadHandler.CreateLoad)
				shipperRoutes.GET("/loads/my", loadHandler.GetMyLoads)
				shipperRoutes.PUT("/loads/:id", loadHandler.UpdateLoad)
				shipperRoutes.DELETE("/loads/:id", loadHandler.DeleteLoad)
				shipperRoutes.PUT("/loads/:id/cancel", loadHandler.CancelLoad)
				shipperRoutes.GET("/bids/received", bidHandler.GetReceivedBids)
				shipperRoutes.PUT("/bids/:id/accept", bidHandler.AcceptBid)
			}

			truckerRoutes := authenticated.Group("/")
			truckerRoutes.Use(middleware.Authorize("trucker"))
			{
				truckerRoutes.POST("/loads/:id/bids", bidHandler.CreateBid)
				truckerRoutes.GET("/bids/my", bidHandler.GetMyBids)
				truckerRoutes.PUT("/bids/:id/withdraw", bidHandler.WithdrawBid)
			}
		}
	}

	return router
}
