package main

import (
	"os"

	"github.com/NIU1603490/eraswap-sub000/config"
	"github.com/NIU1603490/eraswap-sub000/handlers"
	"github.com/NIU1603490/eraswap-sub000/internal/eventbus"
	"github.com/NIU1603490/eraswap-sub000/internal/ws"
	"github.com/NIU1603490/eraswap-sub000/middleware"
	"github.com/NIU1603490/eraswap-sub000/models"
	"github.com/NIU1603490/eraswap-sub000/services"
	"github.com/NIU1603490/eraswap-sub000/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg := config.LoadConfig()

	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not connect to database")
	}
	if err := config.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Could not migrate database")
	}

	// Domain event publishing is optional; without a broker the services
	// simply skip it.
	var events services.EventPublisher
	if cfg.AMQPURL != "" {
		publisher, err := eventbus.Connect(cfg.AMQPURL, cfg.AMQPExchange, log.Logger)
		if err != nil {
			log.Warn().Err(err).Msg("Event bus unavailable, domain events disabled")
		} else {
			defer publisher.Close()
			events = publisher
		}
	}

	hub := ws.NewHub(log.Logger)
	go hub.Run()

	transactionSvc := services.NewTransactionService(db, events, log.Logger)
	conversationSvc := services.NewConversationService(db, log.Logger)
	messageSvc := services.NewMessageService(db, hub, log.Logger)

	authHandler := handlers.NewAuthHandler(db)
	userHandler := handlers.NewUserHandler(db)
	categoryHandler := handlers.NewCategoryHandler(db, log.Logger)
	productHandler := handlers.NewProductHandler(db)
	uploadHandler := handlers.NewUploadHandler()
	transactionHandler := handlers.NewTransactionHandler(transactionSvc, conversationSvc, messageSvc, log.Logger)
	chatHandler := handlers.NewChatHandler(hub, conversationSvc, messageSvc, log.Logger)

	app := fiber.New(fiber.Config{
		AppName:      "Eraswap Backend",
		ServerHeader: "Eraswap Backend Server/1.0",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			msg := "Internal Server Error"
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				msg = e.Message
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": msg,
			})
		},
	})

	middleware.SetupMiddleware(app, cfg)

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":  "success",
			"message": "API is healthy",
		})
	})

	// Static uploads
	app.Static("/uploads", "./uploads")

	// Public routes
	api := app.Group("/api")
	api.Post("/auth/register", authHandler.Register)
	api.Post("/auth/login", authHandler.Login)
	api.Get("/categories", categoryHandler.GetCategories)
	api.Get("/categories/:slug", categoryHandler.GetCategory)
	api.Get("/products", productHandler.GetAllProducts)
	api.Get("/products/:id", productHandler.GetProduct)

	// Protected routes
	api.Use(utils.AuthMiddleware)
	api.Get("/users/search", userHandler.SearchUsers)
	api.Get("/users/:id", userHandler.GetUser)

	api.Post("/products", productHandler.CreateProduct)
	api.Put("/products/:id", productHandler.UpdateProduct)
	api.Delete("/products/:id", productHandler.DeleteProduct)
	api.Post("/products/:id/save", productHandler.SaveProduct)
	api.Get("/my-products", productHandler.GetMyProducts)
	api.Post("/upload", uploadHandler.UploadImage)

	api.Post("/transactions", transactionHandler.CreateTransaction)
	api.Patch("/transactions/:id/status", transactionHandler.UpdateTransactionStatus)
	api.Get("/transactions", transactionHandler.ListTransactions)

	api.Post("/conversations", chatHandler.InitConversation)
	api.Get("/conversations", chatHandler.ListConversations)
	api.Post("/conversations/:id/messages", chatHandler.SendMessage)
	api.Get("/conversations/:id/messages", chatHandler.ListMessages)
	api.Get("/conversations/:id/status", chatHandler.GetRoomStatus)

	// Realtime channel
	app.Use("/ws", utils.AuthMiddleware, chatHandler.WebSocketUpgradeMiddleware)
	app.Get("/ws", chatHandler.Handler())

	// 404 fallback
	app.Use(func(c *fiber.Ctx) error {
		response := models.ErrorResponse("Not Found", "The requested resource was not found")
		return c.Status(fiber.StatusNotFound).JSON(response)
	})

	log.Info().Str("host", cfg.Host).Str("port", cfg.AppPort).Msg("Server starting")

	if err := app.Listen(cfg.Host + ":" + cfg.AppPort); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}
}
