package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/justsurfingit/jobtrack/internal/auth"
	"github.com/justsurfingit/jobtrack/internal/database"
	"github.com/justsurfingit/jobtrack/internal/handlers"
	"github.com/justsurfingit/jobtrack/internal/services"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	// 2. Database Connection
	db := database.Connect()

	// 3. Initialize Core Services
	llmService := services.NewLLMService()
	store := services.NewStoreService(db)
	matcher := services.NewMatcherService(db, envFloat("MATCH_THRESHOLD"))
	reconciler := services.NewReconcilerService(db, store, matcher, envFloat("CONFIDENCE_THRESHOLD"))

	// 4. Initialize Gmail Integration
	log.Println("Initializing Gmail client...")
	httpClient := auth.GetGmailClient()

	var gmailService *gmail.Service
	if httpClient != nil {
		ctx := context.Background()
		var err error
		gmailService, err = gmail.NewService(ctx, option.WithHTTPClient(httpClient))
		if err != nil {
			log.Printf("Failed to create Gmail service: %v", err)
		} else {
			log.Println("Gmail service connected successfully.")
		}
	}

	// 5. Initialize Email Watcher
	interval := time.Duration(envInt("SYNC_INTERVAL_MINUTES", 15)) * time.Minute
	emailService := services.NewEmailService(db, llmService, reconciler, gmailService, interval)
	emailService.StartWatcher()

	// 6. Initialize Handlers
	appHandler := handlers.NewApplicationHandler(store, reconciler)

	// 7. Setup Router & CORS
	r := gin.Default()
	config := cors.DefaultConfig()
	config.AllowAllOrigins = true // For development only
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(config))

	// 8. Define Routes
	api := r.Group("/api/v1")
	{
		api.GET("/health", handlers.HealthCheck)

		api.POST("/applications", appHandler.CreateApplication)
		api.GET("/applications/:id", appHandler.GetApplication)
		api.PATCH("/applications/:id", appHandler.PatchApplication)
		api.POST("/applications/:id/move", appHandler.MoveApplication)
		api.GET("/applications/:id/transitions", appHandler.ListTransitions)
		api.POST("/applications/:id/notes", appHandler.AddNote)
		api.GET("/applications/:id/notes", appHandler.ListNotes)

		api.GET("/board", appHandler.Board)
		api.GET("/board/summary", appHandler.BoardSummary)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Server starting on port %s...", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}

func envFloat(key string) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return 0 // services fall back to their defaults
	}
	return v
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}
