package main

import (
	"context"
	"log"
	"os"
	"time"

	"toolroom/cmd"
	"toolroom/internal/core/container"
	"toolroom/internal/core/logger"
	"toolroom/internal/core/routes"
	"toolroom/internal/database"
	"toolroom/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func init() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load .env file, but don't overwrite system environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found, falling back to system environment variables.")
	}

	// Execute migration CMD
	cmd.Execute(ctx)
}

func main() {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	db, err := database.NewPostgresConnection(dbURL)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer db.Close()

	log.Println("Connected to the database successfully!")

	if os.Getenv("RUN_MIGRATIONS") == "true" {
		if err := database.RunMigrations(db, "./migrations"); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	zapLogger := logger.NewLogger()
	defer zapLogger.Sync()
	sugar := zapLogger.Sugar()

	appContainer := container.NewAppContainer(db, sugar)

	router := gin.Default()
	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.TimeoutMiddleware(30 * time.Second))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterPublicRoutes(router, appContainer)
	routes.RegisterProtectedRoutes(router, appContainer)
	routes.RegisterUtilityRoutes(router)

	schedule := os.Getenv("OVERDUE_SWEEP_SCHEDULE")
	if schedule == "" {
		schedule = "0 * * * *"
	}
	if err := appContainer.Sweeper.Start(schedule); err != nil {
		log.Fatalf("Failed to start overdue sweeper: %v", err)
	}
	defer appContainer.Sweeper.Stop()

	calibrationSchedule := os.Getenv("CALIBRATION_SWEEP_SCHEDULE")
	if calibrationSchedule == "" {
		calibrationSchedule = "0 8 * * *"
	}
	if err := appContainer.CalibrationSweeper.Start(calibrationSchedule); err != nil {
		log.Fatalf("Failed to start calibration sweeper: %v", err)
	}
	defer appContainer.CalibrationSweeper.Stop()

	if err := router.Run(os.Getenv("APP_HOST")); err != nil {
		panic(err)
	}
}
