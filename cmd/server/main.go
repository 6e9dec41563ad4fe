package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"code_arena/internal/api"
	"code_arena/internal/app/service"
	"code_arena/internal/app/worker"
	"code_arena/internal/common/security"
	"code_arena/internal/domain/repository"
	"code_arena/internal/platform/config"
	"code_arena/internal/platform/database"
	"code_arena/internal/platform/queue"
)

func main() {
	// 1. Load Configuration
	config.Load()
	fmt.Println("Configuration loaded.")

	// 2. Initialize JWT
	security.InitJWT()
	fmt.Println("JWT initialized.")

	// 3. Initialize Database
	database.Connect()
	defer database.Close()
	fmt.Println("Database connected.")

	if err := database.Migrate(context.Background()); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	fmt.Println("Schema migrated.")

	// 4. Initialize Redis
	queue.ConnectRedis()
	defer queue.CloseRedis()
	fmt.Println("Redis connected.")

	// 5. Initialize Repositories
	userRepo := repository.NewPgUserRepository(database.DB)
	problemRepo := repository.NewPgProblemRepository(database.DB)
	prosetRepo := repository.NewPgProSetRepository(database.DB)
	challengeRepo := repository.NewPgChallengeRepository(database.DB)
	ratingRepo := repository.NewPgRatingRepository(database.DB)

	// 6. Initialize Services
	ratingService := service.NewRatingService(ratingRepo, queue.RDB, database.DB)
	authService := service.NewAuthService(userRepo)
	userService := service.NewUserService(userRepo, ratingService)
	problemService := service.NewProblemService(problemRepo, ratingService, database.DB)
	prosetService := service.NewProSetService(prosetRepo, problemRepo, ratingService)
	challengeService := service.NewChallengeService(challengeRepo, problemRepo, queue.RDB, database.DB)
	webhookService := service.NewWebhookService(challengeRepo, database.DB)

	// 7. Initialize Judge Worker (as a goroutine)
	judgeWorker := worker.NewJudgeWorker(queue.RDB, challengeRepo, problemRepo)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go judgeWorker.Start(workerCtx)
	fmt.Println("Judge worker started.")

	// 8. Initialize Router & HTTP Server
	router := api.NewRouter(authService, userService, problemService, prosetService, challengeService, ratingService, webhookService)

	server := &http.Server{
		Addr:         ":" + config.AppConfig.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 9. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on port %s", config.AppConfig.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", config.AppConfig.APIPort, err)
		}
	}()
	log.Println("Server started successfully.")

	<-stop // Wait for interrupt signal

	log.Println("Shutting down server...")
	workerCancel() // Signal worker to stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}

	log.Println("Server and worker stopped gracefully.")
}
