package main

import (
	"context"
	stderrors "errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"trialtab/internal"
	"trialtab/internal/api"
	"trialtab/internal/config"
	"trialtab/internal/container"
	"trialtab/ui"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := internal.NewLogger(internal.ParseLogLevel(appConfig.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appContainer, err := container.New(ctx, appConfig, logger)
	if err != nil {
		logger.Error("Failed to create application container: %v", err)
		os.Exit(1)
	}
	appContainer.Start(ctx)

	dashboard, err := ui.NewApp(appContainer.Studies, logger)
	if err != nil {
		logger.Error("Failed to initialize dashboard: %v", err)
		os.Exit(1)
	}
	handler := api.NewStudyHandler(appContainer.Studies, appContainer.Analysis, appConfig.Export.SheetName, logger)
	dashboard.Router().Mount("/api", api.NewRouter(handler, appConfig.Server.GinMode))

	server := &http.Server{
		Addr:              ":" + appConfig.Server.Port,
		Handler:           dashboard,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting trialtab server on port %s", appConfig.Server.Port)
		if err := server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), appConfig.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown: %v", err)
	}
	if err := appContainer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Container shutdown: %v", err)
	}
}
