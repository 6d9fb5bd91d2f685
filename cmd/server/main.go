package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/protomforms/backend/internal/api"
	"github.com/protomforms/backend/internal/repository/sqlite"
	"github.com/protomforms/backend/internal/validator"
)

func logConfig() {
	log.Println("=== ProtomForms Configuration ===")

	envVars := []struct {
		name         string
		defaultValue string
	}{
		{"PROTOMFORMS_API_PORT", "8080"},
		{"PROTOMFORMS_DB_PATH", "data/protomforms.db"},
		{"PROTOMFORMS_CORS_ORIGINS", "* (allow all)"},
	}

	for _, ev := range envVars {
		value := os.Getenv(ev.name)
		if value == "" {
			log.Printf("  %s: %s (default)", ev.name, ev.defaultValue)
		} else {
			log.Printf("  %s: %s", ev.name, value)
		}
	}

	log.Println("=================================")
}

func main() {
	logConfig()

	port := os.Getenv("PROTOMFORMS_API_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("PROTOMFORMS_DB_PATH")
	if dbPath == "" {
		dbPath = filepath.Join("data", "protomforms.db")
	}

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	// Initialize repository
	repo, err := sqlite.New(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer repo.Close()

	// Initialize form definition validator
	val, err := validator.New()
	if err != nil {
		log.Fatalf("Failed to initialize validator: %v", err)
	}

	// Initialize API handler
	handler := api.NewHandler(repo, val)

	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Register API routes
	handler.RegisterRoutes(mux)

	// Apply middleware
	var h http.Handler = mux
	h = api.Logger(h)
	corsOrigins := os.Getenv("PROTOMFORMS_CORS_ORIGINS")
	h = api.CORS(api.CORSConfig{AllowedOrigins: corsOrigins})(h)

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		log.Println("Shutting down server...")
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("Server starting on port %s", port)
	log.Printf("Database: %s", dbPath)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server stopped")
}
