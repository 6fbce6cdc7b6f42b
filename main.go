package main

import (
	"log"
	"net/http"
	"os"

	"pricescout/config"
	"pricescout/handlers"
	"pricescout/middleware"
	"pricescout/worker"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Worker mode: one scrape, single-line JSON on stdout, then exit. The
	// server invokes this same binary as a subprocess.
	if len(os.Args) > 1 && os.Args[1] == "worker" {
		if err := godotenv.Load(); err == nil {
			log.Println("Loaded environment from .env file")
		}
		os.Exit(worker.Run(os.Args[2:]))
	}

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	h := handlers.NewHandlers(handlers.ExecWorkerRunner{}, cfg.WorkerTimeout)

	// Setup router
	r := mux.NewRouter()
	r.Use(middleware.LoggingMiddleware)

	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/scrape", h.Scrape).Methods("GET")

	// CORS configuration: fully open by default, this API carries no
	// credentials.
	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})

	log.Printf("🌐 Server starting on %s:%s", cfg.Host, cfg.Port)
	log.Printf("📋 Endpoints:")
	log.Printf("   GET /health - Health check")
	log.Printf("   GET /scrape?url=<product_url>&extract_metadata=<bool>&get_alternates=<bool>")

	// Start server
	log.Fatal(http.ListenAndServe(cfg.Host+":"+cfg.Port, c.Handler(r)))
}
