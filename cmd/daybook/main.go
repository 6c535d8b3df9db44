package main

import (
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
	"golang.org/x/time/rate"
	"gopkg.in/natefinch/lumberjack.v2"

	"daybook/api"
	"daybook/config"
	"daybook/handlers"
	"daybook/services/events"
	"daybook/storage"
	"daybook/utils"
)

func main() {
	cfg := config.Load()

	port := flag.String("port", cfg.Port, "Port to listen on")
	dataDir := flag.String("data", cfg.DataDir, "Directory for the events file")
	flag.Parse()

	if cfg.LogFile != "" {
		log.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSize,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}))
	}

	store, err := storage.NewFileStore(afero.NewOsFs(), *dataDir)
	if err != nil {
		log.Fatalf("[main] storage init failed: %v", err)
	}

	categories, err := cfg.Categories()
	if err != nil {
		log.Fatalf("[main] categories init failed: %v", err)
	}

	service, err := events.NewService(store, categories)
	if err != nil {
		log.Fatalf("[main] events service init failed: %v", err)
	}

	eventsHandler := handlers.NewEventsHandler(service)
	exportHandler := handlers.NewExportHandler(service)

	perMutation := time.Minute / time.Duration(max(cfg.MutationsPerMinute, 1))
	limiter := api.NewMutationLimiter(rate.Every(perMutation), cfg.MutationBurst)

	r := utils.NewRouter()
	r.HandleFunc("/api/events/date/{date}", eventsHandler.GetByDate).Methods(http.MethodGet)
	r.HandleFunc("/api/events/range", eventsHandler.GetRange).Methods(http.MethodGet)
	r.HandleFunc("/api/events/conflicts", eventsHandler.CheckConflicts).Methods(http.MethodPost)
	r.HandleFunc("/api/events", limiter.Limit(eventsHandler.Create)).Methods(http.MethodPost)
	r.HandleFunc("/api/events/{id}", limiter.Limit(eventsHandler.Update)).Methods(http.MethodPut)
	r.HandleFunc("/api/events/{id}", limiter.Limit(eventsHandler.Delete)).Methods(http.MethodDelete)
	r.HandleFunc("/api/events/{id}/move", limiter.Limit(eventsHandler.Move)).Methods(http.MethodPost)
	r.HandleFunc("/api/categories", eventsHandler.GetCategories).Methods(http.MethodGet)
	r.HandleFunc("/api/export/ics", exportHandler.ExportICS).Methods(http.MethodGet)

	if cfg.EnableMetrics {
		r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}

	log.Printf("[main] daybook listening on :%s (data dir %s)", *port, *dataDir)
	if err := http.ListenAndServe(":"+*port, r); err != nil {
		log.Fatal(err)
	}
}
