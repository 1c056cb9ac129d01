package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/regalo/backend/internal/config"
	"github.com/regalo/backend/internal/services"
)

// The notifier runs the scheduled notification jobs. Cloud Scheduler POSTs to
// /jobs/daily (09:00) and /jobs/monthly (28th, 10:00), both in the configured
// timezone; the endpoints themselves are parameterless. A non-2xx response
// makes the scheduler retry.
func main() {
	cfg := config.Load()
	ctx := context.Background()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("Invalid timezone %q: %v", cfg.Timezone, err)
	}

	userService, err := services.NewMongoUserService(ctx, cfg.MongoURI, cfg.MongoDB, cfg.MaxDailyChanges)
	if err != nil {
		log.Fatalf("Failed to connect users store: %v", err)
	}
	connectionStore, err := services.NewMongoConnectionStore(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("Failed to connect connections store: %v", err)
	}
	push, err := services.NewFCMPushService(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsJSON)
	if err != nil {
		log.Fatalf("Failed to initialize push gateway: %v", err)
	}

	reminders := services.NewReminderService(userService, connectionStore, push, loc)

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	http.HandleFunc("/jobs/daily", runJob("daily", reminders.SendDailyReminders))
	http.HandleFunc("/jobs/monthly", runJob("monthly", reminders.SendMonthlySummaries))

	log.Printf("notifier listening on %s (tz=%s)", cfg.ServerAddress, cfg.Timezone)
	log.Fatal(http.ListenAndServe(cfg.ServerAddress, nil))
}

func runJob(name string, job func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
		defer cancel()

		start := time.Now()
		if err := job(ctx); err != nil {
			log.Printf("[notifier] job=%s failed after %s: %v", name, time.Since(start), err)
			http.Error(w, "job failed", http.StatusInternalServerError)
			return
		}
		log.Printf("[notifier] job=%s completed in %s", name, time.Since(start))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
