package main

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/regalo/backend/internal/config"
	"github.com/regalo/backend/internal/handlers"
	appMiddleware "github.com/regalo/backend/internal/middleware"
	"github.com/regalo/backend/internal/services"
	"github.com/regalo/backend/internal/storage"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	// Stores: Mongo in production, in-memory (optionally seeded) for dev.
	var userService services.UserService
	var connectionStore services.ConnectionStore

	switch cfg.StoreBackend {
	case "memory":
		memUsers := services.NewMemoryUserService(cfg.MaxDailyChanges)
		memConns := services.NewMemoryConnectionStore()
		if cfg.SeedFile != "" {
			seed, err := storage.LoadSeed(cfg.SeedFile)
			if err != nil {
				log.Fatalf("Failed to load seed file: %v", err)
			}
			memUsers.Seed(seed.Users)
			memConns.Seed(seed.Connections)
			log.Printf("Seeded %d users, %d connections", len(seed.Users), len(seed.Connections))
		}
		userService = memUsers
		connectionStore = memConns
	default:
		mongoUsers, err := services.NewMongoUserService(ctx, cfg.MongoURI, cfg.MongoDB, cfg.MaxDailyChanges)
		if err != nil {
			log.Fatalf("Failed to connect users store: %v", err)
		}
		mongoConns, err := services.NewMongoConnectionStore(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			log.Fatalf("Failed to connect connections store: %v", err)
		}
		userService = mongoUsers
		connectionStore = mongoConns
	}

	connectionsService := services.NewConnectionsService(userService, connectionStore, cfg.LinkScheme, cfg.InvitationTTL)
	birthdayService := services.NewBirthdayService(connectionsService)

	userHandler := handlers.NewUserHandler(userService)
	connectionHandler := handlers.NewConnectionHandler(connectionsService)
	inviteHandler := handlers.NewInviteHandler(connectionsService)
	birthdayHandler := handlers.NewBirthdayHandler(birthdayService)

	// Auth middleware: Firebase ID tokens in production, self-issued JWTs
	// for local development.
	var authMiddleware func(http.Handler) http.Handler
	var authHandler *handlers.AuthHandler
	if cfg.AuthMode == "jwt" {
		authMiddleware = appMiddleware.JWTAuth(cfg.JWTSecret)
		authHandler = handlers.NewAuthHandler(userService, cfg.JWTSecret, cfg.JWTExpiration)
	} else {
		authClient, err := appMiddleware.NewFirebaseAuthClient(ctx, appMiddleware.FirebaseAuthConfig{
			ProjectID:       cfg.FirebaseProjectID,
			CredentialsJSON: cfg.FirebaseCredentialsJSON,
		})
		if err != nil {
			log.Printf("Warning: failed to initialize Firebase Auth client: %v", err)
		}
		authMiddleware = appMiddleware.FirebaseAuth(authClient)
	}

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		if authHandler != nil {
			r.Post("/auth/register", authHandler.Register)
			r.Post("/auth/login", authHandler.Login)
		}

		// The invite landing screen resolves before the recipient logs in.
		r.Get("/invitations/{invitationId}", inviteHandler.Resolve)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)

			r.Route("/users", func(r chi.Router) {
				r.Post("/", userHandler.CreateProfile)
				r.Get("/me", userHandler.GetMe)
				r.Put("/me", userHandler.UpdateMe)
				r.Put("/me/push-token", userHandler.SetPushToken)
				r.Get("/{userId}", userHandler.GetUser)
			})

			r.Route("/connections", func(r chi.Router) {
				r.Get("/", connectionHandler.List)
				r.Post("/email", connectionHandler.SendByEmail)
				r.Get("/users", connectionHandler.ConnectedUsers)
				r.Get("/pending", connectionHandler.Pending)
				r.Get("/accepted", connectionHandler.AcceptedUnviewed)
				r.Get("/notifications/count", connectionHandler.NotificationCount)

				r.Route("/{connectionId}", func(r chi.Router) {
					r.Post("/accept", connectionHandler.Accept)
					r.Post("/reject", connectionHandler.Reject)
					r.Post("/viewed", connectionHandler.MarkViewed)
					r.Delete("/", connectionHandler.Disconnect)
				})
			})

			r.Post("/invitations", inviteHandler.Create)
			r.Post("/invitations/{invitationId}/accept", inviteHandler.Accept)

			r.Route("/birthdays", func(r chi.Router) {
				r.Get("/", birthdayHandler.OnDate)
				r.Get("/month", birthdayHandler.InMonth)
			})
		})
	})

	log.Printf("🎂 Regalo API server starting on %s (store=%s auth=%s)", cfg.ServerAddress, cfg.StoreBackend, cfg.AuthMode)
	if err := http.ListenAndServe(cfg.ServerAddress, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
