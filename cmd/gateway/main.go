package main

import (
	"context"
	"log"
	"net/http"
	"time"

	api "github.com/ujianhub/ujianhub/internal/api/http"
	auth "github.com/ujianhub/ujianhub/internal/auth/middleware"
	"github.com/ujianhub/ujianhub/internal/config"
	"github.com/ujianhub/ujianhub/internal/db"
	"github.com/ujianhub/ujianhub/internal/question"
	rbac "github.com/ujianhub/ujianhub/internal/rbac"
	"github.com/ujianhub/ujianhub/internal/session"
	syncx "github.com/ujianhub/ujianhub/internal/sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	questions := question.NewSQLRepo(dbh)
	store := session.NewSQLStore(dbh)
	events := syncx.NewEventRepo(dbh, "local")
	users := auth.NewUserStore(dbh)

	if err := users.EnsureAdmin(ctx, cfg.AdminUser, cfg.AdminPassHash); err != nil {
		log.Fatalf("seed admin: %v", err)
	}

	engine := session.NewService(store, questions, events, session.Config{
		PracticeSecondsPerQuestion: cfg.PracticeSecondsPerQuestion,
		SimulationDurationSeconds:  cfg.SimulationDurationSeconds,
		PassThresholdPercent:       cfg.PassThresholdPercent,
		LateSubmissionPolicy:       session.LatePolicy(cfg.LateSubmissionPolicy),
	}, time.Now)

	// --- Auth (local JWT) ---
	authSvc := auth.NewAuthService(cfg.AuthHMACSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	origins := cfg.CORSOriginsOffline
	if cfg.Mode == config.ModeOnline {
		origins = cfg.CORSOriginsOnline
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.EnableLocalAuth {
		r.Post("/auth/register", auth.RegisterHandler(authSvc, users))
		r.Post("/auth/login", auth.LoginHandler(authSvc, users))
	}

	// Protected API (JWT → claims in context → DB profile → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		pr.Use(auth.AttachProfileFromDB(dbh, cfg.Mode == config.ModeOffline))

		pr.Route("/api", func(ar chi.Router) {
			// Session flow
			ar.With(rbac.Require("session:create")).
				Post("/sessions", api.CreateSessionHandler(engine))
			ar.With(rbac.Require("session:start")).
				Post("/sessions/{sessionID}/start", api.StartSessionHandler(engine))
			ar.With(rbac.Require("session:submit")).
				Post("/sessions/{sessionID}/submit", api.SubmitSessionHandler(engine))
			ar.With(rbac.RequireAny("session:view-own", "session:view-all")).
				Get("/sessions", api.ListSessionsHandler(engine))
			ar.With(rbac.RequireAny("session:view-own", "session:view-all")).
				Get("/sessions/{sessionID}", api.GetSessionHandler(engine))
			ar.With(rbac.RequireAny("session:view-own", "session:view-all")).
				Get("/sessions/{sessionID}/result", api.SessionResultHandler(engine))
			ar.With(rbac.RequireAny("session:delete-own", "session:delete-all")).
				Delete("/sessions/{sessionID}", api.DeleteSessionHandler(engine))

			// Catalog and account
			ar.With(rbac.Require("question:view")).
				Get("/catalog/{testType}/subjects", api.SubjectCatalogHandler())
			ar.Get("/me", api.MeHandler(users))
			ar.Post("/me/password", api.ChangePasswordHandler(dbh))
			ar.With(rbac.Require("stats:view-own")).
				Get("/me/stats", api.UserStatsHandler(engine))

			// Admin
			ar.Route("/admin", func(adm chi.Router) {
				adm.With(rbac.Require("question:manage")).
					Put("/questions", api.UpsertQuestionsHandler(questions))
				adm.With(rbac.Require("question:manage")).
					Get("/questions", api.ListQuestionsHandler(questions))
				adm.With(rbac.Require("user:manage")).
					Put("/users/{userID}/tier", api.SetTierHandler(users))
				adm.With(rbac.Require("audit:view")).
					Get("/events", api.ListEventsHandler(events))
			})
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbh.PingContext(r.Context()); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
	})

	log.Printf("listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
