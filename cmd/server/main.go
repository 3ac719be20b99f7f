package main

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/hashicorp/go-multierror"
	_ "github.com/lib/pq"

	"clerking-assistant/internal/agent"
	"clerking-assistant/internal/intake"
	"clerking-assistant/internal/platform/logger"
	"clerking-assistant/internal/platform/telegram"
	"clerking-assistant/internal/report"
)

type config struct {
	databaseURL     string
	port            string
	openAIKey       string
	openAIModel     string
	telegramToken   string
	clinicianChatID int64
}

func loadConfig() (config, error) {
	cfg := config{
		databaseURL:   os.Getenv("DATABASE_URL"),
		port:          os.Getenv("PORT"),
		openAIKey:     os.Getenv("OPENAI_API_KEY"),
		openAIModel:   os.Getenv("OPENAI_MODEL"),
		telegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}
	if cfg.port == "" {
		cfg.port = "8080"
	}

	var errs *multierror.Error
	if cfg.databaseURL == "" {
		errs = multierror.Append(errs, errors.New("DATABASE_URL must be set"))
	}
	if cfg.openAIKey == "" {
		errs = multierror.Append(errs, errors.New("OPENAI_API_KEY must be set"))
	}
	// A set-but-unparseable chat id is a misconfiguration, not an opt-out:
	// fail loudly instead of silently disabling clerking reports.
	if chatID := os.Getenv("CLINICIAN_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("CLINICIAN_CHAT_ID %q is not a numeric chat id", chatID))
		} else {
			cfg.clinicianChatID = id
		}
	}
	return cfg, errs.ErrorOrNil()
}

func main() {
	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal("invalid configuration", "error", err)
	}

	db, err := connectDB(cfg.databaseURL, log)
	if err != nil {
		log.Fatal("could not connect to database", "error", err)
	}

	m, err := migrate.New("file://migrations", cfg.databaseURL)
	if err != nil {
		log.Fatal("migration init failed", "error", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatal("migration up failed", "error", err)
	}
	log.Info("migrations applied")

	llmClient := agent.NewOpenAIClient(agent.Config{
		APIKey: cfg.openAIKey,
		Model:  cfg.openAIModel,
	})

	var reporter intake.Reporter
	if cfg.telegramToken != "" && cfg.clinicianChatID != 0 {
		tgClient := telegram.NewClient(cfg.telegramToken)
		reporter = report.NewService(tgClient, cfg.clinicianChatID, log)
	} else {
		log.Warn("TELEGRAM_BOT_TOKEN or CLINICIAN_CHAT_ID not set, clerking reports disabled")
	}

	repo := intake.NewRepository(db)
	engine := intake.NewEngine(llmClient, log)
	svc := intake.NewService(repo, engine, reporter, log)
	handler := intake.NewHandler(svc)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS for the patient frontend
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")
			if req.Method == http.MethodOptions {
				return
			}
			next.ServeHTTP(w, req)
		})
	})

	r.Route("/api", func(r chi.Router) {
		intake.RegisterRoutes(r, handler)
	})

	log.Info("server starting", "port", cfg.port)
	if err := http.ListenAndServe(":"+cfg.port, r); err != nil {
		log.Fatal("server error", "error", err)
	}
}

func connectDB(url string, log *logger.Logger) (*sql.DB, error) {
	var db *sql.DB
	var err error
	for i := 0; i < 10; i++ {
		db, err = sql.Open("postgres", url)
		if err == nil {
			err = db.Ping()
		}
		if err == nil {
			log.Info("connected to database")
			return db, nil
		}
		log.Info("waiting for database", "attempt", i+1)
		time.Sleep(2 * time.Second)
	}
	return nil, err
}
