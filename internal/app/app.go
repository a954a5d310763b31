package app

import (
	"github.com/arnavshah/roster-solver-go/internal/config"
	"github.com/arnavshah/roster-solver-go/pkg/auth"
	"github.com/arnavshah/roster-solver-go/pkg/database"
	"github.com/arnavshah/roster-solver-go/pkg/handlers"
	"github.com/arnavshah/roster-solver-go/pkg/scheduler"
	"go.uber.org/zap"
)

// NewHandler connects the database and assembles the API handler
func NewHandler(cfg *config.Config, log *zap.Logger) (*handlers.Handler, error) {
	db, err := database.InitDB(database.Options{
		DatabaseURL: cfg.DatabaseURL,
		DataPath:    cfg.DataPath,
		Debug:       cfg.LogLevel == "debug",
	})
	if err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" || cfg.APIMasterSecret == "" {
		log.Warn("JWT_SECRET or API_MASTER_SECRET is empty; tokens and keys are forgeable")
	}

	opts := cfg.SchedulerOptions()
	log.Info("scheduler configured",
		zap.Int("workers", opts.Workers),
		zap.Duration("max_time_limit", opts.MaxTimeLimit),
		zap.String("transition_mode", string(opts.TransitionMode)))

	return &handlers.Handler{
		DB:     db,
		Auth:   auth.NewService(cfg.JWTSecret, cfg.APIMasterSecret),
		Roster: scheduler.NewScheduler(nil, opts, log.Named("scheduler")),
		Logger: log,
		Admin:  handlers.Admin{Username: cfg.AdminUsername, Password: cfg.AdminPassword},
	}, nil
}
