package handler

import (
	"net/http"
	"sync"

	"github.com/arnavshah/roster-solver-go/internal/app"
	"github.com/arnavshah/roster-solver-go/internal/config"
	"github.com/arnavshah/roster-solver-go/internal/logging"
	"github.com/arnavshah/roster-solver-go/pkg/handlers"
	"github.com/gin-gonic/gin"
)

var (
	once    sync.Once
	router  http.Handler
	initErr error
)

func setup() {
	cfg, err := config.Load()
	if err != nil {
		initErr = err
		return
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		initErr = err
		return
	}

	gin.SetMode(gin.ReleaseMode)
	h, err := app.NewHandler(cfg, log)
	if err != nil {
		initErr = err
		return
	}
	router = handlers.NewRouter(h)
}

// Handler is the entry point for the Vercel Go runtime
func Handler(w http.ResponseWriter, r *http.Request) {
	once.Do(setup)
	if initErr != nil {
		http.Error(w, "service unavailable: "+initErr.Error(), http.StatusServiceUnavailable)
		return
	}
	router.ServeHTTP(w, r)
}
