package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	alarmapp "alarmhub/internal/alarms/application"
	alarmrepo "alarmhub/internal/alarms/infrastructure/postgres"
	alarmhttp "alarmhub/internal/alarms/interfaces/http"
	"alarmhub/internal/audit"
	"alarmhub/internal/auth"
	"alarmhub/internal/observability/metrics"
	"alarmhub/internal/retention"
	userapp "alarmhub/internal/users/application"
	userrepo "alarmhub/internal/users/infrastructure/postgres"
	userhttp "alarmhub/internal/users/interfaces/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)
	auditRepo := audit.NewRepository(db)

	alarmService, err := alarmapp.NewService(
		alarmrepo.NewAlarmRepository(db),
		alarmapp.WithAuditLogger(auditRepo),
		alarmapp.WithLogger(logger),
		alarmapp.WithStalenessWindow(cfg.StalenessWindow),
		alarmapp.WithRetentionWindow(time.Duration(cfg.RetentionDays)*24*time.Hour),
	)
	if err != nil {
		logger.Fatalf("alarm service error: %v", err)
	}

	userService, err := userapp.NewService(
		userrepo.NewUserRepository(db),
		[]byte(cfg.JWTSecret),
		cfg.TokenTTL,
		userapp.WithAuditLogger(auditRepo),
		userapp.WithLogger(logger),
	)
	if err != nil {
		logger.Fatalf("user service error: %v", err)
	}

	alarmHandler, err := alarmhttp.NewHandler(alarmService)
	if err != nil {
		logger.Fatalf("alarm handler error: %v", err)
	}
	exportHandler, err := alarmhttp.NewExportHandler(alarmService)
	if err != nil {
		logger.Fatalf("export handler error: %v", err)
	}
	userHandler, err := userhttp.NewHandler(userService)
	if err != nil {
		logger.Fatalf("user handler error: %v", err)
	}

	sweeper, err := retention.NewSweeper(alarmService, cfg.CleanupSchedule, logger)
	if err != nil {
		logger.Fatalf("retention sweeper error: %v", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	policy := auth.NewDefaultPolicy(
		[]string{"/healthz", "/metrics"},
		[]string{"/api/v1/auth/", "/tasks/"},
	)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/auth/register", userHandler)
	mux.Handle("/api/v1/auth/login", userHandler)
	mux.Handle("/api/v1/alarms", alarmHandler)
	mux.Handle("/api/v1/alarms/", alarmHandler)
	mux.Handle("/api/v1/exports/", exportHandler)
	if cfg.CronSecret != "" {
		taskHandler, err := retention.NewTaskHandler(alarmService, cfg.CronSecret)
		if err != nil {
			logger.Fatalf("task handler error: %v", err)
		}
		mux.Handle("/tasks/cleanup-old-history", taskHandler)
	}
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s %s", r.Method, r.URL.Path, resp.status, time.Since(start), audit.ClientIP(r))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
