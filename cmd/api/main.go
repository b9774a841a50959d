package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"attendance/internal/attendance"
	"attendance/internal/config"
	"attendance/internal/faceclient"
	"attendance/internal/httpmiddleware"
	"attendance/internal/logging"
	"attendance/internal/mailer"
	"attendance/internal/queue"
	"attendance/internal/store"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, logger); err != nil {
		logger.Fatal("http server failed", zap.Error(err))
	}
}

// queueSweeps publishes sweep jobs for the worker to pick up.
type queueSweeps struct {
	q queue.Queue
}

func (s queueSweeps) Schedule(ctx context.Context, job attendance.SweepJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.q.Publish(ctx, queue.Message{Type: "sweep", Body: body})
}

func runHTTP(cfg config.App, logger *zap.Logger) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := attendance.NewRepository(db.Client)
	if err := repo.Bootstrap(context.Background()); err != nil {
		return err
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	face := faceclient.New(cfg.FaceServiceURL, cfg.FaceSkip)

	var notifier attendance.Notifier
	if cfg.MailEnabled && cfg.SMTPUser != "" {
		notifier = mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)
		logger.Info("mail notifications enabled", zap.String("smtp_host", cfg.SMTPHost))
	} else {
		logger.Info("mail notifications disabled")
	}

	sweeper := attendance.NewSweeper(repo, logger)
	var sweeps attendance.SweepScheduler
	if cfg.QueueBackend == "memory" {
		// No worker in memory mode; sweeps run in-process.
		sweeps = attendance.InlineSweeps{Sweeper: sweeper}
	} else {
		sweeps = queueSweeps{q: queue.NewRedisQueue(redisClient.Client, cfg.SweepQueueKey)}
	}

	svc := attendance.NewService(repo, repo, notifier, sweeps, logger)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(logger))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !dbHealthy || (cfg.QueueBackend != "memory" && !redisHealthy) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	v1 := r.Group("/v1")

	v1.POST("/checkins", func(c *gin.Context) {
		var req struct {
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
			Email     string `json:"email"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		res, err := svc.MarkAttendance(c.Request.Context(), req.FirstName, req.LastName, req.Email)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		status := http.StatusCreated
		if res.Duplicate {
			status = http.StatusOK
		}
		c.JSON(status, gin.H{
			"success":   true,
			"duplicate": res.Duplicate,
			"message":   res.Message,
			"record":    res.Record,
		})
	})

	// Kiosk flow: photo in, recognition service resolves the identity,
	// then the normal check-in path runs.
	v1.POST("/checkins/face", func(c *gin.Context) {
		file, header, err := c.Request.FormFile("photo")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "photo file is required"})
			return
		}
		defer file.Close()

		match, err := face.Identify(c.Request.Context(), file, header.Filename)
		if err != nil {
			logger.Error("face recognition failed", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "face recognition failed"})
			return
		}
		if !match.Matched {
			c.JSON(http.StatusUnauthorized, gin.H{"matched": false, "error": "face not recognized"})
			return
		}

		res, err := svc.MarkAttendance(c.Request.Context(), match.FirstName, match.LastName, match.Email)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		status := http.StatusCreated
		if res.Duplicate {
			status = http.StatusOK
		}
		c.JSON(status, gin.H{
			"success":    true,
			"matched":    true,
			"similarity": match.Similarity,
			"duplicate":  res.Duplicate,
			"message":    res.Message,
			"record":     res.Record,
		})
	})

	v1.GET("/attendance/status/:email", func(c *gin.Context) {
		st, err := svc.StatusForToday(c.Request.Context(), c.Param("email"))
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "attendance_status": st})
	})

	v1.GET("/attendance/records/:email", func(c *gin.Context) {
		start, end, err := dayRange(c.Query("date"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, want YYYY-MM-DD"})
			return
		}
		records, err := repo.RecordsForDay(c.Request.Context(), c.Param("email"), start, end)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to fetch records"})
			return
		}
		if records == nil {
			records = []attendance.Record{}
		}
		c.JSON(http.StatusOK, gin.H{"date": start.Format("2006-01-02"), "records": records})
	})

	v1.GET("/attendance/summary", func(c *gin.Context) {
		start, end, err := dayRange(c.Query("date"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, want YYYY-MM-DD"})
			return
		}
		people, err := repo.ListPersons(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to fetch registrations"})
			return
		}
		records, err := repo.RecordsForDayAll(c.Request.Context(), start, end)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to fetch records"})
			return
		}

		type entry struct {
			attendance.Person
			Records []attendance.Record `json:"records"`
		}
		byEmail := make(map[string]*entry, len(people))
		summary := make([]*entry, 0, len(people))
		for _, p := range people {
			e := &entry{Person: p, Records: []attendance.Record{}}
			byEmail[p.Email] = e
			summary = append(summary, e)
		}
		for _, rec := range records {
			if e, ok := byEmail[rec.Email]; ok {
				e.Records = append(e.Records, rec)
			}
		}
		c.JSON(http.StatusOK, gin.H{"date": start.Format("2006-01-02"), "summary": summary})
	})

	v1.POST("/registrations", func(c *gin.Context) {
		var req struct {
			FirstName string `json:"first_name" binding:"required"`
			LastName  string `json:"last_name" binding:"required"`
			Email     string `json:"email" binding:"required,email"`
			Telephone string `json:"telephone"`
			Address   string `json:"address"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		existing, err := repo.FindPerson(c.Request.Context(), req.Email)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to check registration"})
			return
		}
		if existing != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		person, err := repo.CreatePerson(c.Request.Context(), attendance.Person{
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Telephone: req.Telephone,
			Address:   req.Address,
		})
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to register"})
			return
		}
		c.JSON(http.StatusCreated, person)
	})

	v1.GET("/registrations", func(c *gin.Context) {
		people, err := repo.ListPersons(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to fetch registrations"})
			return
		}
		if people == nil {
			people = []attendance.Person{}
		}
		c.JSON(http.StatusOK, gin.H{"users": people})
	})

	v1.GET("/registrations/:email", func(c *gin.Context) {
		person, err := repo.FindPerson(c.Request.Context(), c.Param("email"))
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to fetch registration"})
			return
		}
		if person == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "registration not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"registration": person})
	})

	v1.DELETE("/users/:email", func(c *gin.Context) {
		email := c.Param("email")
		found, err := repo.DeletePerson(c.Request.Context(), email)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to delete user"})
			return
		}
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		removed, err := repo.DeleteRecordsByEmail(c.Request.Context(), email)
		if err != nil {
			logger.Error("record cascade delete failed", zap.String("email", email), zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "user deleted but records could not be removed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "records_deleted": removed})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced shutdown", zap.Error(err))
	}

	logger.Info("server exited")
	return nil
}

// writeServiceError maps engine errors to HTTP. A duplicate check-in is not
// an error and never reaches here.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, attendance.ErrMissingFields):
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required fields"})
	case errors.Is(err, attendance.ErrUnknownPerson):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not registered"})
	default:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "attendance store unavailable"})
	}
}

// dayRange parses an optional YYYY-MM-DD query into a local day window,
// defaulting to today.
func dayRange(date string) (time.Time, time.Time, error) {
	if date == "" {
		start, end := attendance.DayWindow(time.Now())
		return start, end, nil
	}
	day, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start, end := attendance.DayWindow(day)
	return start, end, nil
}

// requestLogger logs each request with zap, skipping health and metrics.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/healthz" || path == "/metrics" {
			c.Next()
			return
		}
		startTime := time.Now()
		c.Next()
		logger.Info("request",
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(startTime)),
		)
	}
}

// CORS middleware for browser requests.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
