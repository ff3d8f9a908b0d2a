package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"portal/internal/attendance"
	"portal/internal/auth"
	"portal/internal/config"
	"portal/internal/grading"
	"portal/internal/httpmiddleware"
	"portal/internal/metrics"
	"portal/internal/portal"
	"portal/internal/queue"
	"portal/internal/record"
	"portal/internal/recognizer"
	"portal/internal/store"
	"portal/internal/student"
	"portal/internal/upload"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Printf("warning: db not reachable: %v", err)
	}
	defer func() {
		if db != nil {
			_ = db.Close()
		}
	}()
	if err := db.Migrate(context.Background()); err != nil {
		log.Printf("warning: migrate failed: %v", err)
	}

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "portal:comparisons")
	}

	records := record.NewRepository(db.Client)
	students := student.NewRepository(db.Client)
	governor := upload.NewService(records, students)
	ledger := attendance.NewService(records)
	grader := grading.NewService(records)
	face := recognizer.New(cfg.PythonBin, cfg.ModelDir, cfg.ExternalTimeout, cfg.RecognizerSkip)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db != nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	r.POST("/api/auth/register", func(c *gin.Context) {
		var req struct {
			Name     string `json:"name" binding:"required"`
			Email    string `json:"email" binding:"required,email"`
			Password string `json:"password" binding:"required"`
			Role     string `json:"role"`
			ErpID    string `json:"erp_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if existing, err := students.FindByEmail(c.Request.Context(), req.Email); err != nil {
			respondError(c, err)
			return
		} else if existing != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user already exists"})
			return
		}
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "hash failed"})
			return
		}
		st, err := students.Create(c.Request.Context(), student.Student{
			Name:         req.Name,
			Email:        req.Email,
			Role:         req.Role,
			ErpID:        req.ErpID,
			PasswordHash: hash,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		token, exp, err := auth.Issue(st.ID, st.Role, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"token": token, "role": st.Role, "expires_at": exp.Unix()})
	})

	r.POST("/api/auth/login", func(c *gin.Context) {
		var req struct {
			Email    string `json:"email" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		st, err := students.FindByEmail(c.Request.Context(), req.Email)
		if err != nil {
			respondError(c, err)
			return
		}
		if st == nil || !auth.CheckPassword(st.PasswordHash, req.Password) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid credentials"})
			return
		}
		token, exp, err := auth.Issue(st.ID, st.Role, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token, "role": st.Role, "expires_at": exp.Unix()})
	})

	api := r.Group("/api", auth.Bearer(cfg.JWTSigningKey, cfg.JWTIssuer))

	// Upload endpoint — handwriting samples replace in place, assignments
	// append. Teachers may upload on behalf of a student by name.
	api.POST("/files/upload", func(c *gin.Context) {
		claims, _ := auth.CurrentClaims(c)

		file, header, err := c.Request.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no file uploaded"})
			return
		}
		defer file.Close()
		content, err := io.ReadAll(file)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "read file failed"})
			return
		}

		req := upload.Request{
			Category:    record.Category(c.PostForm("category")),
			Content:     content,
			ContentType: header.Header.Get("Content-Type"),
			FileName:    header.Filename,
		}
		if name := c.PostForm("student_name"); name != "" && claims.Role == "teacher" {
			req.OwnerName = name
		} else {
			req.OwnerID = claims.Subject
		}

		stored, replaced, err := governor.Store(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}

		outcome := "created"
		status := http.StatusCreated
		msg := "file uploaded successfully"
		if replaced {
			outcome = "replaced"
			status = http.StatusOK
			msg = "handwriting sample updated successfully"
		}
		metrics.UploadsTotal.WithLabelValues(string(stored.Category), outcome).Inc()
		c.JSON(status, gin.H{"message": msg, "file": stored})
	})

	api.GET("/files", func(c *gin.Context) {
		claims, _ := auth.CurrentClaims(c)
		ownerID := c.Query("student_id")
		if claims.Role != "teacher" {
			ownerID = claims.Subject
		}
		files, err := records.ListMeta(c.Request.Context(), ownerID, record.Category(c.Query("category")))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"files": files})
	})

	api.GET("/files/content/:id", func(c *gin.Context) {
		rec, err := records.GetFile(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("Content-Disposition", `inline; filename="`+rec.FileName+`"`)
		c.Data(http.StatusOK, rec.ContentType, rec.Content)
	})

	// Most recent file for an owner and category, streamed inline.
	api.GET("/files/latest", func(c *gin.Context) {
		claims, _ := auth.CurrentClaims(c)
		ownerID := c.Query("student_id")
		if claims.Role != "teacher" {
			ownerID = claims.Subject
		}
		rec, err := records.LatestContent(c.Request.Context(), ownerID, record.Category(c.Query("category")))
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("Content-Disposition", `inline; filename="`+rec.FileName+`"`)
		c.Data(http.StatusOK, rec.ContentType, rec.Content)
	})

	api.POST("/files/marks/:id", auth.RequireRole("teacher"), func(c *gin.Context) {
		var req struct {
			Marks string `json:"marks"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		value, err := grader.SetMarks(c.Request.Context(), c.Param("id"), req.Marks)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "marks saved", "marks": value})
	})

	// Capture endpoint — runs the external recognizer over a class photo
	// and appends one ledger entry per recognized student.
	api.POST("/attendance/capture", auth.RequireRole("teacher"), func(c *gin.Context) {
		subject := c.PostForm("subject")
		if subject == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "subject required"})
			return
		}
		file, header, err := c.Request.FormFile("image")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "image required"})
			return
		}
		defer file.Close()

		imagePath, err := saveTemp(cfg.TempDir, header.Filename, file)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "save image failed"})
			return
		}
		defer os.Remove(imagePath)

		result, err := face.TakeAttendance(c.Request.Context(), subject, imagePath, auth.BearerToken(c))
		if err != nil {
			metrics.ExternalFailures.WithLabelValues("attendance").Inc()
			respondError(c, err)
			return
		}
		if !result.Success {
			c.JSON(http.StatusBadRequest, gin.H{"error": result.Message})
			return
		}

		entries, err := ledger.Ingest(c.Request.Context(), subject, time.Now().UTC(), result.Data)
		if err != nil {
			respondError(c, err)
			return
		}
		metrics.AttendanceIngested.Add(float64(len(entries)))
		c.JSON(http.StatusOK, gin.H{"message": result.Message, "data": entries})
	})

	api.GET("/attendance", func(c *gin.Context) {
		date := c.Query("date")
		if date == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date required"})
			return
		}
		entries, err := ledger.ByDate(c.Request.Context(), date)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"date": date, "entries": entries})
	})

	api.GET("/attendance/history", func(c *gin.Context) {
		groups, err := ledger.All(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"history": groups})
	})

	api.POST("/compare/:studentID", auth.RequireRole("teacher"), func(c *gin.Context) {
		job, err := records.InsertJob(c.Request.Context(), c.Param("studentID"))
		if err != nil {
			respondError(c, err)
			return
		}
		if err := q.Publish(c.Request.Context(), queue.Message{Type: "compare", Body: []byte(job.ID)}); err != nil {
			log.Printf("queue publish failed: %v", err)
		}
		c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID, "status": job.Status})
	})

	api.GET("/compare/jobs/:id", func(c *gin.Context) {
		job, err := records.GetJob(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, job)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// respondError maps the error taxonomy to HTTP statuses so every failure
// reports a distinguishable reason.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, portal.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, portal.ErrNotFound), errors.Is(err, portal.ErrOwnerNotFound):
		status = http.StatusNotFound
	case errors.Is(err, portal.ErrAmbiguousOwner):
		status = http.StatusConflict
	case portal.IsExternalProcessError(err):
		status = http.StatusBadGateway
	case errors.Is(err, portal.ErrStorage):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// saveTemp writes an uploaded capture to a temp file for the recognizer.
func saveTemp(dir, name string, src io.Reader) (string, error) {
	path := filepath.Join(dir, uuid.NewString()+filepath.Ext(name))
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// CORS middleware for browser requests
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

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
