package main

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"ecoquest/internal/api"
	"ecoquest/internal/config"
	"ecoquest/internal/database"
	"ecoquest/internal/device/scanner"
	"ecoquest/internal/handlers"
	"ecoquest/internal/logging"
	"ecoquest/internal/models"
	"ecoquest/internal/notify"
	"ecoquest/internal/repository"
	"ecoquest/internal/security"
	"ecoquest/internal/service"
	"ecoquest/internal/session"
)

const cardPNGSize = 256

func main() {
	// Load configuration
	cfg := config.Load()

	logger := logging.New(cfg)
	if closer, ok := logger.(interface{ Close() }); ok {
		defer closer.Close()
	}

	// Client-state database (sqlite, postgres or mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	templates, err := loadTemplates(cfg.TemplatesPath)
	if err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}

	log.Println("Templates loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stateRepo := repository.NewStateRepository(db)
	sessions, err := session.NewStore(stateRepo, cfg.SessionSecret, cfg.SessionDuration)
	if err != nil {
		log.Fatalf("Failed to create session store: %v", err)
	}
	flasher := notify.NewFlasher(stateRepo)
	csrf := security.NewCSRFGenerator(cfg.SessionSecret, cfg.SessionDuration)
	limiter := security.NewRateLimiter(10, time.Minute)
	go limiter.Run(ctx, 5*time.Minute)

	client := api.New(cfg.APIBaseURL, cfg.APIToken, cfg.APITimeout)

	// Initialize services
	emailService, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}
	dashboardService := service.NewDashboardService(client, emailService, logger)
	classroomService := service.NewClassroomService(client)
	studentService := service.NewStudentService(client)
	cardService := service.NewCardService(cardPNGSize)

	controllers := handlers.NewControllers(scanner.NewZXingDecoder(), cfg.ScanDebounce, cfg.ControllerIdleTimeout, logger)
	if cfg.CameraDir != "" {
		controllers.UseCameraDir(cfg.CameraDir)
		log.Printf("Photo missions preview snapshots from %s", cfg.CameraDir)
	}
	go controllers.Run(ctx, time.Minute)

	// Initialize handlers
	views := handlers.NewViews(templates, flasher, csrf, logger)
	cookie := security.SessionCookie{Name: handlers.SessionCookieName, TTL: cfg.SessionDuration}
	middleware := handlers.NewMiddleware(cookie, sessions, csrf, limiter, logger)
	authHandler := handlers.NewAuthHandler(client, sessions, controllers, views, logger, cfg.ScanRetryDelay)
	teacherHandler := handlers.NewTeacherHandler(dashboardService, classroomService, cardService, controllers, views, logger)
	studentHandler := handlers.NewStudentHandler(studentService, views, logger)
	taskHandler := handlers.NewTaskHandler(studentService, client, cfg.SecretCodeFor, cfg.RedirectDelay, controllers, views, logger)
	deviceHandler := handlers.NewDeviceHandler(controllers, logger)

	router := handlers.NewRouter(handlers.PageTable(authHandler, teacherHandler, studentHandler, taskHandler))
	pages := handlers.NewPageServer(router, middleware, controllers, authHandler)

	teacher := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.RequireRole(models.RoleTeacher, middleware.CSRFProtect(h))
	}
	student := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.RequireRole(models.RoleStudent, middleware.CSRFProtect(h))
	}

	// Setup routes
	mux := http.NewServeMux()

	// Static files
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticFilesPath))))
	mux.Handle("GET /favicon.ico", http.RedirectHandler(handlers.FaviconPath, http.StatusMovedPermanently))

	// Every page GET goes through the router
	mux.Handle("GET /", pages)

	// Auth
	mux.HandleFunc("POST /teacher/login", middleware.RateLimit(middleware.CSRFProtect(authHandler.TeacherLogin)))
	mux.HandleFunc("POST /student/login/card", middleware.RateLimit(middleware.CSRFProtect(authHandler.StudentCardLogin)))
	mux.HandleFunc("POST /logout", middleware.CSRFProtect(authHandler.Logout))

	// Teacher actions
	mux.HandleFunc("POST /teacher/students", teacher(teacherHandler.AddStudent))
	mux.HandleFunc("GET /teacher/students/card.png", middleware.RequireRole(models.RoleTeacher, teacherHandler.CardPNG))
	mux.HandleFunc("POST /teacher/tasks", teacher(teacherHandler.CreateTask))
	mux.HandleFunc("POST /teacher/quizzes", teacher(teacherHandler.CreateQuiz))
	mux.HandleFunc("POST /teacher/submissions/{id}/approve", teacher(teacherHandler.Approve))
	mux.HandleFunc("POST /teacher/submissions/{id}/reject", teacher(teacherHandler.Reject))
	mux.HandleFunc("POST /teacher/digest", teacher(teacherHandler.SendDigest))

	// Student missions
	mux.HandleFunc("POST /student/tasks/{id}/quiz", student(taskHandler.SubmitQuiz))
	mux.HandleFunc("POST /student/tasks/{id}/capture", student(taskHandler.Capture))
	mux.HandleFunc("POST /student/tasks/{id}/retake", student(taskHandler.Retake))
	mux.HandleFunc("POST /student/tasks/{id}/submit", student(taskHandler.SubmitPhoto))
	mux.HandleFunc("POST /student/tasks/{id}/verify", student(taskHandler.VerifyCode))
	mux.HandleFunc("GET /student/tasks/{id}/still.png", middleware.RequireRole(models.RoleStudent, taskHandler.Still))

	// Browser devices of the current page
	mux.HandleFunc("POST /device/frame", middleware.CSRFProtect(deviceHandler.Frame))
	mux.HandleFunc("GET /device/events", deviceHandler.Events)
	mux.HandleFunc("POST /page/dispose", middleware.CSRFProtect(deviceHandler.Dispose))

	// Wrap with session and logging middleware
	handler := handlers.Logging(middleware.Sessions(mux))

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go purgeExpiredState(ctx, stateRepo, logger)

	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down server", err)
	}
	controllers.DisposeAll()
}

// loadTemplates loads all template files
func loadTemplates(templatesPath string) (*template.Template, error) {
	patterns := []string{
		filepath.Join(templatesPath, "auth/*.tmpl"),
		filepath.Join(templatesPath, "teacher/*.tmpl"),
		filepath.Join(templatesPath, "student/*.tmpl"),
		filepath.Join(templatesPath, "components/*.tmpl"),
	}

	files := []string{filepath.Join(templatesPath, "base.tmpl")}
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to glob pattern %s: %w", pattern, err)
		}
		files = append(files, matches...)
	}

	tmpl, err := template.New("").Funcs(handlers.TemplateFuncs()).ParseFiles(files...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return tmpl, nil
}

// purgeExpiredState periodically removes expired identities and flash messages
func purgeExpiredState(ctx context.Context, repo *repository.StateRepository, logger logging.Logger) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.PurgeExpired(ctx)
			if err != nil {
				logger.Error("Error purging expired client state", err)
				continue
			}
			if n > 0 {
				logger.Info(fmt.Sprintf("Purged %d expired client state entries", n))
			}
		}
	}
}
