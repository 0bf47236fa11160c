package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/academiapro/academiapro-api/api/swagger"
	"github.com/academiapro/academiapro-api/internal/handler"
	"github.com/academiapro/academiapro-api/internal/middleware"
	"github.com/academiapro/academiapro-api/internal/models"
	"github.com/academiapro/academiapro-api/internal/repository"
	"github.com/academiapro/academiapro-api/internal/service"
	"github.com/academiapro/academiapro-api/pkg/cache"
	"github.com/academiapro/academiapro-api/pkg/config"
	"github.com/academiapro/academiapro-api/pkg/database"
	"github.com/academiapro/academiapro-api/pkg/jobs"
	"github.com/academiapro/academiapro-api/pkg/logger"
	corsmiddleware "github.com/academiapro/academiapro-api/pkg/middleware/cors"
	reqidmiddleware "github.com/academiapro/academiapro-api/pkg/middleware/requestid"
	"github.com/academiapro/academiapro-api/pkg/storage"
)

// @title AcademiaPro API
// @version 1.0.0
// @description School management backend: curriculum, gradebook and finance
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The API degrades gracefully without Redis: balances are
		// recomputed on every request.
		logr.Warn("redis unavailable, balance caching disabled", zap.Error(err))
		redisClient = nil
	}

	store, err := storage.NewLocalStorage(cfg.Documents.StorageDir)
	if err != nil {
		logr.Fatal("failed to init document storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Documents.SignedURLSecret, cfg.Documents.SignedURLTTL)

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	yearRepo := repository.NewSchoolYearRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	curriculumRepo := repository.NewClassroomSubjectRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	evalTypeRepo := repository.NewEvaluationTypeRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	reportCardRepo := repository.NewReportCardRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	schoolSvc := service.NewSchoolService(schoolRepo, yearRepo, validate, logr)
	classroomSvc := service.NewClassroomService(classroomRepo, yearRepo, validate, logr)
	curriculumSvc := service.NewCurriculumService(curriculumRepo, classroomRepo, yearRepo, validate, logr, service.CurriculumConfig{
		MinCoefficient: cfg.Grading.MinCoefficient,
		MaxCoefficient: cfg.Grading.MaxCoefficient,
	})
	studentSvc := service.NewStudentService(studentRepo, classroomRepo, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, evalTypeRepo, validate, logr)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, classroomRepo, validate, logr)

	// The document queue and the gradebook service reference each other:
	// the service enqueues render jobs, the queue calls back into the
	// service to render them.
	var gradebookSvc *service.GradebookService
	docQueue := jobs.NewQueue("documents", func(ctx context.Context, job jobs.Job) error {
		return gradebookSvc.RenderReportCardJob(ctx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Documents.WorkerConcurrency,
		MaxRetries: cfg.Documents.WorkerRetries,
		Logger:     logr,
	})
	gradebookSvc = service.NewGradebookService(
		gradeRepo,
		assignmentRepo,
		studentRepo,
		evalTypeRepo,
		curriculumRepo,
		reportCardRepo,
		store,
		docQueue,
		validate,
		logr,
		service.GradingConfig{ScaleMax: cfg.Grading.ScaleMax},
	)
	financeSvc := service.NewFinanceService(paymentRepo, studentRepo, cacheRepo, validate, logr, service.FinanceConfig{
		BalanceCacheTTL: cfg.Finance.BalanceCacheTTL,
	})
	metricsSvc := service.NewMetricsService()
	financeSvc.SetMetrics(metricsSvc)
	gradebookSvc.SetMetrics(metricsSvc)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	schoolHandler := handler.NewSchoolHandler(schoolSvc)
	classroomHandler := handler.NewClassroomHandler(classroomSvc)
	curriculumHandler := handler.NewCurriculumHandler(curriculumSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	teacherHandler := handler.NewTeacherHandler(teacherSvc)
	subjectHandler := handler.NewSubjectHandler(subjectSvc)
	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc)
	gradebookHandler := handler.NewGradebookHandler(gradebookSvc)
	financeHandler := handler.NewFinanceHandler(financeSvc)
	documentHandler := handler.NewDocumentHandler(gradebookSvc, store, signer)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Signed document links work without a session.
	r.GET("/public/documents/:token", documentHandler.Download)

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)

	auth := api.Group("")
	auth.Use(middleware.JWT(authSvc))

	auth.POST("/auth/register", middleware.RequireRoles(models.RoleAdmin), authHandler.Register)
	auth.POST("/auth/logout", authHandler.Logout)
	auth.POST("/auth/change-password", authHandler.ChangePassword)
	auth.GET("/auth/me", authHandler.Me)

	auth.GET("/users", userHandler.List)
	auth.GET("/users/:id", userHandler.Get)
	auth.PUT("/users/:id", userHandler.Update)

	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	direction := middleware.RequireRoles(models.RoleAdmin, models.RoleDirecteur)
	secretariat := middleware.RequireRoles(models.RoleAdmin, models.RoleDirecteur, models.RoleSecretaire)
	teaching := middleware.RequireRoles(models.RoleAdmin, models.RoleDirecteur, models.RoleEnseignant)
	accounting := middleware.RequireRoles(models.RoleAdmin, models.RoleDirecteur, models.RoleComptable)
	financeReads := middleware.RequireRoles(models.RoleAdmin, models.RoleDirecteur, models.RoleComptable, models.RoleSecretaire)

	auth.GET("/schools", schoolHandler.List)
	auth.GET("/schools/:id", schoolHandler.Get)
	auth.POST("/schools", adminOnly, schoolHandler.Create)
	auth.PUT("/schools/:id", adminOnly, schoolHandler.Update)

	auth.GET("/school-years", schoolHandler.ListYears)
	auth.GET("/school-years/:id", schoolHandler.GetYear)
	auth.POST("/school-years", direction, schoolHandler.CreateYear)
	auth.POST("/school-years/:id/activate", direction, schoolHandler.ActivateYear)
	auth.DELETE("/school-years/:id", direction, schoolHandler.DeleteYear)

	auth.GET("/classrooms", classroomHandler.List)
	auth.GET("/classrooms/:id", classroomHandler.Get)
	auth.POST("/classrooms", direction, classroomHandler.Create)
	auth.PUT("/classrooms/:id", direction, classroomHandler.Update)
	auth.DELETE("/classrooms/:id", direction, classroomHandler.Delete)

	auth.GET("/classrooms/:id/subjects", curriculumHandler.List)
	auth.POST("/classrooms/:id/subjects", direction, curriculumHandler.Assign)
	auth.PUT("/classrooms/:id/subjects", direction, curriculumHandler.Replace)
	auth.POST("/classrooms/:id/subjects/copy", direction, curriculumHandler.Copy)
	auth.DELETE("/classrooms/:id/subjects/:subjectId", direction, curriculumHandler.Remove)
	auth.GET("/classrooms/:id/subjects/:subjectId/teachers", curriculumHandler.ListTeachers)
	auth.PUT("/classrooms/:id/subjects/:subjectId/teachers", direction, curriculumHandler.AssignTeachers)
	auth.PUT("/classrooms/:id/assign-teachers", direction, curriculumHandler.AssignClassroomTeachers)
	auth.GET("/classrooms/:id/ranking", gradebookHandler.Ranking)

	auth.GET("/students", studentHandler.List)
	auth.GET("/students/:id", studentHandler.Get)
	auth.POST("/students", secretariat, studentHandler.Create)
	auth.PUT("/students/:id", secretariat, studentHandler.Update)
	auth.POST("/students/:id/enroll", secretariat, studentHandler.Enroll)
	auth.GET("/students/:id/enrollments", studentHandler.Enrollments)
	auth.GET("/students/:id/report-cards", gradebookHandler.ListReportCards)
	auth.POST("/students/:id/report-cards/generate", teaching, gradebookHandler.GenerateStudentReportCard)
	auth.GET("/students/:id/balance", financeReads, financeHandler.Balance)
	auth.GET("/students/:id/payments", financeReads, financeHandler.History)
	auth.GET("/students/:id/payments/export", financeReads, financeHandler.Export)

	auth.GET("/teachers", teacherHandler.List)
	auth.GET("/teachers/:id", teacherHandler.Get)
	auth.POST("/teachers", direction, teacherHandler.Create)
	auth.PUT("/teachers/:id", direction, teacherHandler.Update)
	auth.DELETE("/teachers/:id", direction, teacherHandler.Delete)

	auth.GET("/subjects", subjectHandler.List)
	auth.GET("/subjects/:id", subjectHandler.Get)
	auth.POST("/subjects", direction, subjectHandler.Create)
	auth.PUT("/subjects/:id", direction, subjectHandler.Update)
	auth.DELETE("/subjects/:id", direction, subjectHandler.Delete)

	auth.GET("/evaluation-types", subjectHandler.ListEvaluationTypes)
	auth.POST("/evaluation-types", direction, subjectHandler.CreateEvaluationType)
	auth.PUT("/evaluation-types/:id", direction, subjectHandler.UpdateEvaluationType)
	auth.DELETE("/evaluation-types/:id", direction, subjectHandler.DeleteEvaluationType)

	auth.GET("/assignments", assignmentHandler.List)
	auth.GET("/assignments/:id", assignmentHandler.Get)
	auth.POST("/assignments", teaching, assignmentHandler.Create)
	auth.PUT("/assignments/:id", teaching, assignmentHandler.Update)
	auth.DELETE("/assignments/:id", teaching, assignmentHandler.Delete)

	auth.GET("/grades", gradebookHandler.ListGrades)
	auth.POST("/grades", teaching, gradebookHandler.RecordGrade)
	auth.PUT("/grades/:id", teaching, gradebookHandler.UpdateGrade)
	auth.DELETE("/grades/:id", teaching, gradebookHandler.DeleteGrade)

	auth.POST("/report-cards", teaching, gradebookHandler.GenerateReportCard)
	auth.GET("/report-cards/:id", gradebookHandler.GetReportCard)
	auth.GET("/report-cards/:id/download", gradebookHandler.DownloadReportCard)
	auth.POST("/report-cards/:id/link", documentHandler.SignReportCard)

	auth.POST("/payments", accounting, financeHandler.RecordPayment)
	auth.GET("/payments/:id/receipt", financeReads, financeHandler.Receipt)
	auth.GET("/finance/collections", accounting, financeHandler.Collections)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	docQueue.Start(ctx)
	defer docQueue.Stop()

	if cfg.Documents.CleanupInterval > 0 {
		go cleanupDocuments(ctx, store, cfg.Documents.CleanupInterval, logr)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// cleanupDocuments periodically deletes rendered PDFs older than a week.
// They are regenerated on demand from persisted report card data.
func cleanupDocuments(ctx context.Context, store *storage.LocalStorage, interval time.Duration, logr *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.CleanupOlderThan(7 * 24 * time.Hour)
			if err != nil {
				logr.Warn("document cleanup failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				logr.Info("cleaned up stale documents", zap.Int("count", len(removed)))
			}
		}
	}
}
