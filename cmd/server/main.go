// Package main runs the hackathon platform HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hackhub/backend/config"
	"github.com/hackhub/backend/internal/assignments"
	"github.com/hackhub/backend/internal/auth"
	"github.com/hackhub/backend/internal/certificates"
	"github.com/hackhub/backend/internal/dashboard"
	"github.com/hackhub/backend/internal/hackathons"
	"github.com/hackhub/backend/internal/invitations"
	"github.com/hackhub/backend/internal/jobs"
	"github.com/hackhub/backend/internal/middleware"
	"github.com/hackhub/backend/internal/notifications"
	"github.com/hackhub/backend/internal/organizations"
	"github.com/hackhub/backend/internal/participants"
	"github.com/hackhub/backend/internal/teams"
	"github.com/hackhub/backend/internal/tenant"
	"github.com/hackhub/backend/internal/users"
	"github.com/hackhub/backend/pkg/database"
	"github.com/hackhub/backend/pkg/queue"
	"github.com/hackhub/backend/pkg/redis"
	"github.com/hackhub/backend/pkg/response"
	"github.com/hackhub/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	// Redis is optional: without it notifications stay in the outbox and
	// the requeue job delivers them directly.
	var jobQueue *queue.Queue
	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Warn("redis disabled", zap.Error(err))
	} else {
		defer rdb.Close()
		jobQueue = queue.NewQueue(rdb.Client, logger)
	}

	var s3Client *storage.S3
	if cfg.AWS.Enabled() {
		s3Client, err = storage.NewS3(ctx, storage.S3Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			Bucket:          cfg.AWS.Bucket,
			Endpoint:        cfg.AWS.Endpoint,
			PublicBaseURL:   cfg.AWS.PublicBaseURL,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
			s3Client = nil
		}
	}
	// Handlers take interfaces; a nil *S3 must reach them as a nil interface.
	var (
		images  hackathons.ImageStore
		avatars auth.ImageStore
		objects certificates.ObjectStore
	)
	if s3Client != nil {
		images, avatars, objects = s3Client, s3Client, s3Client
	}

	// Notifications
	var jq notifications.JobQueue
	if jobQueue != nil {
		jq = jobQueue
	}
	notificationRepo := notifications.NewRepository(pool)
	outbox := notifications.NewOutbox(jq, logger)
	dispatcher := notifications.NewDispatcher(notificationRepo, notifications.NewSMTPMailer(cfg.Email, logger), jq, logger)
	notificationHandler := notifications.NewHandler(notificationRepo, outbox, logger)

	// Auth and organizations
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	sessions := auth.NewSessions(jwtService, cfg.Server.CookieSecure)
	orgRepo := organizations.NewRepository(pool)
	authHandler := auth.NewHandler(auth.NewRepository(pool), orgRepo, sessions, outbox, avatars, cfg.Server.AppURL, logger)
	orgHandler := organizations.NewHandler(orgRepo, sessions, outbox, cfg.Server.AppURL, logger)
	scopeMiddleware := tenant.Middleware(tenant.NewResolver(orgRepo), logger)

	// Hackathons and their participants, teams and certificates
	hackathonRepo := hackathons.NewRepository(pool)
	hackathonHandler := hackathons.NewHandler(hackathonRepo, images, logger)
	participantHandler := participants.NewHandler(participants.NewRepository(pool), hackathonRepo, outbox, logger)
	teamHandler := teams.NewHandler(teams.NewRepository(pool), hackathonRepo, logger)
	certificateHandler := certificates.NewHandler(certificates.NewRepository(pool), objects, logger)

	// Staff
	assignmentHandler := assignments.NewHandler(assignments.NewRepository(pool), logger)
	invitationService := invitations.NewService(invitations.NewRepository(pool),
		time.Duration(cfg.Invitation.TTLHours)*time.Hour, cfg.Server.AppURL, logger)
	invitationHandler := invitations.NewHandler(invitationService, sessions, outbox, logger)
	dashboardHandler := dashboard.NewHandler(dashboard.NewRepository(pool), logger)
	userHandler := users.NewHandler(users.NewRepository(pool), logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics())

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")

	// Public
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/logout", authHandler.Logout)
	api.POST("/organizations/register", orgHandler.Register)
	api.GET("/public/hackathons/:id", hackathonHandler.GetPublic)
	api.POST("/hackathons/:id/register", middleware.OptionalJWT(jwtService, cfg.Server.CookieSecure), participantHandler.Register)
	api.GET("/invitations/token/:token", invitationHandler.Get)
	api.POST("/invitations/token/:token/accept", invitationHandler.Accept)

	// Authenticated, no organization scope required
	authed := api.Group("")
	authed.Use(middleware.JWT(jwtService, cfg.Server.CookieSecure))
	{
		authed.GET("/auth/me", middleware.Require(middleware.ActionProfile), authHandler.Me)
		authed.POST("/uploads/profile-image", middleware.Require(middleware.ActionProfile), authHandler.UploadProfileImage)
		authed.GET("/organizations", middleware.Require(middleware.ActionOrganizationsList), orgHandler.ListMine)
	}

	// Authenticated and tenant scoped
	scoped := authed.Group("")
	scoped.Use(scopeMiddleware)
	{
		scoped.GET("/organizations/current", middleware.Require(middleware.ActionOrganizationsCurrent), orgHandler.Current)
		scoped.PATCH("/organizations/current", middleware.Require(middleware.ActionOrganizationsUpdate), orgHandler.UpdateCurrent)
		scoped.GET("/organizations/current/members", middleware.Require(middleware.ActionOrganizationsMembers), orgHandler.Members)

		scoped.GET("/dashboard/stats", middleware.Require(middleware.ActionDashboardStats), dashboardHandler.Stats)

		scoped.GET("/hackathons", middleware.Require(middleware.ActionHackathonsList), hackathonHandler.List)
		scoped.POST("/hackathons", middleware.Require(middleware.ActionHackathonsCreate), hackathonHandler.Create)
		scoped.GET("/hackathons/:id", middleware.Require(middleware.ActionHackathonsGet), hackathonHandler.Get)
		scoped.PATCH("/hackathons/:id", middleware.Require(middleware.ActionHackathonsUpdate), hackathonHandler.Update)
		scoped.DELETE("/hackathons/:id", middleware.Require(middleware.ActionHackathonsDelete), hackathonHandler.Delete)
		scoped.PUT("/hackathons/:id/form", middleware.Require(middleware.ActionHackathonsUpdate), hackathonHandler.UpdateForm)
		scoped.POST("/hackathons/:id/cover", middleware.Require(middleware.ActionHackathonsUpdate), hackathonHandler.UploadCover)

		scoped.GET("/hackathons/:id/participants", middleware.Require(middleware.ActionParticipantsList), participantHandler.ListForHackathon)
		scoped.GET("/hackathons/:id/participants/export", middleware.Require(middleware.ActionParticipantsExport), participantHandler.Export)
		scoped.GET("/participants", middleware.Require(middleware.ActionParticipantsList), participantHandler.List)
		scoped.PATCH("/participants/:id/status", middleware.Require(middleware.ActionParticipantsStatus), participantHandler.UpdateStatus)

		scoped.GET("/hackathons/:id/teams", middleware.Require(middleware.ActionTeamsList), teamHandler.ListForHackathon)
		scoped.POST("/hackathons/:id/teams", middleware.Require(middleware.ActionTeamsManage), teamHandler.Create)
		scoped.GET("/hackathons/:id/teams/export", middleware.Require(middleware.ActionTeamsExport), teamHandler.Export)
		scoped.GET("/teams", middleware.Require(middleware.ActionTeamsList), teamHandler.List)
		scoped.GET("/teams/:id", middleware.Require(middleware.ActionTeamsList), teamHandler.Get)
		scoped.POST("/teams/:id/members", middleware.Require(middleware.ActionTeamsManage), teamHandler.AddMember)
		scoped.DELETE("/teams/:id/members/:participantId", middleware.Require(middleware.ActionTeamsManage), teamHandler.RemoveMember)
		scoped.POST("/teams/:id/scores", middleware.Require(middleware.ActionTeamsScore), teamHandler.Score)

		scoped.GET("/hackathons/:id/certificate", middleware.Require(middleware.ActionCertificatesManage), certificateHandler.GetTemplate)
		scoped.PUT("/hackathons/:id/certificate", middleware.Require(middleware.ActionCertificatesManage), certificateHandler.SaveTemplate)
		scoped.GET("/hackathons/:id/certificate/preview", middleware.Require(middleware.ActionCertificatesManage), certificateHandler.Preview)
		scoped.GET("/participants/:id/certificate", middleware.Require(middleware.ActionCertificatesDownload), certificateHandler.Download)

		scoped.GET("/assignments/:kind", middleware.Require(middleware.ActionAssignmentsList), assignmentHandler.List)
		scoped.DELETE("/assignments/:kind/:id", middleware.Require(middleware.ActionAssignmentsManage), assignmentHandler.Deactivate)

		scoped.POST("/invitations", middleware.Require(middleware.ActionInvitationsCreate), invitationHandler.Create)
		scoped.GET("/invitations", middleware.Require(middleware.ActionInvitationsList), invitationHandler.List)
		scoped.DELETE("/invitations/:id", middleware.Require(middleware.ActionInvitationsCancel), invitationHandler.Cancel)

		scoped.GET("/notifications", middleware.Require(middleware.ActionNotificationsList), notificationHandler.List)
		scoped.POST("/notifications/:id/resend", middleware.Require(middleware.ActionNotificationsResend), notificationHandler.Resend)

		scoped.GET("/users", middleware.Require(middleware.ActionUsersList), userHandler.List)
		scoped.PATCH("/users/:id/role", middleware.Require(middleware.ActionUsersRole), userHandler.UpdateRole)
		scoped.DELETE("/users/:id", middleware.Require(middleware.ActionUsersDelete), userHandler.Delete)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	scheduler := jobs.New(logger)
	if err := scheduler.Add("invitation_sweep", cfg.Invitation.SweepCron, time.Minute, invitationService.Sweep); err != nil {
		logger.Fatal("schedule invitation sweep", zap.Error(err))
	}

	// Background notification delivery when no separate worker runs.
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if cfg.Worker.Inline {
		if err := scheduler.Add("notification_requeue", cfg.Worker.RequeueCron, time.Minute, func(ctx context.Context) error {
			dispatcher.Requeue(ctx)
			return nil
		}); err != nil {
			logger.Fatal("schedule notification requeue", zap.Error(err))
		}
		go dispatcher.Run(workerCtx)
		logger.Info("inline notification dispatcher started")
	}
	scheduler.Start()

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	scheduler.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
