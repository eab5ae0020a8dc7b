package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/anonto42/nano-social/backend/internal/handlers"
	"github.com/anonto42/nano-social/backend/internal/identity"
	"github.com/anonto42/nano-social/backend/internal/realtime"
	"github.com/anonto42/nano-social/backend/internal/repositories"
	"github.com/anonto42/nano-social/backend/internal/repositories/memory"
	"github.com/anonto42/nano-social/backend/internal/validators"
	"github.com/anonto42/nano-social/backend/pkg/apperrors"
	"github.com/anonto42/nano-social/backend/pkg/clock"
	"github.com/anonto42/nano-social/backend/pkg/config"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// Deps is everything the HTTP layer is built from. Mongo may be nil, in
// which case posts and stories live in memory.
type Deps struct {
	Config   *config.Config
	Log      *slog.Logger
	Postgres *gorm.DB
	Mongo    *mongo.Database
	Verifier identity.TokenVerifier
	Hub      *realtime.Hub
	Clock    clock.Clock
	Pinger   handlers.Pinger
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, d Deps) error {
	e.Validator = validators.NewValidator()
	e.HTTPErrorHandler = ErrorHandler(d.Log)

	// --- Repositories ---
	userRepo := repositories.NewPostgresUserRepository(d.Postgres)
	followRepo := repositories.NewPostgresFollowRepository(d.Postgres)
	blockRepo := repositories.NewPostgresBlockRepository(d.Postgres)
	chatRepo := repositories.NewPostgresChatRepository(d.Postgres)
	notificationRepo := repositories.NewPostgresNotificationRepository(d.Postgres)
	storyViewRepo := repositories.NewPostgresStoryViewRepository(d.Postgres)
	likeRepo := repositories.NewPostgresLikeRepository(d.Postgres)
	commentRepo := repositories.NewPostgresCommentRepository(d.Postgres)
	commentLikeRepo := repositories.NewPostgresCommentLikeRepository(d.Postgres)
	savedRepo := repositories.NewPostgresSavedPostRepository(d.Postgres)

	var (
		postRepo  repositories.PostRepository
		storyRepo repositories.StoryRepository
	)
	if d.Mongo != nil {
		postRepo = repositories.NewMongoPostRepository(d.Mongo)
		storyRepo = repositories.NewMongoStoryRepository(d.Mongo)
	} else {
		postRepo = memory.NewPostStore()
		storyRepo = memory.NewStoryStore()
	}

	// --- Shared services ---
	notifier := handlers.NewNotifier(notificationRepo, d.Hub, d.Clock, d.Log)
	messenger := handlers.NewMessenger(chatRepo, userRepo, blockRepo, notifier, d.Hub, d.Clock)
	remover := handlers.NewAccountRemover(userRepo, postRepo, storyRepo, storyViewRepo, likeRepo, commentRepo, savedRepo, d.Log)

	pinger := d.Pinger
	if pinger == nil {
		pinger = gormPinger{db: d.Postgres}
	}
	e.GET("/health", handlers.HealthCheck(pinger))

	authenticate := identity.Middleware(d.Verifier, userRepo)

	// --- Unauthenticated routes ---
	webhookHandler, err := handlers.NewWebhookHandler(userRepo, remover, d.Config.WebhookSigningSecret, d.Log)
	if err != nil {
		return fmt.Errorf("identity webhook: %w", err)
	}
	webhookHandler.RegisterWebhookRoutes(e.Group("/api/v1/webhooks"))

	if issuer, ok := d.Verifier.(*identity.JWTVerifier); ok && !d.Config.IsProduction() {
		handlers.NewAuthHandler(userRepo, issuer).RegisterAuthRoutes(e.Group("/api/v1/auth"))
		d.Log.Warn("development token issuance enabled at /api/v1/auth/token")
	}

	// --- Operator routes ---
	storyHandler := handlers.NewStoryHandler(storyRepo, storyViewRepo, userRepo, followRepo, blockRepo, messenger, notifier, d.Clock)
	storyHandler.RegisterAdminRoutes(e, identity.RequireAdminToken(d.Config.AdminToken))

	// --- Realtime ---
	wsHandler := handlers.NewWSHandler(d.Hub, d.Config.AllowedOrigins, d.Log)
	e.GET("/ws", wsHandler.Connect, authenticate)

	// --- Protected routes ---
	api := e.Group("/api/v1")
	api.Use(authenticate)

	handlers.NewUserHandler(userRepo, followRepo, blockRepo, remover, d.Clock, d.Config.PresenceWindow).RegisterProfileRoutes(api)
	handlers.NewFollowHandler(followRepo, userRepo, blockRepo, notifier, d.Clock).RegisterFollowRoutes(api)
	handlers.NewChatHandler(messenger, chatRepo).RegisterChatRoutes(api)
	handlers.NewNotificationHandler(notificationRepo, userRepo, notifier).RegisterNotificationRoutes(api)
	storyHandler.RegisterStoryRoutes(api)
	handlers.NewPostHandler(postRepo, userRepo, likeRepo, commentRepo, savedRepo, d.Clock).RegisterPostRoutes(api)
	handlers.NewFeedHandler(postRepo, userRepo, followRepo, likeRepo, savedRepo, d.Clock).RegisterFeedRoutes(api)
	handlers.NewLikeHandler(likeRepo, postRepo, notifier, d.Clock).RegisterLikeRoutes(api)
	handlers.NewCommentHandler(commentRepo, commentLikeRepo, postRepo, notifier, d.Clock).RegisterCommentRoutes(api)
	handlers.NewSavedPostHandler(savedRepo, postRepo, userRepo, likeRepo, d.Clock).RegisterSavedPostRoutes(api)

	d.Log.Info("routes configured", "routes", len(e.Routes()), "mongo", d.Mongo != nil)
	return nil
}

// ErrorHandler renders every failure in the error envelope. Internal causes
// are logged and never sent to the client.
func ErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var (
			appErr  *apperrors.AppError
			httpErr *echo.HTTPError
			code    = apperrors.CodeInternal
			message = "internal server error"
		)
		switch {
		case errors.As(err, &appErr):
			code = appErr.Code
			message = appErr.Message
		case errors.As(err, &httpErr):
			code = codeForStatus(httpErr.Code)
			message = fmt.Sprint(httpErr.Message)
		}
		status := code.HTTPStatus()
		if code == apperrors.CodeInternal {
			log.Error("internal error",
				"method", c.Request().Method,
				"uri", c.Request().RequestURI,
				"error", err)
			message = "internal server error"
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, echo.Map{
				"success": false,
				"error":   echo.Map{"code": code, "message": message},
			})
		}
		if err != nil {
			log.Error("failed to write error response", "error", err)
		}
	}
}

func codeForStatus(status int) apperrors.Code {
	switch status {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		return apperrors.CodeInvalidArgument
	case http.StatusUnauthorized:
		return apperrors.CodeUnauthenticated
	case http.StatusForbidden:
		return apperrors.CodePermissionDenied
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return apperrors.CodeNotFound
	case http.StatusConflict:
		return apperrors.CodeAlreadyExists
	case http.StatusServiceUnavailable:
		return apperrors.CodeUnavailable
	default:
		return apperrors.CodeInternal
	}
}

type gormPinger struct {
	db *gorm.DB
}

func (p gormPinger) Ping(ctx context.Context) map[string]error {
	sqlDB, err := p.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	return map[string]error{"postgres": err}
}
