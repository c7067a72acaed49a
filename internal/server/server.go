// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"strings"
	"time"

	"commune/internal/cache"
	"commune/internal/config"
	"commune/internal/database"
	"commune/internal/featureflags"
	"commune/internal/middleware"
	"commune/internal/modelclient"
	"commune/internal/models"
	"commune/internal/repository"
	"commune/internal/service"

	_ "commune/docs" // swagger docs

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server wires configuration, storage, and the service layer behind the HTTP
// handlers. Handlers never touch the database directly; everything goes
// through a service.
type Server struct {
	config *config.Config
	db     *gorm.DB
	redis  *redis.Client

	resolver     middleware.IdentityResolver
	model        modelclient.Client
	featureFlags *featureflags.Manager

	userService    *service.UserService
	postService    *service.PostService
	commentService *service.CommentService
	uploadService  *service.UploadService
}

// NewServer creates a server with real infrastructure: Postgres via GORM and
// Redis (optional; the server degrades gracefully without it).
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}

	cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a server with injected dependencies for testing.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	flags, err := featureflags.NewManagerFromSources(cfg.FlagsFile, cfg.FeatureFlags)
	if err != nil {
		return nil, err
	}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	model := modelclient.New(cfg.ModelURL, time.Duration(cfg.ModelTimeoutMS)*time.Millisecond)

	uploadService, err := service.NewUploadService(cfg.UploadDir, cfg.UploadMaxMB)
	if err != nil {
		return nil, err
	}

	return &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		resolver:       selectResolver(cfg),
		model:          model,
		featureFlags:   flags,
		userService:    service.NewUserService(userRepo, cfg.JWTSecret),
		postService:    service.NewPostService(postRepo, model, cfg.UploadDir),
		commentService: service.NewCommentService(commentRepo, postRepo, model, flags),
		uploadService:  uploadService,
	}, nil
}

// selectResolver picks the identity resolver from config. Handlers are
// oblivious to the choice.
func selectResolver(cfg *config.Config) middleware.IdentityResolver {
	if cfg.AuthMode == config.AuthModeJWT {
		return middleware.NewJWTResolver(cfg)
	}
	return middleware.NewHeaderResolver(cfg.IdentityHeader)
}

// ErrorHandler is the Fiber-level error handler: anything a handler returns
// (or Fiber raises, e.g. 404 on unknown routes) becomes an envelope. The
// message is the status text in the same snake_case register as the rest of
// the API ("not_found", "upgrade_required").
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		message := strings.ReplaceAll(strings.ToLower(utils.StatusMessage(fiberErr.Code)), " ", "_")
		return models.Respond(c, fiberErr.Code, message, nil)
	}
	return models.RespondWithError(c, err)
}

// SetupMiddleware configures the global middleware stack. Order matters:
// recover first, then request id and context propagation so every later
// layer logs with the same correlation fields.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}
	app.Use(middleware.ContextMiddleware())

	middleware.InitMetrics(app)

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// Coarse in-process flood guard; the Redis limiter on sensitive routes
	// does the per-user accounting.
	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
	}))
}

// SetupRoutes registers all API routes. Static segments are registered
// before parameterized ones so /posts/upload never falls into /posts/:id.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)

	requireIdentity := middleware.IdentityRequired(s.resolver)

	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(s.redis, 20, time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimitWithPolicy(s.redis, 30, time.Minute, middleware.FailClosed, "login"), s.Login)

	users := api.Group("/users", requireIdentity)
	users.Get("/me", s.GetProfile)
	users.Patch("/nickname", s.UpdateNickname)
	users.Patch("/password", s.UpdatePassword)
	users.Post("/profile/upload", s.UploadProfileImage)
	users.Delete("/profile", s.DeleteAccount)

	posts := api.Group("/posts", middleware.OptionalIdentity(s.resolver))
	posts.Post("/upload", requireIdentity, s.UploadImage)
	posts.Get("/", s.ListPosts)
	posts.Post("/", requireIdentity, s.CreatePost)
	posts.Get("/:id", s.GetPost)
	posts.Patch("/:id/view", s.IncrementView)
	posts.Patch("/:id", requireIdentity, s.UpdatePost)
	posts.Delete("/:id", requireIdentity, s.DeletePost)
	posts.Post("/:id/like", requireIdentity, s.ToggleLike)

	posts.Get("/:id/comments", s.ListComments)
	posts.Post("/:id/comments", requireIdentity, s.CreateComment)
	posts.Put("/:id/comments/:commentId", requireIdentity, s.UpdateComment)
	posts.Delete("/:id/comments/:commentId", requireIdentity, s.DeleteComment)

	model := api.Group("/model", requireIdentity,
		middleware.RateLimit(s.redis, 60, time.Minute, "model"))
	model.Post("/sentiment", s.ModelSentiment)
	model.Post("/summarize", s.ModelSummarize)
	model.Post("/tags", s.ModelTags)
	model.Post("/embedding", s.ModelEmbedding)
	model.Post("/chat", s.ModelChat)
	model.Get("/chat/ws", s.upgradeChatSocket, s.chatSocketHandler())
}

// LivenessCheck reports that the process is up. No dependencies are touched.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return models.Respond(c, fiber.StatusOK, "alive", nil)
}

// ReadinessCheck pings the database and Redis. An unreachable database makes
// the server not ready; Redis is optional and only reported.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	checks := fiber.Map{}
	healthy := true

	sqlDB, err := s.db.DB()
	if err != nil || sqlDB.PingContext(ctx) != nil {
		checks["database"] = "unhealthy"
		healthy = false
	} else {
		checks["database"] = "healthy"
	}

	if s.redis == nil {
		checks["redis"] = "disabled"
	} else if err := s.redis.Ping(ctx).Err(); err != nil {
		checks["redis"] = "unhealthy"
	} else {
		checks["redis"] = "healthy"
	}

	if !healthy {
		return models.Respond(c, fiber.StatusServiceUnavailable, "not_ready", checks)
	}
	return models.Respond(c, fiber.StatusOK, "ready", checks)
}

// Shutdown releases server-held resources after the Fiber app has stopped.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	return nil
}
