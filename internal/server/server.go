// Package server contains the HTTP handlers for the JSON API and the HTML session pages.
package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	_ "postgate/docs" // swagger docs
	"postgate/internal/auth"
	"postgate/internal/cache"
	"postgate/internal/config"
	"postgate/internal/database"
	"postgate/internal/middleware"
	"postgate/internal/models"
	"postgate/internal/repository"
	"postgate/internal/service"
	"postgate/internal/web"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	store          repository.Store
	userService    *service.UserService
	postService    *service.PostService
	authService    *service.AuthService
}

// NewServer connects to the database and Redis described by cfg and builds a
// Server on top of them.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	s, err := NewServerWithDeps(cfg, db, cache.NewClient(cfg.RedisURL))
	if err != nil {
		_ = database.Close(db)
		return nil, err
	}
	return s, nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// A nil redisClient disables token revocation.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("server requires a config and a database")
	}

	store := repository.NewStore(db)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL())
	users := service.NewUserService(store)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("postgate-api"),
		store:          store,
		userService:    users,
		postService:    service.NewPostService(store),
		authService:    service.NewAuthService(store, users, tokens, cache.NewRevocations(redisClient)),
	}

	app, err := s.newApp()
	if err != nil {
		return nil, err
	}
	s.app = app
	return s, nil
}

// App returns the configured Fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) newApp() (*fiber.App, error) {
	engine, err := web.NewEngine()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	app := fiber.New(fiber.Config{
		AppName:      "Postgate API",
		Views:        engine,
		ViewsLayout:  "layouts/main",
		ErrorHandler: s.errorHandler,
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app, nil
}

// errorHandler is the last stop for errors no handler turned into a response.
// Framework errors keep their status; anything else is a generic 500.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}

	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
		return models.RespondWithError(c, status, models.NewInternalError(err))
	}
	return models.RespondWithError(c, status, err)
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Spans first so the trace ID is available to the context middleware
	app.Use(middleware.TracingMiddleware())

	// Context Middleware to propagate Request ID and Trace ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "*"
	}

	// Fiber refuses credentials together with a wildcard origin.
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: origins != "*",
		MaxAge:           86400, // 24 hours
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health", s.HealthCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	authRequired := s.AuthRequired()

	// Auth routes
	authAPI := app.Group("/auth")
	authAPI.Post("/reg", s.Register)
	authAPI.Post("/login", s.Login)
	authAPI.Post("/logout", authRequired, s.Logout)
	authAPI.Get("/me", authRequired, s.Me)

	// User routes
	users := app.Group("/user", authRequired)
	users.Get("/", s.GetUsers)
	users.Post("/", s.CreateUser)
	users.Patch("/:id/deactivate", s.DeactivateUser)
	users.Get("/:id", s.GetUser)
	users.Put("/:id", s.UpdateUser)
	users.Patch("/:id", s.UpdateUserPartial)
	users.Delete("/:id", s.DeleteUser)

	// Post routes. GET /post/:id is shared with the HTML surface, so auth is
	// attached per route instead of on the group.
	posts := app.Group("/post")
	posts.Get("/", authRequired, s.GetPosts)
	posts.Post("/", authRequired, s.CreatePost)
	posts.Get("/:id", s.preferHTML(s.PostPage), authRequired, s.GetPost)
	posts.Put("/:id", authRequired, s.UpdatePost)
	posts.Patch("/:id", authRequired, s.UpdatePostPartial)
	posts.Delete("/:id", authRequired, s.DeletePost)

	// Session (HTML) routes
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/index", fiber.StatusSeeOther)
	})
	app.Get("/login", s.LoginPage)
	app.Post("/login", s.LoginSubmit)
	app.Get("/register", s.RegisterPage)
	app.Post("/register", s.RegisterSubmit)
	app.Post("/logout", s.LogoutSubmit)
	app.Get("/index", s.IndexPage)

	session := s.SessionRequired()
	app.Post("/create_post", session, s.CreatePostSubmit)
	app.Post("/delete_post/:id", session, s.DeletePostSubmit)
	app.Post("/update_post", session, s.UpdatePostSubmit)
	app.Post("/update_post_partial", session, s.UpdatePostPartialSubmit)
	app.Get("/my_posts", session, s.MyPostsPage)
	app.Get("/profile", session, s.ProfilePage)
	app.Post("/update_user_partial", session, s.UpdateUserPartialSubmit)
	app.Post("/delete_user", session, s.DeleteUserSubmit)
}

// HealthCheck handles readiness probe requests
// @Summary Health check
// @Description Reports database and Redis reachability
// @Tags health
// @Produce json
// @Success 200 {object} object{status=string,checks=object}
// @Failure 503 {object} object{status=string,checks=object}
// @Router /health [get]
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := s.store.Ping(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	// Redis only backs revocation; the API works without it.
	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	middleware.Logger.Info("Server starting", "port", s.config.Port, "env", s.config.Env)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		middleware.Logger.Error("error shutting down HTTP server", "error", err)
	}

	if err := database.Close(s.db); err != nil {
		middleware.Logger.Error("error closing database", "error", err)
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			middleware.Logger.Error("error closing redis", "error", err)
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
