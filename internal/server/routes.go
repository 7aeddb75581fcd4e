package server

import (
	"inkwell/internal/middleware"
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
)

const (
	defaultOrigins = "http://localhost:5173,http://localhost:3000"
	corsHeaders    = "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version"
)

// SetupMiddleware installs the global middleware chain. Request IDs come
// before the context, tracing and access log middleware that read them.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.RequestTracing())
	app.Use(middleware.AccessLog())
	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}
	app.Use(helmet.New())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = defaultOrigins
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     corsHeaders,
		AllowCredentials: origins != "*",
		MaxAge:           24 * 60 * 60,
	}))
}

// SetupRoutes mounts every route.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)

	s.mountAuth(api.Group("/auth"))
	s.mountPosts(api.Group("/posts"))
	s.mountUsers(api.Group("/users"))
	api.Get("/categories", s.GetCategories)

	// Live feed: a ticket is issued over HTTP, then spent on the upgrade.
	api.Post("/ws/ticket", s.AuthRequired(), s.IssueWSTicket)
	api.Get("/ws", s.wsUpgrade, s.WebsocketHandler())
}

func (s *Server) mountAuth(r fiber.Router) {
	r.Post("/register", s.Register)
	r.Post("/login", s.Login)
	r.Get("/me", s.AuthRequired(), s.Me)
}

// Reads resolve the caller when they can; writes need one.
func (s *Server) mountPosts(r fiber.Router) {
	r.Get("/", s.AuthOptional(), s.GetPosts)
	r.Get("/:id", s.AuthOptional(), s.GetPost)

	r.Post("/", s.AuthRequired(), s.CreatePost)
	r.Post("/:id/like", s.AuthRequired(), s.ToggleLike)
	r.Post("/:id/comments", s.AuthRequired(), s.AddComment)
	r.Put("/:id", s.AuthRequired(), s.UpdatePost)
	r.Delete("/:id", s.AuthRequired(), s.DeletePost)
}

func (s *Server) mountUsers(r fiber.Router) {
	r.Get("/:id/posts", s.GetUserPosts)
	r.Get("/:id", s.AuthRequired(), s.GetUser)

	admin := []fiber.Handler{s.AuthRequired(), s.AdminRequired()}
	r.Get("/", append(admin, s.GetUsers)...)
	r.Put("/:id", append(admin, s.UpdateUser)...)
	r.Delete("/:id", append(admin, s.DeleteUser)...)
}

// AuthRequired rejects requests without a valid token for an active user.
func (s *Server) AuthRequired() fiber.Handler {
	return middleware.AuthRequired(s.authChain)
}

// AuthOptional resolves the caller when a valid token is present and otherwise
// lets the request through anonymously.
func (s *Server) AuthOptional() fiber.Handler {
	return middleware.AuthOptional(s.authChain)
}

// AdminRequired answers 403 to non-admins. It must follow AuthRequired.
func (s *Server) AdminRequired() fiber.Handler {
	return middleware.RoleRequired(models.RoleAdmin)
}
