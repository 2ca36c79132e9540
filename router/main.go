package router

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redteam-academy/api/config"
	"github.com/redteam-academy/api/database"
	"github.com/redteam-academy/api/handlers"
	admin_handlers "github.com/redteam-academy/api/handlers/admin"
	auth_handlers "github.com/redteam-academy/api/handlers/auth"
	challenge_handlers "github.com/redteam-academy/api/handlers/challenge"
	chat_handlers "github.com/redteam-academy/api/handlers/chat"
	leaderboard_handlers "github.com/redteam-academy/api/handlers/leaderboard"
	progress_handlers "github.com/redteam-academy/api/handlers/progress"
	"github.com/redteam-academy/api/model"
	"github.com/redteam-academy/api/services"
	"github.com/redteam-academy/api/services/genai"
	"github.com/redteam-academy/api/utils/auth"
	"github.com/redteam-academy/api/utils/cache"
	"github.com/redteam-academy/api/utils/middleware"
)

// SetupRoutes wires middleware, services and handlers onto the Fiber app
func SetupRoutes(app *fiber.App, store database.Storage, redisCache *cache.RedisCache) {
	getEnv, err := config.Get()
	if err != nil {
		log.Fatal("Failed to load environment configuration")
	}

	if getEnv.JWT_SECRET == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	jwtIssuer := getEnv.JWT_ISSUER
	if jwtIssuer == "" {
		jwtIssuer = "redteam-academy-api"
	}

	tokenExpiry := time.Duration(getEnv.JWT_EXPIRY_HOURS) * time.Hour

	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret: getEnv.JWT_SECRET,
		Expiry: tokenExpiry,
		Issuer: jwtIssuer,
	})

	db := store.DB()

	// Brute force protection needs Redis; without it signin runs unguarded
	var bruteForceProtection *middleware.BruteForceProtection
	if redisCache != nil {
		bruteForceProtection = middleware.NewBruteForceProtection(redisCache)
	}

	authMiddleware := middleware.NewAuthMiddleware(jwtManager, db)

	// Challenge catalog (embedded, read-only)
	catalog, err := services.LoadCatalog()
	if err != nil {
		log.Fatalf("Failed to load challenge catalog: %v", err)
	}

	// Session store: Redis when available, in-process memory otherwise
	sessionTTL := time.Duration(getEnv.SESSION_TTL_MINUTES) * time.Minute
	var sessionStore services.SessionStore
	if redisCache != nil {
		sessionStore = services.NewRedisSessionStore(redisCache, sessionTTL)
	} else {
		log.Println("Warning: Redis not configured, chat sessions are process-local")
		sessionStore = services.NewMemorySessionStore(sessionTTL)
	}

	generator := genai.NewClient(genai.Config{
		APIKey: getEnv.GENAI_API_KEY,
		Model:  getEnv.GENAI_MODEL,
	})

	chatService := services.NewChatService(sessionStore, catalog, generator)
	leaderboardService := services.NewLeaderboardService(db)
	progressService := services.NewProgressService(db)
	challengeService := services.NewChallengeService(db, catalog)

	authHandler := auth_handlers.NewAuthHandler(db, jwtManager, bruteForceProtection, tokenExpiry)
	chatHandler := chat_handlers.NewChatHandler(chatService, catalog)
	leaderboardHandler := leaderboard_handlers.NewLeaderboardHandler(leaderboardService)
	progressHandler := progress_handlers.NewProgressHandler(progressService)
	challengeHandler := challenge_handlers.NewChallengeHandler(challengeService, catalog)
	adminHandler := admin_handlers.NewSystemHandler(db, generator)

	// Apply security middleware
	allowedOrigins := getEnv.ALLOWED_ORIGINS
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:3001"
	}

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    allowedOrigins,
		RateLimitRequests: 100,
		RateLimitWindow:   1 * time.Minute,
	})

	// Public endpoints
	app.Get("/", handlers.HandleRoot)
	app.Get("/ping", handlers.HandleCheckHealth(store))

	// Chat endpoints (original single-endpoint contract, root level)
	app.Post("/api", chatHandler.Chat)
	app.Post("/metadata", chatHandler.Metadata)

	// Auth routes
	authGroup := app.Group("/auth")
	authGroup.Post("/signup", authHandler.Signup)

	// Signin with brute force protection
	if bruteForceProtection != nil {
		authGroup.Post("/signin", bruteForceProtection.CheckLockout(), authHandler.Signin)
	} else {
		authGroup.Post("/signin", authHandler.Signin)
	}

	authGroup.Get("/verify", authMiddleware.Required(), authHandler.Verify)
	authGroup.Get("/profile", authMiddleware.Required(), authHandler.Profile)
	authGroup.Post("/logout", authMiddleware.Required(), authHandler.Logout)

	// Leaderboard routes
	app.Get("/leaderboard", leaderboardHandler.List)
	app.Post("/leaderboard/update", authMiddleware.Required(), leaderboardHandler.UpdateScore)

	// Learning progress routes
	progressGroup := app.Group("/progress", authMiddleware.Required())
	progressGroup.Get("/", progressHandler.Get)
	progressGroup.Post("/section", progressHandler.UpdateSection)
	progressGroup.Post("/quiz", progressHandler.CompleteQuiz)
	progressGroup.Post("/reset", progressHandler.Reset)

	// Vulnerability catalog (public)
	app.Get("/vulnerabilities", challengeHandler.ListVulnerabilities)

	// Challenge routes (server-authoritative flag checking)
	challengeGroup := app.Group("/challenges", authMiddleware.Required())
	challengeGroup.Post("/:vulnID/levels/:level/submit", challengeHandler.SubmitFlag)
	challengeGroup.Post("/:vulnID/levels/:level/hints", challengeHandler.RevealHint)
	challengeGroup.Post("/:vulnID/levels/:level/reset", challengeHandler.ResetAttempt)
	challengeGroup.Get("/:vulnID/progress", challengeHandler.GetProgress)

	// Admin diagnostics
	adminGroup := app.Group("/admin", authMiddleware.Required(), authMiddleware.RequireRole(model.RoleAdmin))
	adminGroup.Get("/jobs", adminHandler.ListJobRuns)
	adminGroup.Get("/generator", adminHandler.CheckGenerator)

	// Unmatched routes get the JSON envelope, not Fiber's plain-text default
	app.Use(handlers.HandleNotFound)
}
