package app

import (
	"fmt"
	"log"
	"os"

	"github.com/redteam-academy/api/api"
	"github.com/redteam-academy/api/config"
	"github.com/redteam-academy/api/database"
	"github.com/redteam-academy/api/router"
	"github.com/redteam-academy/api/services/cron"
	"github.com/redteam-academy/api/utils/auth"
	"github.com/redteam-academy/api/utils/cache"
)

func SetupAndRunServer() error {

	// Load ENV
	if err := config.LoadENV(); err != nil {
		return err
	}

	getEnv, err := config.Get()
	if err != nil {
		return err
	}

	// Initialize GORM database connection
	store, err := database.StartGORM()
	if err != nil {
		print("Check whether the Postgres is running or not\n")
		return err
	}

	if err := store.Init(); err != nil {
		print("Failed to initialize database tables\n")
		return err
	}

	// Seed baseline data
	if err := database.NewSeeder(store.DB()).SeedAll(); err != nil {
		log.Printf("Warning: seeding failed: %v", err)
	}

	// Redis is optional: without it brute-force protection is disabled and
	// chat sessions fall back to process-local memory
	var redisCache *cache.RedisCache
	if getEnv.REDIS_URL != "" {
		redisCache, err = cache.NewRedisCache(getEnv.REDIS_URL)
		if err != nil {
			log.Printf("Warning: Failed to connect to Redis: %v", err)
			redisCache = nil
		}
	}

	// Initialize Cron Manager (only if enabled via environment variable)
	var cronManager *cron.CronManager
	if os.Getenv("CRON_ENABLED") != "false" { // Default to enabled
		blacklist := auth.NewBlacklistService(store.DB())
		cronManager = cron.NewCronManager(store.DB(), blacklist, redisCache)
		if err := cronManager.Start(); err != nil {
			log.Printf("Warning: Failed to start cron jobs: %v", err)
			// Don't fail the app, just log the warning
		}
	}

	// Defer Closing DB, Redis and stopping cron jobs
	defer func() {
		if cronManager != nil {
			cronManager.Stop()
		}
		if redisCache != nil {
			redisCache.Close()
		}
		store.Close()
	}()

	// Init API
	server := api.NewAPIServer(fmt.Sprintf(":%d", getEnv.PORT), store)
	app := server.GetEngine()

	// Setup Routes (security middleware is applied inside)
	router.SetupRoutes(app, store, redisCache)

	// Get the PORT & Start the Server
	return server.Run()
}
