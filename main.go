package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/sidneypayan/linguami-sub005/handlers"
	"github.com/sidneypayan/linguami-sub005/middleware"
	"github.com/sidneypayan/linguami-sub005/models"
	"github.com/sidneypayan/linguami-sub005/services"
	"github.com/sidneypayan/linguami-sub005/utils"
	"github.com/sidneypayan/linguami-sub005/workers"

	"github.com/go-co-op/gocron/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		AppName: "linguami-progression",
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID, Retry-After",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	// TranslateError lets the award pipeline detect unique violations as
	// gorm.ErrDuplicatedKey.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.UserProgress{},
		&models.XpTransaction{},
		&models.Goal{},
		&models.PeriodXpTracking{},
		&models.XpRewardConfig{},
		&models.BadgeType{},
		&models.UserBadge{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	// R2 is optional cold storage for the ledger archive worker.
	if os.Getenv("R2_BUCKET_NAME") != "" {
		if err := utils.InitR2(); err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		log.Println("✅ R2 ledger archive storage configured")
	} else {
		log.Println("⚠️  R2_BUCKET_NAME not set — monthly ledger export disabled")
	}

	curve := services.DefaultLevelCurve
	if base := envInt64("XP_LEVEL_BASE"); base > 0 {
		curve = services.LevelCurve{BaseXP: base}
	}
	targets := services.DefaultGoalTargets
	if v := envInt64("DAILY_XP_TARGET"); v > 0 {
		targets.Daily = v
	}
	if v := envInt64("WEEKLY_XP_TARGET"); v > 0 {
		targets.Weekly = v
	}
	if v := envInt64("MONTHLY_XP_TARGET"); v > 0 {
		targets.Monthly = v
	}

	// Redis is optional: without it the leaderboard serves straight from SQL.
	var rdb *redis.Client
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Fatal("invalid REDIS_URL:", err)
		}
		rdb = redis.NewClient(opts)
		log.Println("✅ Redis leaderboard cache configured")
	} else {
		log.Println("⚠️  REDIS_URL not set — leaderboard served from SQL only")
	}

	goalService := services.NewGoalService(db, targets)
	rewardService := services.NewRewardService(db)
	awardService := services.NewAwardService(db, curve, goalService, rewardService)
	configService := services.NewRewardConfigService(db)
	leaderboardService := services.NewLeaderboardService(db, rdb)

	if err := configService.SeedDefaults(); err != nil {
		log.Fatal("failed to seed reward configs:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Fatal("failed to create scheduler:", err)
	}
	if err := workers.NewReconcileWorker(db, curve).StartNightly(sched); err != nil {
		log.Fatal("failed to register reconcile job:", err)
	}
	if err := workers.NewLedgerArchiveWorker(db).StartMonthly(sched); err != nil {
		log.Fatal("failed to register ledger archive job:", err)
	}
	sched.Start()

	// ✅ Setup routes — enforced Gateway auth + consistent /s/ prefix for admin
	handlers.SetupProgressionRoutes(app, awardService, goalService, rewardService, configService, leaderboardService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5200"
	}
	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Progression service running on http://localhost:%s", port)
	log.Println("✅ Nightly ledger reconcile scheduled (03:10 UTC)")
	log.Println("✅ Monthly ledger archive scheduled (1st, 04:00 UTC)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := sched.Shutdown(); err != nil {
		log.Printf("Scheduler shutdown error: %v", err)
	}
	if err := app.Shutdown(); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}

func envInt64(key string) int64 {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Printf("⚠️  invalid %s=%q — ignoring", key, v)
		return 0
	}
	return n
}
