package router

import (
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/adityarawat/examdesk/config"
	"github.com/adityarawat/examdesk/database"
	"github.com/adityarawat/examdesk/handlers"
	exam_handlers "github.com/adityarawat/examdesk/handlers/exam"
	importer_handlers "github.com/adityarawat/examdesk/handlers/importer"
	tag_handlers "github.com/adityarawat/examdesk/handlers/tag"
	"github.com/adityarawat/examdesk/services"
	"github.com/adityarawat/examdesk/utils/auth"
	"github.com/adityarawat/examdesk/utils/cache"
	"github.com/adityarawat/examdesk/utils/middleware"
)

func SetupRoutes(app *fiber.App, store database.Storage, registry *services.SessionRegistry) {
	getEnv, err := config.Get()
	if err != nil {
		log.Fatal("Failed to load environment configuration")
	}

	jwtSecret := getEnv.JWT_SECRET
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	jwtIssuer := getEnv.JWT_ISSUER
	if jwtIssuer == "" {
		jwtIssuer = "examdesk-api"
	}

	verifier := auth.NewJWTVerifier(auth.JWTConfig{
		Secret: jwtSecret,
		Issuer: jwtIssuer,
	})
	authMiddleware := middleware.NewAuthMiddleware(verifier)

	// Get DB instance (type assert from interface)
	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		log.Fatal("Failed to get GORM DB instance")
	}

	// Redis backs extraction job recovery and the tag directory cache
	redisURL := getEnv.REDIS_URL
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}

	redisCache, err := cache.NewRedisCache(redisURL)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v. Job recovery and tag caching will be disabled.", err)
	}

	// Services
	examService := services.NewExamService(db)
	tagService := services.NewTagService(db, redisCache)
	rasterizer := services.NewRasterizer()
	normalizer := services.NewNormalizer()
	detector := services.NewDuplicateDetector(examService)
	tracker := services.NewProgressTracker(redisCache)

	docScan := services.NewDocScanClient(services.DocScanConfig{
		BaseURL:      getEnv.EXTRACTION_SERVICE_URL,
		APIKey:       getEnv.EXTRACTION_API_KEY,
		DefaultModel: getEnv.EXTRACTION_MODEL,
	})
	orchestrator := services.NewOrchestrator(docScan, services.OrchestratorConfig{})

	// Security middleware
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:3001"
	}
	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    allowedOrigins,
		RateLimitRequests: 100,             // 100 requests
		RateLimitWindow:   1 * time.Minute, // per minute
	})

	// Handlers
	importHandler := importer_handlers.NewImportHandler(
		registry, rasterizer, orchestrator, normalizer, detector,
		examService, tagService, tracker)
	examHandler := exam_handlers.NewExamHandler(examService)
	tagHandler := tag_handlers.NewTagHandler(tagService)

	// Health check endpoints (public)
	healthHandler := handlers.HandleCheckHealth(store)
	app.Get("/ping", healthHandler)
	app.Get("/health", healthHandler)

	// API v1 group
	api := app.Group("/api/v1")

	// Import workflow routes (protected)
	imports := api.Group("/imports", authMiddleware.Required())
	imports.Post("/", importHandler.CreateImport)
	imports.Get("/:id", importHandler.GetImport)
	imports.Put("/:id/pages", importHandler.UpdatePages)
	imports.Post("/:id/reselect", importHandler.ResumeSelection)
	imports.Post("/:id/analyze", importHandler.Analyze)
	imports.Get("/:id/analyze/status", importHandler.GetAnalysisStatus)
	imports.Get("/:id/review", importHandler.Review)
	imports.Patch("/:id/questions/:question_id", importHandler.EditQuestion)
	imports.Post("/:id/questions/:question_id/toggle", importHandler.ToggleQuestion)
	imports.Delete("/:id/questions/:question_id", importHandler.DeleteQuestion)
	imports.Post("/:id/proceed", importHandler.Proceed)
	imports.Post("/:id/back", importHandler.Back)
	imports.Post("/:id/commit", importHandler.Commit)
	imports.Delete("/:id", importHandler.Abandon)

	// Exam catalog routes (protected, read-only)
	exams := api.Group("/exams", authMiddleware.Required())
	exams.Get("/", examHandler.ListExams)
	exams.Get("/:id/sections", examHandler.ListSections)

	// Tag directory
	api.Get("/tags", authMiddleware.Required(), tagHandler.ListTags)
}
