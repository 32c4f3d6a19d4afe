// Profit Radar API
// @title Profit Radar API
// @version 1.0
// @description Auction calendar and sale list reconciliation API. Stores scraped Copart calendars and merges sale lists incrementally.
// @host localhost:8080
// @BasePath /

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/time/rate"

	_ "profitradar/docs"
	"profitradar/internal/backend"
	"profitradar/internal/config"
	"profitradar/internal/handlers"
	"profitradar/internal/metrics"
	"profitradar/internal/middleware"
	"profitradar/internal/notify"
	"profitradar/internal/reconcile"
	"profitradar/internal/scraper"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := backend.Open(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to open store:", err)
	}
	defer store.Close(context.Background())

	readCache, releaseCache, err := backend.OpenCache(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to open cache:", err)
	}
	defer releaseCache()

	m := metrics.New()
	opts := []reconcile.Option{
		reconcile.WithObserver(m),
		reconcile.WithObserver(notify.LogNotifier{}),
	}
	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Printf("[WARN] Telegram notifications disabled: %v", err)
		} else {
			opts = append(opts, reconcile.WithObserver(tg))
		}
	}
	rec := reconcile.New(store, opts...)

	scraperCfg, err := config.LoadScraperConfig(cfg.ScraperConfig)
	if err != nil {
		log.Printf("[WARN] Using default scraper configuration: %v", err)
		scraperCfg = config.DefaultScraperConfig()
	}
	source, err := scraper.New(cfg.FixturesDir, scraperCfg)
	if err != nil {
		log.Fatal("Failed to create scraper source:", err)
	}
	defer source.Close()

	calendarHandler := handlers.NewCalendarHandler(rec, readCache)
	saleListHandler := handlers.NewSaleListHandler(rec, readCache, source)

	r := gin.Default()

	// Configure trusted proxies for Cloudflare Tunnels
	r.SetTrustedProxies([]string{
		"127.0.0.1",
		"::1",
		"172.16.0.0/12",  // Docker networks
		"10.0.0.0/8",     // Private networks
		"192.168.0.0/16", // Private networks
	})

	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.SecurityScanDetection())
	r.Use(middleware.HTTPMethodFilter(http.MethodGet, http.MethodPost, http.MethodOptions))
	r.Use(m.Middleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Admin-Key"}
	r.Use(cors.New(corsConfig))

	limiter := middleware.NewRateLimiter(ctx, rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	r.Use(middleware.RateLimitMiddleware(limiter))

	// Swagger documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/metrics", gin.WrapH(m.Handler()))

	api := r.Group("/api")
	{
		api.GET("/health", handlers.Health(store))
		api.GET("/calendar", calendarHandler.GetCalendar)
		api.GET("/calendar/months", calendarHandler.ListMonths)
		api.GET("/auctions", calendarHandler.GetAuction)
		api.GET("/dashboard", calendarHandler.Dashboard)

		admin := api.Group("")
		admin.Use(middleware.AdminKeyMiddleware(cfg.AdminKeyHash))
		{
			admin.POST("/calendar", calendarHandler.SaveCalendar)
			admin.POST("/sale-list", saleListHandler.AttachSaleList)
			admin.POST("/scrape/sales", middleware.ScrapeCooldownMiddleware(cfg.ScrapeCooldown), saleListHandler.ScrapeSales)
		}
	}
	if cfg.AdminKeyHash == "" {
		log.Println("[WARN] ADMIN_KEY_HASH not set, write endpoints are disabled")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[ERROR] Server shutdown: %v", err)
	}
}
