package cmd

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"reward-system/config"
	"reward-system/internal/handlers"
	"reward-system/internal/services"
	"reward-system/internal/services/wallet"
	"reward-system/monitoring"
	"reward-system/utils"

	_ "reward-system/migrations"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL)
	defer redisClient.Close()

	// Initialize PubNub (user notifications)
	pnConfig := pubnub.NewConfig()
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey

	pn := pubnub.NewPubNub(pnConfig)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to the wallet provider (reward delivery)
	walletProvider, err := wallet.New(ctx, &wallet.Config{
		BaseURL:     cfg.Wallet.BaseURL,
		PartnerID:   cfg.Wallet.PartnerID,
		ClientID:    cfg.Wallet.ClientID,
		ClientKey:   cfg.Wallet.ClientKey,
		HMACKey:     cfg.Wallet.HMACKey,
		PNSubKey:    cfg.Wallet.PNSubKey,
		PNSubSecret: cfg.Wallet.PNSubSecret,
		PNUUID:      cfg.Wallet.PNUUID,
		PNChannel:   cfg.Wallet.PNChannel,
		PNCipherKey: cfg.Wallet.PNCipherKey,
	})
	if err != nil {
		return err
	}
	defer walletProvider.Close(ctx)

	go func() {
		confirmCh := make(chan *wallet.Confirmation, 1)
		walletProvider.SetConfirmationChannel(confirmCh)
		for {
			select {
			case <-ctx.Done():
				return
			case c := <-confirmCh:
				slog.Info("wallet grant settled", "reference", c.Reference, "status", c.Status)
			}
		}
	}()

	var monitor *monitoring.Monitor
	if cfg.EnableMetrics {
		monitor = monitoring.NewMonitor(app)
		defer monitor.Close()
	}

	// Initialize services
	catalogService := services.NewCatalogService(app)
	quotaService := services.NewQuotaService(app)
	requestStore := services.NewRequestStore(app)
	claimLock := services.NewClaimLock(redisClient, cfg.ClaimLockTTL)
	notifyService := services.NewNotifyService(pn)
	requestService := services.NewRequestService(
		requestStore,
		quotaService,
		catalogService,
		walletProvider,
		claimLock,
		notifyService,
		nil,
		cfg.DeliveryTimeout,
	)
	if monitor != nil {
		// assigned separately so a disabled monitor stays a nil interface
		// inside the engine
		requestService.SetMonitor(monitor)
	}

	// Initialize handlers
	requestHandler := handlers.NewRequestHandler(app, requestService)
	catalogHandler := handlers.NewCatalogHandler(app, catalogService)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	// Setup graceful shutdown
	go handleShutdown(cancel)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// Claim endpoints
		e.Router.POST("/api/rewards/request", requestHandler.SubmitRequest)
		e.Router.POST("/api/rewards/approve/{id}", requestHandler.ApproveRequest)
		e.Router.POST("/api/rewards/reject/{id}", requestHandler.RejectRequest)
		e.Router.GET("/api/rewards/requests/user/{userId}", requestHandler.GetUserRequests)
		e.Router.GET("/api/rewards/requests/all", requestHandler.GetAllRequests)
		e.Router.GET("/api/rewards/requests/pending", requestHandler.GetPendingRequests)

		// Event endpoints
		e.Router.GET("/api/events", catalogHandler.GetEvents)
		e.Router.GET("/api/events/active", catalogHandler.GetActiveEvents)
		e.Router.GET("/api/events/{id}", catalogHandler.GetEvent)
		e.Router.POST("/api/events", catalogHandler.CreateEvent)
		e.Router.PATCH("/api/events/{id}", catalogHandler.UpdateEvent)
		e.Router.DELETE("/api/events/{id}", catalogHandler.DeleteEvent)

		// Reward catalog endpoints
		e.Router.GET("/api/rewards", catalogHandler.GetRewards)
		e.Router.POST("/api/rewards", catalogHandler.CreateReward)
		e.Router.PATCH("/api/rewards/{id}", catalogHandler.UpdateReward)
		e.Router.DELETE("/api/rewards/{id}", catalogHandler.DeleteReward)

		// Metrics
		if cfg.EnableMetrics {
			metricsHandler := promhttp.Handler()
			e.Router.GET("/metrics", func(e *core.RequestEvent) error {
				metricsHandler.ServeHTTP(e.Response, e.Request)
				return nil
			})
		}

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		log.Println("Server routes registered")

		return e.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
	return nil
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
