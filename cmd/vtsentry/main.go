package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/vtsentry/vtsentry/internal/credstore"
	"github.com/vtsentry/vtsentry/internal/notifications"
	"github.com/vtsentry/vtsentry/internal/scanner"
	"github.com/vtsentry/vtsentry/internal/storage"
	"github.com/vtsentry/vtsentry/internal/storage/models"
	"github.com/vtsentry/vtsentry/internal/vtapi"
	"github.com/vtsentry/vtsentry/internal/webserver"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	scanPathFlag := flag.String("scan", "", "Scan a single file and exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found. Proceeding with environment variables.")
	}

	scannerCfg, err := scanner.LoadEnvConfig()
	if err != nil {
		logger.Fatalf("Failed to load scanner configuration: %v", err)
	}

	storageCfg, err := storage.LoadConfig()
	if err != nil {
		logger.Fatalf("Failed to load storage configuration: %v", err)
	}

	ctx := context.Background()

	var store storage.ResultStore
	switch storageCfg.Type {
	case "bolt":
		store, err = storage.NewBoltStore(storageCfg.Path)
		if err != nil {
			logger.Fatalf("Failed to initialize BoltDB storage: %v", err)
		}
		logger.Info("BoltDB storage initialized successfully")
	case "redis":
		store, err = storage.NewRedisStore(storageCfg)
		if err != nil {
			logger.Fatalf("Failed to initialize Redis storage: %v", err)
		}
		logger.Info("Redis storage initialized successfully")
	default:
		logger.Fatalf("Unsupported storage type: %s", storageCfg.Type)
	}
	defer store.Close(ctx)

	var creds credstore.Store
	if scannerCfg.VTAPIKey != "" {
		creds = credstore.NewStatic(map[string]string{
			credstore.KeyVirusTotalAPIKey: scannerCfg.VTAPIKey,
		})
		logger.Info("Using API key from environment")
	} else {
		boltCreds, err := credstore.NewBoltStore(credstore.DefaultPath())
		if err != nil {
			logger.Fatalf("Failed to open credential store: %v", err)
		}
		defer boltCreds.Close()
		creds = boltCreds
	}

	var notifier scanner.Notifier
	notificationCfg := notifications.LoadConfig()
	if len(notificationCfg.ShoutrrrURLs) > 0 {
		n, err := notifications.NewNotifier(notificationCfg)
		if err != nil {
			logger.Fatalf("Failed to initialize notifier: %v", err)
		}
		notifier = n
		logger.Info("Notifier initialized successfully")
	} else {
		notifier = notifications.LogNotifier{}
		logger.Warn("SHOUTRRR_URLS not set. Scan outcomes will only be logged.")
	}

	client := vtapi.NewClient(scannerCfg.VTBaseURL)
	if scannerCfg.RateLimit > 0 {
		client.SetRateLimiter(&vtapi.RateLimiter{
			Limiter: rate.NewLimiter(scannerCfg.RateLimit, scannerCfg.RateBurst),
			Rate:    scannerCfg.RateLimit,
			Burst:   scannerCfg.RateBurst,
		})
		logger.Infof("Rate limiter set to %.2f req/s (burst %d)", scannerCfg.RateLimit, scannerCfg.RateBurst)
	}

	orchestrator := scanner.NewOrchestrator(scanner.Config{
		Store:       store,
		Client:      client,
		Notifier:    notifier,
		Credentials: creds,
		SubmitWait:  scannerCfg.SubmitWait,
		CacheMaxAge: scannerCfg.CacheMaxAge,
	})

	// One-shot mode: scan the given file and exit.
	if *scanPathFlag != "" {
		record, err := orchestrator.Scan(ctx, *scanPathFlag)
		if err != nil {
			logger.WithError(err).Error("Scan failed")
		}
		fmt.Printf("%s: %s (%s)\n", record.FileName, record.Status, record.Details)
		if record.Status != models.StatusClean {
			os.Exit(1)
		}
		return
	}

	webServerCfg, err := webserver.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load webserver configuration: %v", err)
	}
	webServer := webserver.NewWebServer(orchestrator, store, creds, webServerCfg, logger)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server, err := webserver.StartWebServer(runCtx, webServer)
	if err != nil {
		logger.Fatalf("Failed to start web server: %v", err)
	}

	group, groupCtx := errgroup.WithContext(runCtx)

	if scannerCfg.WatchPath != "" {
		scheduler := scanner.NewScheduler(orchestrator, scannerCfg.WatchPath, scannerCfg.ScanInterval)
		scheduler.Start(groupCtx)
		logger.WithField("path", scannerCfg.WatchPath).
			Infof("Periodic scan scheduled every %s", scannerCfg.ScanInterval)
		group.Go(func() error {
			<-groupCtx.Done()
			scheduler.Stop()
			return nil
		})
	} else {
		logger.Info("WATCH_PATH not set. Periodic scanning disabled.")
	}

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		logger.Fatalf("Shutdown error: %v", err)
	}
	logger.Info("Shutdown complete. Exiting.")
}
