package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/codebuildervaibhav/speaker-transcription/internal/app"
	"github.com/codebuildervaibhav/speaker-transcription/internal/cleanup"
	"github.com/codebuildervaibhav/speaker-transcription/internal/config"
	"github.com/codebuildervaibhav/speaker-transcription/internal/handlers"
	"github.com/codebuildervaibhav/speaker-transcription/internal/logging"
	"github.com/codebuildervaibhav/speaker-transcription/internal/queue"
	"github.com/codebuildervaibhav/speaker-transcription/internal/storage"
	"github.com/codebuildervaibhav/speaker-transcription/internal/transcription"
)

const waitTimeout = 10 * time.Minute

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := cleanup.EnsureDirs(cfg.Storage.TempDir, cfg.Storage.OutputDir, cfg.Log.Dir); err != nil {
		log.Fatalf("Failed to create directories: %v", err)
	}

	logBuffer := logging.NewLogBuffer(cfg.Log.BufferLines)
	logFile, err := logging.OpenLogFile(cfg.Log.Dir, time.Now())
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer logFile.Close()

	zlog, err := logging.New(cfg.Log.Level, logBuffer, logFile)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zlog.Info("Initializing components")

	pipeline, recognizerName, err := app.NewPipeline(cfg, zlog)
	if err != nil {
		zlog.Fatal("Failed to initialize pipeline", zap.Error(err))
	}
	inUse := cleanup.NewRegistry()
	pipeline.WithFileHolder(inUse)

	sinks := queue.Sinks{
		Local: storage.NewLocalStorage(cfg.Storage.OutputDir, recognizerName),
	}

	// Google Drive (optional)
	if _, err := os.Stat(cfg.GoogleDrive.CredentialsFile); cfg.GoogleDrive.CredentialsFile != "" && err == nil {
		driveClient, err := storage.NewDriveClient(ctx,
			cfg.GoogleDrive.CredentialsFile,
			cfg.GoogleDrive.TokenFile,
			cfg.GoogleDrive.FolderName,
		)
		if err != nil {
			zlog.Warn("Google Drive not available, transcripts will only be saved locally", zap.Error(err))
		} else {
			sinks.Drive = driveClient
			zlog.Info("Google Drive integration enabled")
		}
	} else {
		zlog.Info("Google Drive credentials not found, saving locally only")
	}

	// Object store archive (optional)
	if cfg.ObjectStore.Enabled {
		store, err := storage.NewObjectStore(ctx, storage.ObjectStoreConfig{
			Endpoint:  cfg.ObjectStore.Endpoint,
			Bucket:    cfg.ObjectStore.Bucket,
			AccessKey: cfg.ObjectStore.AccessKey,
			SecretKey: cfg.ObjectStore.SecretKey,
			UseSSL:    cfg.ObjectStore.UseSSL,
		})
		if err != nil {
			zlog.Warn("Object store not available", zap.Error(err))
		} else {
			sinks.Archive = store
			zlog.Info("Object store archive enabled", zap.String("bucket", cfg.ObjectStore.Bucket))
		}
	}

	db, err := storage.NewMetadataDB(cfg.Storage.Database)
	if err != nil {
		zlog.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()
	sinks.Metadata = db

	workerPool := queue.NewWorkerPool(cfg.Workers.Count, 100, pipeline, sinks, zlog).WithFileHolder(inUse)
	workerPool.Start(ctx)

	cleanupScheduler := cleanup.NewScheduler(time.Duration(cfg.Cleanup.IntervalMinutes)*time.Minute, zlog,
		cleanup.Target{Dir: cfg.Storage.TempDir, MaxAge: time.Duration(cfg.Cleanup.MaxAgeHours) * time.Hour},
		cleanup.Target{Dir: cfg.Log.Dir, MaxAge: time.Duration(cfg.Cleanup.LogMaxAgeHours) * time.Hour},
	).WithRegistry(inUse)
	if cfg.Cleanup.RetentionDays > 0 {
		cleanupScheduler.WithPrune(time.Duration(cfg.Cleanup.RetentionDays)*24*time.Hour, db.DeleteOlderThan)
	}
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	fiberApp := fiber.New(fiber.Config{
		BodyLimit:             cfg.Limits.MaxFileSizeMB * 1024 * 1024,
		DisableStartupMessage: true,
	})

	fiberApp.Use(recover.New())
	fiberApp.Use(logger.New())
	fiberApp.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	defaults := app.Defaults(cfg)
	titleTimeout := time.Duration(cfg.Download.TitleTimeoutSecs) * time.Second

	transcribeHandler := handlers.NewTranscribeHandler(workerPool, defaults, waitTimeout)
	uploadHandler := handlers.NewUploadHandler(workerPool, defaults, cfg.Storage.TempDir, cfg.Limits.MaxFileSizeMB, zlog)
	gdriveHandler := handlers.NewGDriveHandler(workerPool, defaults)
	youtubeHandler := handlers.NewYouTubeHandler(workerPool, defaults,
		transcription.NewTitleResolver(titleTimeout, zlog), titleTimeout, zlog)
	streamHandler := handlers.NewStreamHandler(workerPool, defaults, cfg.Storage.TempDir, cfg.Limits.MaxFileSizeMB, zlog)
	jobsHandler := handlers.NewJobsHandler(workerPool)
	transcriptsHandler := handlers.NewTranscriptsHandler(db)

	fiberApp.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":     "healthy",
			"version":    "1.0.0",
			"recognizer": recognizerName,
		})
	})

	fiberApp.Post("/transcribe", transcribeHandler.Handle)
	fiberApp.Post("/upload", uploadHandler.Handle)
	fiberApp.Post("/gdrive", gdriveHandler.Handle)
	fiberApp.Post("/youtube", youtubeHandler.Handle)
	fiberApp.Post("/clean", handlers.HandleClean)
	fiberApp.Get("/ws/stream", websocket.New(streamHandler.Handle))
	fiberApp.Get("/jobs/:id", jobsHandler.Handle)
	fiberApp.Get("/transcripts", transcriptsHandler.List)
	fiberApp.Get("/transcripts/:id/text", transcriptsHandler.Text)
	fiberApp.Get("/logs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"logs": logBuffer.GetLogs(),
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	zlog.Info("Server starting",
		zap.String("addr", addr),
		zap.Strings("endpoints", []string{
			"POST /transcribe",
			"POST /upload",
			"POST /gdrive",
			"POST /youtube",
			"POST /clean",
			"GET  /ws/stream",
			"GET  /jobs/:id",
			"GET  /transcripts",
			"GET  /transcripts/:id/text",
			"GET  /logs",
			"GET  /health",
		}),
	)

	go func() {
		<-ctx.Done()
		zlog.Info("Shutting down gracefully")
		if err := fiberApp.Shutdown(); err != nil {
			zlog.Error("Server shutdown failed", zap.Error(err))
		}
	}()

	if err := fiberApp.Listen(addr); err != nil {
		zlog.Error("Server failed", zap.Error(err))
	}

	workerPool.Stop()
}
