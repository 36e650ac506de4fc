package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wisefido-floorplan/internal/authority"
	"wisefido-floorplan/internal/config"
	"wisefido-floorplan/internal/database"
	httpapi "wisefido-floorplan/internal/http"
	"wisefido-floorplan/internal/logger"
	"wisefido-floorplan/internal/notify"
	"wisefido-floorplan/internal/repository"
	"wisefido-floorplan/internal/service"
	"wisefido-floorplan/internal/store"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "wisefido-floorplan")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 存储：DB 不可用时回退到内存
	var (
		db   *sql.DB
		repo repository.Store
	)
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			if err := database.ApplySchema(ctx, d); err != nil {
				log.Fatal("Failed to apply schema", zap.Error(err))
			}
			db = d
			repo = repository.NewPostgresStore(d)
			log.Info("DB enabled for wisefido-floorplan")
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory store", zap.Error(err))
		}
	}
	if repo == nil {
		repo = repository.NewMemoryStore()
	}

	// Redis：合并锁、分析缓存、事件流；不可用时锁与缓存回退到进程内
	var (
		redisClient *redis.Client
		locker      store.Locker  = store.NewMemoryLocker(cfg.Merge.LockWait)
		cache       store.KVStore = store.NewMemoryKVStore()
		publishers  []notify.Publisher
	)
	if cfg.RedisEnabled {
		client := store.NewRedisClient(&cfg.Redis)
		pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
		err := store.Ping(pingCtx, client)
		pingCancel()
		if err == nil {
			redisClient = client
			locker = store.NewRedisLocker(client, cfg.Merge.LockTTL, cfg.Merge.LockWait)
			cache = store.NewRedisKVStore(client)
			publishers = append(publishers, store.NewStreamPublisher(client, cfg.Merge.EventStream))
			log.Info("Redis enabled for wisefido-floorplan", zap.String("addr", cfg.Redis.Addr))
		} else {
			_ = client.Close()
			log.Warn("Redis enabled but connection failed, using in-process lock", zap.Error(err))
		}
	}

	var mqttClient mqtt.Client
	if cfg.MQTT.Enabled {
		if c, err := notify.Connect(&cfg.MQTT); err == nil {
			mqttClient = c
			publishers = append(publishers, notify.NewMQTTNotifier(c, cfg.MQTT.Topic, cfg.MQTT.QoS))
			log.Info("MQTT notifications enabled", zap.String("broker", cfg.MQTT.Broker), zap.String("topic", cfg.MQTT.Topic))
		} else {
			log.Warn("MQTT enabled but connection failed, notifications disabled", zap.Error(err))
		}
	}

	var checker authority.Checker
	switch cfg.Authority.Mode {
	case "remote":
		checker = authority.NewRemoteChecker(cfg.Authority.URL, cfg.Authority.Timeout, log)
	default:
		checker = authority.NewLocalChecker(repo)
	}

	svc := service.NewVersionService(repo, checker, locker, log, service.Options{
		Cache:    cache,
		CacheTTL: cfg.Merge.AnalysisCacheTTL,
		Events:   notify.NewMulti(log, publishers...),
	})

	router := httpapi.NewRouter(log)
	router.RegisterHealth()
	router.RegisterFloorPlanRoutes(httpapi.NewFloorPlanHandler(svc, log))
	router.RegisterVersionRoutes(httpapi.NewVersionHandler(svc, log))

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	if cfg.Merge.AutoInterval > 0 {
		worker := service.NewAutoMergeWorker(svc, repo, cfg.Merge.AutoInterval, log)
		go func() {
			if err := worker.Run(ctx); err != nil {
				log.Error("Auto-merge worker exited", zap.Error(err))
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("HTTP server failed", zap.Error(err))
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown error", zap.Error(err))
	}
	if mqttClient != nil {
		mqttClient.Disconnect(250)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if db != nil {
		_ = database.Close(db)
	}
}
