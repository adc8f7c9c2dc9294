package main

import (
	"fmt"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/buidl-renaissance/appblocks/config"
	"github.com/buidl-renaissance/appblocks/internal/api"
	"github.com/buidl-renaissance/appblocks/internal/logging"
	"github.com/buidl-renaissance/appblocks/internal/storage"
	"github.com/buidl-renaissance/appblocks/internal/storage/postgres"
)

func main() {
	cfg, err := config.ReadServerConfig()
	if err != nil {
		panic(err)
	}

	logger := logging.NewLogger(cfg.Log)

	redisStorage, err := storage.NewRedisStorage(cfg.Redis)
	if err != nil {
		panic(err)
	}

	redisConnOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Username: cfg.Redis.User,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	client := asynq.NewClient(redisConnOpt)
	defer func() {
		if err := client.Close(); err != nil {
			fmt.Println("fail to close asynq client,", err)
		}
	}()

	sdClient, err := statsd.New(cfg.Datadog.Host + ":" + cfg.Datadog.Port)
	if err != nil {
		panic(err)
	}

	db, err := postgres.NewPostgresBackend(cfg.Database.DSN, true)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logrus.Errorf("fail to close database, err: %v", err)
		}
	}()

	server := api.NewServer(
		*cfg,
		db,
		redisStorage,
		client,
		sdClient,
	)
	if err := server.StartServer(); err != nil {
		panic(err)
	}
}
