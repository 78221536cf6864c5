package main

import (
	"context"
	"errors"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"otoil-backend/config"
	"otoil-backend/store"
)

func main() {
	_ = godotenv.Load()

	// Runs with its own config so it can use a role allowed to delete. The
	// server's DB_URL from .env must not replace that DSN.
	configPath := os.Getenv("CLEARRECORDS_CONFIG")
	if configPath == "" {
		configPath = "./config/clearrecords.yaml"
	}
	cfg, err := config.LoadFileOnly(configPath)
	errAndDie(err)
	config.SetupLogger(cfg.Log)

	ctx := context.Background()
	cli := commandLine{out: os.Stdout}

	if cfg.Records.Backend == "mongo" {
		client, err := store.ConnectMongo(ctx, cfg.Records.MongoURI)
		errAndDie(err)
		defer client.Disconnect(ctx)
		cli.records = store.NewMongoStore(client.Database(cfg.Records.MongoDB).Collection(cfg.Records.Collection))
	} else {
		db, err := config.ConnectDB(cfg.Database)
		errAndDie(err)
		cli.records = store.NewGormStore(db)
	}

	if err := cli.run(ctx, os.Args); err != nil {
		if !errors.Is(err, errHelp) {
			log.WithError(err).Error("clearrecords failed")
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
