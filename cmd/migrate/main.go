package main

import (
	"errors"
	"flag"
	"os"
	"strconv"

	"storefront/internal/infra/db"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	_ = godotenv.Load()
	log := logrus.New()

	flag.Parse()
	args := flag.Args()
	if len(args) < 1 {
		log.Fatal("usage: migrate <up|down|version>")
	}

	port, err := strconv.Atoi(getenv("POSTGRES_PORT", "5432"))
	if err != nil {
		log.WithError(err).Fatal("POSTGRES_PORT must be number")
	}
	sqlDB, err := db.OpenSQL(db.Options{
		DSN:      os.Getenv("DATABASE_URL"),
		Host:     getenv("POSTGRES_HOST", "localhost"),
		Port:     port,
		User:     os.Getenv("POSTGRES_USER"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		Name:     os.Getenv("POSTGRES_DB"),
		SSLMode:  os.Getenv("POSTGRES_SSLMODE"),
	})
	if err != nil {
		log.WithError(err).Fatal("open database")
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		log.WithError(err).Fatal("migrate driver")
	}
	m, err := migrate.NewWithDatabaseInstance(getenv("MIGRATIONS_PATH", "file://migrations"), "postgres", driver)
	if err != nil {
		log.WithError(err).Fatal("create migrate instance")
	}
	defer func() { _, _ = m.Close() }()

	switch args[0] {
	case "up":
		err = m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("no pending migrations")
			return
		}
		if err != nil {
			log.WithError(err).Fatal("migration up failed")
		}
		log.Info("migrations applied")

	case "down":
		err = m.Steps(-1)
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("no migrations to rollback")
			return
		}
		if err != nil {
			log.WithError(err).Fatal("migration down failed")
		}
		log.Info("migration rolled back")

	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			log.Info("no migrations applied yet")
			return
		}
		if err != nil {
			log.WithError(err).Fatal("get version")
		}
		log.WithFields(logrus.Fields{"version": version, "dirty": dirty}).Info("current migration version")

	default:
		log.WithField("command", args[0]).Fatal("unknown command")
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
