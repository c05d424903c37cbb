package main

import (
	"sweetbite/config"

	"github.com/sirupsen/logrus"
)

// Applies the schema without starting the server
func main() {
	cfg := config.Load()
	config.SetupLogger(cfg)

	db, err := config.OpenDB(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to database")
	}
	if err := config.Migrate(db); err != nil {
		logrus.WithError(err).Fatal("migration failed")
	}
	logrus.WithField("driver", cfg.DBDriver).Info("migration complete")
}
