// Package migration applies the SQL files under migrations/ through
// golang-migrate.
package migration

import (
	"errors"

	"github.com/golang-migrate/migrate/v4"
	"go.uber.org/zap"

	_ "github.com/golang-migrate/migrate/v4/database/postgres" // postgres driver
	_ "github.com/golang-migrate/migrate/v4/source/file"       // file:// source
)

// Migrate runs every pending migration from migrationsPath against the
// database at dbURL. An already up-to-date schema is not an error.
func Migrate(dbURL string, migrationsPath string, verbose bool, log *zap.Logger) error {
	log.Info("Applying database migrations", zap.String("source", migrationsPath))

	m, err := migrate.New(migrationsPath, dbURL)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("Database schema already up to date")
			return nil
		}
		log.Error("Database migration failed", zap.Error(err))
		return err
	}

	log.Info("Database migrations applied")
	return nil
}

// Logger adapts zap to golang-migrate's logging interface.
type Logger struct {
	logger  *zap.Logger
	verbose bool
}

func NewLogger(logger *zap.Logger, verbose bool) *Logger {
	return &Logger{logger: logger, verbose: verbose}
}

func (l *Logger) Printf(format string, v ...any) {
	l.logger.Sugar().Infof("migration: "+format, v...)
}

func (l *Logger) Verbose() bool {
	return l.verbose
}
