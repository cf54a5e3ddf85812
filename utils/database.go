package utils

import (
	"fmt"
	stdlog "log"
	"os"
	"time"

	"github.com/Sadiakamal27/one-rupee-game/models"
	"github.com/glebarez/sqlite"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func newGormLogger() logger.Interface {
	// Only log SQL errors in production
	logLevel := logger.Info
	if os.Getenv("GO_ENV") == "production" {
		logLevel = logger.Error
	}

	return logger.New(
		stdlog.New(os.Stdout, "\r\n", stdlog.LstdFlags),
		logger.Config{
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
		},
	)
}

// InitDatabase connects to MySQL and configures the connection pool.
func InitDatabase(host, user, password, dbname string, port int) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		user, password, host, port, dbname)

	log.Infof("Attempting to connect to database: %s:%d/%s", host, port, dbname)

	var err error
	DB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: newGormLogger(),
	})
	if err != nil {
		log.Errorf("Failed to connect to database: %v", err)
		return err
	}

	sqlDB, err := DB.DB()
	if err != nil {
		log.Errorf("Failed to get database: %v", err)
		return err
	}

	sqlDB.SetMaxIdleConns(15)
	sqlDB.SetMaxOpenConns(120)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	return nil
}

// InitSQLiteDatabase opens a file-backed SQLite database. Used for local
// development so the server can run without a MySQL instance.
func InitSQLiteDatabase(path string) error {
	var err error
	DB, err = gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: newGormLogger(),
	})
	if err != nil {
		log.Errorf("Failed to open sqlite database %s: %v", path, err)
		return err
	}
	return nil
}

// MigrateDatabase creates or updates the game tables.
func MigrateDatabase() error {
	log.Info("Starting database migration...")
	if err := DB.AutoMigrate(
		&models.GamePlan{},
		&models.Milestone{},
		&models.Order{},
		&models.Winner{},
	); err != nil {
		return err
	}
	log.Info("Database migration completed successfully!")
	return nil
}
