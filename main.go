package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Sadiakamal27/one-rupee-game/routes"
	"github.com/Sadiakamal27/one-rupee-game/services"
	"github.com/Sadiakamal27/one-rupee-game/utils"
	gzip "github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

func main() {
	execDir, err := filepath.Abs(filepath.Dir(os.Args[0]))
	if err != nil {
		log.Fatalf("Failed to get exec dir: %v", err)
	}

	// Load config from the working directory first, then next to the binary
	viper.SetConfigFile("config.yaml")
	if err := viper.ReadInConfig(); err != nil {
		viper.SetConfigFile(filepath.Join(execDir, "config.yaml"))
		if err := viper.ReadInConfig(); err != nil {
			log.Fatalf("Failed to read config: %v", err)
		}
	}

	if level, errLevel := log.ParseLevel(viper.GetString("server.log_level")); errLevel == nil {
		log.SetLevel(level)
	}

	// Initialize the database: MySQL in production, SQLite for local runs
	switch driver := viper.GetString("database.driver"); driver {
	case "sqlite":
		if err := utils.InitSQLiteDatabase(viper.GetString("sqlite.path")); err != nil {
			log.Fatalf("Database connection failed: %v", err)
		}
	default:
		if err := utils.InitDatabase(
			viper.GetString("mysql.host"),
			viper.GetString("mysql.user"),
			viper.GetString("mysql.password"),
			viper.GetString("mysql.dbname"),
			viper.GetInt("mysql.port"),
		); err != nil {
			log.Fatalf("Database connection failed: %v", err)
		}
	}
	log.Info("Database connected successfully")

	if err := utils.MigrateDatabase(); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}

	// Roll over anything that expired while the server was down, then keep
	// sweeping in the background; page loads trigger the same check via
	// /api/reset-plans
	if ids, errReset := services.CheckAndResetExpiredPlans(time.Now()); errReset != nil {
		log.Errorf("Startup reset check failed: %v", errReset)
	} else if len(ids) > 0 {
		log.Infof("Startup reset rolled %d plan(s): %v", len(ids), ids)
	}
	stopSweeper := make(chan struct{})
	defer close(stopSweeper)
	go services.RunResetSweeper(time.Minute, stopSweeper)

	paymentService := services.NewPaymentService(services.NewEasypaisaGateway())

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.SetTrustedProxies([]string{"127.0.0.1"})
	router.Use(gin.Recovery())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// Security headers and CORS
	router.Use(func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")

		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	apiRoutes := routes.NewAPIRoutes(paymentService)
	apiRoutes.SetupRoutes(router)

	port := viper.GetInt("server.port")
	addr := fmt.Sprintf(":%d", port)

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Infof("Server running on http://localhost%s", addr)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
