package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"foodexchange/marketplace/config"
	"foodexchange/marketplace/schema"
	"foodexchange/marketplace/services"
	"foodexchange/marketplace/storage"
	"foodexchange/utils/logging"

	"github.com/caarlos0/env/v10"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogmulti "github.com/samber/slog-multi"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type marketplaceEnv struct {
	DatabaseUri   string `env:"DATABASE_URI,required"`
	ShareDir      string `env:"SHARE_DIR,required"`
	ConfigPath    string `env:"CONFIG_PATH"`
	AllowedOrigin string `env:"ALLOWED_ORIGIN" envDefault:"*"`
}

/**
 * ==========================================================================
 * ==== All variables used by the marketplace must be loaded here. This  ====
 * ==== is to make the data flow clear so that a user can see what       ====
 * ==== variables are exposed, and how the values are propagated through ====
 * ==== the system.                                                      ====
 * ==========================================================================
 */
func loadEnv() (*marketplaceEnv, error) {
	cfg := &marketplaceEnv{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnvFile(envFile string) {
	slog.Info(fmt.Sprintf("loading env from file %v", envFile))
	err := godotenv.Load(envFile)
	if err != nil {
		log.Fatalf("error loading .env file '%v': %v", envFile, err)
	}
}

func initLogging(logFile *os.File) {
	jsonHandler := slog.NewJSONHandler(logFile, logging.GetVictoriaLogsOptions(false))
	textHandler := slog.NewTextHandler(os.Stderr, nil)

	logger := slog.New(slogmulti.Fanout(jsonHandler, textHandler))
	slog.SetDefault(logger)

	slog.Info("logging initialized", "log_file", logFile.Name())
}

func (env *marketplaceEnv) postgresDsn() string {
	parts, err := url.Parse(env.DatabaseUri)
	if err != nil {
		log.Fatalf("error parsing db uri: %v", err)
	}
	pwd, _ := parts.User.Password()
	dbname := strings.TrimPrefix(parts.Path, "/")
	return fmt.Sprintf("host=%v user=%v password=%v dbname=%v port=%v", parts.Hostname(), parts.User.Username(), pwd, dbname, parts.Port())
}

func initDb(dsn string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("error opening database connection: %v", err)
	}

	err = db.AutoMigrate(
		&schema.User{}, &schema.Role{}, &schema.CategoryStatus{},
		&schema.SharedPost{}, &schema.PostMedia{}, &schema.BitDetails{}, &schema.Review{},
		&schema.Delivery{}, &schema.DeliveryStatus{}, &schema.DeliveryStatusHistory{},
		&schema.Payment{}, &schema.PaymentType{},
		&schema.ShareStory{}, &schema.PriceFeed{},
	)
	if err != nil {
		log.Fatalf("error migrating db schema: %v", err)
	}

	return db
}

func main() {
	envFile := flag.String("env", "", "File to load env variables from. If not specified will just load them from the environment variables already defined.")
	port := flag.Int("port", 8080, "Port to run server on")

	flag.Parse()

	if *envFile != "" {
		loadEnvFile(*envFile)
	}

	envVars, err := loadEnv()
	if err != nil {
		log.Fatalf("failed to load environment variables: %v", err)
	}

	err = os.MkdirAll(filepath.Join(envVars.ShareDir, "logs/"), 0777)
	if err != nil {
		log.Fatalf("error creating log dir: %v", err)
	}

	logFile, err := os.OpenFile(filepath.Join(envVars.ShareDir, "logs/marketplace.log"), os.O_CREATE|os.O_APPEND|os.O_RDWR, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer logFile.Close()

	initLogging(logFile)

	settings, err := config.LoadSettings(envVars.ConfigPath)
	if err != nil {
		log.Fatalf("error loading settings: %v", err)
	}

	db := initDb(envVars.postgresDsn())

	store := storage.NewSharedDisk(envVars.ShareDir)

	marketplace := services.NewMarketplace(db, store, settings)

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{envVars.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Mount("/", marketplace.Routes())
	r.Handle("/metrics", promhttp.Handler())

	slog.Info("starting server", "port", *port)
	err = http.ListenAndServe(fmt.Sprintf(":%d", *port), r)
	if err != nil {
		log.Fatalf("listen and serve returned error: %v", err.Error())
	}
}
