package main

import (
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"

	"foodexchange/cmd/migration/versions"

	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func postgresDsn(uri string) string {
	parts, err := url.Parse(uri)
	if err != nil {
		log.Fatalf("error parsing db uri: %v", err)
	}
	pwd, _ := parts.User.Password()
	dbname := strings.TrimPrefix(parts.Path, "/")
	return fmt.Sprintf("host=%v user=%v password=%v dbname=%v port=%v", parts.Hostname(), parts.User.Username(), pwd, dbname, parts.Port())
}

func main() {
	envFile := flag.String("env", "", "File to load env variables from. If not specified will just load them from the environment variables already defined.")
	dbUri := flag.String("db_uri", "", "Database uri to run migrations against. Overrides the DATABASE_URI env variable.")

	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			log.Fatalf("error loading .env file '%v': %v", *envFile, err)
		}
	}

	uri := *dbUri
	if uri == "" {
		uri = os.Getenv("DATABASE_URI")
	}
	if uri == "" {
		log.Fatal("a database uri must be provided via -db_uri or the DATABASE_URI env variable")
	}

	db, err := gorm.Open(postgres.Open(postgresDsn(uri)), &gorm.Config{})
	if err != nil {
		log.Fatalf("error opening database connection: %v", err)
	}

	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID:      "0_initial_migration",
			Migrate: versions.Migration_0_initial_migration,
		},
	})

	if err := m.Migrate(); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	log.Println("migrations applied successfully")
}
