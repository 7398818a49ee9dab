package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"resumehub/internal/config"
	"resumehub/internal/database"
	"resumehub/internal/store"
)

func main() {
	var (
		days    = flag.Int("days", 30, "purge soft-deleted resumes older than this many days")
		dryRun  = flag.Bool("dry-run", false, "report what would be purged without deleting")
		dbHost  = flag.String("db-host", "", "database host (optional, falls back to DATABASE_HOST)")
		dbPort  = flag.Int("db-port", 0, "database port (optional, falls back to DATABASE_PORT)")
		dbName  = flag.String("db-name", "", "database name (optional, falls back to POSTGRES_DB)")
		dbUser  = flag.String("db-user", "", "database user (optional, falls back to POSTGRES_USER)")
		dbPass  = flag.String("db-password", "", "database password (optional, falls back to POSTGRES_PASSWORD)")
		sslMode = flag.String("db-sslmode", "", "database sslmode (optional, falls back to DATABASE_SSLMODE)")
	)
	flag.Parse()

	if *days <= 0 {
		log.Fatal("--days must be positive")
	}

	dbCfg, err := loadDatabaseConfig(*dbHost, *dbPort, *dbName, *dbUser, *dbPass, *sslMode)
	if err != nil {
		log.Fatalf("load database config: %v", err)
	}

	db, err := database.InitDatabase(dbCfg)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	cutoff := time.Now().AddDate(0, 0, -*days)
	resumeStore := store.NewResumeStore(db)

	if *dryRun {
		count, err := resumeStore.CountDeletedBefore(context.Background(), cutoff)
		if err != nil {
			log.Fatalf("count purgeable resumes: %v", err)
		}
		fmt.Printf("dry run: %d resumes soft-deleted before %s would be purged\n", count, cutoff.Format(time.RFC3339))
		return
	}

	purged, err := resumeStore.PurgeDeletedBefore(context.Background(), cutoff)
	if err != nil {
		log.Fatalf("purge deleted resumes: %v", err)
	}
	fmt.Printf("purged %d resumes soft-deleted before %s\n", purged, cutoff.Format(time.RFC3339))
}

func loadDatabaseConfig(host string, port int, name, user, password, sslmode string) (config.DatabaseConfig, error) {
	if strings.TrimSpace(host) == "" {
		host = os.Getenv("DATABASE_HOST")
	}
	if port <= 0 {
		if env := strings.TrimSpace(os.Getenv("DATABASE_PORT")); env != "" {
			p, err := strconv.Atoi(env)
			if err != nil {
				return config.DatabaseConfig{}, fmt.Errorf("parse DATABASE_PORT: %w", err)
			}
			port = p
		}
	}
	if strings.TrimSpace(name) == "" {
		name = os.Getenv("POSTGRES_DB")
	}
	if strings.TrimSpace(user) == "" {
		user = os.Getenv("POSTGRES_USER")
	}
	if strings.TrimSpace(password) == "" {
		password = os.Getenv("POSTGRES_PASSWORD")
	}
	if strings.TrimSpace(sslmode) == "" {
		sslmode = os.Getenv("DATABASE_SSLMODE")
	}

	if strings.TrimSpace(host) == "" {
		host = "localhost"
	}
	if port <= 0 {
		port = 5432
	}
	if strings.TrimSpace(sslmode) == "" {
		sslmode = "disable"
	}
	if strings.TrimSpace(name) == "" {
		return config.DatabaseConfig{}, errors.New("database name is required (POSTGRES_DB)")
	}
	if strings.TrimSpace(user) == "" {
		return config.DatabaseConfig{}, errors.New("database user is required (POSTGRES_USER)")
	}
	if strings.TrimSpace(password) == "" {
		return config.DatabaseConfig{}, errors.New("database password is required (POSTGRES_PASSWORD)")
	}

	return config.DatabaseConfig{
		Host:     host,
		Port:     port,
		Name:     name,
		User:     user,
		Password: password,
		SSLMode:  sslmode,
	}, nil
}
