package database

import (
	"fmt"
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Connect opens the session database. On Cloud Run the instance is
// reached through the Cloud SQL unix socket; everywhere else a plain
// TCP DSN is built from DB_HOST/DB_PORT.
func Connect() {
	user := envOr("DB_USER", "postgres")
	pass := os.Getenv("DB_PASS")
	name := envOr("DB_NAME", "flbot")
	sslMode := envOr("DB_SSLMODE", "disable")

	var dsn string
	if instance := os.Getenv("INSTANCE_CONNECTION_NAME"); instance != "" {
		dsn = fmt.Sprintf("host=/cloudsql/%s user=%s password=%s dbname=%s sslmode=%s",
			instance, user, pass, name, sslMode)
		log.Printf("Connecting to Cloud SQL via socket: %s", instance)
	} else {
		host := envOr("DB_HOST", "localhost")
		port := envOr("DB_PORT", "5432")
		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, pass, name, sslMode)
		log.Printf("Connecting to PostgreSQL at %s:%s", host, port)
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		panic(err)
	}

	log.Println("✅ Database connected successfully!")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
