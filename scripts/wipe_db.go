package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/go-sql-driver/mysql"
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	host := envOr("DB_HOST", "127.0.0.1")
	port := envOr("DB_PORT", "3306")
	user := envOr("DB_USER", "root")
	password := envOr("DB_PASSWORD", "")
	name := envOr("DB_NAME", "edx_store")

	// Connect without selecting a database so it can be dropped
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/?parseTime=true", user, password, host, port)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Fatalf("Failed to open connection: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	log.Printf("💣 Wiping Database '%s'...", name)

	_, err = db.Exec(fmt.Sprintf("DROP DATABASE IF EXISTS `%s`", name))
	if err != nil {
		log.Fatalf("Failed to drop database: %v", err)
	}

	_, err = db.Exec(fmt.Sprintf("CREATE DATABASE `%s`", name))
	if err != nil {
		log.Fatalf("Failed to create database: %v", err)
	}

	log.Printf("✅ Database '%s' recreated successfully. The server rebuilds the schema on next start.", name)
}
