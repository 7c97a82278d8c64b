package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	_ "github.com/lib/pq"

	"water-savings-platform/internal/config"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	dir := flag.String("dir", "migrations", "Directory holding NNN_name.{up,down}.sql files")
	flag.Parse()

	if *direction != "up" && *direction != "down" {
		fmt.Fprintf(os.Stderr, "Unknown direction %q, expected up or down\n", *direction)
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.Database.Postgres().DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to ping database: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Connected to database successfully")

	files, err := filepath.Glob(filepath.Join(*dir, "*."+*direction+".sql"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list migrations: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "No %s migrations found in %s\n", *direction, *dir)
		os.Exit(1)
	}

	// Up runs in numeric order, down in reverse.
	sort.Strings(files)
	if *direction == "down" {
		sort.Sort(sort.Reverse(sort.StringSlice(files)))
	}

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read migration file: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Running migration: %s\n", file)

		if _, err := db.Exec(string(content)); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to execute migration %s: %v\n", file, err)
			os.Exit(1)
		}
	}

	fmt.Printf("Migration completed successfully (%d files)\n", len(files))
}
