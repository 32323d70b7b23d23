package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"noizlabs/internal/db"
	"noizlabs/internal/logger"
	"noizlabs/internal/migrations"
)

func main() {
	apply := flag.Bool("apply", false, "apply migrations")
	flag.Parse()

	migs, err := migrations.All()
	if err != nil {
		logger.Fatal("read migrations", "error", err)
	}
	if !*apply {
		for _, m := range migs {
			fmt.Println(m.Name)
		}
		return
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatal("DATABASE_URL not set")
	}
	pool := db.Connect(dsn)
	defer pool.Close()

	for _, m := range migs {
		if _, err := pool.Exec(context.Background(), m.SQL); err != nil {
			logger.Fatal("failed to apply migration", "name", m.Name, "error", err)
		}
		fmt.Printf("applied %s\n", m.Name)
	}
}
