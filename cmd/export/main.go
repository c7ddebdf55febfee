package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mareevma/skladbot/internal/adapter/handler"
	"github.com/mareevma/skladbot/internal/adapter/storage"
)

// Dumps the stock table as CSV to stdout, for backups and spreadsheets.
func main() {
	dbPath := flag.String("db", "warehouse_v4.db", "path to the warehouse database")
	flag.Parse()

	ctx := context.Background()

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on", *dbPath))
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}

	store := storage.NewSQLiteStore(db)
	rows, err := store.ListStock(ctx)
	if err != nil {
		log.Fatalf("failed to list stock: %v", err)
	}

	if err := handler.WriteStockCSV(os.Stdout, rows); err != nil {
		log.Fatalf("failed to write csv: %v", err)
	}
}
