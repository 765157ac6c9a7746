package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/inkbooth/inkbooth/internal/analytics"
	"github.com/inkbooth/inkbooth/internal/auth"
	"github.com/inkbooth/inkbooth/internal/config"
	"github.com/inkbooth/inkbooth/internal/db"
	"github.com/inkbooth/inkbooth/internal/httpapi"
)

// The dashboard only reads; a missing or corrupt database makes it useless,
// so any failure to open or probe it exits immediately.
func main() {
	hashPassword := flag.String("hash", "", "print the bcrypt hash of the given admin password (for ADMIN_PASSWORD_HASH) and exit")
	flag.Parse()

	if *hashPassword != "" {
		h, err := auth.HashPassword(*hashPassword)
		if err != nil {
			log.Fatalf("dashboard: hash: %v", err)
		}
		fmt.Println(h)
		return
	}

	cfg := config.Load()

	gdb, err := db.Open(cfg.DBDSN)
	if err != nil {
		log.Printf("dashboard: db open: %v", err)
		os.Exit(1)
	}

	var n int64
	if err := gdb.Raw("SELECT COUNT(*) FROM Sessions").Scan(&n).Error; err != nil {
		log.Printf("dashboard: db probe: %v", err)
		os.Exit(1)
	}
	log.Printf("dashboard: %d sessions on record", n)

	agg := analytics.NewAggregator(gdb)
	r := httpapi.NewDashboardRouter(cfg, agg)

	port := os.Getenv("DASHBOARD_PORT")
	if port == "" {
		port = ":8050"
	}
	log.Printf("dashboard listening on %s", port)
	if err := r.Run(port); err != nil {
		log.Fatalf("dashboard: %v", err)
	}
}
