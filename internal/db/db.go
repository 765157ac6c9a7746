package db

import (
	"log"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/inkbooth/inkbooth/internal/models"
	"github.com/inkbooth/inkbooth/internal/studio"
)

// Connect opens the configured database and migrates the schema.
// A DSN containing "@tcp(" selects mysql, anything else is a sqlite path.
func Connect(dsn string) *gorm.DB {
	var dialector gorm.Dialector
	if strings.Contains(dsn, "@tcp(") {
		dialector = mysql.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		log.Fatalf("db open: %v", err)
	}

	if err := gdb.AutoMigrate(
		&models.Session{},
		&models.Input{},
		&models.Generation{},
		&studio.Job{},
	); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	return gdb
}

// Open is Connect without the migration step, for read-only consumers
// (the dashboard must not alter a schema it only reads).
func Open(dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if strings.Contains(dsn, "@tcp(") {
		dialector = mysql.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}
	return gorm.Open(dialector, &gorm.Config{})
}
