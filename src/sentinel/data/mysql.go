package data

import (
	"log"

	"github.com/stake-plus/sentinel/src/sentinel/types"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func MustMySQL(dsn string) *gorm.DB {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}
	if err := db.AutoMigrate(
		&types.Setting{},
		&types.Anchor{},
		&types.ModAction{},
		&types.ScheduledUnban{},
	); err != nil {
		log.Fatalf("mysql migrate: %v", err)
	}
	return db
}
