package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"clinic/internal/model"
)

// NewMySQL returns a connected GORM DB instance.
func NewMySQL(dsn string, debug bool) (*gorm.DB, error) {
	logLevel := logger.Silent
	if debug {
		logLevel = logger.Info
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logLevel)})
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	return db, nil
}

// Models lists the tables of the storage contract in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.Branch{},
		&model.User{},
		&model.Patient{},
		&model.Employee{},
		&model.Doctor{},
		&model.Session{},
		&model.TimeSlot{},
		&model.Appointment{},
	}
}

// AutoMigrate creates or updates every table in Models.
func AutoMigrate(gormDB *gorm.DB) error {
	for _, m := range Models() {
		if err := gormDB.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return nil
}
