package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/songquanpeng/litegate/common/config"
	"github.com/songquanpeng/litegate/common/logger"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

func chooseDB(dsn string, sqlitePath string) (*gorm.DB, error) {
	gormConfig := &gorm.Config{PrepareStmt: true}
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		logger.SysLog("using PostgreSQL as database")
		return gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true, // disables implicit prepared statement usage
		}), gormConfig)
	case dsn != "":
		logger.SysLog("using MySQL as database")
		if !strings.Contains(dsn, "parseTime") {
			if strings.Contains(dsn, "?") {
				dsn += "&parseTime=true"
			} else {
				dsn += "?parseTime=true"
			}
		}
		return gorm.Open(mysql.Open(dsn), gormConfig)
	}
	logger.SysLog("SQL_DSN not set, using SQLite as database")
	return gorm.Open(sqlite.Open(fmt.Sprintf("%s?_busy_timeout=%d", sqlitePath, 3000)), gormConfig)
}

func openDB(dsn string, sqlitePath string) (*gorm.DB, error) {
	db, err := chooseDB(dsn, sqlitePath)
	if err != nil {
		return nil, err
	}
	if config.DebugSQLEnabled {
		db = db.Debug()
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if dsn != "" {
		sqlDB.SetMaxIdleConns(config.SQLMaxIdleConns)
		sqlDB.SetMaxOpenConns(config.SQLMaxOpenConns)
		sqlDB.SetConnMaxLifetime(time.Second * time.Duration(config.SQLMaxLifetime))
	}
	logger.SysLog("database migration started")
	if err = db.AutoMigrate(&UsageLog{}); err != nil {
		return nil, err
	}
	logger.SysLog("database migrated")
	return db, nil
}

func InitDB() error {
	db, err := openDB(config.SQLDSN, config.SQLitePath)
	if err != nil {
		logger.FatalLog("failed to initialize database: " + err.Error())
		return err
	}
	DB = db
	return nil
}

func CloseDB() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
