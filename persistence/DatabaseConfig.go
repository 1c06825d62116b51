package persistence

import (
	"database/sql"
	"errors"
	"os"
	"strings"
)

type DatabaseConfig struct {
	DriverType string
	DriverArgs string
}

// ParseDatabaseConfigFromEnv DATABASE_URL example:
//   mysql://root:root@(127.0.0.1:3306)/jobflow?charset=utf8mb4&parseTime=True&loc=Local
func ParseDatabaseConfigFromEnv() (*DatabaseConfig, error) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, errors.New("environment variable DATABASE_URL is not set")
	}
	idx := strings.Index(databaseURL, "://")
	if idx <= 0 || idx == len(databaseURL)-3 {
		return nil, errors.New("invalid DATABASE_URL '" + databaseURL + "'")
	}
	return &DatabaseConfig{DriverType: databaseURL[0:idx], DriverArgs: databaseURL[idx+3:]}, nil
}

// PrepareMysqlDatabase create the database if not exist yet.
func PrepareMysqlDatabase(driverArgs string) error {
	idx := strings.Index(driverArgs, "/")
	if idx < 0 {
		return errors.New("invalid mysql driver args")
	}
	address := driverArgs[0 : idx+1]
	databaseName := driverArgs[idx+1:]
	if argsIdx := strings.Index(databaseName, "?"); argsIdx >= 0 {
		databaseName = databaseName[0:argsIdx]
	}
	if databaseName == "" {
		return errors.New("database name is empty")
	}

	db, err := sql.Open("mysql", address)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.Exec("CREATE DATABASE IF NOT EXISTS `" + databaseName + "` CHARACTER SET utf8mb4")
	return err
}
