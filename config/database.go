package config

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
)

var DB *gorm.DB

func mysqlDSN(user, password, host, port, database string) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		user,
		password,
		host,
		port,
		database,
	)
}

func InitDB(s *Settings) {
	var err error

	dsn := mysqlDSN(s.DBUsername, s.DBPassword, s.DBHost, s.DBPort, s.DBDatabase)

	// In production, suppress SQL logs unless explicitly re-enabled via DEBUG_SQL=true.
	logLevel := logger.Info
	if s.IsProduction() && !s.DebugSQL {
		logLevel = logger.Warn
	}

	config := &gorm.Config{
		Logger: logger.New(
			logrus.StandardLogger(),
			logger.Config{
				LogLevel:                  logLevel,
				SlowThreshold:             500 * time.Millisecond,
				IgnoreRecordNotFoundError: true,
			},
		),
	}

	DB, err = gorm.Open(mysql.Open(dsn), config)
	if err != nil {
		logrus.Fatal("Failed to connect to database: ", err)
	}

	if s.DBReplicaHost != "" {
		replica := mysqlDSN(s.DBUsername, s.DBPassword, s.DBReplicaHost, s.DBPort, s.DBDatabase)
		err = DB.Use(dbresolver.Register(dbresolver.Config{
			Replicas: []gorm.Dialector{mysql.Open(replica)},
			Policy:   dbresolver.RandomPolicy{},
		}))
		if err != nil {
			logrus.Warnf("Read replica %s not registered: %v", s.DBReplicaHost, err)
		} else {
			logrus.Infof("Read replica %s registered", s.DBReplicaHost)
		}
	}

	logrus.Info("Database connected successfully")
}
