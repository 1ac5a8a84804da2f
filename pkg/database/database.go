package database

import (
	"contest_leaderboard/internal/config"
	"contest_leaderboard/internal/model"
	"fmt"
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Println("Database migration completed")
	return db, nil
}

// Migrate 建表并写入默认任务
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.Team{},
		&model.Submission{},
		&model.SubmissionAttempt{},
		&model.Task{},
		&model.TaskKey{},
	)
	if err != nil {
		return err
	}

	// 默认任务 T1..T8（Task A..H）
	var count int64
	db.Model(&model.Task{}).Count(&count)
	if count == 0 {
		for i := 0; i < 8; i++ {
			task := model.Task{
				ID:            fmt.Sprintf("T%d", i+1),
				Name:          fmt.Sprintf("Task %c", 'A'+i),
				KeyVisibility: model.KeyPrivate,
			}
			if err := db.Create(&task).Error; err != nil {
				return err
			}
		}
	}

	return nil
}
