package repository

import (
	"fmt"
	"time"

	"github.com/user/moviecatalog/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB 初始化数据库连接，启用 pgvector 扩展并迁移表结构
func InitDB(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("无法连接数据库: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取连接池失败: %w", err)
	}

	// 测试连接
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库 ping 失败: %w", err)
	}

	// 设置连接池
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate 启用 vector 扩展并迁移表结构
func Migrate(db *gorm.DB) error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("启用 vector 扩展失败: %w", err)
	}
	if err := db.AutoMigrate(&model.Movie{}); err != nil {
		return fmt.Errorf("迁移表结构失败: %w", err)
	}
	return nil
}

// MemoryURL 使用内存存储，数据不落盘
const MemoryURL = "memory://"

// OpenStore 根据连接串打开存储，返回的 close 用于释放连接
func OpenStore(databaseURL string) (MovieStore, func() error, error) {
	if databaseURL == MemoryURL {
		return NewMemoryStore(), func() error { return nil }, nil
	}

	db, err := InitDB(databaseURL)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	return NewMovieRepository(db), sqlDB.Close, nil
}
