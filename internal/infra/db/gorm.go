package db

import (
	"foodorder/internal/config"
	"foodorder/internal/domain/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect はDBに接続して *gorm.DB を返す。
func Connect(cfg config.Config) (*gorm.DB, error) {
	level := logger.Warn
	if cfg.IsProd() {
		level = logger.Error
	}
	return Open(cfg.DSN(), level)
}

func Open(dsn string, level logger.LogLevel) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
}

// 旧スキーマの (phone, role) 複合一意インデックス
const legacyUserPhoneRoleIdx = "idx_users_phone_role"

// テーブルとインデックスを作る
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.MenuItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.PaymentRecord{},
		&model.AuditLog{},
	)
	if err != nil {
		return err
	}

	m := db.Migrator()
	if m.HasIndex(&model.User{}, legacyUserPhoneRoleIdx) {
		return m.DropIndex(&model.User{}, legacyUserPhoneRoleIdx)
	}
	return nil
}
