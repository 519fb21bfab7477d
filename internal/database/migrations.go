package database

import (
	"SmartLinks-Backend/internal/domain"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AutoMigrate выполняет автоматические миграции для всех доменных моделей
func AutoMigrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("starting database auto-migration")

	// Порядок миграций важен из-за внешних ключей
	models := []interface{}{
		&domain.User{},            // Сначала пользователи
		&domain.Profile{},         // Профили порогов (зависят от пользователей)
		&domain.Link{},            // Ссылки (зависят от пользователей и профилей)
		&domain.Visit{},           // Визиты (зависят от ссылок)
		&domain.ProtectionEvent{}, // Журнал защиты (зависит от ссылок)
	}

	for i, model := range models {
		modelName := fmt.Sprintf("%T", model)
		log.Info("migrating model",
			zap.String("model", modelName),
			zap.Int("step", i+1),
			zap.Int("total", len(models)))

		if err := db.AutoMigrate(model); err != nil {
			log.Error("failed to migrate model",
				zap.String("model", modelName),
				zap.Error(err))
			return fmt.Errorf("failed to migrate model %s: %w", modelName, err)
		}
	}

	log.Info("database auto-migration completed successfully", zap.Int("migrated_models", len(models)))
	return nil
}

// SeedData заполняет базу данных начальными данными: демо-пользователь
// и его профиль порогов по умолчанию
func SeedData(db *gorm.DB, log *zap.Logger) error {
	log.Info("starting database seeding")

	var count int64
	db.Model(&domain.User{}).Count(&count)
	if count > 0 {
		log.Info("users already exist, skipping seeding", zap.Int64("existing_count", count))
		return nil
	}

	user := domain.User{
		Username: "demo",
		IsActive: true,
	}
	if err := db.Create(&user).Error; err != nil {
		log.Error("failed to seed demo user", zap.Error(err))
		return fmt.Errorf("failed to seed demo user: %w", err)
	}

	profile := domain.DefaultProfile()
	profile.UserID = user.ID
	profile.IsDefault = true
	if err := db.Create(profile).Error; err != nil {
		log.Error("failed to seed default profile", zap.Error(err))
		return fmt.Errorf("failed to seed default profile: %w", err)
	}

	log.Info("database seeding completed successfully",
		zap.Int64("user_id", user.ID),
		zap.Int64("profile_id", profile.ID))
	return nil
}
