package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"blogpp/models"
)

func RunMigrations(db *gorm.DB) error {
	zap.L().Info("Running database migrations")

	if err := db.AutoMigrate(models.All()...); err != nil {
		zap.L().Error("Error running migrations", zap.Error(err))
		return err
	}

	zap.L().Info("Migrations completed successfully")
	return nil
}
