package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/carebridgehq/billing-service/internal/domain/model"
)

// Migrate runs database migrations
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running database migrations...")

	// gen_random_uuid() defaults require pgcrypto
	logger.Info("Creating PostgreSQL extensions...")
	if err := createExtensions(db); err != nil {
		logger.Error("Failed to create extensions", zap.Error(err))
		return err
	}

	logger.Info("Running GORM auto-migrations...")
	err := db.AutoMigrate(
		&model.Plan{},
		&model.ServiceItem{},
		&model.FundingSource{},
		&model.ClientFundingProfile{},
		&model.PaymentRecord{},
		&model.GatewayWebhookEvent{},
	)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return err
	}

	logger.Info("Creating custom indexes...")
	if err := createCustomIndexes(db); err != nil {
		logger.Error("Failed to create custom indexes", zap.Error(err))
		return err
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

func createExtensions(db *gorm.DB) error {
	return db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error
}

func createCustomIndexes(db *gorm.DB) error {
	indexes := []string{
		// Settlement queries load unpaid items per plan
		`CREATE INDEX IF NOT EXISTS idx_service_items_plan_payment
			ON service_items (plan_id, payment_status)`,
		// Allocation reads funding sources in stored order
		`CREATE INDEX IF NOT EXISTS idx_funding_sources_plan_order
			ON funding_sources (plan_id, sort_order, created_at)`,
		// Webhook ledger lookups by processing state
		`CREATE INDEX IF NOT EXISTS idx_gateway_webhook_events_status
			ON gateway_webhook_events (status, created_at)`,
	}

	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return err
		}
	}
	return nil
}
