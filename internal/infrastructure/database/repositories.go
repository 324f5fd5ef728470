package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/carebridgehq/billing-service/internal/adapter/repository"
	domainrepo "github.com/carebridgehq/billing-service/internal/domain/repository"
)

// Repositories holds all repository instances
type Repositories struct {
	Plan          domainrepo.PlanRepository
	ClientFunding domainrepo.ClientFundingRepository
	PaymentRecord domainrepo.PaymentRecordRepository
	Webhook       domainrepo.WebhookRepository
}

// NewRepositories creates new repository instances with database connection
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Plan:          repository.NewPlanRepository(db, logger),
		ClientFunding: repository.NewClientFundingRepository(db, logger),
		PaymentRecord: repository.NewPaymentRecordRepository(db, logger),
		Webhook:       repository.NewWebhookRepository(db, logger),
	}
}
