package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ohyerin/magpress-backend/pkg/enums"
)

// PaymentEvent is one immutable row in the subscription ledger. State changes
// are new rows; for a transaction key the row with the latest created_at is
// authoritative.
type PaymentEvent struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TransactionKey string              `gorm:"column:transaction_key;not null;index"`
	Amount         int64               `gorm:"column:amount;not null"`
	Status         enums.PaymentStatus `gorm:"column:status;not null"`
	StartAt        time.Time           `gorm:"column:start_at;not null"`
	EndAt          time.Time           `gorm:"column:end_at;not null"`
	EndGraceAt     time.Time           `gorm:"column:end_grace_at;not null"`
	NextScheduleAt time.Time           `gorm:"column:next_schedule_at;not null"`
	NextScheduleID string              `gorm:"column:next_schedule_id;not null"`
	BillingKey     string              `gorm:"column:billing_key"`
	OrderName      string              `gorm:"column:order_name"`
	CustomerID     string              `gorm:"column:customer_id"`
	UserID         uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
}

// TableName keeps the ledger on the payment_events table.
func (PaymentEvent) TableName() string {
	return "payment_events"
}
