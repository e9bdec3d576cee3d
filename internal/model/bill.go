package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillStatus is the stored status of a bill. BillOverdue is never stored;
// it is derived by DisplayStatus.
type BillStatus string

const (
	BillPending   BillStatus = "pending"
	BillPaid      BillStatus = "paid"
	BillOverdue   BillStatus = "overdue"
	BillCancelled BillStatus = "cancelled"
)

// Bill represents a billing-period statement
type Bill struct {
	ID                 uuid.UUID           `json:"id"`
	TenantID           uuid.UUID           `json:"tenant_id"`
	MeterID            uuid.UUID           `json:"meter_id"`
	BillingPeriodStart Date                `json:"billing_period_start"`
	BillingPeriodEnd   Date                `json:"billing_period_end"`
	WaterConsumption   *float64            `json:"water_consumption,omitempty"`
	RatePerUnit        decimal.Decimal     `json:"rate_per_unit"`
	WaterCharges       decimal.NullDecimal `json:"water_charges"`
	ServiceCharges     decimal.Decimal     `json:"service_charges"`
	TotalAmount        decimal.NullDecimal `json:"total_amount"`
	Status             BillStatus          `json:"status"`
	DueDate            *Date               `json:"due_date,omitempty"`
	PaidDate           *Date               `json:"paid_date,omitempty"`
	CreatedAt          Date                `json:"created_at"`
	UpdatedAt          Date                `json:"updated_at"`
	Meter              *Meter              `json:"meter,omitempty"`
}

// IsOverdue reports whether the bill is pending with a due date before now.
func (b Bill) IsOverdue(now time.Time) bool {
	return b.Status == BillPending && b.DueDate != nil && b.DueDate.Before(now)
}

// DisplayStatus returns the presentation status, promoting overdue pending bills.
func (b Bill) DisplayStatus(now time.Time) BillStatus {
	if b.IsOverdue(now) {
		return BillOverdue
	}
	return b.Status
}

// Consumption returns the bill's water consumption, zero when unset.
func (b Bill) Consumption() float64 {
	if b.WaterConsumption == nil {
		return 0
	}
	return *b.WaterConsumption
}

// Total returns the bill's total amount, zero when unset.
func (b Bill) Total() decimal.Decimal {
	if !b.TotalAmount.Valid {
		return decimal.Zero
	}
	return b.TotalAmount.Decimal
}
