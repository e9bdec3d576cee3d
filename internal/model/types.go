package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tenant represents a renter's lease record
type Tenant struct {
	ID             uuid.UUID       `json:"id"`
	PropertyID     uuid.UUID       `json:"property_id"`
	UserID         *string         `json:"user_id,omitempty"`
	UnitNumber     string          `json:"unit_number"`
	LeaseStartDate Date            `json:"lease_start_date"`
	LeaseEndDate   Date            `json:"lease_end_date"`
	MonthlyRent    decimal.Decimal `json:"monthly_rent"`
	Status         string          `json:"status"` // active, inactive, pending
	CreatedAt      Date            `json:"created_at"`
	UpdatedAt      Date            `json:"updated_at"`
	Property       *Property       `json:"property,omitempty"`
}

// Property represents the building a tenant leases in
type Property struct {
	ID           uuid.UUID  `json:"id"`
	LandlordID   *uuid.UUID `json:"landlord_id,omitempty"`
	Name         string     `json:"name"`
	Address      string     `json:"address"`
	PropertyType string     `json:"property_type"` // residential, commercial, mixed
	TotalUnits   int        `json:"total_units"`
	CreatedAt    Date       `json:"created_at"`
	UpdatedAt    Date       `json:"updated_at"`
}

// Meter represents a consumption-tracking device linked to a tenant
type Meter struct {
	ID               uuid.UUID  `json:"id"`
	PropertyID       uuid.UUID  `json:"property_id"`
	TenantID         *uuid.UUID `json:"tenant_id,omitempty"`
	MeterNumber      string     `json:"meter_number"`
	MeterType        string     `json:"meter_type"` // water, electricity, gas
	Location         string     `json:"location"`
	InstallationDate Date       `json:"installation_date"`
	LastReadingDate  *Date      `json:"last_reading_date,omitempty"`
	LastReadingValue *float64   `json:"last_reading_value,omitempty"`
	Status           string     `json:"status"` // active, inactive, maintenance, available
	CreatedAt        Date       `json:"created_at"`
	UpdatedAt        Date       `json:"updated_at"`
}

// MeterReading is a single dated consumption sample
type MeterReading struct {
	ReadingValue float64  `json:"reading_value"`
	ReadingDate  Date     `json:"reading_date"`
	Consumption  *float64 `json:"consumption,omitempty"`
}

// Payment is a settlement attempt against a bill, created by the payment function
type Payment struct {
	ID                 uuid.UUID       `json:"id"`
	BillingID          uuid.UUID       `json:"billing_id"`
	TenantID           uuid.UUID       `json:"tenant_id"`
	Amount             decimal.Decimal `json:"amount"`
	PaymentMethod      string          `json:"payment_method"` // mpesa, bank_transfer, cash
	PaymentStatus      PaymentStatus   `json:"payment_status"`
	PaymentReference   string          `json:"payment_reference"`
	MpesaTransactionID *string         `json:"mpesa_transaction_id,omitempty"`
	PaymentDate        Date            `json:"payment_date"`
	ConfirmedAt        *Date           `json:"confirmed_at,omitempty"`
	CreatedAt          Date            `json:"created_at"`
	UpdatedAt          Date            `json:"updated_at"`
	Billing            *Bill           `json:"billing,omitempty"`
}

// PaymentStatus is the settlement state reported by the payment processor
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
)

// PaymentRequest is the body sent to the payment-initiation function
type PaymentRequest struct {
	TenantID         uuid.UUID       `json:"tenant_id"`
	BillingID        uuid.UUID       `json:"billing_id"`
	Amount           decimal.Decimal `json:"amount"`
	PhoneNumber      string          `json:"phone_number"`
	AccountReference string          `json:"account_reference"`
	TransactionDesc  string          `json:"transaction_desc"`
}

// PaymentResponse is the payment function's answer to an initiation
type PaymentResponse struct {
	Success           bool   `json:"success"`
	PaymentID         string `json:"payment_id"`
	CheckoutRequestID string `json:"checkout_request_id"`
	MerchantRequestID string `json:"merchant_request_id"`
	CustomerMessage   string `json:"customer_message"`
	Error             string `json:"error,omitempty"`
}

// PaymentStatusResponse is the payment function's answer to a status check
type PaymentStatusResponse struct {
	PaymentID   string          `json:"payment_id"`
	Status      string          `json:"status"`
	Amount      decimal.Decimal `json:"amount"`
	Reference   string          `json:"reference"`
	Receipt     *string         `json:"mpesa_receipt,omitempty"`
	ConfirmedAt *Date           `json:"confirmed_at,omitempty"`
}

// PaymentHistory is a payment flattened for display
type PaymentHistory struct {
	ID                 uuid.UUID       `json:"id"`
	Amount             decimal.Decimal `json:"amount"`
	AmountDisplay      string          `json:"amount_display"`
	Status             PaymentStatus   `json:"status"`
	Date               Date            `json:"date"`
	Reference          string          `json:"reference"`
	MpesaTransactionID *string         `json:"mpesa_transaction_id,omitempty"`
	BillPeriod         string          `json:"bill_period,omitempty"`
}

// TenantStats summarizes a tenant's consumption and payments for the home view
type TenantStats struct {
	CurrentBalance  float64         `json:"current_balance"`
	MonthlyUsage    float64         `json:"monthly_usage"`
	DailyAverage    float64         `json:"daily_average"`
	PendingBills    int             `json:"pending_bills"`
	TotalPaid       decimal.Decimal `json:"total_paid"`
	LastPaymentDate *Date           `json:"last_payment_date,omitempty"`
}

// WaterUsage is chart-ready consumption data
type WaterUsage struct {
	Labels []string  `json:"labels"`
	Usage  []float64 `json:"usage"`
}
