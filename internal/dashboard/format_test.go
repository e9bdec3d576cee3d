package dashboard

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smarta/server/internal/model"
)

func TestFormatCurrency(t *testing.T) {
	cases := map[string]string{
		"0":         "KSh 0",
		"999":       "KSh 999",
		"1234":      "KSh 1,234",
		"1500.00":   "KSh 1,500",
		"1234567.5": "KSh 1,234,567.5",
		"-2500":     "KSh -2,500",
		"12.3456":   "KSh 12.346",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatCurrency(decimal.RequireFromString(in)), in)
	}
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "Feb 29, 2024", FormatDate(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Jan 5, 2024", FormatDate(time.Date(2024, 1, 5, 23, 0, 0, 0, time.UTC)))
	assert.Empty(t, FormatDate(time.Time{}))
}

func TestFormatPaymentHistory(t *testing.T) {
	receipt := "QGH7XK2LP1"
	withBill := model.Payment{
		ID:                 uuid.New(),
		Amount:             decimal.NewFromInt(1500),
		PaymentStatus:      model.PaymentCompleted,
		PaymentReference:   "Riverside Court-A4",
		MpesaTransactionID: &receipt,
		PaymentDate:        day(2024, 3, 3),
		Billing: &model.Bill{
			BillingPeriodStart: day(2024, 2, 1),
			BillingPeriodEnd:   day(2024, 2, 29),
		},
	}
	withoutBill := model.Payment{ID: uuid.New(), PaymentStatus: model.PaymentFailed}

	history := FormatPaymentHistory([]model.Payment{withBill, withoutBill})

	require.Len(t, history, 2)
	assert.Equal(t, withBill.ID, history[0].ID)
	assert.Equal(t, model.PaymentCompleted, history[0].Status)
	assert.Equal(t, "Riverside Court-A4", history[0].Reference)
	assert.Equal(t, &receipt, history[0].MpesaTransactionID)
	assert.Equal(t, "Feb 1, 2024 - Feb 29, 2024", history[0].BillPeriod)
	assert.Equal(t, "KSh 1,500", history[0].AmountDisplay)
	assert.Equal(t, "KSh 0", history[1].AmountDisplay)
	assert.Empty(t, history[1].BillPeriod)

	assert.Equal(t, []model.PaymentHistory{}, FormatPaymentHistory(nil))
}
