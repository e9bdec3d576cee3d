package dashboard

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/smarta/server/internal/model"
)

const displayDateLayout = "Jan 2, 2006"

// FormatCurrency renders amount in shillings with thousands separators,
// e.g. "KSh 1,234.5".
func FormatCurrency(amount decimal.Decimal) string {
	s := amount.Round(3).String()

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return "KSh " + sign + b.String()
}

// FormatDate renders a date the way the views show it, e.g. "Jan 2, 2006"
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(displayDateLayout)
}

// FormatPaymentHistory flattens payments into display rows. The bill period
// is only set when the payment carries its bill.
func FormatPaymentHistory(payments []model.Payment) []model.PaymentHistory {
	history := make([]model.PaymentHistory, 0, len(payments))
	for _, p := range payments {
		row := model.PaymentHistory{
			ID:                 p.ID,
			Amount:             p.Amount,
			AmountDisplay:      FormatCurrency(p.Amount),
			Status:             p.PaymentStatus,
			Date:               p.PaymentDate,
			Reference:          p.PaymentReference,
			MpesaTransactionID: p.MpesaTransactionID,
		}
		if p.Billing != nil {
			row.BillPeriod = billPeriod(*p.Billing)
		}
		history = append(history, row)
	}
	return history
}

func billPeriod(b model.Bill) string {
	return FormatDate(b.BillingPeriodStart.Time) + " - " + FormatDate(b.BillingPeriodEnd.Time)
}
