package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/smarta/server/internal/auth"
	"github.com/smarta/server/internal/model"
	"github.com/smarta/server/internal/phone"
)

var (
	// ErrNoTenant is returned by the views when the user has no active lease
	ErrNoTenant = errors.New("no active tenant")
	// ErrBillNotPayable is returned by Pay for a bill that is not one of the tenant's pending bills
	ErrBillNotPayable = errors.New("bill is not pending")
)

// BillFilter narrows the bills view
type BillFilter string

const (
	FilterAll     BillFilter = "all"
	FilterPending BillFilter = "pending"
	FilterPaid    BillFilter = "paid"
	FilterOverdue BillFilter = "overdue"
)

// ParseBillFilter maps a query value to a BillFilter; empty means FilterAll
func ParseBillFilter(value string) (BillFilter, error) {
	switch BillFilter(value) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterPending, FilterPaid, FilterOverdue:
		return BillFilter(value), nil
	default:
		return "", fmt.Errorf("unknown filter %q", value)
	}
}

func (f BillFilter) match(b model.Bill, now time.Time) bool {
	switch f {
	case FilterPending:
		return b.Status == model.BillPending
	case FilterPaid:
		return b.Status == model.BillPaid
	case FilterOverdue:
		return b.IsOverdue(now)
	default:
		return true
	}
}

// BillRow is a bill with its presentation status and display strings
type BillRow struct {
	model.Bill
	DisplayStatus model.BillStatus `json:"display_status"`
	TotalDisplay  string           `json:"total_display"`
	PeriodDisplay string           `json:"period_display"`
	DueDisplay    string           `json:"due_display,omitempty"`
}

func billRows(bills []model.Bill, now time.Time) []BillRow {
	rows := make([]BillRow, 0, len(bills))
	for _, b := range bills {
		row := BillRow{
			Bill:          b,
			DisplayStatus: b.DisplayStatus(now),
			TotalDisplay:  FormatCurrency(b.Total()),
			PeriodDisplay: billPeriod(b),
		}
		if b.DueDate != nil {
			row.DueDisplay = FormatDate(b.DueDate.Time)
		}
		rows = append(rows, row)
	}
	return rows
}

// BillCounts are the totals shown above the bills list
type BillCounts struct {
	Total   int `json:"total"`
	Pending int `json:"pending"`
	Paid    int `json:"paid"`
	Overdue int `json:"overdue"`
}

// HomeView is the dashboard landing page
type HomeView struct {
	Tenant       model.Tenant      `json:"tenant"`
	Meter        *model.Meter      `json:"meter"`
	Timeframe    Timeframe         `json:"timeframe"`
	Stats        model.TenantStats `json:"stats"`
	Usage        model.WaterUsage  `json:"usage"`
	PendingBills []BillRow         `json:"pending_bills"`
	// TotalPaidDisplay is Stats.TotalPaid as shown on the stats card
	TotalPaidDisplay string `json:"total_paid_display"`
}

// BillsView is the billing statements page
type BillsView struct {
	Tenant model.Tenant `json:"tenant"`
	Filter BillFilter   `json:"filter"`
	Bills  []BillRow    `json:"bills"`
	Counts BillCounts   `json:"counts"`
}

// PurchaseView lists what can be paid and what has been paid
type PurchaseView struct {
	Tenant         model.Tenant           `json:"tenant"`
	PendingBills   []BillRow              `json:"pending_bills"`
	PaymentHistory []model.PaymentHistory `json:"payment_history"`
}

// PayResult is the outcome of a successful payment initiation with the
// purchase lists reloaded after it
type PayResult struct {
	Payment        *model.PaymentResponse `json:"payment"`
	PendingBills   []BillRow              `json:"pending_bills"`
	PaymentHistory []model.PaymentHistory `json:"payment_history"`
}

// ProfileView shows the signed-in account
type ProfileView struct {
	UserID       string     `json:"user_id"`
	Phone        string     `json:"phone"`
	LastSignInAt *time.Time `json:"last_sign_in_at,omitempty"`
	Development  bool       `json:"development"`
}

// tenantUserID maps a session to the user the tenant lookup runs for.
// Development sessions have a synthetic identity that owns no lease.
func (s *Service) tenantUserID(session *model.Session) string {
	if session.IsDevelopment() && s.devTenantUserID != "" {
		return s.devTenantUserID
	}
	return session.User.ID
}

func (s *Service) resolveTenant(ctx context.Context, session *model.Session) (*model.Tenant, error) {
	if session == nil {
		return nil, auth.ErrNoSession
	}
	tenant := s.CurrentTenant(ctx, s.tenantUserID(session))
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, ErrNoTenant
	}
	return tenant, nil
}

// Home loads the landing page: the meter first, then stats, usage and
// pending bills in parallel.
func (s *Service) Home(ctx context.Context, session *model.Session, timeframe Timeframe) (*HomeView, error) {
	tenant, err := s.resolveTenant(ctx, session)
	if err != nil {
		return nil, err
	}
	view := &HomeView{Tenant: *tenant, Timeframe: timeframe}

	view.Meter = s.TenantMeter(ctx, tenant.ID)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var pending []model.Bill
	var g errgroup.Group
	g.Go(func() error {
		view.Stats = s.TenantStats(ctx, tenant.ID)
		return nil
	})
	g.Go(func() error {
		view.Usage = s.WaterUsage(ctx, tenant.ID, timeframe)
		return nil
	})
	g.Go(func() error {
		pending = s.PendingBills(ctx, tenant.ID)
		return nil
	})
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	view.PendingBills = billRows(pending, s.now())
	view.TotalPaidDisplay = FormatCurrency(view.Stats.TotalPaid)
	return view, nil
}

// Bills loads the tenant's statements narrowed by filter. Counts always
// cover every bill.
func (s *Service) Bills(ctx context.Context, session *model.Session, filter BillFilter) (*BillsView, error) {
	tenant, err := s.resolveTenant(ctx, session)
	if err != nil {
		return nil, err
	}

	bills := s.TenantBills(ctx, tenant.ID)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := s.now()
	view := &BillsView{Tenant: *tenant, Filter: filter, Bills: []BillRow{}}
	view.Counts.Total = len(bills)
	for _, b := range bills {
		switch b.Status {
		case model.BillPending:
			view.Counts.Pending++
		case model.BillPaid:
			view.Counts.Paid++
		}
		if b.IsOverdue(now) {
			view.Counts.Overdue++
		}
		if filter.match(b, now) {
			view.Bills = append(view.Bills, BillRow{Bill: b, DisplayStatus: b.DisplayStatus(now)})
		}
	}
	return view, nil
}

// Purchase loads pending bills and the formatted payment history
func (s *Service) Purchase(ctx context.Context, session *model.Session) (*PurchaseView, error) {
	tenant, err := s.resolveTenant(ctx, session)
	if err != nil {
		return nil, err
	}
	pending, history, err := s.purchaseLists(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}
	return &PurchaseView{Tenant: *tenant, PendingBills: pending, PaymentHistory: history}, nil
}

func (s *Service) purchaseLists(ctx context.Context, tenantID uuid.UUID) ([]BillRow, []model.PaymentHistory, error) {
	var (
		bills    []model.Bill
		payments []model.Payment
	)
	var g errgroup.Group
	g.Go(func() error {
		bills = s.PendingBills(ctx, tenantID)
		return nil
	})
	g.Go(func() error {
		payments = s.PaymentHistory(ctx, tenantID)
		return nil
	})
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return billRows(bills, s.now()), FormatPaymentHistory(payments), nil
}

// Pay initiates a mobile-money payment of one pending bill from phoneNumber,
// then reloads the purchase lists. The phone is normalized to an MSISDN and
// rejected with phone.ErrInvalidPhone before anything is sent.
func (s *Service) Pay(ctx context.Context, session *model.Session, billID uuid.UUID, phoneNumber string) (*PayResult, error) {
	msisdn, err := phone.ParseMSISDN(phoneNumber)
	if err != nil {
		return nil, err
	}

	tenant, err := s.resolveTenant(ctx, session)
	if err != nil {
		return nil, err
	}

	bills := s.PendingBills(ctx, tenant.ID)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var bill *model.Bill
	for i := range bills {
		if bills[i].ID == billID {
			bill = &bills[i]
			break
		}
	}
	if bill == nil {
		return nil, ErrBillNotPayable
	}

	resp, err := s.InitiatePayment(ctx, model.PaymentRequest{
		TenantID:         tenant.ID,
		BillingID:        bill.ID,
		Amount:           bill.Total(),
		PhoneNumber:      msisdn,
		AccountReference: accountReference(*tenant),
		TransactionDesc:  "Water bill payment for " + FormatDate(bill.BillingPeriodStart.Time) + " - " + FormatDate(bill.BillingPeriodEnd.Time),
	})
	if err != nil {
		return nil, err
	}

	pending, history, err := s.purchaseLists(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}
	return &PayResult{Payment: resp, PendingBills: pending, PaymentHistory: history}, nil
}

func accountReference(t model.Tenant) string {
	if t.Property == nil || t.Property.Name == "" {
		return t.UnitNumber
	}
	return t.Property.Name + "-" + t.UnitNumber
}

// Profile describes the session's account
func (s *Service) Profile(session *model.Session) (*ProfileView, error) {
	if session == nil {
		return nil, auth.ErrNoSession
	}
	return &ProfileView{
		UserID:       session.User.ID,
		Phone:        session.User.Phone,
		LastSignInAt: session.User.LastSignInAt,
		Development:  session.IsDevelopment(),
	}, nil
}
