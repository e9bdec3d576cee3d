package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_UnmarshalLayouts(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{`"2024-01-31"`, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)},
		{`"2024-01-31T08:30:00Z"`, time.Date(2024, 1, 31, 8, 30, 0, 0, time.UTC)},
		{`"2024-01-31T08:30:00.123456"`, time.Date(2024, 1, 31, 8, 30, 0, 123456000, time.UTC)},
		{`"2024-01-31T08:30:00+03:00"`, time.Date(2024, 1, 31, 5, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var d Date
			require.NoError(t, json.Unmarshal([]byte(tt.in), &d))
			assert.True(t, tt.want.Equal(d.Time), "got %s", d.Time)
		})
	}
}

func TestDate_NullAndEmpty(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`null`), &d))
	assert.True(t, d.IsZero())
	require.NoError(t, json.Unmarshal([]byte(`""`), &d))
	assert.True(t, d.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`"31/01/2024"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`20240131`), &d))

	b, err := json.Marshal(Date{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))
}

func TestDate_Scan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan([]byte("2024-02-29")))
	assert.Equal(t, 29, d.Day())

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	assert.Error(t, d.Scan(42))

	v, err := Date{}.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestBill_DisplayStatus(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	past := NewDate(now.AddDate(0, 0, -1))
	future := NewDate(now.AddDate(0, 0, 1))

	assert.Equal(t, BillOverdue, Bill{Status: BillPending, DueDate: &past}.DisplayStatus(now))
	assert.Equal(t, BillPending, Bill{Status: BillPending, DueDate: &future}.DisplayStatus(now))
	assert.Equal(t, BillPending, Bill{Status: BillPending}.DisplayStatus(now), "no due date is never overdue")
	assert.Equal(t, BillPaid, Bill{Status: BillPaid, DueDate: &past}.DisplayStatus(now))
}

func TestBill_Defaults(t *testing.T) {
	var b Bill
	assert.Zero(t, b.Consumption())
	assert.True(t, b.Total().IsZero())

	usage := 12.5
	b.WaterConsumption = &usage
	b.TotalAmount = decimal.NewNullDecimal(decimal.RequireFromString("1500.50"))
	assert.Equal(t, 12.5, b.Consumption())
	assert.Equal(t, "1500.5", b.Total().String())
}

func TestSession_IsDevelopment(t *testing.T) {
	var nilSession *Session
	assert.False(t, nilSession.IsDevelopment())
	assert.True(t, (&Session{User: User{ID: DevUserPrefix + "1700000000000"}}).IsDevelopment())
	assert.False(t, (&Session{User: User{ID: "0c6f1c1e-5b7a-4d55-9a51-3d4c2b1a0f99"}}).IsDevelopment())
}

func TestSession_Expired(t *testing.T) {
	now := time.Now()
	assert.False(t, (&Session{}).Expired(now))
	assert.True(t, (&Session{ExpiresAt: now}).Expired(now))
	assert.False(t, (&Session{ExpiresAt: now.Add(time.Minute)}).Expired(now))
}
