package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smarta/server/internal/model"
)

func TestBucketUsage_Weekly(t *testing.T) {
	readings := []model.MeterReading{
		{ReadingDate: day(2024, 3, 13), Consumption: ptr(5.0)}, // Wednesday
		{ReadingDate: day(2024, 3, 17), Consumption: ptr(9.0)}, // Sunday
		{ReadingDate: day(2024, 3, 18), Consumption: ptr(2.0)}, // Monday
		{ReadingDate: day(2024, 3, 20), Consumption: ptr(7.0)}, // Wednesday again
	}

	usage := bucketUsage(readings, Weekly)

	assert.Equal(t, []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}, usage.Labels)
	assert.Equal(t, []float64{2, 0, 7, 0, 0, 0, 9}, usage.Usage)
}

func TestBucketUsage_WeeklyWednesdayAndSunday(t *testing.T) {
	usage := bucketUsage([]model.MeterReading{{ReadingDate: day(2024, 3, 13), Consumption: ptr(1.0)}}, Weekly)
	assert.Equal(t, 1.0, usage.Usage[2])

	usage = bucketUsage([]model.MeterReading{{ReadingDate: day(2024, 3, 17), Consumption: ptr(1.0)}}, Weekly)
	assert.Equal(t, 1.0, usage.Usage[6])
}

func TestBucketUsage_MissingConsumptionOverwritesWithZero(t *testing.T) {
	readings := []model.MeterReading{
		{ReadingDate: day(2024, 3, 13), Consumption: ptr(5.0)},
		{ReadingDate: day(2024, 3, 20)},
	}
	usage := bucketUsage(readings, Weekly)
	assert.Zero(t, usage.Usage[2])
}

func TestBucketUsage_Monthly(t *testing.T) {
	readings := []model.MeterReading{
		{ReadingDate: day(2024, 3, 1), Consumption: ptr(3.0)},
		{ReadingDate: day(2024, 3, 7), Consumption: ptr(2.0)},
		{ReadingDate: day(2024, 3, 8), Consumption: ptr(4.0)},
		{ReadingDate: day(2024, 3, 28), Consumption: ptr(1.0)},
		{ReadingDate: day(2024, 3, 29), Consumption: ptr(100.0)},
		{ReadingDate: day(2024, 3, 31), Consumption: ptr(100.0)},
		{ReadingDate: day(2024, 3, 15)},
	}

	usage := bucketUsage(readings, Monthly)

	assert.Equal(t, []string{"Week 1", "Week 2", "Week 3", "Week 4"}, usage.Labels)
	assert.Equal(t, []float64{5, 4, 0, 1}, usage.Usage)
}

func TestBucketUsage_Empty(t *testing.T) {
	assert.Equal(t, make([]float64, 7), bucketUsage(nil, Weekly).Usage)
	assert.Equal(t, make([]float64, 4), bucketUsage(nil, Monthly).Usage)
}

func TestBucketUsage_LabelsAreCopies(t *testing.T) {
	usage := bucketUsage(nil, Weekly)
	usage.Labels[0] = "changed"
	assert.Equal(t, "Mon", bucketUsage(nil, Weekly).Labels[0])
}

func TestParseTimeframe(t *testing.T) {
	tf, err := ParseTimeframe("")
	require.NoError(t, err)
	assert.Equal(t, Weekly, tf)

	tf, err = ParseTimeframe("monthly")
	require.NoError(t, err)
	assert.Equal(t, Monthly, tf)

	_, err = ParseTimeframe("yearly")
	assert.Error(t, err)
}
