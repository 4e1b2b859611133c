package utils

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCeilUnit(t *testing.T) {
	tests := []struct {
		name     string
		amount   decimal.Decimal
		expected decimal.Decimal
	}{
		{
			name:     "fraction rounds up",
			amount:   decimal.RequireFromString("2166.67"),
			expected: decimal.NewFromInt(2167),
		},
		{
			name:     "tiny fraction still rounds up",
			amount:   decimal.RequireFromString("500.0001"),
			expected: decimal.NewFromInt(501),
		},
		{
			name:     "whole amount unchanged",
			amount:   decimal.NewFromInt(3000),
			expected: decimal.NewFromInt(3000),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CeilUnit(tt.amount)
			assert.True(t, result.Equal(tt.expected),
				"Expected %v, but got %v", tt.expected, result)
		})
	}
}

func TestRateFromPercent(t *testing.T) {
	assert.True(t, RateFromPercent(decimal.NewFromInt(5)).Equal(decimal.RequireFromString("0.05")))
	assert.True(t, RateFromPercent(decimal.RequireFromString("2.5")).Equal(decimal.RequireFromString("0.025")))
}

func TestDateOnly_KeepsLocalCalendarDay(t *testing.T) {
	loc := time.FixedZone("UTC-6", -6*3600)
	lateEvening := time.Date(2024, 3, 10, 23, 30, 0, 0, loc)

	assert.Equal(t, date(2024, 3, 10), DateOnly(lateEvening))
	assert.Equal(t, date(2024, 3, 10), Today(lateEvening.UTC(), loc))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, date(2024, 2, 29), d)
	assert.Equal(t, "2024-02-29", FormatDate(d))

	_, err = ParseDate("2024-02-30")
	assert.Error(t, err)
}

func TestAddMonthsClamped(t *testing.T) {
	tests := []struct {
		name     string
		start    time.Time
		months   int
		expected time.Time
	}{
		{"plain month", date(2024, 1, 10), 1, date(2024, 2, 10)},
		{"snaps to leap february end", date(2024, 1, 31), 1, date(2024, 2, 29)},
		{"snaps to february end", date(2023, 1, 31), 1, date(2023, 2, 28)},
		{"year rollover", date(2024, 12, 31), 2, date(2025, 2, 28)},
		{"no drift over long horizon", date(2024, 1, 31), 3, date(2024, 4, 30)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AddMonthsClamped(tt.start, tt.months))
		})
	}
}

func TestMonthlyDueDate(t *testing.T) {
	origination := date(2024, 1, 20)

	assert.Equal(t, date(2024, 2, 29), MonthlyDueDate(origination, 1))
	assert.Equal(t, date(2024, 3, 31), MonthlyDueDate(origination, 2))
	assert.Equal(t, date(2025, 1, 31), MonthlyDueDate(origination, 12))
}

func TestSemiMonthlyDueDates(t *testing.T) {
	tests := []struct {
		name        string
		origination time.Time
		expected    []time.Time
	}{
		{
			name:        "origination on the 10th",
			origination: date(2024, 1, 10),
			expected:    []time.Time{date(2024, 1, 15), date(2024, 1, 31), date(2024, 2, 15), date(2024, 2, 29)},
		},
		{
			name:        "origination on the 15th",
			origination: date(2024, 1, 15),
			expected:    []time.Time{date(2024, 1, 15), date(2024, 1, 31), date(2024, 2, 15), date(2024, 2, 29)},
		},
		{
			name:        "origination after the 15th",
			origination: date(2024, 11, 20),
			expected:    []time.Time{date(2024, 11, 30), date(2024, 12, 15), date(2024, 12, 31), date(2025, 1, 15)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			due := FirstSemiMonthlyDue(tt.origination)
			got := []time.Time{due}
			for len(got) < len(tt.expected) {
				due = NextSemiMonthlyDue(due)
				got = append(got, due)
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestDaysAndMonthsBetween(t *testing.T) {
	assert.Equal(t, 29, DaysBetween(date(2024, 2, 1), date(2024, 3, 1)))
	assert.Equal(t, -1, DaysBetween(date(2024, 3, 2), date(2024, 3, 1)))

	assert.Equal(t, 0, MonthsBetween(date(2024, 1, 31), date(2024, 2, 28)))
	assert.Equal(t, 1, MonthsBetween(date(2024, 1, 31), date(2024, 2, 29)))
	assert.Equal(t, 2, MonthsBetween(date(2024, 1, 15), date(2024, 3, 20)))
	assert.Equal(t, 0, MonthsBetween(date(2024, 3, 20), date(2024, 1, 15)))
}

func TestSameMonth(t *testing.T) {
	assert.True(t, SameMonth(date(2024, 5, 1), date(2024, 5, 31)))
	assert.False(t, SameMonth(date(2024, 5, 1), date(2023, 5, 1)))
}

func TestFitsScale(t *testing.T) {
	tests := []struct {
		value  string
		places int32
		want   bool
	}{
		{"100", MoneyScale, true},
		{"100.25", MoneyScale, true},
		{"1.500", MoneyScale, true},
		{"100.005", MoneyScale, false},
		{"0.001", MoneyScale, false},
		{"-3.141", MoneyScale, false},
		{"5.1234", RateScale, true},
		{"5.12345", RateScale, false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, FitsScale(decimal.RequireFromString(tt.value), tt.places))
		})
	}
}
