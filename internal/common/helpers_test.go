package common

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0.00 Ł"},
		{5, "0.05 Ł"},
		{150, "1.50 Ł"},
		{123456, "1 234.56 Ł"},
		{100000000, "1 000 000.00 Ł"},
		{-5, "-0.05 Ł"},
		{-123456, "-1 234.56 Ł"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatMoney(tt.in), "FormatMoney(%d)", tt.in)
	}
	assert.Equal(t, "+1.50 Ł", FormatSignedMoney(150))
	assert.Equal(t, "-1.50 Ł", FormatSignedMoney(-150))
}

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"12", 1200},
		{"12.5", 1250},
		{"12,5", 1250},
		{" 0.01 ", 1},
		{"0.005", 1},
		{"-3", -300},
	}
	for _, tt := range tests {
		got, err := ParseMoney(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseMoney("сто")
	assert.Error(t, err)
}

func TestParseMoneyRejectsOverflow(t *testing.T) {
	for _, in := range []string{
		"92233720368547758.08",
		"184467440737095516.17",
		"-92233720368547758.09",
		"1e30",
		"1e1000000000",
	} {
		_, err := ParseMoney(in)
		assert.ErrorIs(t, err, ErrAmountTooLarge, in)
	}

	max, err := ParseMoney("92233720368547758.07")
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), max)

	_, err = ParseMoney("1e-1000000000")
	assert.Error(t, err)
}

func TestInt64Bounds(t *testing.T) {
	n, ok := Int64(decimal.RequireFromString("-9223372036854775808"))
	assert.True(t, ok)
	assert.Equal(t, int64(math.MinInt64), n)

	_, ok = Int64(decimal.RequireFromString("9223372036854775808"))
	assert.False(t, ok)

	assert.Equal(t, int64(math.MaxInt64), ClampInt64(decimal.RequireFromString("1e25")))
	assert.Equal(t, int64(math.MinInt64), ClampInt64(decimal.RequireFromString("-1e25")))
	assert.Equal(t, int64(42), ClampInt64(decimal.RequireFromString("42.9")))
}

func TestCentilosRoundTrip(t *testing.T) {
	assert.True(t, FromCentilos(1250).Equal(decimal.RequireFromString("12.5")))
	c, err := ToCentilos(decimal.RequireFromString("-0.005"))
	require.NoError(t, err)
	assert.Equal(t, int64(-1), c)
	assert.Equal(t, "12.34%", FormatPercent(decimal.RequireFromString("0.1234")))
}

func TestSameDay(t *testing.T) {
	msk := time.FixedZone("MSK", 3*3600)
	a := time.Date(2024, 3, 10, 23, 30, 0, 0, msk)

	assert.True(t, SameDay(a, time.Date(2024, 3, 10, 1, 0, 0, 0, msk)))
	// 21:00 UTC 10 марта по Москве уже 11 марта
	assert.False(t, SameDay(a, time.Date(2024, 3, 10, 21, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, msk), DateOf(a))
	assert.Equal(t, "10.03.2024 23:30", FormatDateTime(a))
	assert.Equal(t, "2024-03-10", FormatDate(a))
}

func TestPluralize(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "билетов"},
		{1, "билет"},
		{2, "билета"},
		{4, "билета"},
		{5, "билетов"},
		{11, "билетов"},
		{12, "билетов"},
		{21, "билет"},
		{22, "билета"},
		{111, "билетов"},
		{-1, "билет"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PluralizeTickets(tt.n), "n=%d", tt.n)
	}
	assert.Equal(t, "дня", PluralizeDays(3))
	assert.Equal(t, "очков", PluralizePoints(25))
	assert.Equal(t, "человека", PluralizePeople(2))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "999", FormatNumber(999))
	assert.Equal(t, "2 350", FormatNumber(2350))
	assert.Equal(t, "1 000 001", FormatNumber(1000001))
	assert.Equal(t, "-2 350", FormatNumber(-2350))
}

func TestIsUserError(t *testing.T) {
	assert.True(t, IsUserError(ErrInsufficientBalance))
	assert.True(t, IsUserError(fmt.Errorf("перевод: %w", ErrSelfTransfer)))
	assert.False(t, IsUserError(errors.New("connection refused")))
	assert.False(t, IsUserError(nil))
}

func TestKeyedMutex(t *testing.T) {
	km := NewKeyedMutex()
	counters := map[int64]int{}
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(key int64) {
			defer wg.Done()
			unlock := km.Lock(key)
			defer unlock()
			mu.Lock()
			counters[key]++
			mu.Unlock()
		}(int64(i % 3))
	}
	wg.Wait()

	assert.Equal(t, 34, counters[0])
	assert.Equal(t, 33, counters[1])
	assert.Equal(t, 33, counters[2])
}
