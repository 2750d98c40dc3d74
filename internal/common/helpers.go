// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: форматирование денег, разбор сумм, работа с временем.
package common

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CentilosPerLofan — сколько центило в одном лофане (Ł).
const CentilosPerLofan = 100

// CurrencySign — знак валюты для отображения.
const CurrencySign = "Ł"

// maxExponent ограничивает десятичный порядок вводимых чисел.
const maxExponent = 30

var (
	hundred  = decimal.NewFromInt(CentilosPerLofan)
	maxInt64 = decimal.NewFromInt(math.MaxInt64)
	minInt64 = decimal.NewFromInt(math.MinInt64)
)

// FormatMoney форматирует сумму в центило как лофаны с двумя знаками.
//
// Примеры:
//
//	FormatMoney(150)     → "1.50 Ł"
//	FormatMoney(123456)  → "1 234.56 Ł"
//	FormatMoney(-5)      → "-0.05 Ł"
func FormatMoney(centilos int64) string {
	sign := ""
	if centilos < 0 {
		sign = "-"
		centilos = -centilos
	}
	whole := centilos / CentilosPerLofan
	frac := centilos % CentilosPerLofan
	return fmt.Sprintf("%s%s.%02d %s", sign, FormatNumber(whole), frac, CurrencySign)
}

// FormatSignedMoney добавляет «+» к неотрицательной сумме.
func FormatSignedMoney(centilos int64) string {
	if centilos >= 0 {
		return "+" + FormatMoney(centilos)
	}
	return FormatMoney(centilos)
}

// ParseMoney разбирает сумму в лофанах ("12.5", "12,5") и возвращает центило.
// Дробная часть округляется до центило.
func ParseMoney(s string) (int64, error) {
	d, err := ParseDecimal(s)
	if err != nil {
		return 0, err
	}
	return ToCentilos(d)
}

// ParseDecimal разбирает вещественное число, допуская запятую как разделитель.
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("не число %q: %w", s, err)
	}
	// Огромный порядок ("1e1000000000") раздувает big.Int при округлении и сравнении
	switch exp := d.Exponent(); {
	case exp > maxExponent:
		return decimal.Zero, fmt.Errorf("%w: %q", ErrAmountTooLarge, s)
	case exp < -maxExponent:
		return decimal.Zero, fmt.Errorf("не число %q: слишком много знаков после запятой", s)
	}
	return d, nil
}

// ToCentilos переводит сумму в лофанах в центило с округлением.
// Суммы вне диапазона int64 дают ErrAmountTooLarge.
func ToCentilos(lofans decimal.Decimal) (int64, error) {
	c, ok := Int64(lofans.Mul(hundred).Round(0))
	if !ok {
		return 0, ErrAmountTooLarge
	}
	return c, nil
}

// Int64 возвращает целую часть d; ok == false, если она не помещается в int64.
// decimal.IntPart в этом случае молча переполняется.
func Int64(d decimal.Decimal) (int64, bool) {
	d = d.Truncate(0)
	if d.GreaterThan(maxInt64) || d.LessThan(minInt64) {
		return 0, false
	}
	return d.IntPart(), true
}

// ClampInt64 возвращает целую часть d, прижатую к границам int64.
func ClampInt64(d decimal.Decimal) int64 {
	d = d.Truncate(0)
	switch {
	case d.GreaterThan(maxInt64):
		return math.MaxInt64
	case d.LessThan(minInt64):
		return math.MinInt64
	}
	return d.IntPart()
}

// FromCentilos переводит центило в лофаны.
func FromCentilos(centilos int64) decimal.Decimal {
	return decimal.NewFromInt(centilos).Div(hundred)
}

// FormatPercent форматирует долю как процент с двумя знаками: 0.1234 → "12.34%".
func FormatPercent(ratio decimal.Decimal) string {
	return ratio.Mul(hundred).StringFixed(2) + "%"
}

// SameDay сообщает, совпадают ли календарные дни (в часовом поясе a).
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// DateOf возвращает полночь дня t в его часовом поясе.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// FormatDateTime форматирует время в формат "02.01.2006 15:04".
func FormatDateTime(t time.Time) string {
	return t.Format("02.01.2006 15:04")
}

// FormatDate форматирует дату как "2006-01-02".
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
