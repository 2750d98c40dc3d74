// Package common — pluralize.go содержит склонение русских числительных
// и форматирование чисел.
package common

import "fmt"

// pluralize выбирает форму слова для числа n по правилам русского языка.
//   - n%10==1 И n%100!=11 → one (1, 21, 31, ...)
//   - n%10 в [2,3,4] И n%100 НЕ в [12,13,14] → few (2, 3, 4, 22, ...)
//   - остальные → many (0, 5-20, 25-30, ...)
func pluralize(n int64, one, few, many string) string {
	if n < 0 {
		n = -n
	}
	lastDigit := n % 10
	lastTwoDigits := n % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return one
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return few
	}
	return many
}

// PluralizeTickets — «билет».
func PluralizeTickets(n int64) string {
	return pluralize(n, "билет", "билета", "билетов")
}

// PluralizeDays — «день».
func PluralizeDays(n int64) string {
	return pluralize(n, "день", "дня", "дней")
}

// PluralizePoints — «очко».
func PluralizePoints(n int64) string {
	return pluralize(n, "очко", "очка", "очков")
}

// PluralizePeople — «человек».
func PluralizePeople(n int64) string {
	return pluralize(n, "человек", "человека", "человек")
}

// FormatNumber форматирует число с разделителями тысяч (пробелами).
// Пример: FormatNumber(2350) → "2 350"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s %03d", FormatNumber(n/1000), n%1000)
}
