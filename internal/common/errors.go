// Package common — errors.go содержит пользовательские ошибки,
// которые используются во всех фичах бота.
// Обработчики сравнивают их через errors.Is и выбирают текст ответа.
package common

import "errors"

// Ошибки экономики (баланс, переводы)
var (
	// ErrInsufficientBalance — недостаточно лофанов на счёте
	ErrInsufficientBalance = errors.New("недостаточно средств на счёте")
	// ErrSelfTransfer — попытка перевести деньги самому себе
	ErrSelfTransfer = errors.New("нельзя переводить деньги самому себе")
	// ErrInvalidAmount — сумма должна быть положительной
	ErrInvalidAmount = errors.New("сумма должна быть положительной")
	// ErrUserNotFound — пользователь не найден
	ErrUserNotFound = errors.New("пользователь не найден")
	// ErrAmountTooLarge — число не помещается в int64
	ErrAmountTooLarge = errors.New("слишком большое число")
)

// Ошибки сессий (ставки, расчёт, прогнозы)
var (
	ErrNoSession       = errors.New("сессия не найдена")
	ErrSessionExists   = errors.New("сессия уже запущена")
	ErrNotParticipant  = errors.New("вы не участвуете в этой сессии")
	ErrInvalidOutcome  = errors.New("вариант должен быть 1 или 2")
	ErrInvalidDuration = errors.New("длительность должна быть больше нуля")
	ErrMarketClosed    = errors.New("приём прогнозов уже закрыт")
	ErrInvalidMarket   = errors.New("нужны название и два варианта исхода")
)

// Ошибки лотереи
var (
	ErrInvalidTicket  = errors.New("нужно 6 разных чисел от 1 до 100")
	ErrTooManyTickets = errors.New("превышен лимит билетов")
)

// Ошибки развлечений и рынка PPL
var (
	ErrPriceTooHigh     = errors.New("ставка превышает допустимую долю баланса")
	ErrIndexNotPositive = errors.New("индекс PPL не положительный")
	ErrPromptTimeout    = errors.New("время ожидания ответа истекло")
	ErrAlreadyChecked   = errors.New("отметка за сегодня уже есть")
)

// Ошибки админки
var (
	// ErrNotAdmin — пользователь не является администратором
	ErrNotAdmin = errors.New("у вас нет прав администратора")
	// ErrWrongPassword — неверный пароль
	ErrWrongPassword = errors.New("неверный пароль")
	// ErrTooManyAttempts — слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите 1 час")
	// ErrSessionExpired — сессия истекла
	ErrSessionExpired = errors.New("сессия истекла, авторизуйтесь заново")
)

var userErrors = []error{
	ErrInsufficientBalance, ErrSelfTransfer, ErrInvalidAmount, ErrUserNotFound, ErrAmountTooLarge,
	ErrNoSession, ErrSessionExists, ErrNotParticipant, ErrInvalidOutcome, ErrInvalidDuration, ErrMarketClosed, ErrInvalidMarket,
	ErrInvalidTicket, ErrTooManyTickets,
	ErrPriceTooHigh, ErrIndexNotPositive, ErrPromptTimeout, ErrAlreadyChecked,
	ErrNotAdmin, ErrWrongPassword, ErrTooManyAttempts, ErrSessionExpired,
}

// IsUserError сообщает, что err является ожидаемой ошибкой ввода, текст которой можно показать пользователю.
func IsUserError(err error) bool {
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
