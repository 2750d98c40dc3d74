// Package economy — repository.go реализует Store на PostgreSQL.
// Все денежные операции выполняются в транзакции вместе с записью в журнал.
package economy

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/discord-bot/internal/common"
)

// Repository предоставляет доступ к таблицам accounts, inventory, settings, transactions.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий экономики.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Ping проверяет доступность базы.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// EnsureAccount создаёт счёт с нулевым балансом, если его нет.
func (r *Repository) EnsureAccount(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO accounts (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return fmt.Errorf("ошибка создания счёта: %w", err)
	}
	return nil
}

// GetAccount возвращает счёт, создавая его при первом обращении.
func (r *Repository) GetAccount(ctx context.Context, userID int64) (*Account, error) {
	if err := r.EnsureAccount(ctx, userID); err != nil {
		return nil, err
	}
	var a Account
	err := r.db.QueryRow(ctx,
		`SELECT user_id, balance, tax FROM accounts WHERE user_id = $1`, userID,
	).Scan(&a.UserID, &a.Balance, &a.Tax)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения счёта: %w", err)
	}
	return &a, nil
}

// AddBalance атомарно прибавляет delta к балансу (upsert) и пишет журнал.
func (r *Repository) AddBalance(ctx context.Context, userID, delta int64, txType, description string) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO accounts (user_id, balance) VALUES ($1, $2)
			ON CONFLICT (user_id) DO UPDATE
			SET balance = accounts.balance + EXCLUDED.balance, updated_at = NOW()
		`, userID, delta)
		if err != nil {
			return fmt.Errorf("ошибка изменения баланса: %w", err)
		}
		return logMovement(ctx, tx, userID, delta, txType, description)
	})
}

// SetBalance перезаписывает баланс.
func (r *Repository) SetBalance(ctx context.Context, userID, value int64) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO accounts (user_id, balance) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET balance = EXCLUDED.balance, updated_at = NOW()
	`, userID, value)
	if err != nil {
		return fmt.Errorf("ошибка установки баланса: %w", err)
	}
	return nil
}

// Withdraw списывает деньги, только если их хватает.
func (r *Repository) Withdraw(ctx context.Context, userID, amount int64, txType, description string) error {
	if amount <= 0 {
		return common.ErrInvalidAmount
	}
	if err := r.EnsureAccount(ctx, userID); err != nil {
		return err
	}
	return r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE accounts SET balance = balance - $2, updated_at = NOW()
			WHERE user_id = $1 AND balance >= $2
		`, userID, amount)
		if err != nil {
			return fmt.Errorf("ошибка списания: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return common.ErrInsufficientBalance
		}
		return logMovement(ctx, tx, userID, -amount, txType, description)
	})
}

// Transfer переводит деньги между счетами в одной транзакции.
// Строки блокируются в порядке возрастания ID, чтобы встречные переводы не взаимоблокировались.
func (r *Repository) Transfer(ctx context.Context, fromUserID, toUserID, amount int64, description string) error {
	if err := r.EnsureAccount(ctx, fromUserID); err != nil {
		return err
	}
	if err := r.EnsureAccount(ctx, toUserID); err != nil {
		return err
	}
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			SELECT user_id FROM accounts WHERE user_id IN ($1, $2) ORDER BY user_id FOR UPDATE
		`, fromUserID, toUserID); err != nil {
			return fmt.Errorf("ошибка блокировки счетов: %w", err)
		}

		var senderBalance int64
		if err := tx.QueryRow(ctx,
			`SELECT balance FROM accounts WHERE user_id = $1`, fromUserID,
		).Scan(&senderBalance); err != nil {
			return fmt.Errorf("отправитель не найден: %w", err)
		}
		if senderBalance < amount {
			return common.ErrInsufficientBalance
		}

		if _, err := tx.Exec(ctx,
			`UPDATE accounts SET balance = balance - $2, updated_at = NOW() WHERE user_id = $1`,
			fromUserID, amount); err != nil {
			return fmt.Errorf("ошибка списания у отправителя: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE accounts SET balance = balance + $2, updated_at = NOW() WHERE user_id = $1`,
			toUserID, amount); err != nil {
			return fmt.Errorf("ошибка зачисления получателю: %w", err)
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO transactions (from_user_id, to_user_id, amount, transaction_type, description)
			VALUES ($1, $2, $3, $4, $5)
		`, fromUserID, toUserID, amount, TxTypeTransfer, description)
		if err != nil {
			return fmt.Errorf("ошибка записи транзакции: %w", err)
		}
		return nil
	})
}

// AddTax меняет налоговый долг, не опуская его ниже нуля.
func (r *Repository) AddTax(ctx context.Context, userID, delta int64) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO accounts (user_id, tax) VALUES ($1, GREATEST($2::BIGINT, 0))
		ON CONFLICT (user_id) DO UPDATE
		SET tax = GREATEST(accounts.tax + $2::BIGINT, 0), updated_at = NOW()
	`, userID, delta)
	if err != nil {
		return fmt.Errorf("ошибка изменения налога: %w", err)
	}
	return nil
}

// ApplyIncome начисляет доход с удержанием части налогового долга.
func (r *Repository) ApplyIncome(ctx context.Context, userID, gross int64, rate float64, txType, description string) (int64, int64, error) {
	if err := r.EnsureAccount(ctx, userID); err != nil {
		return 0, 0, err
	}
	var net, withheld int64
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		var owed int64
		if err := tx.QueryRow(ctx,
			`SELECT tax FROM accounts WHERE user_id = $1 FOR UPDATE`, userID,
		).Scan(&owed); err != nil {
			return fmt.Errorf("ошибка получения налога: %w", err)
		}

		withheld = Withholding(gross, rate, owed)
		net = gross - withheld

		if _, err := tx.Exec(ctx, `
			UPDATE accounts SET balance = balance + $2, tax = tax - $3, updated_at = NOW()
			WHERE user_id = $1
		`, userID, net, withheld); err != nil {
			return fmt.Errorf("ошибка начисления дохода: %w", err)
		}
		return logMovement(ctx, tx, userID, net, txType, description)
	})
	if err != nil {
		return 0, 0, err
	}
	return net, withheld, nil
}

// Settle применяет выплату расчёта с переносом недостачи в налог.
func (r *Repository) Settle(ctx context.Context, userID, payout int64, description string) (int64, error) {
	if err := r.EnsureAccount(ctx, userID); err != nil {
		return 0, err
	}
	var shortfall int64
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		var balance int64
		if err := tx.QueryRow(ctx,
			`SELECT balance FROM accounts WHERE user_id = $1 FOR UPDATE`, userID,
		).Scan(&balance); err != nil {
			return fmt.Errorf("ошибка получения баланса: %w", err)
		}

		newBalance, debt := SettleOutcome(balance, payout)
		shortfall = debt
		if _, err := tx.Exec(ctx, `
			UPDATE accounts SET balance = $2, tax = tax + $3, updated_at = NOW()
			WHERE user_id = $1
		`, userID, newBalance, debt); err != nil {
			return fmt.Errorf("ошибка применения расчёта: %w", err)
		}
		return logMovement(ctx, tx, userID, newBalance-balance, TxTypeSettle, description)
	})
	if err != nil {
		return 0, err
	}
	return shortfall, nil
}

// GetInventory возвращает все строки инвентаря пользователя.
func (r *Repository) GetInventory(ctx context.Context, userID int64) (map[string]InventoryLine, error) {
	rows, err := r.db.Query(ctx,
		`SELECT name, quantity, unit_price FROM inventory WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения инвентаря: %w", err)
	}
	defer rows.Close()

	items := make(map[string]InventoryLine)
	for rows.Next() {
		var line InventoryLine
		if err := rows.Scan(&line.Name, &line.Quantity, &line.UnitPrice); err != nil {
			return nil, fmt.Errorf("ошибка сканирования инвентаря: %w", err)
		}
		items[line.Name] = line
	}
	return items, rows.Err()
}

// AddInventory увеличивает количество предмета; цена остаётся той, что была при создании.
func (r *Repository) AddInventory(ctx context.Context, userID int64, name string, quantity, price int64) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO inventory (user_id, name, quantity, unit_price) VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id, name) DO UPDATE
			SET quantity = inventory.quantity + EXCLUDED.quantity
		`, userID, name, quantity, price)
		if err != nil {
			return fmt.Errorf("ошибка добавления в инвентарь: %w", err)
		}
		// Отрицательное добавление могло довести количество до нуля
		_, err = tx.Exec(ctx,
			`DELETE FROM inventory WHERE user_id = $1 AND name = $2 AND quantity <= 0`, userID, name)
		if err != nil {
			return fmt.Errorf("ошибка очистки инвентаря: %w", err)
		}
		return nil
	})
}

// SetInventory перезаписывает строку инвентаря или удаляет её при нулевом количестве.
func (r *Repository) SetInventory(ctx context.Context, userID int64, name string, quantity, price int64) error {
	var err error
	if quantity <= 0 {
		_, err = r.db.Exec(ctx, `DELETE FROM inventory WHERE user_id = $1 AND name = $2`, userID, name)
	} else {
		_, err = r.db.Exec(ctx, `
			INSERT INTO inventory (user_id, name, quantity, unit_price) VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id, name) DO UPDATE
			SET quantity = EXCLUDED.quantity, unit_price = EXCLUDED.unit_price
		`, userID, name, quantity, price)
	}
	if err != nil {
		return fmt.Errorf("ошибка записи инвентаря: %w", err)
	}
	return nil
}

// TotalInventoryValue возвращает сумму quantity*unit_price по инвентарю.
func (r *Repository) TotalInventoryValue(ctx context.Context, userID int64) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(quantity * unit_price), 0)::BIGINT FROM inventory WHERE user_id = $1`, userID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("ошибка оценки инвентаря: %w", err)
	}
	return total, nil
}

// Ranking возвращает топ счетов по балансу с плотным рангом.
func (r *Repository) Ranking(ctx context.Context, limit int) ([]RankEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id, balance, DENSE_RANK() OVER (ORDER BY balance DESC)
		FROM accounts
		ORDER BY balance DESC, user_id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения рейтинга: %w", err)
	}
	defer rows.Close()

	var entries []RankEntry
	for rows.Next() {
		var e RankEntry
		if err := rows.Scan(&e.UserID, &e.Balance, &e.Rank); err != nil {
			return nil, fmt.Errorf("ошибка сканирования рейтинга: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AccountIDs возвращает идентификаторы всех счетов.
func (r *Repository) AccountIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT user_id FROM accounts ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения счетов: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Transactions возвращает последние операции пользователя.
func (r *Repository) Transactions(ctx context.Context, userID int64, limit int) ([]*Transaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, from_user_id, to_user_id, amount, transaction_type, COALESCE(description, ''), created_at
		FROM transactions
		WHERE from_user_id = $1 OR to_user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения транзакций: %w", err)
	}
	defer rows.Close()

	var txs []*Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.FromUserID, &t.ToUserID, &t.Amount, &t.Type, &t.Description, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования транзакции: %w", err)
		}
		txs = append(txs, &t)
	}
	return txs, rows.Err()
}

// GetValue читает глобальную настройку.
func (r *Repository) GetValue(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("ошибка чтения настройки %s: %w", key, err)
	}
	return value, true, nil
}

// SetValue записывает глобальную настройку.
func (r *Repository) SetValue(ctx context.Context, key, value string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, key, value)
	if err != nil {
		return fmt.Errorf("ошибка записи настройки %s: %w", key, err)
	}
	return nil
}

// inTx выполняет fn в транзакции: commit при nil, rollback при ошибке.
func (r *Repository) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// logMovement пишет в журнал изменение баланса пользователя на delta.
func logMovement(ctx context.Context, tx pgx.Tx, userID, delta int64, txType, description string) error {
	if delta == 0 {
		return nil
	}
	var query string
	amount := delta
	if delta > 0 {
		query = `INSERT INTO transactions (to_user_id, amount, transaction_type, description) VALUES ($1, $2, $3, $4)`
	} else {
		query = `INSERT INTO transactions (from_user_id, amount, transaction_type, description) VALUES ($1, $2, $3, $4)`
		amount = -delta
	}
	if _, err := tx.Exec(ctx, query, userID, amount, txType, description); err != nil {
		return fmt.Errorf("ошибка записи транзакции: %w", err)
	}
	return nil
}
