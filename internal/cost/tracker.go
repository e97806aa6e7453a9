// Package cost tracks LLM spend against daily and monthly budgets.
package cost

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const dailyRetention = 90 * 24 * time.Hour

// BudgetError reports which budget an estimated spend would exceed.
type BudgetError struct {
	Period    string // "daily" or "monthly"
	Budget    float64
	Spent     float64
	Estimated float64
}

func (e *BudgetError) Error() string {
	return fmt.Sprintf("cost: %s budget exceeded: spent %.4f + estimated %.4f > %.2f",
		e.Period, e.Spent, e.Estimated, e.Budget)
}

// IsBudgetExceeded reports whether err is a budget gate rejection.
func IsBudgetExceeded(err error) bool {
	var be *BudgetError
	return eris.As(err, &be)
}

// Summary is the current ledger state.
type Summary struct {
	DailySpent    float64 `json:"daily_spent"`
	MonthlySpent  float64 `json:"monthly_spent"`
	DailyTokens   int64   `json:"daily_tokens"`
	MonthlyTokens int64   `json:"monthly_tokens"`
	DailyBudget   float64 `json:"daily_budget"`
	MonthlyBudget float64 `json:"monthly_budget"`
}

// Tracker is a mutex-serialized spend ledger persisted in SQLite.
// Check never mutates; Record always does, even past the budget, so
// overshoot from in-flight calls is still accounted for.
type Tracker struct {
	mu            sync.Mutex
	db            *sql.DB
	dailyBudget   float64
	monthlyBudget float64
	now           func() time.Time
}

// NewTracker opens (or creates) the ledger database at path. A budget
// of zero or less means that period is unlimited.
func NewTracker(path string, dailyBudget, monthlyBudget float64) (*Tracker, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "cost: open ledger")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "cost: exec %s", pragma)
		}
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS spend (
	period     TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	amount     REAL NOT NULL DEFAULT 0,
	tokens     INTEGER NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_spend_kind ON spend(kind);
`); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "cost: migrate ledger")
	}

	return &Tracker{
		db:            db,
		dailyBudget:   dailyBudget,
		monthlyBudget: monthlyBudget,
		now:           time.Now,
	}, nil
}

// Close releases the ledger database.
func (t *Tracker) Close() error {
	return t.db.Close()
}

func (t *Tracker) keys() (day, month string) {
	now := t.now().UTC()
	return now.Format("2006-01-02"), now.Format("2006-01")
}

// Check reports whether an estimated spend fits within both budgets.
// Spending exactly up to the budget is allowed.
func (t *Tracker) Check(estimated float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	day, month := t.keys()
	dailySpent, err := t.spent(day)
	if err != nil {
		return err
	}
	monthlySpent, err := t.spent(month)
	if err != nil {
		return err
	}

	if t.dailyBudget > 0 && dailySpent+estimated > t.dailyBudget {
		return &BudgetError{Period: "daily", Budget: t.dailyBudget, Spent: dailySpent, Estimated: estimated}
	}
	if t.monthlyBudget > 0 && monthlySpent+estimated > t.monthlyBudget {
		return &BudgetError{Period: "monthly", Budget: t.monthlyBudget, Spent: monthlySpent, Estimated: estimated}
	}
	return nil
}

// Record adds actual spend and token usage to both the daily and
// monthly rows, attributes it to model in the log, and prunes daily
// rows past retention.
func (t *Tracker) Record(actual float64, tokens int64, model string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	day, month := t.keys()
	if err := t.add(day, "day", actual, tokens); err != nil {
		return err
	}
	if err := t.add(month, "month", actual, tokens); err != nil {
		return err
	}
	zap.L().Debug("llm spend recorded",
		zap.String("model", model),
		zap.Float64("cost_usd", actual),
		zap.Int64("tokens", tokens),
	)

	cutoff := t.now().UTC().Add(-dailyRetention).Format("2006-01-02")
	if _, err := t.db.Exec(`DELETE FROM spend WHERE kind = 'day' AND period < ?`, cutoff); err != nil {
		return eris.Wrap(err, "cost: prune ledger")
	}
	return nil
}

// Summarize returns current spend against the configured budgets.
func (t *Tracker) Summarize() (Summary, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	day, month := t.keys()
	dailySpent, dailyTokens, err := t.row(day)
	if err != nil {
		return Summary{}, err
	}
	monthlySpent, monthlyTokens, err := t.row(month)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		DailySpent:    dailySpent,
		MonthlySpent:  monthlySpent,
		DailyTokens:   dailyTokens,
		MonthlyTokens: monthlyTokens,
		DailyBudget:   t.dailyBudget,
		MonthlyBudget: t.monthlyBudget,
	}, nil
}

func (t *Tracker) spent(period string) (float64, error) {
	amount, _, err := t.row(period)
	return amount, err
}

func (t *Tracker) row(period string) (amount float64, tokens int64, err error) {
	err = t.db.QueryRow(`SELECT amount, tokens FROM spend WHERE period = ?`, period).
		Scan(&amount, &tokens)
	if err == sql.ErrNoRows {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, eris.Wrapf(err, "cost: read spend %s", period)
	}
	return amount, tokens, nil
}

func (t *Tracker) add(period, kind string, amount float64, tokens int64) error {
	_, err := t.db.Exec(`
INSERT INTO spend (period, kind, amount, tokens, updated_at) VALUES (?, ?, ?, ?, datetime('now'))
ON CONFLICT(period) DO UPDATE SET
	amount = amount + excluded.amount,
	tokens = tokens + excluded.tokens,
	updated_at = excluded.updated_at`,
		period, kind, amount, tokens,
	)
	return eris.Wrapf(err, "cost: record spend %s", period)
}
