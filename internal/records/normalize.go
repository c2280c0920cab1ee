package records

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Default labels substituted for missing fields.
const (
	DefaultCategory    = "Uncategorized"
	DefaultIncomeLabel = "General Income"
	DefaultAccountName = "Account"
	DefaultGoalName    = "Goal"

	// DefaultAccountAgeMonths is assumed for accounts that do not report age_months.
	DefaultAccountAgeMonths = 12

	// MaxIncomeLabelLen is the rune length income stream labels are cut to.
	MaxIncomeLabelLen = 40
)

// TxnType is the normalized transaction direction.
type TxnType string

const (
	Income  TxnType = "income"
	Expense TxnType = "expense"
)

// incomeLabelFields are consulted in order to bucket income streams.
var incomeLabelFields = []string{"source", "income_source", "description", "notes"}

// Clock supplies the current time. Tests inject FixedClock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock time.Time

// Now implements Clock.
func (c FixedClock) Now() time.Time { return time.Time(c) }

// Transaction is the canonical shape of one financial event.
type Transaction struct {
	Amount    decimal.Decimal
	Type      TxnType
	Date      time.Time
	Category  string
	AccountID string
	// IncomeLabel is only meaningful for income transactions.
	IncomeLabel string
	// DateDefaulted is set when the record had no parseable date and
	// Date was stamped from the clock instead.
	DateDefaulted bool
}

// IsIncome reports whether the transaction belongs to the income partition.
func (t Transaction) IsIncome() bool { return t.Type == Income }

// Account is a named balance container.
type Account struct {
	ID        string
	Name      string
	AgeMonths float64
}

// Budget is a per-category spending cap.
type Budget struct {
	Category string
	Amount   float64
	Spent    float64
	Limit    float64
}

// Goal is a savings target.
type Goal struct {
	ID       string
	Name     string
	Target   float64
	Saved    float64
	Deadline *time.Time
}

// Normalizer converts raw records into canonical entities. It never fails:
// missing or malformed fields are replaced by defaults.
type Normalizer struct {
	Clock    Clock
	Location *time.Location
}

// NewNormalizer returns a Normalizer using clock and loc, defaulting to the
// system clock and UTC.
func NewNormalizer(clock Clock, loc *time.Location) *Normalizer {
	if clock == nil {
		clock = SystemClock{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{Clock: clock, Location: loc}
}

// Transaction normalizes one transaction record.
func (n *Normalizer) Transaction(r Record) Transaction {
	t := Transaction{
		Amount:    r.Decimal("amount"),
		Type:      txnType(r),
		Category:  r.String("category", DefaultCategory),
		AccountID: accountRef(r),
	}
	// Amounts are non-negative; a negative value counts as 0.
	if t.Amount.IsNegative() {
		t.Amount = decimal.Zero
	}

	if d, ok := r.Time("date", n.Location); ok {
		t.Date = d
	} else {
		t.Date = n.Clock.Now().In(n.Location)
		t.DateDefaulted = true
	}

	if t.Type == Income {
		t.IncomeLabel = incomeLabel(r)
	}
	return t
}

// Transactions normalizes a batch, preserving order.
func (n *Normalizer) Transactions(rs []Record) []Transaction {
	out := make([]Transaction, 0, len(rs))
	for _, r := range rs {
		out = append(out, n.Transaction(r))
	}
	return out
}

// Account normalizes one account record.
func (n *Normalizer) Account(r Record) Account {
	id := r.ID("id")
	if id == "" {
		id = r.ID("_id")
	}
	return Account{
		ID:        id,
		Name:      r.String("account_name", DefaultAccountName),
		AgeMonths: r.Number("age_months", DefaultAccountAgeMonths),
	}
}

// Accounts normalizes a batch of account records.
func (n *Normalizer) Accounts(rs []Record) []Account {
	out := make([]Account, 0, len(rs))
	for _, r := range rs {
		out = append(out, n.Account(r))
	}
	return out
}

// Budget normalizes one budget record.
func (n *Normalizer) Budget(r Record) Budget {
	return Budget{
		Category: r.String("category", DefaultCategory),
		Amount:   r.Number("amount", 0),
		Spent:    r.Number("spent", 0),
		Limit:    r.Number("limit", 0),
	}
}

// Budgets normalizes a batch of budget records.
func (n *Normalizer) Budgets(rs []Record) []Budget {
	out := make([]Budget, 0, len(rs))
	for _, r := range rs {
		out = append(out, n.Budget(r))
	}
	return out
}

// Goal normalizes one goal record. index is used to build a stable id when
// the record carries none.
func (n *Normalizer) Goal(r Record, index int) Goal {
	g := Goal{
		ID:     r.ID("id"),
		Name:   r.String("name", r.String("title", DefaultGoalName)),
		Target: r.Number("target_amount", 0),
		Saved:  r.Number("current_amount", 0),
	}
	if g.ID == "" {
		g.ID = r.ID("_id")
	}
	if g.ID == "" {
		g.ID = fmt.Sprintf("goal-%d", index)
	}

	for _, field := range []string{"deadline", "target_date"} {
		if d, ok := r.Time(field, n.Location); ok {
			g.Deadline = &d
			break
		}
	}
	return g
}

// Goals normalizes a batch of goal records.
func (n *Normalizer) Goals(rs []Record) []Goal {
	out := make([]Goal, 0, len(rs))
	for i, r := range rs {
		out = append(out, n.Goal(r, i))
	}
	return out
}

func txnType(r Record) TxnType {
	if strings.ToLower(r.String("type", "")) == string(Income) {
		return Income
	}
	return Expense
}

// accountRef resolves account_id that may be a nested object or a raw id.
func accountRef(r Record) string {
	if id := r.ID("account_id.id"); id != "" {
		return id
	}
	if id := r.ID("account_id._id"); id != "" {
		return id
	}
	return r.ID("account_id")
}

func incomeLabel(r Record) string {
	for _, field := range incomeLabelFields {
		s := strings.TrimSpace(r.String(field, ""))
		if s == "" {
			continue
		}
		if runes := []rune(s); len(runes) > MaxIncomeLabelLen {
			s = string(runes[:MaxIncomeLabelLen])
		}
		return s
	}
	return DefaultIncomeLabel
}
