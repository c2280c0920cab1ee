package records

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func decodeRecord(t *testing.T, raw string) Record {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return Record(m)
}

func TestRecordGet(t *testing.T) {
	r := decodeRecord(t, `{"a": {"b": {"c": "deep"}}, "n": null, "s": "x"}`)

	tests := []struct {
		path   string
		wantOK bool
	}{
		{"a.b.c", true},
		{"a.b", true},
		{"a.x.c", false},
		{"s.c", false},
		{"n", false},
		{"missing", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			_, ok := r.Get(tt.path)
			if ok != tt.wantOK {
				t.Errorf("Get(%q) ok = %v, want %v", tt.path, ok, tt.wantOK)
			}
		})
	}
}

func TestRecordDecimal(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"json number", `{"amount": 12.5}`, "12.5"},
		{"numeric string", `{"amount": " 99.10 "}`, "99.1"},
		{"garbage string", `{"amount": "abc"}`, "0"},
		{"bool", `{"amount": true}`, "0"},
		{"missing", `{}`, "0"},
		{"null", `{"amount": null}`, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeRecord(t, tt.raw).Decimal("amount")
			if got.String() != tt.want {
				t.Errorf("Decimal() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNormalizerTransaction(t *testing.T) {
	n := NewNormalizer(FixedClock(testNow), time.UTC)

	t.Run("full record", func(t *testing.T) {
		txn := n.Transaction(decodeRecord(t, `{
			"amount": "250.75", "type": "INCOME", "date": "2024-02-10T08:00:00Z",
			"category": "salary", "account_id": {"id": "acc-1"}, "source": "  Acme Corp  "
		}`))

		if txn.Type != Income {
			t.Errorf("Type = %s, want income", txn.Type)
		}
		if txn.Amount.String() != "250.75" {
			t.Errorf("Amount = %s, want 250.75", txn.Amount)
		}
		if !txn.Date.Equal(time.Date(2024, 2, 10, 8, 0, 0, 0, time.UTC)) {
			t.Errorf("Date = %v", txn.Date)
		}
		if txn.DateDefaulted {
			t.Error("DateDefaulted = true, want false")
		}
		if txn.AccountID != "acc-1" {
			t.Errorf("AccountID = %q, want acc-1", txn.AccountID)
		}
		if txn.IncomeLabel != "Acme Corp" {
			t.Errorf("IncomeLabel = %q, want Acme Corp", txn.IncomeLabel)
		}
	})

	t.Run("negative amount counts as zero", func(t *testing.T) {
		for _, raw := range []string{`{"amount": -50, "type": "expense"}`, `{"amount": "-12.5", "type": "income"}`} {
			txn := n.Transaction(decodeRecord(t, raw))
			if !txn.Amount.IsZero() {
				t.Errorf("%s: Amount = %s, want 0", raw, txn.Amount)
			}
		}
	})

	t.Run("empty record gets defaults", func(t *testing.T) {
		txn := n.Transaction(Record{})

		if txn.Type != Expense {
			t.Errorf("Type = %s, want expense", txn.Type)
		}
		if !txn.Amount.IsZero() {
			t.Errorf("Amount = %s, want 0", txn.Amount)
		}
		if txn.Category != DefaultCategory {
			t.Errorf("Category = %q, want %q", txn.Category, DefaultCategory)
		}
		if !txn.Date.Equal(testNow) || !txn.DateDefaulted {
			t.Errorf("Date = %v defaulted=%v, want clock time", txn.Date, txn.DateDefaulted)
		}
		if txn.AccountID != "" {
			t.Errorf("AccountID = %q, want empty", txn.AccountID)
		}
	})

	t.Run("unparseable date uses clock", func(t *testing.T) {
		txn := n.Transaction(Record{"date": "not a date"})
		if !txn.DateDefaulted || !txn.Date.Equal(testNow) {
			t.Errorf("Date = %v defaulted=%v", txn.Date, txn.DateDefaulted)
		}
	})

	t.Run("numeric account id", func(t *testing.T) {
		txn := n.Transaction(decodeRecord(t, `{"account_id": 42}`))
		if txn.AccountID != "42" {
			t.Errorf("AccountID = %q, want 42", txn.AccountID)
		}
	})

	t.Run("other type strings are expenses", func(t *testing.T) {
		for _, typ := range []string{"expense", "transfer", "", "incomes"} {
			if got := n.Transaction(Record{"type": typ}).Type; got != Expense {
				t.Errorf("type %q normalized to %s", typ, got)
			}
		}
	})
}

func TestIncomeLabel(t *testing.T) {
	n := NewNormalizer(FixedClock(testNow), time.UTC)
	long := strings.Repeat("x", 60)

	tests := []struct {
		name string
		rec  Record
		want string
	}{
		{"source wins", Record{"type": "income", "source": "Salary", "description": "ignored"}, "Salary"},
		{"income_source next", Record{"type": "income", "income_source": "Rent"}, "Rent"},
		{"blank skipped", Record{"type": "income", "source": "   ", "notes": "Gift"}, "Gift"},
		{"non-string skipped", Record{"type": "income", "source": 7.0, "description": "Bonus"}, "Bonus"},
		{"truncated", Record{"type": "income", "notes": long}, strings.Repeat("x", MaxIncomeLabelLen)},
		{"fallback", Record{"type": "income"}, DefaultIncomeLabel},
		{"expense has no label", Record{"type": "expense", "source": "Salary"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.Transaction(tt.rec).IncomeLabel; got != tt.want {
				t.Errorf("IncomeLabel = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizerAccountBudgetGoal(t *testing.T) {
	n := NewNormalizer(FixedClock(testNow), time.UTC)

	acc := n.Account(Record{"_id": "a1"})
	if acc.ID != "a1" || acc.Name != DefaultAccountName || acc.AgeMonths != DefaultAccountAgeMonths {
		t.Errorf("Account = %+v", acc)
	}

	b := n.Budget(decodeRecord(t, `{"category": "food", "amount": 300, "spent": "120", "limit": 300}`))
	if b.Category != "food" || b.Amount != 300 || b.Spent != 120 || b.Limit != 300 {
		t.Errorf("Budget = %+v", b)
	}

	g := n.Goal(decodeRecord(t, `{"title": "Trip", "target_amount": 1000, "target_date": "2024-12-01"}`), 3)
	if g.ID != "goal-3" || g.Name != "Trip" || g.Target != 1000 || g.Saved != 0 {
		t.Errorf("Goal = %+v", g)
	}
	if g.Deadline == nil || !g.Deadline.Equal(time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Deadline = %v", g.Deadline)
	}

	if g := n.Goal(Record{"name": "Car"}, 0); g.Deadline != nil {
		t.Errorf("Deadline = %v, want nil", g.Deadline)
	}
}

func TestFromJSON(t *testing.T) {
	if got := FromJSON(map[string]any{"results": []any{}}); len(got) != 0 {
		t.Errorf("non-array yielded %d records", len(got))
	}
	got := FromJSON([]any{map[string]any{"a": 1.0}, "junk", map[string]any{}})
	if len(got) != 2 {
		t.Errorf("FromJSON kept %d records, want 2", len(got))
	}
}
