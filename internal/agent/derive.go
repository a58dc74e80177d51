package agent

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FilterByStatus returns the agents whose status is s, in their original order.
func FilterByStatus(agents []Agent, s Status) []Agent {
	var out []Agent
	for _, a := range agents {
		if a.Status == s {
			out = append(out, a)
		}
	}
	return out
}

// CountByStatus tallies agents per status.
func CountByStatus(agents []Agent) map[Status]int {
	counts := map[Status]int{
		StatusIdle:      0,
		StatusRunning:   0,
		StatusCompleted: 0,
		StatusFailed:    0,
	}
	for _, a := range agents {
		counts[a.Status]++
	}
	return counts
}

// CreditPercent is the share of the agent's credit limit already used, as a
// percentage. An agent without a positive limit reports zero.
func CreditPercent(a Agent) decimal.Decimal {
	return percentOf(a.CreditsUsed, a.CreditLimit)
}

// KeyUsagePercent is the share of the key's monthly limit already used, as a
// percentage. A key without a positive limit reports zero.
func KeyUsagePercent(k APIKey) decimal.Decimal {
	return percentOf(k.Used, k.MonthlyLimit)
}

// ApproachingLimit reports whether a key has used more than 80% of its
// monthly limit.
func ApproachingLimit(k APIKey) bool {
	return KeyUsagePercent(k).GreaterThan(decimal.NewFromInt(80))
}

// Totals aggregates usage across a set of API keys.
type Totals struct {
	Used    decimal.Decimal `json:"used"`
	Limit   decimal.Decimal `json:"limit"`
	Percent decimal.Decimal `json:"percent"`
}

// KeyTotals sums used and monthly limits over keys.
func KeyTotals(keys []APIKey) Totals {
	t := Totals{Used: decimal.Zero, Limit: decimal.Zero}
	for _, k := range keys {
		t.Used = t.Used.Add(k.Used)
		t.Limit = t.Limit.Add(k.MonthlyLimit)
	}
	t.Percent = percentOf(t.Used, t.Limit)
	return t
}

// MaskKey hides all but the last four characters of key material, keeping a
// short provider prefix such as "sk-" when one is present.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	prefix := ""
	if i := strings.Index(key, "-"); i > 0 && i <= 4 {
		prefix = key[:i+1]
	}
	return prefix + "..." + key[len(key)-4:]
}

// Masked returns a copy of k with its key material masked.
func (k APIKey) Masked() APIKey {
	k.Key = MaskKey(k.Key)
	return k
}
