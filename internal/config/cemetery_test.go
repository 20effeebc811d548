package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultCemeteryPolicyIsValid(t *testing.T) {
	assert.NoError(t, validateCemeteryPolicy(DefaultCemeteryPolicy()))
}

func TestValidateCemeteryPolicyRejectsBadValues(t *testing.T) {
	cases := map[string]func(*CemeteryPolicy){
		"currency":   func(p *CemeteryPolicy) { p.DefaultCurrency = "EURO" },
		"search":     func(p *CemeteryPolicy) { p.SearchMaxLength = 0 },
		"empty cash": func(p *CemeteryPolicy) { p.Ledger.CashAccount = "" },
		"same":       func(p *CemeteryPolicy) { p.Ledger.RevenueAccount = p.Ledger.CashAccount },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			policy := DefaultCemeteryPolicy()
			mutate(&policy)
			assert.Error(t, validateCemeteryPolicy(policy))
		})
	}
}

func TestStaticHolderReturnsPolicy(t *testing.T) {
	policy := DefaultCemeteryPolicy()
	policy.DefaultCurrency = "PLN"
	holder := NewStaticPolicyHolder(policy)
	assert.Equal(t, "PLN", holder.Get().DefaultCurrency)
}
