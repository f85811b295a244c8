package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// PlanCatalog maps a (tier, billing cycle) pair to a payment-provider plan.
// Unknown combinations are a client error, never a server fault.
type PlanCatalog struct {
	Plans []PlanEntry `toml:"plan"`
}

// PlanEntry describes one provider plan.
type PlanEntry struct {
	Tier           int    `toml:"tier"`
	BillingCycle   string `toml:"billing_cycle"`
	ProviderPlanID string `toml:"provider_plan_id"`
	AmountMinor    int64  `toml:"amount_minor"`
	Currency       string `toml:"currency"`
}

// DefaultPlanCatalog is the built-in tier/cycle table used when no catalog
// file is configured.
func DefaultPlanCatalog() *PlanCatalog {
	return &PlanCatalog{
		Plans: []PlanEntry{
			{Tier: 1, BillingCycle: "monthly", ProviderPlanID: "plan_dinehub_t1_monthly", AmountMinor: 99900, Currency: "INR"},
			{Tier: 1, BillingCycle: "yearly", ProviderPlanID: "plan_dinehub_t1_yearly", AmountMinor: 999000, Currency: "INR"},
			{Tier: 2, BillingCycle: "monthly", ProviderPlanID: "plan_dinehub_t2_monthly", AmountMinor: 249900, Currency: "INR"},
			{Tier: 2, BillingCycle: "yearly", ProviderPlanID: "plan_dinehub_t2_yearly", AmountMinor: 2499000, Currency: "INR"},
		},
	}
}

// LoadPlanCatalog loads the plan table from a TOML file, or returns the
// built-in defaults when path is empty.
func LoadPlanCatalog(path string) (*PlanCatalog, error) {
	if path == "" {
		return DefaultPlanCatalog(), nil
	}
	catalog := &PlanCatalog{}
	if _, err := toml.DecodeFile(path, catalog); err != nil {
		return nil, fmt.Errorf("failed to load plan catalog: %w", err)
	}
	if len(catalog.Plans) == 0 {
		return nil, fmt.Errorf("plan catalog %s contains no plans", path)
	}
	return catalog, nil
}

// Resolve returns the plan for a (tier, cycle) pair; ok is false when the
// combination is not in the catalog.
func (c *PlanCatalog) Resolve(tier int, billingCycle string) (PlanEntry, bool) {
	for _, p := range c.Plans {
		if p.Tier == tier && p.BillingCycle == billingCycle {
			return p, true
		}
	}
	return PlanEntry{}, false
}
