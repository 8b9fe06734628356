package billing

// plans is the fixed subscription catalog, mirrored by the seed data used for
// the Postgres store.
var plans = []Plan{
	{
		ID:          "basic",
		Name:        "Basic",
		Description: "Perfect for individuals",
		PriceCents:  999,
		Interval:    "monthly",
		Features: []string{
			"Basic chatbot features",
			"Up to 100 messages per day",
			"Email support",
			"Message history for 7 days",
		},
	},
	{
		ID:          "pro",
		Name:        "Professional",
		Description: "Great for power users",
		PriceCents:  1999,
		Interval:    "monthly",
		Features: []string{
			"Advanced chatbot features",
			"Unlimited messages",
			"Priority support",
			"Analytics dashboard",
			"Message history for 30 days",
			"Custom chat themes",
		},
		Popular: true,
	},
	{
		ID:          "enterprise",
		Name:        "Enterprise",
		Description: "For large organizations",
		PriceCents:  4999,
		Interval:    "monthly",
		Features: []string{
			"All Professional features",
			"Custom integrations",
			"Dedicated account manager",
			"SLA guarantees",
			"Advanced security",
			"Unlimited message history",
			"Multi-user access",
		},
	},
}

// Plans returns the full catalog in declaration order.
func Plans() []Plan {
	out := make([]Plan, len(plans))
	copy(out, plans)
	return out
}

// PlanByID looks up a catalog entry.
func PlanByID(id string) (Plan, bool) {
	for _, p := range plans {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}
