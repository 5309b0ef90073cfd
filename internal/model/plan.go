package model

import "strings"

type Plan string

const (
	PlanFree       Plan = "free"
	PlanVIP1       Plan = "vip1"
	PlanVIP2       Plan = "vip2"
	PlanVIP3       Plan = "vip3"
	PlanEnterprise Plan = "enterprise"
)

func (p Plan) String() string { return string(p) }

// ParsePlan normalizes input; empty => free.
// Returns (value, true) if valid; otherwise (free, false).
func ParsePlan(s string) (Plan, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "free":
		return PlanFree, true
	case "vip1":
		return PlanVIP1, true
	case "vip2":
		return PlanVIP2, true
	case "vip3":
		return PlanVIP3, true
	case "enterprise":
		return PlanEnterprise, true
	default:
		return PlanFree, false
	}
}

func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanVIP1, PlanVIP2, PlanVIP3, PlanEnterprise:
		return true
	}
	return false
}

// requestLimits is the cumulative request ceiling per plan.
var requestLimits = map[Plan]int{
	PlanFree:       500,
	PlanVIP1:       10000,
	PlanVIP2:       20000,
	PlanVIP3:       50000,
	PlanEnterprise: 999999,
}

// RequestLimit returns the request ceiling for the plan,
// falling back to the free ceiling for unknown plans.
func (p Plan) RequestLimit() int {
	if l, ok := requestLimits[p]; ok {
		return l
	}
	return requestLimits[PlanFree]
}

// DatabaseLimit returns the database-count ceiling for the plan.
// 0 means unbounded.
func (p Plan) DatabaseLimit() int {
	if p == PlanFree {
		return 5
	}
	return 0
}
