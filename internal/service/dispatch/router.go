package dispatch

import (
	"fmt"
	"strings"

	"github.com/meditriage/triage-api/internal/config"
	"github.com/meditriage/triage-api/internal/model"
	"github.com/meditriage/triage-api/internal/service/capacity"
)

const fallbackDepartment = "General Medicine"

// Router resolves the default department from the symptom/tier routing
// table, then consults live occupancy to reroute away from overloaded
// departments.
type Router struct {
	rules        []config.RouteRule
	tierDefaults map[string]string
	acuteSet     map[string]bool
	altOrder     []string
	threshold    float64
	tracker      *capacity.Tracker
}

func NewRouter(cfg config.RoutingConfig, tracker *capacity.Tracker) *Router {
	r := &Router{
		rules:        cfg.Rules,
		tierDefaults: cfg.TierDefaults,
		acuteSet:     make(map[string]bool, len(cfg.AcuteDepartments)),
		altOrder:     cfg.AlternateOrder,
		threshold:    cfg.OverloadThresholdPercent,
		tracker:      tracker,
	}
	for _, d := range cfg.AcuteDepartments {
		r.acuteSet[d] = true
	}
	return r
}

// Recommend resolves the default department. A high tier always routes to
// its acute default; specialty rules refine medium and low tiers in
// configured order, so trauma symptoms still reach Emergency. With no rule
// hit, the tier default applies.
func (r *Router) Recommend(tier model.RiskLevel, symptoms []string) (string, string) {
	have := make(map[string]bool, len(symptoms))
	for _, s := range symptoms {
		have[s] = true
	}

	if tier == model.RiskHigh {
		dept, ok := r.tierDefaults[string(tier)]
		if !ok {
			dept = fallbackDepartment
		}
		reason := fmt.Sprintf(
			"Risk assessment indicates HIGH severity. Clinical markers (%s) require immediate %s evaluation.",
			strings.Join(symptoms, ", "), dept)
		return dept, reason
	}

	for _, rule := range r.rules {
		var hits []string
		for _, s := range rule.Symptoms {
			if have[s] {
				hits = append(hits, s)
			}
		}
		if len(hits) > 0 {
			reason := fmt.Sprintf(
				"Risk assessment indicates %s severity. Clinical markers (%s) align with %s protocols.",
				strings.ToUpper(string(tier)), strings.Join(hits, ", "), rule.Department)
			return rule.Department, reason
		}
	}

	dept, ok := r.tierDefaults[string(tier)]
	if !ok {
		dept = fallbackDepartment
	}
	reason := fmt.Sprintf(
		"Risk assessment indicates %s severity. No specific specialty criteria met; routing to %s for comprehensive workup.",
		strings.ToUpper(string(tier)), dept)
	return dept, reason
}

// Route checks the recommended department's load and reroutes when it is
// over threshold. The reroute target is the least-loaded non-overloaded
// department from the alternate set appropriate to the tier; a high-risk
// patient is never downgraded to a department incapable of handling acute
// cases. When no alternate has room either, the patient is still admitted to
// the recommendation and the message degrades to a capacity-exhaustion
// warning: a patient is never dropped.
func (r *Router) Route(tier model.RiskLevel, recommended string) (routed *string, message *string) {
	status := r.tracker.Status()

	var preferred *model.DepartmentLoad
	for i := range status {
		if status[i].Department == recommended {
			preferred = &status[i]
			break
		}
	}
	if preferred == nil || preferred.LoadPercentage <= r.threshold {
		return nil, nil
	}

	best := r.pickAlternate(tier, recommended, status)
	if best == nil {
		msg := fmt.Sprintf(
			"%s overloaded (%.1f%%) and no alternate department has capacity; patient remains assigned to %s.",
			recommended, preferred.LoadPercentage, recommended)
		return nil, &msg
	}

	msg := fmt.Sprintf(
		"%s overloaded (%.1f%%). Patient routed to %s (%.1f%% load).",
		recommended, preferred.LoadPercentage, best.Department, best.LoadPercentage)
	return &best.Department, &msg
}

func (r *Router) pickAlternate(tier model.RiskLevel, recommended string, status []model.DepartmentStatus) *model.DepartmentStatus {
	rank := make(map[string]int, len(r.altOrder))
	for i, d := range r.altOrder {
		rank[d] = i
	}

	var best *model.DepartmentStatus
	for i := range status {
		s := &status[i]
		if s.Department == recommended || s.Overloaded {
			continue
		}
		if tier == model.RiskHigh && !r.acuteSet[s.Department] {
			continue
		}
		if best == nil || s.LoadPercentage < best.LoadPercentage ||
			(s.LoadPercentage == best.LoadPercentage && rank[s.Department] < rank[best.Department]) {
			best = s
		}
	}
	return best
}
