// Package plan holds the subscription plan catalog. The catalog is immutable
// after startup; an optional YAML file can replace the built-in set.
package plan

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Plan describes a single subscription tier.
type Plan struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Price string `yaml:"price"`
	Days  int    `yaml:"days"`
	Trial bool   `yaml:"trial"`
}

// EndDate computes the subscription end date for a plan started at start.
func (p Plan) EndDate(start time.Time) time.Time {
	return start.AddDate(0, 0, p.Days)
}

// Catalog is an ordered, read-only set of plans. The order is the menu order.
type Catalog struct {
	plans []Plan
	byID  map[string]Plan
}

// Default returns the built-in four-plan catalog.
func Default() Catalog {
	c, err := New([]Plan{
		{ID: "plan_monthly_30", Name: "Aylık", Price: "$30", Days: 30},
		{ID: "plan_quarterly_79", Name: "3 Aylık", Price: "$79", Days: 90},
		{ID: "plan_yearly_269", Name: "Yıllık", Price: "$269", Days: 365},
		{ID: "trial", Name: "7 Günlük Deneme", Price: "Ücretsiz", Days: 7, Trial: true},
	})
	if err != nil {
		panic(err) // built-in catalog is always valid
	}
	return c
}

// New builds a catalog from an ordered plan list.
func New(plans []Plan) (Catalog, error) {
	if len(plans) == 0 {
		return Catalog{}, fmt.Errorf("catalog is empty")
	}
	byID := make(map[string]Plan, len(plans))
	for _, p := range plans {
		if p.ID == "" || p.Name == "" || p.Days <= 0 {
			return Catalog{}, fmt.Errorf("invalid plan %+v", p)
		}
		if _, dup := byID[p.ID]; dup {
			return Catalog{}, fmt.Errorf("duplicate plan id %q", p.ID)
		}
		byID[p.ID] = p
	}
	return Catalog{plans: plans, byID: byID}, nil
}

// LoadFile reads a catalog override from a YAML file.
func LoadFile(path string) (Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("reading plans file: %w", err)
	}
	var plans []Plan
	if err := yaml.Unmarshal(raw, &plans); err != nil {
		return Catalog{}, fmt.Errorf("parsing plans file: %w", err)
	}
	return New(plans)
}

// ByID looks up a plan by identifier.
func (c Catalog) ByID(id string) (Plan, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// Menu returns the plans in display order.
func (c Catalog) Menu() []Plan {
	out := make([]Plan, len(c.plans))
	copy(out, c.plans)
	return out
}

// Len returns the number of plans.
func (c Catalog) Len() int { return len(c.plans) }
