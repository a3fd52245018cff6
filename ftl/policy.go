package ftl

import (
	"fmt"
	"strings"
)

// Candidate is a bound (data block, log block) pair that cleaning may
// reclaim.
type Candidate struct {
	DataBlock  int
	LogBlock   int // physical block id
	LivePages  int
	LastWrite  uint64
	EraseCount int // erases of the data block's physical block
}

// View is what a policy sees when asked for a victim. Candidates are sorted
// by data block id.
type View struct {
	Candidates    []Candidate
	Now           uint64
	PagesPerBlock int
	RegionStart   int
	RegionEnd     int
}

// A ReclamationPolicy picks the pair to clean when no log block is free.
type ReclamationPolicy interface {
	Name() string
	Victim(view View) (Candidate, bool)
}

// PolicyKind selects one of the built-in policies.
type PolicyKind int

// All the built-in policies, numbered as device configuration files number
// them.
const (
	FIFO PolicyKind = iota
	LRU
	Greedy
	CostBenefit
)

var policyNames = []string{"fifo", "lru", "greedy", "cost-benefit"}

func (k PolicyKind) String() string {
	if k < 0 || int(k) >= len(policyNames) {
		return fmt.Sprintf("PolicyKind(%d)", int(k))
	}

	return policyNames[k]
}

// ParsePolicyKind accepts a policy name or its number.
func ParsePolicyKind(s string) (PolicyKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	for i, name := range policyNames {
		if s == name || s == fmt.Sprint(i) {
			return PolicyKind(i), nil
		}
	}

	if s == "costbenefit" || s == "cost_benefit" {
		return CostBenefit, nil
	}

	return 0, fmt.Errorf("unknown reclamation policy %q", s)
}

// New creates a fresh policy of this kind.
func (k PolicyKind) New() ReclamationPolicy {
	switch k {
	case FIFO:
		return &FIFOPolicy{next: -1}
	case LRU:
		return LRUPolicy{}
	case Greedy:
		return GreedyPolicy{}
	case CostBenefit:
		return CostBenefitPolicy{}
	default:
		panic(fmt.Sprintf("unknown policy kind %d", int(k)))
	}
}

// FIFOPolicy sweeps a pointer over the log region and picks the first bound
// log block at or after it.
type FIFOPolicy struct {
	next int
}

// Name returns "fifo".
func (p *FIFOPolicy) Name() string { return FIFO.String() }

// Victim returns the candidate whose log block the pointer reaches first.
func (p *FIFOPolicy) Victim(view View) (Candidate, bool) {
	n := view.RegionEnd - view.RegionStart
	if n <= 0 || len(view.Candidates) == 0 {
		return Candidate{}, false
	}

	if p.next < view.RegionStart || p.next >= view.RegionEnd {
		p.next = view.RegionStart
	}

	byLog := make(map[int]Candidate, len(view.Candidates))
	for _, c := range view.Candidates {
		byLog[c.LogBlock] = c
	}

	for i := 0; i < n; i++ {
		b := view.RegionStart + (p.next-view.RegionStart+i)%n

		if c, ok := byLog[b]; ok {
			p.next = b + 1
			return c, true
		}
	}

	return Candidate{}, false
}

// LRUPolicy picks the log block written least recently.
type LRUPolicy struct{}

// Name returns "lru".
func (LRUPolicy) Name() string { return LRU.String() }

// Victim returns the candidate with the oldest last write.
func (LRUPolicy) Victim(view View) (Candidate, bool) {
	return best(view.Candidates, func(c, cur Candidate) bool {
		return c.LastWrite < cur.LastWrite
	})
}

// GreedyPolicy picks the data block with the fewest live pages, which needs
// the fewest copies.
type GreedyPolicy struct{}

// Name returns "greedy".
func (GreedyPolicy) Name() string { return Greedy.String() }

// Victim returns the candidate with the fewest live pages.
func (GreedyPolicy) Victim(view View) (Candidate, bool) {
	return best(view.Candidates, func(c, cur Candidate) bool {
		return c.LivePages < cur.LivePages
	})
}

// CostBenefitPolicy weighs the space a clean frees against how long the
// data has stayed unmodified.
type CostBenefitPolicy struct{}

// Name returns "cost-benefit".
func (CostBenefitPolicy) Name() string { return CostBenefit.String() }

// Victim returns the candidate with the highest cost-benefit score.
func (CostBenefitPolicy) Victim(view View) (Candidate, bool) {
	return best(view.Candidates, func(c, cur Candidate) bool {
		return CostBenefitScore(c, view) > CostBenefitScore(cur, view)
	})
}

// CostBenefitScore is ((1-u)/(1+u)) * age, where u is live pages over twice
// the block size and age is the time since the log block was written.
func CostBenefitScore(c Candidate, view View) float64 {
	u := float64(c.LivePages) / float64(2*view.PagesPerBlock)
	age := float64(view.Now - c.LastWrite)

	return (1 - u) / (1 + u) * age
}

// best returns the first candidate no other candidate beats. Candidates come
// sorted by data block id, so ties go to the lowest id.
func best(
	candidates []Candidate,
	better func(c, cur Candidate) bool,
) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}

	cur := candidates[0]
	for _, c := range candidates[1:] {
		if better(c, cur) {
			cur = c
		}
	}

	return cur, true
}
