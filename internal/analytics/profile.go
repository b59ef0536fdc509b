package analytics

import (
	"sort"
	"time"

	"riskdash/internal/core"
)

// Season labels for the high-season flag.
const (
	SeasonHigh = "Alta"
	SeasonLow  = "Baja"
)

// ProfileFilter narrows the profile page. Empty slices and a nil
// EverDelinquent mean "no restriction".
type ProfileFilter struct {
	RiskLevels     []int    `json:"risk_levels,omitempty"`
	EverDelinquent *bool    `json:"ever_delinquent,omitempty"`
	Categories     []string `json:"categories,omitempty"`
}

type (
	RiskProfile struct {
		Risk               int       `json:"risk"`
		Loans              int       `json:"num_loans"`
		ApprovalRate       core.Stat `json:"approval_rate"`
		AvgAmount          core.Stat `json:"avg_importe"`
		AvgDelinquencies   core.Stat `json:"avg_delinquencies"`
		EverDelinquentRate core.Stat `json:"ever_delinquent_rate"`
		AvgTenureDays      core.Stat `json:"avg_days_since_affiliation"`
	}

	GroupCount struct {
		Risk  int    `json:"risk"`
		Group string `json:"group"`
		Count int    `json:"count"`
	}

	SeasonRow struct {
		Risk             int       `json:"risk"`
		HighSeason       int       `json:"high_season"`
		Season           string    `json:"season"`
		Loans            int       `json:"num_loans"`
		AvgAmount        core.Stat `json:"avg_importe"`
		AvgDelinquencies core.Stat `json:"avg_delinquencies"`
	}

	Profile struct {
		Filter         ProfileFilter `json:"filter"`
		Records        int           `json:"records"`
		Summary        []RiskProfile `json:"summary"`
		Categories     []GroupCount  `json:"categories"`
		PaymentMethods []GroupCount  `json:"payment_methods"`
		Seasonality    []SeasonRow   `json:"seasonality"`
		Empty          bool          `json:"empty"`
	}

	// ProfileOptions lists the values offered by the profile filters.
	ProfileOptions struct {
		RiskLevels []int    `json:"risk_levels"`
		Categories []string `json:"categories"`
	}
)

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v float64) {
	m.sum += v
	m.n++
}

func (m mean) stat() core.Stat {
	if m.n == 0 {
		return core.NaN()
	}
	return core.Stat(m.sum / float64(m.n))
}

// Options returns the distinct risk levels and purchase categories of t.
func Options(t core.Table) ProfileOptions {
	risks := make(map[int]struct{})
	cats := make(map[string]struct{})
	for _, r := range t.Records {
		if v, ok := r.Flag(core.ColRiskFlag); ok {
			risks[v] = struct{}{}
		}
		if c, ok := r.Label(core.ColCategory); ok {
			cats[c] = struct{}{}
		}
	}
	out := ProfileOptions{RiskLevels: []int{}, Categories: []string{}}
	for v := range risks {
		out.RiskLevels = append(out.RiskLevels, v)
	}
	for c := range cats {
		out.Categories = append(out.Categories, c)
	}
	sort.Ints(out.RiskLevels)
	sort.Strings(out.Categories)
	return out
}

// Match reports whether r passes the filter.
func (f ProfileFilter) Match(r core.Record) bool {
	risk, ok := r.Flag(core.ColRiskFlag)
	if !ok {
		return false
	}
	if len(f.RiskLevels) > 0 && !containsInt(f.RiskLevels, risk) {
		return false
	}
	if f.EverDelinquent != nil {
		ed, ok := r.Flag(core.ColEverDelinquent)
		if !ok || (ed == 1) != *f.EverDelinquent {
			return false
		}
	}
	if len(f.Categories) > 0 {
		c, ok := r.Label(core.ColCategory)
		if !ok || !containsString(f.Categories, c) {
			return false
		}
	}
	return true
}

// BuildProfile groups the filtered records by risk class. Tenure is derived
// from the affiliation date when present, else read from the stored
// days-since-affiliation column.
func BuildProfile(t core.Table, f ProfileFilter, now time.Time) (Profile, error) {
	p := Profile{Filter: f, Summary: []RiskProfile{}, Categories: []GroupCount{}, PaymentMethods: []GroupCount{}, Seasonality: []SeasonRow{}}
	if err := t.Require(core.ColRiskFlag); err != nil {
		return p, err
	}
	if t.IsEmpty() {
		p.Empty = true
		return p, nil
	}

	type riskAcc struct {
		loans                                     int
		approval, amount, delinq, everDel, tenure mean
	}
	type seasonKey struct{ risk, high int }
	type seasonAcc struct {
		loans          int
		amount, delinq mean
	}
	type groupKey struct {
		risk  int
		group string
	}

	byRisk := make(map[int]*riskAcc)
	bySeason := make(map[seasonKey]*seasonAcc)
	cats := make(map[groupKey]int)
	pays := make(map[groupKey]int)

	for _, r := range t.Records {
		if !f.Match(r) {
			continue
		}
		p.Records++
		risk, _ := r.Flag(core.ColRiskFlag)
		acc := byRisk[risk]
		if acc == nil {
			acc = &riskAcc{}
			byRisk[risk] = acc
		}
		if _, ok := r.Label(core.ColLoanRequestID); ok {
			acc.loans++
		}
		if v, ok := r.Flag(core.ColApproved); ok {
			acc.approval.add(float64(v))
		}
		amount, hasAmount := r.Numeric(core.ColAmount)
		if hasAmount {
			acc.amount.add(amount.InexactFloat64())
		}
		delinq, hasDelinq := r.Numeric(core.ColNumDelinquencies)
		if hasDelinq {
			acc.delinq.add(delinq.InexactFloat64())
		}
		if v, ok := r.Flag(core.ColEverDelinquent); ok {
			acc.everDel.add(float64(v))
		}
		if days, ok := tenureDays(r, now); ok {
			acc.tenure.add(days)
		}
		if c, ok := r.Label(core.ColCategory); ok {
			cats[groupKey{risk, c}]++
		}
		if m, ok := r.Label(core.ColPaymentMethod); ok {
			pays[groupKey{risk, m}]++
		}
		if high, ok := r.Flag(core.ColHighSeason); ok {
			k := seasonKey{risk, high}
			s := bySeason[k]
			if s == nil {
				s = &seasonAcc{}
				bySeason[k] = s
			}
			if _, ok := r.Label(core.ColLoanRequestID); ok {
				s.loans++
			}
			if hasAmount {
				s.amount.add(amount.InexactFloat64())
			}
			if hasDelinq {
				s.delinq.add(delinq.InexactFloat64())
			}
		}
	}

	for risk, acc := range byRisk {
		p.Summary = append(p.Summary, RiskProfile{
			Risk:               risk,
			Loans:              acc.loans,
			ApprovalRate:       acc.approval.stat(),
			AvgAmount:          acc.amount.stat(),
			AvgDelinquencies:   acc.delinq.stat(),
			EverDelinquentRate: acc.everDel.stat(),
			AvgTenureDays:      acc.tenure.stat(),
		})
	}
	sort.Slice(p.Summary, func(i, j int) bool { return p.Summary[i].Risk < p.Summary[j].Risk })

	p.Categories = groupCounts(cats, func(k groupKey) (int, string) { return k.risk, k.group })
	p.PaymentMethods = groupCounts(pays, func(k groupKey) (int, string) { return k.risk, k.group })

	for k, s := range bySeason {
		label := SeasonLow
		if k.high == 1 {
			label = SeasonHigh
		}
		p.Seasonality = append(p.Seasonality, SeasonRow{
			Risk:             k.risk,
			HighSeason:       k.high,
			Season:           label,
			Loans:            s.loans,
			AvgAmount:        s.amount.stat(),
			AvgDelinquencies: s.delinq.stat(),
		})
	}
	sort.Slice(p.Seasonality, func(i, j int) bool {
		a, b := p.Seasonality[i], p.Seasonality[j]
		if a.Risk != b.Risk {
			return a.Risk < b.Risk
		}
		return a.HighSeason < b.HighSeason
	})

	p.Empty = p.Records == 0
	return p, nil
}

func groupCounts[K comparable](m map[K]int, split func(K) (int, string)) []GroupCount {
	out := make([]GroupCount, 0, len(m))
	for k, n := range m {
		risk, group := split(k)
		out = append(out, GroupCount{Risk: risk, Group: group, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Risk != out[j].Risk {
			return out[i].Risk < out[j].Risk
		}
		return out[i].Group < out[j].Group
	})
	return out
}

func tenureDays(r core.Record, now time.Time) (float64, bool) {
	if r.HasAffiliation() {
		return float64(int(now.Sub(r.AffiliationDate).Hours() / 24)), true
	}
	if d, ok := r.Numeric(core.ColDaysSinceAffiliation); ok {
		return d.InexactFloat64(), true
	}
	return 0, false
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func containsString(xs []string, v string) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
