package rfq

import (
	"sort"
)

// Resolution is the outcome of one filter pass: the option lists for every
// filter level and the records that survive all of them.
type Resolution struct {
	DivisionOptions    []string
	ClientOptions      []string
	AffiliateOptions   []string
	EffectiveDivisions []string
	Filtered           []Record
}

// ClientChoices is ClientOptions preceded by the All sentinel.
func (r Resolution) ClientChoices() []string {
	return withAll(r.ClientOptions)
}

// AffiliateChoices is AffiliateOptions preceded by the All sentinel.
func (r Resolution) AffiliateChoices() []string {
	return withAll(r.AffiliateOptions)
}

// Resolve computes option lists and the filtered rowset from the current
// inputs only. A locked scope replaces any division selection.
func Resolve(ds Dataset, scope Scope, sel Selection, p Policy) Resolution {
	var res Resolution
	if d, locked := scope.Locked(); locked {
		res.DivisionOptions = []string{d}
		res.EffectiveDivisions = []string{d}
	} else {
		res.DivisionOptions = distinct(ds.Records, func(r Record) string { return r.Division })
		res.EffectiveDivisions = sortedSet(sel.Divisions)
	}

	divs := make(map[string]bool, len(res.EffectiveDivisions))
	for _, d := range res.EffectiveDivisions {
		divs[d] = true
	}
	inDivisions := func(r Record) bool {
		if len(divs) == 0 {
			return p.EmptyDivisionsMeansAll
		}
		return divs[r.Division]
	}
	clientFallback := len(divs) == 0 && p.ClientFallbackOnEmpty

	var clients, affiliates []Record
	for _, r := range ds.Records {
		inDiv := inDivisions(r)
		if clientFallback || inDiv {
			clients = append(clients, r)
		}
		if !inDiv {
			continue
		}
		if !isAll(sel.Client) && r.Client != sel.Client {
			continue
		}
		affiliates = append(affiliates, r)
		if !isAll(sel.Affiliate) && r.Affiliate != sel.Affiliate {
			continue
		}
		res.Filtered = append(res.Filtered, r)
	}
	res.ClientOptions = distinct(clients, func(r Record) string { return r.Client })
	res.AffiliateOptions = distinct(affiliates, func(r Record) string { return r.Affiliate })
	return res
}

// Reconcile drops selections that are no longer offered by res. It reports
// whether anything changed; the caller resolves again when it did.
func Reconcile(sel Selection, res Resolution) (Selection, bool) {
	changed := false

	kept := make([]string, 0, len(sel.Divisions))
	for _, d := range sel.Divisions {
		if contains(res.DivisionOptions, d) {
			kept = append(kept, d)
		}
	}
	if len(kept) != len(sel.Divisions) {
		changed = true
	}
	out := Selection{Divisions: kept, Client: sel.Client, Affiliate: sel.Affiliate}

	if !isAll(out.Client) && !contains(res.ClientOptions, out.Client) {
		out.Client = ""
		changed = true
	} else if !isAll(out.Affiliate) && !contains(res.AffiliateOptions, out.Affiliate) {
		out.Affiliate = ""
		changed = true
	}
	return out, changed
}

// ResolveSelection resolves, resets stale choices and resolves again until the
// selection is consistent with its own option lists.
func ResolveSelection(ds Dataset, scope Scope, sel Selection, p Policy) (Resolution, Selection) {
	if d, locked := scope.Locked(); locked {
		sel.Divisions = []string{d}
	}
	res := Resolve(ds, scope, sel, p)
	// Client and affiliate can each be reset at most once.
	for i := 0; i < 3; i++ {
		var changed bool
		sel, changed = Reconcile(sel, res)
		if !changed {
			break
		}
		res = Resolve(ds, scope, sel, p)
	}
	return res, sel
}

func distinct(records []Record, field func(Record) string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, r := range records {
		v := field(r)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func sortedSet(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := []string{}
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func withAll(options []string) []string {
	return append([]string{All}, options...)
}

func contains(list []string, v string) bool {
	i := sort.SearchStrings(list, v)
	return i < len(list) && list[i] == v
}
