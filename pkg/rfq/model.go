package rfq

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"rfqdash/pkg/store"
)

// ErrSchemaMismatch is returned when the table lacks a column the pipeline needs.
var ErrSchemaMismatch = errors.New("schema mismatch")

// All is the sentinel shown first in client and affiliate choices.
const All = "All"

const (
	StatusAwarded   = "awarded"
	StatusSubmitted = "submitted"
	StatusDeclined  = "declined"
)

// Record is one normalized RFQ row.
type Record struct {
	Division  string
	Client    string
	Affiliate string
	Status    string
	Date      *time.Time
	// Values holds every cell of the row in header order, after normalization.
	Values []string
}

type Dataset struct {
	Header  []string
	Records []Record
}

func (d Dataset) Len() int {
	return len(d.Records)
}

// Table converts the dataset back to the store shape.
func (d Dataset) Table() store.Table {
	if len(d.Header) == 0 {
		return store.Table{}
	}
	rows := make([][]string, len(d.Records))
	for i, r := range d.Records {
		rows[i] = r.Values
	}
	return store.Table{Header: d.Header, Rows: rows}
}

// Columns names the header cells holding each semantic field.
type Columns struct {
	Division  string
	Client    string
	Affiliate string
	Status    string
	Date      string
}

func DefaultColumns() Columns {
	return Columns{
		Division:  "Division",
		Client:    "Client",
		Affiliate: "Affiliate",
		Status:    "Status",
		Date:      "Date",
	}
}

type columnIndex struct {
	division, client, affiliate, status, date int
}

func (c Columns) index(header []string) (columnIndex, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, seen := pos[key]; !seen {
			pos[key] = i
		}
	}
	find := func(name string) (int, error) {
		i, ok := pos[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return 0, fmt.Errorf("%w: missing column %q", ErrSchemaMismatch, name)
		}
		return i, nil
	}

	var idx columnIndex
	var err error
	if idx.division, err = find(c.Division); err != nil {
		return idx, err
	}
	if idx.client, err = find(c.Client); err != nil {
		return idx, err
	}
	if idx.affiliate, err = find(c.Affiliate); err != nil {
		return idx, err
	}
	if idx.status, err = find(c.Status); err != nil {
		return idx, err
	}
	if idx.date, err = find(c.Date); err != nil {
		return idx, err
	}
	return idx, nil
}

// Scope is the authorization scope of a session: unrestricted, or locked to a
// single division.
type Scope struct {
	division string
	locked   bool
}

func Unrestricted() Scope {
	return Scope{}
}

func LockedTo(division string) Scope {
	return Scope{division: division, locked: true}
}

func (s Scope) Locked() (string, bool) {
	return s.division, s.locked
}

func (s Scope) String() string {
	if s.locked {
		return "division:" + s.division
	}
	return "unrestricted"
}

// Selection is what the user picked. An empty Client or Affiliate, or the
// literal All, means no constraint.
type Selection struct {
	Divisions []string `json:"divisions"`
	Client    string   `json:"client"`
	Affiliate string   `json:"affiliate"`
}

func isAll(v string) bool {
	return v == "" || v == All
}

type RatioBase string

const (
	RatioBaseTotal     RatioBase = "total"
	RatioBaseSubmitted RatioBase = "submitted"
)

// Policy carries the behaviors that differed between dashboard revisions.
type Policy struct {
	// EmptyDivisionsMeansAll makes an empty division selection unconstrained
	// instead of matching nothing.
	EmptyDivisionsMeansAll bool
	// ClientFallbackOnEmpty lists every client when no division is selected.
	ClientFallbackOnEmpty bool
	RatioBase             RatioBase
}

func DefaultPolicy() Policy {
	return Policy{
		EmptyDivisionsMeansAll: true,
		ClientFallbackOnEmpty:  true,
		RatioBase:              RatioBaseTotal,
	}
}
