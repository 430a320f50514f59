package rfq

import (
	"strings"

	"rfqdash/pkg/store"
)

// Normalize trims the categorical cells and parses the date of every row.
// A date that does not parse leaves Date nil; the row is kept.
func Normalize(t store.Table, cols Columns) (Dataset, error) {
	if t.Empty() {
		return Dataset{}, nil
	}
	header := make([]string, len(t.Header))
	for i, h := range t.Header {
		header[i] = strings.TrimSpace(h)
	}
	idx, err := cols.index(header)
	if err != nil {
		return Dataset{}, err
	}

	ds := Dataset{Header: header, Records: make([]Record, 0, len(t.Rows))}
	for _, row := range t.Rows {
		values := make([]string, len(header))
		copy(values, row)
		for _, i := range []int{idx.division, idx.client, idx.affiliate, idx.status, idx.date} {
			values[i] = strings.TrimSpace(values[i])
		}

		rec := Record{
			Division:  values[idx.division],
			Client:    values[idx.client],
			Affiliate: values[idx.affiliate],
			Status:    values[idx.status],
			Values:    values,
		}
		if d, ok := ParseDate(values[idx.date]); ok {
			rec.Date = &d
			values[idx.date] = d.Format(DateLayout)
		}
		ds.Records = append(ds.Records, rec)
	}
	return ds, nil
}
