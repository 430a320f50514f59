package rfq

import (
	"fmt"
	"math/rand"
	"testing"

	"rfqdash/pkg/store"

	"github.com/stretchr/testify/require"
)

var testHeader = []string{"Division", "Client", "Affiliate", "Status", "Date"}

func mustNormalize(t *testing.T, rows ...[]string) Dataset {
	t.Helper()
	ds, err := Normalize(store.Table{Header: testHeader, Rows: rows}, DefaultColumns())
	require.NoError(t, err)
	return ds
}

// scenarioRows is the three-record EU/US dataset used across tests.
func scenarioRows() [][]string {
	return [][]string{
		{"EU", "", "", "Awarded", "2025-01-10"},
		{"EU", "", "", "Declined", "2025-01-15"},
		{"US", "", "", "Submitted", "2025-02-01"},
	}
}

func randomTable(rng *rand.Rand, n int) store.Table {
	divisions := []string{"EU", " US", "APAC ", "LATAM"}
	clients := []string{"Acme", "Globex ", " Initech", "Umbrella"}
	affiliates := []string{"North", "South", "", "East"}
	statuses := []string{"Awarded", "awarded", "Submitted", "Declined", "DECLINED", "Pending"}
	dates := []string{"2025-01-10", " 2024-12-31", "03/15/2025", "not a date", "", "45678", "Jan 2, 2025"}

	rows := make([][]string, n)
	for i := range rows {
		rows[i] = []string{
			divisions[rng.Intn(len(divisions))],
			clients[rng.Intn(len(clients))],
			affiliates[rng.Intn(len(affiliates))],
			statuses[rng.Intn(len(statuses))],
			dates[rng.Intn(len(dates))],
		}
	}
	return store.Table{Header: testHeader, Rows: rows}
}

func seeds() []int64 {
	return []int64{1, 2, 3, 42, 1337}
}

func seedName(s int64) string {
	return fmt.Sprintf("seed-%d", s)
}
