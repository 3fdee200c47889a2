package bills

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// CustomerStatement is one customer's share of a statement.
type CustomerStatement struct {
	CustomerID  string  `json:"customerId"`
	Bills       []Bill  `json:"bills"`
	TotalAmount float64 `json:"totalAmount"`
	PaidAmount  float64 `json:"paidAmount"`
	Balance     float64 `json:"balance"`
}

type Statement struct {
	Customers   []CustomerStatement `json:"customers"`
	TotalAmount float64             `json:"totalAmount"`
	PaidAmount  float64             `json:"paidAmount"`
	Balance     float64             `json:"balance"`
	GeneratedAt time.Time           `json:"generatedAt"`
}

// Consolidate groups bills by customer. Customers appear in the order their
// first bill appears in the input; each customer's bills are sorted by
// creation time, then bill number.
func Consolidate(bills []Bill) Statement {
	var (
		st     = Statement{Customers: []CustomerStatement{}, GeneratedAt: time.Now().UTC()}
		index  = map[string]int{}
		grandT = decimal.Zero
		grandP = decimal.Zero
		totals []decimal.Decimal
		paid   []decimal.Decimal
	)

	for _, b := range bills {
		i, ok := index[b.CustomerID]
		if !ok {
			i = len(st.Customers)
			index[b.CustomerID] = i
			st.Customers = append(st.Customers, CustomerStatement{CustomerID: b.CustomerID})
			totals = append(totals, decimal.Zero)
			paid = append(paid, decimal.Zero)
		}
		st.Customers[i].Bills = append(st.Customers[i].Bills, b)
		totals[i] = totals[i].Add(dec(b.TotalAmount))
		paid[i] = paid[i].Add(dec(b.PaidAmount))
	}

	for i := range st.Customers {
		cs := &st.Customers[i]
		sort.SliceStable(cs.Bills, func(a, b int) bool {
			if !cs.Bills[a].CreatedAt.Equal(cs.Bills[b].CreatedAt) {
				return cs.Bills[a].CreatedAt.Before(cs.Bills[b].CreatedAt)
			}
			return cs.Bills[a].BillNumber < cs.Bills[b].BillNumber
		})
		cs.TotalAmount = totals[i].Round(2).InexactFloat64()
		cs.PaidAmount = paid[i].Round(2).InexactFloat64()
		cs.Balance = totals[i].Sub(paid[i]).Round(2).InexactFloat64()

		grandT = grandT.Add(totals[i])
		grandP = grandP.Add(paid[i])
	}

	st.TotalAmount = grandT.Round(2).InexactFloat64()
	st.PaidAmount = grandP.Round(2).InexactFloat64()
	st.Balance = grandT.Sub(grandP).Round(2).InexactFloat64()
	return st
}
