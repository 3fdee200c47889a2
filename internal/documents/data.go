// Package documents renders printable HTML for bills, orders, expenses,
// workforce and inventory sheets, converts it to PDF and hands it to
// storage and the notification channels.
package documents

import (
	"errors"
	"strings"
	"time"

	"caterly/internal/bills"
	"caterly/internal/config"
	"caterly/internal/customers"
	"caterly/internal/expenses"
	"caterly/internal/meals"
	"caterly/internal/orders"
	"caterly/internal/workforce"
)

const (
	KindBill      = "bill"
	KindOrder     = "order"
	KindExpense   = "expense"
	KindWorkforce = "workforce"
	KindStatement = "statement"
	KindInventory = "inventory"
)

var (
	ErrUnknownKind     = errors.New("unknown document kind")
	ErrUnknownFormat   = errors.New("format must be html or pdf")
	ErrPDFUnavailable  = errors.New("pdf conversion is not configured")
	ErrNoItems         = errors.New("inventory needs at least one item")
	ErrItemNameMissing = errors.New("inventory item name is required")
)

// Data is the input of one template. Every variant carries the company
// header and the time it was generated, so rendering never reads the clock.
type Data interface {
	Kind() string
}

type Company struct {
	Name    string
	Address string
	Phone   string
	Email   string
}

func CompanyFromConfig(c config.CompanyConfig) Company {
	return Company{Name: c.Name, Address: c.Address, Phone: c.Phone, Email: c.Email}
}

type BillData struct {
	Company     Company
	Bill        bills.Bill
	Customer    customers.Customer
	Order       *orders.Order
	Dates       []meals.DateGroup
	GeneratedAt time.Time
}

func (BillData) Kind() string { return KindBill }

type OrderData struct {
	Company     Company
	Order       orders.Order
	Customer    customers.Customer
	Dates       []meals.DateGroup
	GeneratedAt time.Time
}

func (OrderData) Kind() string { return KindOrder }

// ExpenseRow is one expense with the name of the order it is charged to.
type ExpenseRow struct {
	Expense   expenses.Expense
	OrderName string
}

// ExpenseData is either a single expense or every expense of one bulk
// allocation.
type ExpenseData struct {
	Company      Company
	Title        string
	AllocationID string
	Policy       string
	Rows         []ExpenseRow
	Total        float64
	GeneratedAt  time.Time
}

func (ExpenseData) Kind() string { return KindExpense }

type WorkforceData struct {
	Company     Company
	Statement   workforce.Statement
	GeneratedAt time.Time
}

func (WorkforceData) Kind() string { return KindWorkforce }

type StatementData struct {
	Company   Company
	Statement bills.Statement
	// Customers by id, for names and addresses.
	Customers   map[string]customers.Customer
	GeneratedAt time.Time
}

func (StatementData) Kind() string { return KindStatement }

type InventoryItem struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Notes    string  `json:"notes"`
}

// InventoryData is a stock or pick list posted by the client as is.
type InventoryData struct {
	Company     Company         `json:"-"`
	Title       string          `json:"title"`
	Date        string          `json:"date"`
	Reference   string          `json:"reference"`
	Items       []InventoryItem `json:"items"`
	GeneratedAt time.Time       `json:"-"`
}

func (InventoryData) Kind() string { return KindInventory }

func (d *InventoryData) normalize() error {
	if len(d.Items) == 0 {
		return ErrNoItems
	}
	for i := range d.Items {
		it := &d.Items[i]
		it.Name = strings.TrimSpace(it.Name)
		if it.Name == "" {
			return ErrItemNameMissing
		}
		it.Unit = strings.TrimSpace(it.Unit)
		it.Category = strings.TrimSpace(it.Category)
	}
	d.Title = strings.TrimSpace(d.Title)
	if d.Title == "" {
		d.Title = "Inventory"
	}
	if d.Date != "" {
		d.Date = meals.NormalizeDate(d.Date)
	}
	return nil
}
