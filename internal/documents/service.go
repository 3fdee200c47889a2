package documents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"caterly/internal/bills"
	"caterly/internal/customers"
	"caterly/internal/expenses"
	"caterly/internal/meals"
	"caterly/internal/metrics"
	"caterly/internal/notify"
	"caterly/internal/orders"
	"caterly/internal/storage"
	"caterly/internal/workforce"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	FormatHTML = "html"
	FormatPDF  = "pdf"
)

var (
	ErrUnknownChannel = errors.New("channel must be email or whatsapp")
	ErrNoPublicURL    = errors.New("document storage is not configured")
)

type BillSource interface {
	Get(ctx context.Context, id string) (*bills.Bill, error)
	List(ctx context.Context, f bills.Filter) ([]bills.Bill, error)
	Statement(ctx context.Context, ids []string) (*bills.Statement, error)
}

type OrderSource interface {
	Get(ctx context.Context, id string) (*orders.Order, error)
}

type CustomerSource interface {
	Get(ctx context.Context, id string) (*customers.Customer, error)
}

type ExpenseSource interface {
	Get(ctx context.Context, id string) (*expenses.Expense, error)
	List(ctx context.Context, f expenses.Filter) ([]expenses.Expense, error)
}

type WorkforceSource interface {
	Statement(ctx context.Context, workforceID string) (*workforce.Statement, error)
}

// Sources are the services documents read from.
type Sources struct {
	Bills     BillSource
	Orders    OrderSource
	Customers CustomerSource
	Expenses  ExpenseSource
	Workforce WorkforceSource
}

type Storage interface {
	Upload(ctx context.Context, key string, body []byte) (string, error)
}

type WhatsAppSender interface {
	SendDocument(ctx context.Context, d notify.Document) error
}

type Option func(*Service)

// WithConverter enables PDF output.
func WithConverter(c Converter) Option { return func(s *Service) { s.converter = c } }

// WithStorage uploads every generated PDF.
func WithStorage(st Storage) Option { return func(s *Service) { s.storage = st } }

func WithEmail(e notify.EmailSender) Option { return func(s *Service) { s.email = e } }

func WithWhatsApp(w WhatsAppSender) Option { return func(s *Service) { s.whatsapp = w } }

type Service struct {
	src       Sources
	company   Company
	converter Converter
	storage   Storage
	email     notify.EmailSender
	whatsapp  WhatsAppSender
	now       func() time.Time
}

func NewService(src Sources, company Company, opts ...Option) *Service {
	s := &Service{src: src, company: company, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Document is one generated file. URL is set when the PDF was uploaded.
type Document struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
	HTML string `json:"-"`
	PDF  []byte `json:"-"`
	URL  string `json:"url,omitempty"`
}

// Generate loads the record behind id and renders it. For statements id is
// a customer id; inventory sheets are not stored and go through
// GenerateInventory instead.
func (s *Service) Generate(ctx context.Context, kind, id, format string) (*Document, error) {
	format, err := parseFormat(format)
	if err != nil {
		return nil, err
	}

	var (
		data Data
		name string
	)
	switch kind {
	case KindBill:
		data, name, err = s.billData(ctx, id)
	case KindOrder:
		data, name, err = s.orderData(ctx, id)
	case KindExpense:
		data, name, err = s.expenseData(ctx, id)
	case KindWorkforce:
		data, name, err = s.workforceData(ctx, id)
	case KindStatement:
		data, name, err = s.customerStatement(ctx, id)
	default:
		return nil, ErrUnknownKind
	}
	if err != nil {
		return nil, err
	}
	return s.produce(ctx, data, name, format)
}

// GenerateStatement consolidates the given bills into one statement.
func (s *Service) GenerateStatement(ctx context.Context, billIDs []string, format string) (*Document, error) {
	format, err := parseFormat(format)
	if err != nil {
		return nil, err
	}
	st, err := s.src.Bills.Statement(ctx, billIDs)
	if err != nil {
		return nil, err
	}
	data, err := s.statementData(ctx, *st)
	if err != nil {
		return nil, err
	}
	return s.produce(ctx, data, "statement", format)
}

func (s *Service) GenerateInventory(ctx context.Context, d InventoryData, format string) (*Document, error) {
	format, err := parseFormat(format)
	if err != nil {
		return nil, err
	}
	if err := d.normalize(); err != nil {
		return nil, err
	}
	d.Company = s.company
	d.GeneratedAt = s.now().UTC()

	name := "inventory"
	if d.Date != "" {
		name += "-" + d.Date
	}
	return s.produce(ctx, d, name, format)
}

func parseFormat(f string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(f)) {
	case "", FormatHTML:
		return FormatHTML, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", ErrUnknownFormat
}

func (s *Service) produce(ctx context.Context, d Data, name, format string) (doc *Document, err error) {
	defer func() { metrics.RecordDocument(d.Kind(), err) }()

	html, err := Render(d)
	if err != nil {
		return nil, err
	}
	doc = &Document{Kind: d.Kind(), Name: name, HTML: html}
	if format != FormatPDF {
		return doc, nil
	}

	if s.converter == nil {
		return nil, ErrPDFUnavailable
	}
	if doc.PDF, err = s.converter.Convert(ctx, html); err != nil {
		return nil, err
	}

	if s.storage != nil {
		url, upErr := s.storage.Upload(ctx, storage.ObjectKey(d.Kind(), name, doc.PDF), doc.PDF)
		if upErr != nil {
			slog.Warn("document upload failed", "kind", d.Kind(), "name", name, "error", upErr)
		}
		doc.URL = url
	}

	slog.Info("document generated", "kind", d.Kind(), "name", name, "bytes", len(doc.PDF), "url", doc.URL)
	return doc, nil
}

// customer tolerates a deleted customer; the document then shows the id.
func (s *Service) customer(ctx context.Context, id string) (customers.Customer, error) {
	c, err := s.src.Customers.Get(ctx, id)
	if errors.Is(err, customers.ErrNotFound) {
		return customers.Customer{ID: id, Name: id}, nil
	}
	if err != nil {
		return customers.Customer{}, err
	}
	return *c, nil
}

func (s *Service) billData(ctx context.Context, id string) (Data, string, error) {
	b, err := s.src.Bills.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	cust, err := s.customer(ctx, b.CustomerID)
	if err != nil {
		return nil, "", err
	}

	data := BillData{Company: s.company, Bill: *b, Customer: cust, GeneratedAt: s.now().UTC()}
	if b.OrderID != nil {
		o, err := s.src.Orders.Get(ctx, *b.OrderID)
		switch {
		case errors.Is(err, orders.ErrNotFound):
		case err != nil:
			return nil, "", err
		default:
			data.Order = o
			// amount-only sessions still have to appear on a bill
			data.Dates = meals.GroupAllSessions(o.Items, o.MealTypeAmounts.Sessions(), o.FallbackDate())
		}
	}
	return data, b.BillNumber, nil
}

func (s *Service) orderData(ctx context.Context, id string) (Data, string, error) {
	o, err := s.src.Orders.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	cust, err := s.customer(ctx, o.CustomerID)
	if err != nil {
		return nil, "", err
	}
	data := OrderData{Company: s.company, Order: *o, Customer: cust, Dates: o.Grouped(), GeneratedAt: s.now().UTC()}
	return data, "order-" + shortID(o.ID), nil
}

// expenseData renders a single expense, or the whole allocation when the
// expense was created in bulk.
func (s *Service) expenseData(ctx context.Context, id string) (Data, string, error) {
	e, err := s.src.Expenses.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}

	data := ExpenseData{Company: s.company, Title: "Expense voucher", GeneratedAt: s.now().UTC()}
	list := []expenses.Expense{*e}
	name := "expense-" + shortID(e.ID)
	if e.AllocationID != nil {
		if list, err = s.src.Expenses.List(ctx, expenses.Filter{AllocationID: *e.AllocationID}); err != nil {
			return nil, "", err
		}
		data.Title = "Expense allocation"
		data.AllocationID = *e.AllocationID
		data.Policy = e.AllocationPolicy
		name = "allocation-" + shortID(*e.AllocationID)
	}

	names := map[string]string{}
	total := decimal.Zero
	for _, ex := range list {
		row := ExpenseRow{Expense: ex}
		if ex.OrderID != nil {
			if row.OrderName, err = s.orderName(ctx, *ex.OrderID, names); err != nil {
				return nil, "", err
			}
		}
		data.Rows = append(data.Rows, row)
		total = total.Add(decimal.NewFromFloat(ex.Amount))
	}
	data.Total = total.Round(2).InexactFloat64()
	return data, name, nil
}

func (s *Service) orderName(ctx context.Context, id string, cache map[string]string) (string, error) {
	if n, ok := cache[id]; ok {
		return n, nil
	}
	n := "Order " + shortID(id)
	o, err := s.src.Orders.Get(ctx, id)
	switch {
	case errors.Is(err, orders.ErrNotFound):
	case err != nil:
		return "", err
	case strings.TrimSpace(o.EventName) != "":
		n = o.EventName
	}
	cache[id] = n
	return n, nil
}

func (s *Service) workforceData(ctx context.Context, id string) (Data, string, error) {
	st, err := s.src.Workforce.Statement(ctx, id)
	if err != nil {
		return nil, "", err
	}
	return WorkforceData{Company: s.company, Statement: *st, GeneratedAt: s.now().UTC()}, "workforce-" + st.Worker.Name, nil
}

func (s *Service) customerStatement(ctx context.Context, customerID string) (Data, string, error) {
	list, err := s.src.Bills.List(ctx, bills.Filter{CustomerID: customerID})
	if err != nil {
		return nil, "", err
	}
	if len(list) == 0 {
		return nil, "", bills.ErrNoBills
	}
	data, err := s.statementData(ctx, bills.Consolidate(list))
	if err != nil {
		return nil, "", err
	}
	return data, "statement-" + shortID(customerID), nil
}

func (s *Service) statementData(ctx context.Context, st bills.Statement) (StatementData, error) {
	st.GeneratedAt = s.now().UTC()
	data := StatementData{
		Company:     s.company,
		Statement:   st,
		Customers:   make(map[string]customers.Customer, len(st.Customers)),
		GeneratedAt: st.GeneratedAt,
	}
	for _, cs := range st.Customers {
		c, err := s.customer(ctx, cs.CustomerID)
		if err != nil {
			return StatementData{}, err
		}
		data.Customers[cs.CustomerID] = c
	}
	return data, nil
}

type SendInput struct {
	Channel string `json:"channel"`
	To      string `json:"to"`
}

type SendResult struct {
	Channel     string   `json:"channel"`
	To          string   `json:"to"`
	Attachments []string `json:"attachments,omitempty"`
	URL         string   `json:"url,omitempty"`
}

// SendBill delivers a bill on the requested channel. Without an explicit
// recipient the customer's email or phone is used.
func (s *Service) SendBill(ctx context.Context, billID string, in SendInput) (*SendResult, error) {
	channel := strings.ToLower(strings.TrimSpace(in.Channel))
	if channel != notify.ChannelEmail && channel != notify.ChannelWhatsApp {
		return nil, ErrUnknownChannel
	}

	b, err := s.src.Bills.Get(ctx, billID)
	if err != nil {
		return nil, err
	}
	cust, err := s.customer(ctx, b.CustomerID)
	if err != nil {
		return nil, err
	}

	to := strings.TrimSpace(in.To)
	var res *SendResult
	if channel == notify.ChannelEmail {
		if to == "" {
			to = cust.Email
		}
		res, err = s.emailBill(ctx, b, to)
	} else {
		if to == "" {
			to = cust.Phone
		}
		res, err = s.whatsAppBill(ctx, b, to)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("bill sent", "bill_id", b.ID, "channel", channel, "to", to)
	return res, nil
}

// emailBill renders the bill and, if it has one, its order in parallel;
// both go out as PDF attachments when conversion is available.
func (s *Service) emailBill(ctx context.Context, b *bills.Bill, to string) (*SendResult, error) {
	if s.email == nil {
		return nil, notify.ErrNotConfigured
	}
	if to == "" {
		return nil, notify.ErrNoRecipient
	}

	format := FormatHTML
	if s.converter != nil {
		format = FormatPDF
	}

	var billDoc, orderDoc *Document
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		billDoc, err = s.Generate(gctx, KindBill, b.ID, format)
		return err
	})
	if b.OrderID != nil {
		g.Go(func() error {
			doc, err := s.Generate(gctx, KindOrder, *b.OrderID, format)
			if errors.Is(err, orders.ErrNotFound) {
				return nil
			}
			orderDoc = doc
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &SendResult{Channel: notify.ChannelEmail, To: to, URL: billDoc.URL}
	email := notify.Email{
		To:      []string{to},
		Subject: fmt.Sprintf("Bill %s from %s", b.BillNumber, s.company.Name),
		HTML:    billDoc.HTML,
	}
	for _, doc := range []*Document{billDoc, orderDoc} {
		if doc == nil || doc.PDF == nil {
			continue
		}
		filename := doc.Name + ".pdf"
		email.Attachments = append(email.Attachments, notify.Attachment{
			Filename:    filename,
			ContentType: "application/pdf",
			Content:     doc.PDF,
		})
		res.Attachments = append(res.Attachments, filename)
	}

	if err := s.email.Send(ctx, email); err != nil {
		return nil, err
	}
	return res, nil
}

// whatsAppBill needs a public link: WhatsApp fetches the PDF itself.
func (s *Service) whatsAppBill(ctx context.Context, b *bills.Bill, to string) (*SendResult, error) {
	if s.whatsapp == nil {
		return nil, notify.ErrNotConfigured
	}
	if s.storage == nil {
		return nil, ErrNoPublicURL
	}

	doc, err := s.Generate(ctx, KindBill, b.ID, FormatPDF)
	if err != nil {
		return nil, err
	}
	if doc.URL == "" {
		return nil, errors.New("bill pdf could not be uploaded")
	}

	err = s.whatsapp.SendDocument(ctx, notify.Document{
		To:       to,
		Link:     doc.URL,
		Filename: b.BillNumber + ".pdf",
		Caption:  fmt.Sprintf("Bill %s from %s. Balance due %s", b.BillNumber, s.company.Name, money(b.Balance())),
	})
	if err != nil {
		return nil, err
	}
	return &SendResult{Channel: notify.ChannelWhatsApp, To: to, URL: doc.URL}, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
