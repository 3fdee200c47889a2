package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"caterly/internal/bills"
	"caterly/internal/customers"
	"caterly/internal/expenses"
	"caterly/internal/meals"
	"caterly/internal/notify"
	"caterly/internal/orders"
	"caterly/internal/workforce"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 12, 9, 30, 0, 0, time.UTC)

const fakePDF = "%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF"

type fixture struct {
	customers *customers.Service
	orders    *orders.Service
	bills     *bills.Service
	expenses  *expenses.Service
	workforce *workforce.Service

	customer *customers.Customer
	order    *orders.Order
	bill     *bills.Bill
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		customers: customers.NewService(customers.NewInMemoryRepository()),
		orders:    orders.NewService(orders.NewInMemoryRepository()),
		workforce: workforce.NewService(workforce.NewInMemoryRepository()),
	}
	f.bills = bills.NewService(bills.NewInMemoryRepository(), f.orders)
	f.orders.SetBillLinker(f.bills)
	f.expenses = expenses.NewService(expenses.NewInMemoryRepository(), f.orders, 100)

	var err error
	f.customer, err = f.customers.Create(ctx, customers.Input{
		Name:    "Sharma Family",
		Phone:   "9820000000",
		Email:   "sharma@example.com",
		Address: "12 MG Road, Pune",
	})
	require.NoError(t, err)

	members := 120
	f.order, err = f.orders.Create(ctx, orders.Input{
		CustomerID: f.customer.ID,
		EventName:  "Annual Day",
		Venue:      "Lawn 2",
		MealTypeAmounts: meals.MealTypeAmounts{
			"session_LUNCH_001":  meals.SessionDetail{Amount: 12000, Date: "2024-05-10", NumberOfMembers: &members, Services: []string{"buffet"}},
			"session_DINNER_001": meals.SessionDetail{Amount: 8000, Date: "2024-05-10"},
		},
		Items: []meals.LineItem{
			{SessionKey: "session_LUNCH_001", ItemName: "Paneer Tikka", Customization: "less spicy"},
			{SessionKey: "session_LUNCH_001", ItemName: "Jeera Rice"},
		},
		Stalls:   []orders.Stall{{Name: "Ice cream", Amount: 2000}},
		Discount: 1000,
	})
	require.NoError(t, err)

	f.bill, err = f.bills.CreateFromOrder(ctx, f.order.ID)
	require.NoError(t, err)
	return f
}

func (f *fixture) sources() Sources {
	return Sources{
		Bills:     f.bills,
		Orders:    f.orders,
		Customers: f.customers,
		Expenses:  f.expenses,
		Workforce: f.workforce,
	}
}

func (f *fixture) service(opts ...Option) *Service {
	s := NewService(f.sources(), Company{Name: "Caterly Kitchens", Phone: "020-1234567"}, opts...)
	s.now = func() time.Time { return fixedNow }
	return s
}

type fakeConverter struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *fakeConverter) Convert(_ context.Context, html string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []byte(fakePDF), nil
}

type fakeStorage struct {
	mu   sync.Mutex
	keys []string
}

func (s *fakeStorage) Upload(_ context.Context, key string, _ []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
	return "https://cdn.caterly.in/" + key, nil
}

type fakeEmail struct {
	sent []notify.Email
	err  error
}

func (f *fakeEmail) Name() string { return "fake" }

func (f *fakeEmail) Send(_ context.Context, e notify.Email) error {
	f.sent = append(f.sent, e)
	return f.err
}

type fakeWhatsApp struct {
	sent []notify.Document
}

func (f *fakeWhatsApp) SendDocument(_ context.Context, d notify.Document) error {
	f.sent = append(f.sent, d)
	return nil
}

func TestMoney(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{0.0, "₹0.00"},
		{50.5, "₹50.50"},
		{1234.5, "₹1,234.50"},
		{123456.5, "₹1,23,456.50"},
		{12345678.0, "₹1,23,45,678.00"},
		{-50.0, "-₹50.00"},
		{7, "₹7.00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, money(tt.in), "%v", tt.in)
	}
}

func TestGenerate_Bill(t *testing.T) {
	f := newFixture(t)
	s := f.service()

	doc, err := s.Generate(context.Background(), KindBill, f.bill.ID, "")
	require.NoError(t, err)

	assert.Equal(t, KindBill, doc.Kind)
	assert.Equal(t, f.bill.BillNumber, doc.Name)
	assert.Nil(t, doc.PDF)
	for _, want := range []string{
		"Caterly Kitchens",
		"Bill " + f.bill.BillNumber,
		"Sharma Family",
		"Annual Day",
		"10 May 2024",
		"LUNCH",
		"DINNER",
		"Paneer Tikka (less spicy)",
		"Ice cream",
		"₹22,000.00",
		"₹21,000.00",
		"Generated 12 May 2024",
	} {
		assert.Contains(t, doc.HTML, want)
	}
	assert.Less(t, strings.Index(doc.HTML, "LUNCH"), strings.Index(doc.HTML, "DINNER"))
}

func TestGenerate_IsDeterministic(t *testing.T) {
	f := newFixture(t)
	s := f.service()
	ctx := context.Background()

	first, err := s.Generate(ctx, KindOrder, f.order.ID, FormatHTML)
	require.NoError(t, err)
	for range 5 {
		again, err := s.Generate(ctx, KindOrder, f.order.ID, FormatHTML)
		require.NoError(t, err)
		assert.Equal(t, first.HTML, again.HTML)
	}
	assert.Contains(t, first.HTML, "120 members")
	assert.Contains(t, first.HTML, "Services: buffet")
}

func TestRender_EscapesInput(t *testing.T) {
	html, err := Render(InventoryData{
		Company:     Company{Name: "Caterly"},
		Title:       "Pick list",
		Items:       []InventoryItem{{Name: "<script>alert(1)</script>", Quantity: 2.5, Unit: "kg"}},
		GeneratedAt: fixedNow,
	})
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>alert(1)</script>")
	assert.Contains(t, html, "&lt;script&gt;")
	assert.Contains(t, html, "2.5")
}

func TestGenerate_Errors(t *testing.T) {
	f := newFixture(t)
	s := f.service()
	ctx := context.Background()

	_, err := s.Generate(ctx, "invoice", f.bill.ID, "")
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = s.Generate(ctx, KindInventory, "x", "")
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = s.Generate(ctx, KindBill, f.bill.ID, "docx")
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = s.Generate(ctx, KindBill, "missing", "")
	assert.ErrorIs(t, err, bills.ErrNotFound)

	_, err = s.Generate(ctx, KindBill, f.bill.ID, FormatPDF)
	assert.ErrorIs(t, err, ErrPDFUnavailable)
}

func TestGenerate_PDFIsUploaded(t *testing.T) {
	f := newFixture(t)
	conv, store := &fakeConverter{}, &fakeStorage{}
	s := f.service(WithConverter(conv), WithStorage(store))

	doc, err := s.Generate(context.Background(), KindBill, f.bill.ID, "PDF")
	require.NoError(t, err)

	assert.Equal(t, fakePDF, string(doc.PDF))
	require.Len(t, store.keys, 1)
	assert.True(t, strings.HasPrefix(store.keys[0], "documents/bill/"), store.keys[0])
	assert.True(t, strings.HasSuffix(store.keys[0], ".pdf"), store.keys[0])
	assert.Equal(t, "https://cdn.caterly.in/"+store.keys[0], doc.URL)
}

func TestGenerate_ConverterFailure(t *testing.T) {
	f := newFixture(t)
	store := &fakeStorage{}
	s := f.service(WithConverter(&fakeConverter{err: errors.New("chromium crashed")}), WithStorage(store))

	_, err := s.Generate(context.Background(), KindOrder, f.order.ID, FormatPDF)
	require.Error(t, err)
	assert.Empty(t, store.keys)
}

func TestGenerate_ExpenseAllocation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other, err := f.orders.Create(ctx, orders.Input{
		CustomerID:      f.customer.ID,
		EventName:       "Engagement",
		MealTypeAmounts: meals.MealTypeAmounts{"lunch": meals.LegacyAmount(5000)},
	})
	require.NoError(t, err)

	res, err := f.expenses.CreateBulk(ctx, expenses.BulkInput{
		Policy:      "equal",
		TotalAmount: 3000,
		Category:    "Transport",
		PaymentDate: "2024-05-11",
		Targets:     []expenses.BulkTarget{{OrderID: f.order.ID}, {OrderID: other.ID}},
	})
	require.NoError(t, err)

	doc, err := f.service().Generate(ctx, KindExpense, res.Expenses[0].ID, "")
	require.NoError(t, err)

	assert.Contains(t, doc.HTML, "Expense allocation")
	assert.Contains(t, doc.HTML, "Annual Day")
	assert.Contains(t, doc.HTML, "Engagement")
	assert.Contains(t, doc.HTML, "₹1,500.00")
	assert.Contains(t, doc.HTML, "₹3,000.00")
	assert.Contains(t, doc.HTML, "11 May 2024")
}

func TestGenerate_SingleExpense(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e, err := f.expenses.Create(ctx, expenses.Input{Category: "Gas", Amount: 850, PaymentDate: "2024-05-01"})
	require.NoError(t, err)

	doc, err := f.service().Generate(ctx, KindExpense, e.ID, "")
	require.NoError(t, err)
	assert.Contains(t, doc.HTML, "Expense voucher")
	assert.Contains(t, doc.HTML, "general")
	assert.Contains(t, doc.HTML, "₹850.00")
}

func TestGenerate_Workforce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w, err := f.workforce.Create(ctx, workforce.Input{Name: "Ramesh", Role: "Cook", DailyRate: 900})
	require.NoError(t, err)
	_, err = f.workforce.AddPayment(ctx, w.ID, workforce.PaymentInput{Amount: 1800, PaymentDate: "2024-05-10", Notes: "two days"})
	require.NoError(t, err)

	doc, err := f.service().Generate(ctx, KindWorkforce, w.ID, "")
	require.NoError(t, err)
	assert.Contains(t, doc.HTML, "Payments to Ramesh")
	assert.Contains(t, doc.HTML, "two days")
	assert.Contains(t, doc.HTML, "₹1,800.00")
}

func TestGenerate_CustomerStatement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	second, err := f.bills.Create(ctx, bills.Input{CustomerID: f.customer.ID, Subtotal: 5000})
	require.NoError(t, err)
	_, err = f.bills.RecordPayment(ctx, second.ID, bills.PaymentInput{Amount: 2000, Method: "upi"})
	require.NoError(t, err)

	doc, err := f.service().Generate(ctx, KindStatement, f.customer.ID, "")
	require.NoError(t, err)

	assert.Contains(t, doc.HTML, "Statement of account")
	assert.Contains(t, doc.HTML, "Sharma Family")
	assert.Contains(t, doc.HTML, f.bill.BillNumber)
	assert.Contains(t, doc.HTML, second.BillNumber)
	assert.Contains(t, doc.HTML, "₹26,000.00")
	assert.Contains(t, doc.HTML, "₹24,000.00")

	_, err = f.service().Generate(ctx, KindStatement, "nobody", "")
	assert.ErrorIs(t, err, bills.ErrNoBills)
}

func TestGenerateInventory(t *testing.T) {
	f := newFixture(t)
	s := f.service()

	doc, err := s.GenerateInventory(context.Background(), InventoryData{
		Date:  "2024-05-10",
		Items: []InventoryItem{{Name: " Basmati rice ", Quantity: 25, Unit: "kg"}},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, "inventory-2024-05-10", doc.Name)
	assert.Contains(t, doc.HTML, "<td>Basmati rice</td>")
	assert.Contains(t, doc.HTML, "Caterly Kitchens")

	_, err = s.GenerateInventory(context.Background(), InventoryData{}, "")
	assert.ErrorIs(t, err, ErrNoItems)

	_, err = s.GenerateInventory(context.Background(), InventoryData{Items: []InventoryItem{{Quantity: 1}}}, "")
	assert.ErrorIs(t, err, ErrItemNameMissing)
}

func TestSendBill_Email(t *testing.T) {
	f := newFixture(t)
	conv, mail := &fakeConverter{}, &fakeEmail{}
	s := f.service(WithConverter(conv), WithEmail(mail))

	res, err := s.SendBill(context.Background(), f.bill.ID, SendInput{Channel: "email"})
	require.NoError(t, err)

	assert.Equal(t, "sharma@example.com", res.To)
	assert.Equal(t, 2, conv.calls)
	require.Len(t, mail.sent, 1)

	sent := mail.sent[0]
	assert.Equal(t, []string{"sharma@example.com"}, sent.To)
	assert.Contains(t, sent.Subject, f.bill.BillNumber)
	assert.Contains(t, sent.HTML, "Annual Day")
	require.Len(t, sent.Attachments, 2)
	assert.Equal(t, f.bill.BillNumber+".pdf", sent.Attachments[0].Filename)
	assert.Equal(t, "application/pdf", sent.Attachments[1].ContentType)
	assert.Equal(t, []string{sent.Attachments[0].Filename, sent.Attachments[1].Filename}, res.Attachments)
}

func TestSendBill_EmailWithoutConverter(t *testing.T) {
	f := newFixture(t)
	mail := &fakeEmail{}
	s := f.service(WithEmail(mail))

	_, err := s.SendBill(context.Background(), f.bill.ID, SendInput{Channel: "email", To: "accounts@sharma.in"})
	require.NoError(t, err)
	require.Len(t, mail.sent, 1)
	assert.Equal(t, []string{"accounts@sharma.in"}, mail.sent[0].To)
	assert.Empty(t, mail.sent[0].Attachments)
}

func TestSendBill_WhatsApp(t *testing.T) {
	f := newFixture(t)
	wa, store := &fakeWhatsApp{}, &fakeStorage{}
	s := f.service(WithConverter(&fakeConverter{}), WithStorage(store), WithWhatsApp(wa))

	res, err := s.SendBill(context.Background(), f.bill.ID, SendInput{Channel: "WhatsApp"})
	require.NoError(t, err)

	require.Len(t, wa.sent, 1)
	assert.Equal(t, "9820000000", wa.sent[0].To)
	assert.Equal(t, res.URL, wa.sent[0].Link)
	assert.Equal(t, f.bill.BillNumber+".pdf", wa.sent[0].Filename)
	assert.Contains(t, wa.sent[0].Caption, "₹21,000.00")
}

func TestSendBill_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service().SendBill(ctx, f.bill.ID, SendInput{Channel: "sms"})
	assert.ErrorIs(t, err, ErrUnknownChannel)

	_, err = f.service().SendBill(ctx, f.bill.ID, SendInput{Channel: "email"})
	assert.ErrorIs(t, err, notify.ErrNotConfigured)

	_, err = f.service(WithWhatsApp(&fakeWhatsApp{})).SendBill(ctx, f.bill.ID, SendInput{Channel: "whatsapp"})
	assert.ErrorIs(t, err, ErrNoPublicURL)

	_, err = f.service(WithEmail(&fakeEmail{})).SendBill(ctx, "missing", SendInput{Channel: "email"})
	assert.ErrorIs(t, err, bills.ErrNotFound)
}

func TestGotenbergConverter(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forms/chromium/convert/html", r.URL.Path)
		file, header, err := r.FormFile("files")
		if !assert.NoError(t, err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		assert.Equal(t, "index.html", header.Filename)
		page, _ := io.ReadAll(file)
		assert.Equal(t, "<h1>Bill</h1>", string(page))
		_, _ = io.WriteString(w, fakePDF)
	}))
	defer srv.Close()

	pdf, err := NewGotenbergConverter(srv.URL+"/").Convert(context.Background(), "<h1>Bill</h1>")
	require.NoError(t, err)
	assert.Equal(t, fakePDF, string(pdf))

	left, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestGotenbergConverter_Failures(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("mode") == "" {
			http.Error(w, "chromium timed out", http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, "<html>not a pdf</html>")
	}))
	defer srv.Close()

	_, err := NewGotenbergConverter(srv.URL).Convert(context.Background(), "<p>x</p>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "chromium timed out")

	g := NewGotenbergConverter(srv.URL)
	g.endpoint += "?mode=html"
	_, err = g.Convert(context.Background(), "<p>x</p>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected content type")

	left, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func setupRouter(s *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(s)
	h.Register(r.Group("/documents"))
	h.RegisterBillRoutes(r.Group("/bills"))
	return r
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_Get(t *testing.T) {
	f := newFixture(t)
	r := setupRouter(f.service(WithConverter(&fakeConverter{}), WithStorage(&fakeStorage{})))

	w := do(r, http.MethodGet, "/documents/bill/"+f.bill.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), f.bill.BillNumber)

	w = do(r, http.MethodGet, "/documents/order/"+f.order.ID+"?format=pdf", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "inline")
	assert.NotEmpty(t, w.Header().Get("X-Document-URL"))
}

func TestHandler_Errors(t *testing.T) {
	f := newFixture(t)
	r := setupRouter(f.service())

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown kind", http.MethodGet, "/documents/invoice/1", nil, http.StatusBadRequest},
		{"bad format", http.MethodGet, "/documents/bill/" + f.bill.ID + "?format=png", nil, http.StatusBadRequest},
		{"missing bill", http.MethodGet, "/documents/bill/nope", nil, http.StatusNotFound},
		{"missing order", http.MethodGet, "/documents/order/nope", nil, http.StatusNotFound},
		{"pdf without converter", http.MethodGet, "/documents/bill/" + f.bill.ID + "?format=pdf", nil, http.StatusServiceUnavailable},
		{"empty inventory", http.MethodPost, "/documents/inventory", map[string]any{"items": []any{}}, http.StatusBadRequest},
		{"empty statement", http.MethodPost, "/documents/statement", map[string]any{"billIds": []string{}}, http.StatusBadRequest},
		{"email not configured", http.MethodPost, "/bills/" + f.bill.ID + "/send", SendInput{Channel: "email"}, http.StatusServiceUnavailable},
		{"bad channel", http.MethodPost, "/bills/" + f.bill.ID + "/send", SendInput{Channel: "fax"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestHandler_InventoryAndStatement(t *testing.T) {
	f := newFixture(t)
	r := setupRouter(f.service())

	w := do(r, http.MethodPost, "/documents/inventory", map[string]any{
		"title": "Store issue",
		"items": []map[string]any{{"name": "Ghee", "quantity": 4, "unit": "L"}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Store issue")
	assert.Contains(t, w.Body.String(), "Ghee")

	w = do(r, http.MethodPost, "/documents/statement", map[string]any{"billIds": []string{f.bill.ID}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), f.bill.BillNumber)
}

func TestHandler_SendBill(t *testing.T) {
	f := newFixture(t)
	mail := &fakeEmail{}
	r := setupRouter(f.service(WithEmail(mail)))

	w := do(r, http.MethodPost, "/bills/"+f.bill.ID+"/send", SendInput{Channel: "email"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res SendResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "email", res.Channel)
	assert.Equal(t, "sharma@example.com", res.To)
	assert.Len(t, mail.sent, 1)
}
