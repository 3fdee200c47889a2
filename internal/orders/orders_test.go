package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"caterly/internal/meals"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBills struct {
	billed  map[string]string
	failing bool
	calls   int
}

func (f *fakeBills) BillIDForOrder(_ context.Context, orderID string) (string, bool, error) {
	id, ok := f.billed[orderID]
	return id, ok, nil
}

func (f *fakeBills) EnsureBillForOrder(_ context.Context, o *Order) (string, bool, error) {
	f.calls++
	if f.failing {
		return "", false, errors.New("bill numbering unavailable")
	}
	if id, ok := f.billed[o.ID]; ok {
		return id, false, nil
	}
	id := "bill-" + o.ID
	f.billed[o.ID] = id
	return id, true, nil
}

func intp(n int) *int { return &n }

func twoDayInput() Input {
	return Input{
		CustomerID: "cust-1",
		EventName:  "Mehta Wedding",
		Venue:      "Lawn A",
		MealTypeAmounts: meals.MealTypeAmounts{
			"session_LUNCH_001":  meals.SessionDetail{Amount: 4000, Date: "2024-03-01", MenuType: "lunch", NumberOfMembers: intp(100)},
			"session_DINNER_001": meals.SessionDetail{Amount: 6000, Date: "2024-03-02", MenuType: "dinner", NumberOfMembers: intp(150)},
		},
		Items: []meals.LineItem{
			{SessionKey: "session_LUNCH_001", ItemName: "Dal Makhani"},
			{SessionKey: "session_DINNER_001", ItemName: "Biryani"},
			{SessionKey: "session_DINNER_001", ItemName: "Raita"},
		},
		Stalls:   []Stall{{Name: "Chaat", Amount: 1500}},
		Discount: 500,
	}
}

func newService(t *testing.T) (*Service, *fakeBills) {
	t.Helper()
	bills := &fakeBills{billed: map[string]string{}}
	s := NewService(NewInMemoryRepository())
	s.SetBillLinker(bills)
	return s, bills
}

func TestCreate_ComputesTotal(t *testing.T) {
	s, _ := newService(t)

	o, err := s.Create(context.Background(), twoDayInput())
	require.NoError(t, err)

	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, 11000.0, o.TotalAmount)
	for _, item := range o.Items {
		assert.NotEmpty(t, item.ID)
	}
}

func TestCreate_DiscountNeverMakesTotalNegative(t *testing.T) {
	s, _ := newService(t)
	in := twoDayInput()
	in.Discount = 50000

	o, err := s.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 0.0, o.TotalAmount)
}

func TestCreate_Validation(t *testing.T) {
	s, _ := newService(t)

	in := twoDayInput()
	in.CustomerID = " "
	_, err := s.Create(context.Background(), in)
	assert.ErrorIs(t, err, ErrCustomerMissing)

	in = twoDayInput()
	in.MealTypeAmounts = nil
	_, err = s.Create(context.Background(), in)
	assert.ErrorIs(t, err, ErrNoSessions)

	in = twoDayInput()
	in.Discount = -1
	_, err = s.Create(context.Background(), in)
	assert.ErrorIs(t, err, ErrInvalidDiscount)
}

func TestDetachSession_SplitsOrder(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	o, err := s.Create(ctx, twoDayInput())
	require.NoError(t, err)

	res, err := s.DetachSession(ctx, o.ID, "session_dinner_001")
	require.NoError(t, err)

	assert.Len(t, res.Order.MealTypeAmounts, 1)
	assert.Len(t, res.Order.Items, 1)
	assert.Equal(t, 5000.0, res.Order.TotalAmount) // 4000 + stall 1500 - discount 500

	d := res.Detached
	assert.NotEqual(t, o.ID, d.ID)
	assert.Equal(t, "cust-1", d.CustomerID)
	assert.Equal(t, StatusPending, d.Status)
	assert.Equal(t, "Detached from order "+o.ID, d.Notes)
	assert.Len(t, d.Items, 2)
	assert.Equal(t, 6000.0, d.TotalAmount)

	all, err := s.List(ctx, Filter{CustomerID: "cust-1"})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDetachSession_Errors(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	o, err := s.Create(ctx, twoDayInput())
	require.NoError(t, err)

	_, err = s.DetachSession(ctx, o.ID, "session_BREAKFAST_009")
	assert.ErrorIs(t, err, meals.ErrSessionNotFound)

	_, err = s.DetachSession(ctx, "missing", "session_LUNCH_001")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.DetachSession(ctx, o.ID, "session_LUNCH_001")
	require.NoError(t, err)
	_, err = s.DetachSession(ctx, o.ID, "session_DINNER_001")
	assert.ErrorIs(t, err, meals.ErrSingleSession)
}

func TestDetachDate(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	o, err := s.Create(ctx, twoDayInput())
	require.NoError(t, err)

	res, err := s.DetachDate(ctx, o.ID, "2024-03-01")
	require.NoError(t, err)
	assert.Contains(t, res.Detached.MealTypeAmounts, "session_LUNCH_001")
	assert.Contains(t, res.Order.MealTypeAmounts, "session_DINNER_001")

	_, err = s.DetachDate(ctx, o.ID, "2024-04-01")
	assert.ErrorIs(t, err, meals.ErrSingleSession)
}

func TestUpdateStatus_CreatesBillOnInProgress(t *testing.T) {
	s, bills := newService(t)
	ctx := context.Background()
	o, err := s.Create(ctx, twoDayInput())
	require.NoError(t, err)

	res, err := s.UpdateStatus(ctx, o.ID, StatusConfirmed)
	require.NoError(t, err)
	assert.Empty(t, res.BillID)
	assert.Zero(t, bills.calls)

	res, err = s.UpdateStatus(ctx, o.ID, StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, "bill-"+o.ID, res.BillID)
	assert.True(t, res.BillCreated)
	assert.NoError(t, res.BillError)

	// back and forth reuses the existing bill
	_, err = s.UpdateStatus(ctx, o.ID, StatusConfirmed)
	require.NoError(t, err)
	res, err = s.UpdateStatus(ctx, o.ID, StatusInProgress)
	require.NoError(t, err)
	assert.False(t, res.BillCreated)
}

func TestUpdateStatus_BillFailureKeepsStatus(t *testing.T) {
	s, bills := newService(t)
	bills.failing = true
	ctx := context.Background()
	o, err := s.Create(ctx, twoDayInput())
	require.NoError(t, err)

	res, err := s.UpdateStatus(ctx, o.ID, StatusInProgress)
	require.NoError(t, err)
	assert.Error(t, res.BillError)

	got, err := s.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, got.Status)
}

func TestUpdateStatus_RejectsInvalid(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	o, err := s.Create(ctx, twoDayInput())
	require.NoError(t, err)

	_, err = s.UpdateStatus(ctx, o.ID, "shipped")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = s.UpdateStatus(ctx, o.ID, StatusCompleted)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMerge(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	a, err := s.Create(ctx, Input{
		CustomerID:      "cust-1",
		EventName:       "Sangeet",
		MealTypeAmounts: meals.MealTypeAmounts{"lunch": meals.LegacyAmount(2000)},
		Items:           []meals.LineItem{{SessionKey: "lunch", ItemName: "Poha"}},
		Discount:        100,
	})
	require.NoError(t, err)
	b, err := s.Create(ctx, Input{
		CustomerID:      "cust-1",
		EventName:       "Reception",
		MealTypeAmounts: meals.MealTypeAmounts{"LUNCH": meals.LegacyAmount(3000)},
		Items:           []meals.LineItem{{SessionKey: "LUNCH", ItemName: "Kheer"}},
		Discount:        200,
	})
	require.NoError(t, err)

	merged, err := s.Merge(ctx, []string{a.ID, b.ID})
	require.NoError(t, err)

	assert.Equal(t, "Sangeet + Reception", merged.EventName)
	assert.Len(t, merged.MealTypeAmounts, 2)
	assert.Len(t, merged.Items, 2)
	assert.Equal(t, 300.0, merged.Discount)
	assert.Equal(t, 4700.0, merged.TotalAmount)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, merged.MergedFrom)

	for _, item := range merged.Items {
		assert.Contains(t, merged.MealTypeAmounts, item.SessionKey)
	}

	_, err = s.Get(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(ctx, b.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMerge_Rejections(t *testing.T) {
	s, bills := newService(t)
	ctx := context.Background()

	a, err := s.Create(ctx, twoDayInput())
	require.NoError(t, err)
	other := twoDayInput()
	other.CustomerID = "cust-2"
	b, err := s.Create(ctx, other)
	require.NoError(t, err)
	c, err := s.Create(ctx, twoDayInput())
	require.NoError(t, err)

	_, err = s.Merge(ctx, []string{a.ID, b.ID})
	assert.ErrorIs(t, err, ErrCustomerMismatch)

	_, err = s.Merge(ctx, []string{a.ID, a.ID})
	assert.ErrorIs(t, err, ErrDuplicateOrder)

	_, err = s.Merge(ctx, []string{a.ID})
	assert.ErrorIs(t, err, meals.ErrNothingToMerge)

	bills.billed[c.ID] = "bill-1"
	_, err = s.Merge(ctx, []string{a.ID, c.ID})
	assert.ErrorIs(t, err, ErrAlreadyBilled)
}

func TestDetach_RejectsBilledOrder(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	o, err := s.Create(ctx, twoDayInput())
	require.NoError(t, err)

	res, err := s.UpdateStatus(ctx, o.ID, StatusInProgress)
	require.NoError(t, err)
	require.True(t, res.BillCreated)

	_, err = s.DetachSession(ctx, o.ID, "session_DINNER_001")
	assert.ErrorIs(t, err, ErrAlreadyBilled)
	_, err = s.DetachDate(ctx, o.ID, "2024-03-02")
	assert.ErrorIs(t, err, ErrAlreadyBilled)

	got, err := s.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, got.MealTypeAmounts, 2)
	all, err := s.List(ctx, Filter{CustomerID: "cust-1"})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpdate_StatusChangeCreatesBill(t *testing.T) {
	s, bills := newService(t)
	ctx := context.Background()
	o, err := s.Create(ctx, twoDayInput())
	require.NoError(t, err)

	in := twoDayInput()
	in.Status = StatusConfirmed
	_, err = s.Update(ctx, o.ID, in)
	require.NoError(t, err)
	assert.Zero(t, bills.calls)

	in.Status = StatusInProgress
	got, err := s.Update(ctx, o.ID, in)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, got.Status)
	assert.Equal(t, 1, bills.calls)
	assert.Equal(t, "bill-"+o.ID, bills.billed[o.ID])

	// saving again without a status change leaves billing alone
	_, err = s.Update(ctx, o.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 1, bills.calls)
}

func TestUpdate_BillFailureKeepsStatus(t *testing.T) {
	s, bills := newService(t)
	bills.failing = true
	ctx := context.Background()
	o, err := s.Create(ctx, twoDayInput())
	require.NoError(t, err)

	in := twoDayInput()
	in.Status = StatusInProgress
	got, err := s.Update(ctx, o.ID, in)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, got.Status)
	assert.Equal(t, 1, bills.calls)
}

func setupRouter(bills BillLinker) (*gin.Engine, *Service) {
	gin.SetMode(gin.TestMode)
	s := NewService(NewInMemoryRepository())
	s.SetBillLinker(bills)
	r := gin.New()
	NewHandler(s).Register(r.Group("/orders"))
	return r, s
}

func do(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
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

func TestHandler_CreateAcceptsLegacyAmounts(t *testing.T) {
	r, _ := setupRouter(&fakeBills{billed: map[string]string{}})

	body := map[string]any{
		"customerId": "cust-1",
		"mealTypeAmounts": map[string]any{
			"lunch":              4000,
			"session_DINNER_001": map[string]any{"amount": 2500.5, "date": "2024-03-02"},
		},
	}
	w := do(r, http.MethodPost, "/orders", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var o Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &o))
	assert.Equal(t, meals.LegacyAmount(4000), o.MealTypeAmounts["lunch"])
	assert.Equal(t, 6500.5, o.TotalAmount)
}

func TestHandler_StatusWarningWhenBillFails(t *testing.T) {
	r, s := setupRouter(&fakeBills{billed: map[string]string{}, failing: true})
	o, err := s.Create(context.Background(), twoDayInput())
	require.NoError(t, err)

	w := do(r, http.MethodPatch, "/orders/"+o.ID+"/status", gin.H{"status": StatusInProgress})
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "status updated, but bill creation failed", body["warning"])
}

func TestHandler_ErrorMapping(t *testing.T) {
	r, s := setupRouter(&fakeBills{billed: map[string]string{}})
	o, err := s.Create(context.Background(), twoDayInput())
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"missing order", http.MethodGet, "/orders/nope", nil, http.StatusNotFound},
		{"bad transition", http.MethodPatch, "/orders/" + o.ID + "/status", gin.H{"status": StatusCompleted}, http.StatusConflict},
		{"missing status", http.MethodPatch, "/orders/" + o.ID + "/status", gin.H{}, http.StatusBadRequest},
		{"unknown session", http.MethodPost, "/orders/" + o.ID + "/detach/session", gin.H{"sessionKey": "x"}, http.StatusNotFound},
		{"unknown date", http.MethodPost, "/orders/" + o.ID + "/detach/date", gin.H{"date": "2030-01-01"}, http.StatusNotFound},
		{"merge one", http.MethodPost, "/orders/merge", gin.H{"orderIds": []string{o.ID}}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestHandler_GroupedAndDetach(t *testing.T) {
	r, s := setupRouter(&fakeBills{billed: map[string]string{}})
	o, err := s.Create(context.Background(), twoDayInput())
	require.NoError(t, err)

	w := do(r, http.MethodGet, "/orders/"+o.ID+"/grouped", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var groups []meals.DateGroup
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &groups))
	require.Len(t, groups, 2)
	assert.Equal(t, "2024-03-01", groups[0].Date)

	w = do(r, http.MethodPost, "/orders/"+o.ID+"/detach/date", gin.H{"date": "2024-03-02"})
	require.Equal(t, http.StatusCreated, w.Code)
	var res DetachResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Len(t, res.Detached.Items, 2)
}
