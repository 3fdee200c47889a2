package customers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(NewService(NewInMemoryRepository())).Register(r.Group("/customers"))
	return r
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

func TestCustomerLifecycle(t *testing.T) {
	r := setupRouter()

	w := do(r, http.MethodPost, "/customers", Input{Name: "  Sharma Weddings ", Email: "OPS@Sharma.in"})
	require.Equal(t, http.StatusCreated, w.Code)

	var created Customer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "Sharma Weddings", created.Name)
	assert.Equal(t, "ops@sharma.in", created.Email)

	w = do(r, http.MethodPut, "/customers/"+created.ID, Input{Name: "Sharma Events", Phone: "98200 00000"})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/customers/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got Customer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Sharma Events", got.Name)
	assert.Equal(t, created.CreatedAt.Unix(), got.CreatedAt.Unix())

	w = do(r, http.MethodGet, "/customers", nil)
	var list []Customer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/customers/"+created.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/customers/"+created.ID, nil).Code)
}

func TestCustomerValidation(t *testing.T) {
	r := setupRouter()

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/customers", Input{Name: "  "}).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPut, "/customers/missing", Input{Name: "x"}).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, "/customers/missing", nil).Code)
}
