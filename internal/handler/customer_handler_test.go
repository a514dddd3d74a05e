package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	appErrors "github.com/apexcrm/campaign-manager/internal/errors"
	"github.com/apexcrm/campaign-manager/internal/handler"
	"github.com/apexcrm/campaign-manager/internal/model"
)

type mockOrderRepo struct {
	orders []model.Order
}

func (m *mockOrderRepo) Create(ctx context.Context, o *model.Order) error {
	if o.CustomerID != 1 {
		return appErrors.NewCustomerNotFound(o.CustomerID)
	}
	o.ID = len(m.orders) + 1
	m.orders = append(m.orders, *o)
	return nil
}
func (m *mockOrderRepo) ListByCustomer(ctx context.Context, customerID int) ([]model.Order, error) {
	return m.orders, nil
}

func customerRouter(customers *mockCustomerRepo, orders *mockOrderRepo) chi.Router {
	h := &handler.CustomerHandler{Customers: customers, Orders: orders, Log: zerolog.Nop()}
	r := chi.NewRouter()
	r.Post("/customers", h.CreateCustomer)
	r.Get("/customers", h.ListCustomers)
	r.Delete("/customers/{id}", h.DeleteCustomer)
	r.Post("/orders", h.CreateOrder)
	return r
}

func TestCreateCustomerEndpoint(t *testing.T) {
	r := customerRouter(&mockCustomerRepo{}, &mockOrderRepo{})

	body, _ := json.Marshal(model.Customer{Name: "Ann", Email: "a@x.com", TotalSpend: 600})
	req := httptest.NewRequest("POST", "/customers", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCreateCustomerValidation(t *testing.T) {
	r := customerRouter(&mockCustomerRepo{}, &mockOrderRepo{})

	cases := []string{
		`{"email":"a@x.com"}`,
		`{"name":"Ann"}`,
		`{"name":"Ann","email":"a@x.com","total_spend":-5}`,
		`not json`,
	}
	for _, body := range cases {
		req := httptest.NewRequest("POST", "/customers", bytes.NewReader([]byte(body)))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, w.Code)
		}
	}
}

func TestCreateOrderEndpoint(t *testing.T) {
	orders := &mockOrderRepo{}
	r := customerRouter(&mockCustomerRepo{}, orders)

	body := []byte(`{"customer_id":1,"order_amount":49.99}`)
	req := httptest.NewRequest("POST", "/orders", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	// Unknown customer is 404, zero amount is 400.
	req = httptest.NewRequest("POST", "/orders", bytes.NewReader([]byte(`{"customer_id":2,"order_amount":10}`)))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown customer, got %d", w.Code)
	}

	req = httptest.NewRequest("POST", "/orders", bytes.NewReader([]byte(`{"customer_id":1,"order_amount":0}`)))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for zero amount, got %d", w.Code)
	}
}
