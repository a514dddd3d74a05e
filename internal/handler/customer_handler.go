package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	appErrors "github.com/apexcrm/campaign-manager/internal/errors"
	"github.com/apexcrm/campaign-manager/internal/model"
	"github.com/apexcrm/campaign-manager/internal/repository"
)

type CustomerHandler struct {
	Customers repository.CustomerRepositoryInterface
	Orders    repository.OrderRepositoryInterface
	Log       zerolog.Logger
}

func (h *CustomerHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var c model.Customer
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, appErrors.NewValidation("invalid request body: %v", err))
		return
	}
	if err := c.Validate(); err != nil {
		writeError(w, err)
		return
	}

	if err := h.Customers.Create(r.Context(), &c); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *CustomerHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.Customers.ListAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

func (h *CustomerHandler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, appErrors.NewValidation("invalid customer id"))
		return
	}
	if err := h.Customers.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "customer deleted"})
}

func (h *CustomerHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var o model.Order
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		writeError(w, appErrors.NewValidation("invalid request body: %v", err))
		return
	}
	if err := o.Validate(); err != nil {
		writeError(w, err)
		return
	}

	if err := h.Orders.Create(r.Context(), &o); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *CustomerHandler) ListCustomerOrders(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, appErrors.NewValidation("invalid customer id"))
		return
	}
	if _, err := h.Customers.GetByID(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	orders, err := h.Orders.ListByCustomer(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}
