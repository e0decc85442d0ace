package handler

import (
	"net/http"

	"github.com/set-night/invoicedesk/internal/domain"
)

type createCustomerRequest struct {
	Name *string `json:"name"`
}

func (h *Handler) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req createCustomerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Name == nil {
		verr := &domain.ValidationError{}
		verr.Add("name", "field required")
		writeError(w, r, verr)
		return
	}

	c, err := h.customerService.CreateCustomer(r.Context(), *req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCustomerResponse(c))
}

func (h *Handler) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.customerService.ListCustomers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]customerResponse, len(customers))
	for i := range customers {
		out[i] = toCustomerResponse(&customers[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleListCustomerInvoices(w http.ResponseWriter, r *http.Request) {
	customerID, err := pathID(r, "customerID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter, err := parseFilter(r, false)
	if err != nil {
		writeError(w, r, err)
		return
	}

	invoices, err := h.invoiceService.ListCustomerInvoices(r.Context(), customerID, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceList(invoices))
}
