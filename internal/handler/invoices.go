package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/set-night/invoicedesk/internal/domain"
)

type createInvoiceRequest struct {
	CustomerID *int64          `json:"customer_id"`
	Amount     json.RawMessage `json:"amount"`
	Currency   *string         `json:"currency"`
	IssuedAt   json.RawMessage `json:"issued_at"`
	DueAt      json.RawMessage `json:"due_at"`
	Status     *string         `json:"status"`
}

func (req *createInvoiceRequest) params() (domain.InvoiceParams, error) {
	verr := &domain.ValidationError{}
	amount := amountField(verr, "amount", req.Amount)
	issuedAt := timeField(verr, "issued_at", req.IssuedAt)
	dueAt := timeField(verr, "due_at", req.DueAt)

	required := map[string]bool{
		"customer_id": req.CustomerID == nil,
		"amount":      amount == nil,
		"currency":    req.Currency == nil,
		"issued_at":   issuedAt == nil,
		"due_at":      dueAt == nil,
	}
	for field, missing := range required {
		if missing {
			verr.Add(field, "field required")
		}
	}
	if err := verr.Err(); err != nil {
		return domain.InvoiceParams{}, err
	}

	params := domain.InvoiceParams{
		CustomerID: *req.CustomerID,
		Amount:     *amount,
		Currency:   *req.Currency,
		IssuedAt:   *issuedAt,
		DueAt:      *dueAt,
	}
	if req.Status != nil {
		params.Status = domain.InvoiceStatus(strings.ToUpper(strings.TrimSpace(*req.Status)))
	}
	return params, nil
}

type updateInvoiceRequest struct {
	CustomerID *int64          `json:"customer_id"`
	Amount     json.RawMessage `json:"amount"`
	Currency   *string         `json:"currency"`
	IssuedAt   json.RawMessage `json:"issued_at"`
	DueAt      json.RawMessage `json:"due_at"`
	Status     *string         `json:"status"`
}

func (req *updateInvoiceRequest) patch() (domain.InvoicePatch, error) {
	verr := &domain.ValidationError{}
	patch := domain.InvoicePatch{
		CustomerID: req.CustomerID,
		Amount:     amountField(verr, "amount", req.Amount),
		Currency:   req.Currency,
		IssuedAt:   timeField(verr, "issued_at", req.IssuedAt),
		DueAt:      timeField(verr, "due_at", req.DueAt),
	}
	if req.Status != nil {
		verr.Add("status", "status changes go through /post and /void")
	}
	return patch, verr.Err()
}

func (h *Handler) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	params, err := req.params()
	if err != nil {
		writeError(w, r, err)
		return
	}

	inv, err := h.invoiceService.CreateInvoice(r.Context(), params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvoiceResponse(inv))
}

func (h *Handler) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r, true)
	if err != nil {
		writeError(w, r, err)
		return
	}

	invoices, err := h.invoiceService.ListInvoices(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceList(invoices))
}

func (h *Handler) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "invoiceID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	inv, err := h.invoiceService.GetInvoice(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceResponse(inv))
}

func (h *Handler) handleUpdateInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "invoiceID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateInvoiceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		writeError(w, r, err)
		return
	}

	inv, err := h.invoiceService.UpdateDraft(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceResponse(inv))
}

func (h *Handler) handleDeleteInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "invoiceID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.invoiceService.DeleteDraft(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handlePostInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "invoiceID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	inv, err := h.invoiceService.PostInvoice(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceResponse(inv))
}

func (h *Handler) handleVoidInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "invoiceID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	inv, err := h.invoiceService.VoidInvoice(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceResponse(inv))
}
