package handler

import (
	"encoding/json"
	"net/http"

	"github.com/set-night/invoicedesk/internal/domain"
)

type recordPaymentRequest struct {
	Amount json.RawMessage `json:"amount"`
	PaidAt json.RawMessage `json:"paid_at"`
}

func (h *Handler) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := pathID(r, "invoiceID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req recordPaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	verr := &domain.ValidationError{}
	amount := amountField(verr, "amount", req.Amount)
	paidAt := timeField(verr, "paid_at", req.PaidAt)
	if amount == nil {
		verr.Add("amount", "field required")
	}
	if err := verr.Err(); err != nil {
		writeError(w, r, err)
		return
	}

	payment, err := h.paymentService.RecordPayment(r.Context(), invoiceID, domain.PaymentParams{
		Amount: *amount,
		PaidAt: paidAt,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentResponse(payment))
}
