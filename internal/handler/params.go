package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/set-night/invoicedesk/internal/config"
	"github.com/set-night/invoicedesk/internal/domain"
	"github.com/shopspring/decimal"
)

// amountField parses a JSON number or string into a money amount. A missing
// or null value yields nil; required fields are checked by the caller.
func amountField(verr *domain.ValidationError, field string, raw json.RawMessage) *decimal.Decimal {
	if isNull(raw) {
		return nil
	}
	text := string(raw)
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			verr.Add(field, "must be a decimal number")
			return nil
		}
		text = strings.TrimSpace(s)
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		verr.Add(field, "must be a decimal number")
		return nil
	}
	return &d
}

// timeField parses an RFC 3339 timestamp, a naive timestamp (UTC) or a
// YYYY-MM-DD date.
func timeField(verr *domain.ValidationError, field string, raw json.RawMessage) *time.Time {
	if isNull(raw) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		verr.Add(field, "must be a timestamp string")
		return nil
	}
	t, _, err := domain.ParseTimestamp(s)
	if err != nil {
		verr.Add(field, "must be an RFC 3339 timestamp or YYYY-MM-DD date")
		return nil
	}
	return &t
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// decodeJSON reads a JSON request body into dst. Syntax problems become 400s;
// values of the wrong type become 422s on the offending field.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, config.MaxRequestBodyBytes)
	dec := json.NewDecoder(body)

	err := dec.Decode(dst)
	if err == nil {
		if dec.More() {
			return badRequest("request body must contain a single JSON object")
		}
		return nil
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, io.EOF):
		return badRequest("request body is empty")
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return badRequest("malformed JSON body")
	case errors.As(err, &maxErr):
		return badRequest("request body too large")
	case errors.As(err, &typeErr):
		verr := &domain.ValidationError{}
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		verr.Add(field, fmt.Sprintf("must be %s", typeErr.Type.String()))
		return verr
	}
	return badRequest("invalid request body: " + err.Error())
}

func pathID(r *http.Request, param string) (int64, error) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest(fmt.Sprintf("invalid id %q", raw))
	}
	return id, nil
}

// parseFilter reads status, customer_id, from and to query parameters.
func parseFilter(r *http.Request, withCustomer bool) (domain.InvoiceFilter, error) {
	var filter domain.InvoiceFilter
	q := r.URL.Query()

	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status, err := domain.ParseInvoiceStatus(strings.ToUpper(raw))
		if err != nil {
			return filter, badRequest(err.Error())
		}
		filter.Status = &status
	}

	if withCustomer {
		if raw := strings.TrimSpace(q.Get("customer_id")); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return filter, badRequest(fmt.Sprintf("invalid customer_id %q", raw))
			}
			filter.CustomerID = &id
		}
	}

	if raw := q.Get("from"); raw != "" {
		from, _, err := domain.ParseTimestamp(raw)
		if err != nil {
			return filter, badRequest("from: " + err.Error())
		}
		filter.From = &from
	}

	if raw := q.Get("to"); raw != "" {
		to, dateOnly, err := domain.ParseTimestamp(raw)
		if err != nil {
			return filter, badRequest("to: " + err.Error())
		}
		if dateOnly {
			to = domain.EndOfDay(to)
		}
		filter.To = &to
	}

	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return filter, badRequest("from must not be after to")
	}
	return filter, nil
}
