package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/set-night/invoicedesk/internal/config"
)

type Customer struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// NormalizeCustomerName trims the name and checks its length.
func NormalizeCustomerName(name string) (string, error) {
	name = strings.TrimSpace(name)
	verr := &ValidationError{}
	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		verr.Add("name", "must not be empty")
	case n > config.MaxCustomerNameLen:
		verr.Add("name", "must be at most 255 characters")
	}
	return name, verr.Err()
}
