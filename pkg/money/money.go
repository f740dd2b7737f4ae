package money

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Cents is a monetary amount in US cents.
type Cents int64

var errInvalidAmount = errors.New("invalid monetary amount")

// FromDollars converts whole dollars into cents.
func FromDollars(dollars int64) Cents {
	return Cents(dollars * 100)
}

// Dollars renders the amount with two decimals and no currency symbol.
func (c Cents) Dollars() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// String renders the amount as $X.XX.
func (c Cents) String() string {
	if c < 0 {
		return "-$" + (-c).Dollars()
	}
	return "$" + c.Dollars()
}

// Parse reads a decimal dollar amount such as "25", "25.5" or "$25.50".
func Parse(raw string) (Cents, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "$")
	if s == "" {
		return 0, errInvalidAmount
	}
	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, errInvalidAmount
	}
	var cents int64
	if hasFrac {
		if len(frac) == 0 || len(frac) > 2 {
			return 0, errInvalidAmount
		}
		if len(frac) == 1 {
			frac += "0"
		}
		cents, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, errInvalidAmount
		}
	}
	total := units*100 + cents
	if negative {
		total = -total
	}
	return Cents(total), nil
}
