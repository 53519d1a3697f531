// Package core holds the domain model of the tuition back office:
// students, the monthly fee ledger, money handling and the pure calendar
// arithmetic the ledger engine is built on.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseDecimalToPaise converts a decimal rupee string to paise with
// half-up rounding on the third decimal place. Both dot (12.34) and comma
// (12,34) separators are accepted. A leading minus is allowed because fee
// amounts can legitimately go negative; an empty string parses to zero,
// matching the optional fee fields on enrollment forms.
func ParseDecimalToPaise(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	s = strings.ReplaceAll(s, ",", ".")
	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	// Strict bound: at iv == maxSafe the fractional part can still
	// overflow iv*100+frac.
	const maxSafe = (1<<63 - 1) / 100
	if iv >= maxSafe {
		return 0, ErrInvalidAmount
	}
	var frac int64
	if len(fracPart) > 0 {
		frac = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			frac += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				frac++
			}
		}
	}
	paise := iv*100 + frac
	if neg {
		paise = -paise
	}
	return paise, nil
}

// Rupees returns the rupee value as float64 for display only; arithmetic
// stays in paise.
func (m Money) Rupees() float64 {
	return float64(m.Paise) / 100.0
}

// Decimal renders the bare amount with two decimal places, e.g.
// "900.00" or "-50.00".
func (m Money) Decimal() string {
	p := m.Paise
	sign := ""
	if p < 0 {
		sign = "-"
		p = -p
	}
	return sign + strconv.FormatInt(p/100, 10) + "." + pad2(int(p%100))
}

// String renders the amount the way documents and messages show it,
// e.g. "Rs 900.00" or "-Rs 50.00".
func (m Money) String() string {
	p := m.Paise
	sign := ""
	if p < 0 {
		sign = "-"
		p = -p
	}
	return sign + "Rs " + strconv.FormatInt(p/100, 10) + "." +
		pad2(int(p%100))
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return Money{Paise: m.Paise + other.Paise}
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool {
	return m.Paise == 0
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
