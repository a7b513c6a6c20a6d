// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from form input
// and rendering backend amounts in the user's currency.
package core

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string to a positive amount rounded to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half away from zero on the third decimal place.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,345") -> 12.35, nil
//	ParseAmount("-1")     -> 0, ErrInvalidAmount
//	ParseAmount("1e3")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	// Plain digits with at most one separator; no sign or exponent.
	if strings.Count(s, ".") > 1 || strings.Trim(s, "0123456789.") != "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return 0, ErrInvalidAmount
	}
	amount := d.InexactFloat64()
	if !ValidAmount(amount) {
		return 0, ErrInvalidAmount
	}
	return amount, nil
}

// MaxAmount bounds every amount sent to the backend. Larger values lose
// cent precision as float64.
const MaxAmount = 1e12

// ValidAmount reports whether amount is finite, positive and at most
// MaxAmount.
func ValidAmount(amount float64) bool {
	return amount > 0 && amount <= MaxAmount && !math.IsInf(amount, 0) && !math.IsNaN(amount)
}

// Cents converts a backend float amount to integer cents.
func Cents(amount float64) int64 {
	return decimal.NewFromFloat(amount).Shift(2).Round(0).IntPart()
}

// FormatMoney renders an amount with the currency symbol, thousands grouping
// and two decimals, e.g. "₹1,234.50".
func FormatMoney(amount float64, cur Currency) string {
	cents := Cents(amount)
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%s%s.%02d", sign, cur.Symbol(), humanize.Comma(cents/100), cents%100)
}

// FormatPlain renders an amount with two decimals and no symbol, for exports.
func FormatPlain(amount float64) string {
	return decimal.NewFromFloat(amount).StringFixed(2)
}
