// Package money holds the Money value type. Amounts are stored in paisa
// (1/100 rupee) so arithmetic never touches floating point; JSON carries
// rupees as a decimal number to stay compatible with the storefront client.
package money

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

type Money int64

// Rupees builds an amount from whole rupees.
func Rupees(n int64) Money { return Money(n * 100) }

// FromFloat converts a rupee amount, rounding to the nearest paisa.
func FromFloat(f float64) Money { return Money(math.Round(f * 100)) }

func (m Money) Float() float64 { return float64(m) / 100 }

// Mul multiplies by a quantity.
func (m Money) Mul(qty int) Money { return m * Money(qty) }

// Rate applies a fractional rate (0.13 for 13%), rounding half away from zero.
func (m Money) Rate(r float64) Money { return Money(math.Round(float64(m) * r)) }

// String renders two fixed decimals, e.g. "2460.00".
func (m Money) String() string { return strconv.FormatFloat(m.Float(), 'f', 2, 64) }

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(m.Float(), 'f', -1, 64)), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*m = 0
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("money: %w", err)
	}
	*m = FromFloat(f)
	return nil
}
