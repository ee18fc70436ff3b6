// Package domain provides validated primitives used at trust boundaries.
package domain

import (
	dErrors "sbname/pkg/domain-errors"
)

// MaxCodeDigits bounds a product code to what fits an int64, so every valid
// code stays integer-like.
const MaxCodeDigits = 18

// ProductCode is a digits-only article number. Leading zeros are significant.
type ProductCode string

// ParseCode extracts the leading run of ASCII digits from raw.
//
// Input such as "2525 (75 cl)" yields "2525". Input that does not start with a
// digit, or whose digit run is too long to be an integer, is rejected with
// CodeInvalidInput. The resolver maps that to a NotFound outcome.
func ParseCode(raw string) (ProductCode, error) {
	end := 0
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	if end == 0 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "product code must start with a digit")
	}
	if end > MaxCodeDigits {
		return "", dErrors.New(dErrors.CodeInvalidInput, "product code is too long")
	}
	return ProductCode(raw[:end]), nil
}

// ParseExactCode is ParseCode for inputs that must be a code and nothing
// else, such as a cache key addressed directly. Trailing text is rejected.
func ParseExactCode(raw string) (ProductCode, error) {
	code, err := ParseCode(raw)
	if err != nil {
		return "", err
	}
	if len(code) != len(raw) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "product code must contain only digits")
	}
	return code, nil
}

func (c ProductCode) String() string { return string(c) }

func (c ProductCode) IsNil() bool { return c == "" }
