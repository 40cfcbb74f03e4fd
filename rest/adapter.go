// Copyright (c) 2025 RouteForge Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"errors"
	"strconv"
)

// Adapter coerces a raw string input, commonly a URL query value, into a
// typed value. The present flag distinguishes an absent input from an
// empty string; absent inputs coerce to nil ("absent means undefined").
//
// Adapters only parse. A returned error is surfaced by the enclosing
// schema as a field validation failure, never raised directly.
type Adapter func(raw string, present bool) (any, error)

var (
	errNotANumber  = errors.New("is not a number")
	errNotPositive = errors.New("must be greater than 0")
)

// StringAdapter passes the raw value through unchanged.
func StringAdapter(raw string, present bool) (any, error) {
	if !present {
		return nil, nil
	}
	return raw, nil
}

// BoolAdapter coerces to a boolean. Only the literal strings "true" and
// "1" coerce to true; every other present value, including "false" and
// the empty string, coerces to false.
func BoolAdapter(raw string, present bool) (any, error) {
	if !present {
		return nil, nil
	}
	return raw == "true" || raw == "1", nil
}

// IntAdapter coerces to an integer, truncating at the first non-digit
// after an optional leading sign. "123abc" parses as 123. Input without a
// leading digit fails field validation downstream.
func IntAdapter(raw string, present bool) (any, error) {
	if !present {
		return nil, nil
	}

	i := 0
	if i < len(raw) && (raw[i] == '-' || raw[i] == '+') {
		i++
	}
	start := i
	for i < len(raw) && raw[i] >= '0' && raw[i] <= '9' {
		i++
	}
	if i == start {
		return nil, errNotANumber
	}

	n, err := strconv.ParseInt(raw[:i], 10, 64)
	if err != nil {
		return nil, errNotANumber
	}
	return n, nil
}

// PositiveAdapter coerces to a number and requires it to be greater than
// zero. Non-numeric, zero and negative values fail field validation.
func PositiveAdapter(raw string, present bool) (any, error) {
	if !present {
		return nil, nil
	}

	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, errNotANumber
	}
	if n <= 0 {
		return nil, errNotPositive
	}
	return n, nil
}
