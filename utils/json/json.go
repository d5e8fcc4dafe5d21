// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package json provides JSON encodings for 256-bit amounts, which do not
// survive a round trip through float64. Narrower integers use
// github.com/luxfi/utils/json.
package json

import (
	"github.com/holiman/uint256"

	avajson "github.com/luxfi/utils/json"
)

func unquote(b []byte) string {
	str := string(b)
	if len(str) >= 2 {
		if lastIndex := len(str) - 1; str[0] == '"' && str[lastIndex] == '"' {
			str = str[1:lastIndex]
		}
	}
	return str
}

// Uint256 is a 256-bit unsigned integer marshaled as a decimal string.
type Uint256 uint256.Int

// NewUint256 copies x. A nil x is zero.
func NewUint256(x *uint256.Int) Uint256 {
	if x == nil {
		return Uint256{}
	}
	return Uint256(*x)
}

// Int returns a copy of u as a uint256.Int.
func (u Uint256) Int() *uint256.Int {
	i := uint256.Int(u)
	return &i
}

func (u Uint256) String() string {
	return u.Int().Dec()
}

func (u Uint256) MarshalJSON() ([]byte, error) {
	return []byte(`"` + u.String() + `"`), nil
}

func (u *Uint256) UnmarshalJSON(b []byte) error {
	if string(b) == avajson.Null {
		return nil
	}
	val, err := uint256.FromDecimal(unquote(b))
	if err != nil {
		return err
	}
	*u = Uint256(*val)
	return nil
}
