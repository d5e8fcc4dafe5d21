// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package deft

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStateString(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{Unknown, "Unknown"},
		{Bootstrapping, "Bootstrapping"},
		{NormalOp, "NormalOp"},
		{State(42), "Unknown"},
	}
	for _, test := range tests {
		require.Equal(t, test.expected, test.state.String())
	}
}
