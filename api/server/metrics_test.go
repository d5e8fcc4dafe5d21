// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistrationFailure(t *testing.T) {
	require := require.New(t)

	reg := prometheus.NewRegistry()

	m, err := newMetrics(reg)
	require.NoError(err)
	require.NotNil(m)

	m, err = newMetrics(reg)
	require.Error(err)
	require.Nil(m)
}

func TestMetricsWrapHandler(t *testing.T) {
	require := require.New(t)

	reg := prometheus.NewRegistry()
	m, err := newMetrics(reg)
	require.NoError(err)

	var inflight float64
	handler := m.wrapHandler("deft", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		inflight = testutil.ToFloat64(m.inflight)
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/ext/deft", nil))
	}
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ext/deft", nil))

	require.Equal(1.0, inflight)
	require.Zero(testutil.ToFloat64(m.inflight))
	require.Equal(3.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodPost, "deft")))
	require.Equal(1.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "deft")))
	require.Equal(2, testutil.CollectAndCount(m.duration))
}
