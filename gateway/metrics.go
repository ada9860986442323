// Copyright 2025 ClientAssist
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	invocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clientassist_gateway_invocations_total",
			Help: "Function invocations by function and terminal status",
		},
		[]string{"function", "status"},
	)

	invocationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clientassist_gateway_invocation_duration_milliseconds",
			Help:    "End-to-end invocation latency in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"function"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clientassist_gateway_cache_lookups_total",
			Help: "Result cache lookups by outcome (hit, miss)",
		},
		[]string{"result"},
	)

	rateLimitRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clientassist_gateway_rate_limit_rejections_total",
			Help: "Invocations rejected by rate admission, by function",
		},
		[]string{"function"},
	)
)

func init() {
	prometheus.MustRegister(
		invocationsTotal,
		invocationDuration,
		cacheLookups,
		rateLimitRejections,
	)
}
