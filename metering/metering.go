// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package metering provides consumption observers that count ended
// transport tasks, for registration with Service.AddObserver.
package metering

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// MeterName is the instrumentation scope name of Meter.
	MeterName = "github.com/gogama/httpexec/metering"

	// MetricEnded is the name of the counter Meter increments.
	MetricEnded = "httpexec.transport.tasks.ended"
)

// A Meter records ended transport tasks on an OpenTelemetry counter.
type Meter struct {
	counter metric.Int64Counter
	attrs   metric.MeasurementOption
}

// NewMeter creates a Meter from mp. If mp is nil, the global meter
// provider is used. Each recorded measurement carries attrs.
func NewMeter(mp metric.MeterProvider, attrs ...attribute.KeyValue) (*Meter, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	c, err := mp.Meter(MeterName).Int64Counter(
		MetricEnded,
		metric.WithDescription("Number of transport tasks that ended, including retries and cancellations"),
		metric.WithUnit("{task}"),
	)
	if err != nil {
		return nil, fmt.Errorf("metering: failed to create %s counter: %w", MetricEnded, err)
	}
	return &Meter{
		counter: c,
		attrs:   metric.WithAttributes(attrs...),
	}, nil
}

// EndedRequest adds one to the counter.
func (m *Meter) EndedRequest() {
	m.counter.Add(context.Background(), 1, m.attrs)
}

// A Counter counts ended transport tasks in process. The zero value is
// ready to use and Counter is safe for concurrent use.
type Counter struct {
	n atomic.Int64
}

// EndedRequest adds one to the count.
func (c *Counter) EndedRequest() {
	c.n.Add(1)
}

// Count returns the number of ended tasks observed so far.
func (c *Counter) Count() int64 {
	return c.n.Load()
}
