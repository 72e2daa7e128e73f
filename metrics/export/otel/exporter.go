// Package otel bridges the engine's counter registry into an
// OpenTelemetry meter using observable instruments: each collection
// cycle reads a fresh snapshot instead of double-counting increments.
package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/metric"

	"github.com/docuvault/authcore"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() authcore.MetricsSnapshot
	AuditDropped() uint64
}

type counterDef struct {
	id   authcore.MetricID
	name string
	help string
}

var counterDefs = []counterDef{
	{authcore.MetricLoginSuccess, "authcore_login_success_total", "Successful logins."},
	{authcore.MetricLoginFailure, "authcore_login_failure_total", "Failed credential checks."},
	{authcore.MetricLoginRateLimited, "authcore_login_rate_limited_total", "Logins refused by the failure throttle."},
	{authcore.MetricSecondFactorIssued, "authcore_second_factor_issued_total", "Second-factor challenges issued."},
	{authcore.MetricSecondFactorSuccess, "authcore_second_factor_success_total", "Second-factor verifications that succeeded."},
	{authcore.MetricSecondFactorFailure, "authcore_second_factor_failure_total", "Second-factor verifications that failed."},
	{authcore.MetricSecondFactorExceeded, "authcore_second_factor_exceeded_total", "Second-factor challenges killed by attempt exhaustion."},
	{authcore.MetricRecoveryStarted, "authcore_recovery_started_total", "Recovery flows started."},
	{authcore.MetricRecoveryOTPSuccess, "authcore_recovery_otp_success_total", "Recovery OTP verifications that succeeded."},
	{authcore.MetricRecoveryOTPFailure, "authcore_recovery_otp_failure_total", "Recovery OTP verifications that failed."},
	{authcore.MetricRecoveryOTPExceeded, "authcore_recovery_otp_exceeded_total", "Recovery challenges killed by attempt exhaustion."},
	{authcore.MetricResetSuccess, "authcore_reset_success_total", "Password resets applied."},
	{authcore.MetricResetFailure, "authcore_reset_failure_total", "Password resets rejected."},
	{authcore.MetricResetTokenReuse, "authcore_reset_token_reuse_total", "Reset tokens redeemed more than once."},
	{authcore.MetricAccessValidated, "authcore_access_validated_total", "Access tokens accepted."},
	{authcore.MetricAccessRejected, "authcore_access_rejected_total", "Access tokens rejected."},
}

type observedCounter struct {
	id         authcore.MetricID
	instrument metric.Int64ObservableCounter
}

type Exporter struct {
	source       metricsSource
	registration metric.Registration
	counters     []observedCounter
	auditDropped metric.Int64ObservableCounter
}

// NewExporter registers the engine's counters on the meter.
func NewExporter(meter metric.Meter, engine *authcore.Engine) (*Exporter, error) {
	return NewExporterFromSource(meter, engine)
}

// NewExporterFromSource is NewExporter for any snapshot source, which
// keeps tests away from a fully built engine.
func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &Exporter{
		source:   source,
		counters: make([]observedCounter, 0, len(counterDefs)),
	}

	observables := make([]metric.Observable, 0, len(counterDefs)+1)

	for _, def := range counterDefs {
		ins, err := meter.Int64ObservableCounter(def.name, metric.WithDescription(def.help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.name, err)
		}
		exporter.counters = append(exporter.counters, observedCounter{id: def.id, instrument: ins})
		observables = append(observables, ins)
	}

	auditDropped, err := meter.Int64ObservableCounter(
		"authcore_audit_dropped_total",
		metric.WithDescription("Dropped audit events due to dispatcher backpressure."),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	exporter.auditDropped = auditDropped
	observables = append(observables, auditDropped)

	registration, err := meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		snapshot := exporter.source.MetricsSnapshot()
		for _, c := range exporter.counters {
			observer.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]))
		}
		observer.ObserveInt64(exporter.auditDropped, int64(exporter.source.AuditDropped()))
		return nil
	}, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}

	exporter.registration = registration
	return exporter, nil
}

// Close unregisters the collection callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
