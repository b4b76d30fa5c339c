package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome labels for auth counters
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// AuthMetrics counts account lifecycle events. A nil *AuthMetrics records nothing.
type AuthMetrics struct {
	registrations metric.Int64Counter
	logins        metric.Int64Counter
	refreshes     metric.Int64Counter
	refreshReuses metric.Int64Counter
}

// NewAuthMetrics creates the auth counters on the given meter
func NewAuthMetrics(meter metric.Meter) (*AuthMetrics, error) {
	registrations, err := meter.Int64Counter("account_registrations_total",
		metric.WithDescription("Accounts registered"))
	if err != nil {
		return nil, fmt.Errorf("failed to create registrations counter: %w", err)
	}

	logins, err := meter.Int64Counter("account_logins_total",
		metric.WithDescription("Login attempts by result"))
	if err != nil {
		return nil, fmt.Errorf("failed to create logins counter: %w", err)
	}

	refreshes, err := meter.Int64Counter("account_token_refreshes_total",
		metric.WithDescription("Token refresh attempts by result"))
	if err != nil {
		return nil, fmt.Errorf("failed to create refreshes counter: %w", err)
	}

	refreshReuses, err := meter.Int64Counter("account_refresh_token_reuse_total",
		metric.WithDescription("Refresh tokens presented after being rotated or revoked"))
	if err != nil {
		return nil, fmt.Errorf("failed to create reuse counter: %w", err)
	}

	return &AuthMetrics{
		registrations: registrations,
		logins:        logins,
		refreshes:     refreshes,
		refreshReuses: refreshReuses,
	}, nil
}

func (m *AuthMetrics) Registered(ctx context.Context) {
	if m == nil {
		return
	}
	m.registrations.Add(ctx, 1)
}

func (m *AuthMetrics) Login(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.logins.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *AuthMetrics) Refresh(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.refreshes.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *AuthMetrics) RefreshReuse(ctx context.Context) {
	if m == nil {
		return
	}
	m.refreshReuses.Add(ctx, 1)
}
