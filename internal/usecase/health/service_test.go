package health

import (
	"context"
	"errors"
	"testing"

	"github.com/caselex/caselex/internal/domain/area"
	"github.com/caselex/caselex/internal/repository/indexstore"
)

type mockPinger struct{ err error }

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

type mockChecker struct{ err error }

func (m *mockChecker) HealthCheck(_ context.Context) error { return m.err }

type mockInspector struct {
	areas []area.Area
	err   error
}

func (m *mockInspector) Areas() ([]area.Area, error) { return m.areas, m.err }

func (m *mockInspector) Load(a area.Area) (*indexstore.AreaIndex, error) {
	return indexstore.NewAreaIndex(a, 2)
}

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockPinger{}, &mockChecker{}, nil, &mockInspector{areas: []area.Area{"labor_law"}})

	report := svc.Check(context.Background())
	if report.Status != Healthy {
		t.Fatalf("status = %s, want %s", report.Status, Healthy)
	}
	if report.Checks["database"] != CheckOK || report.Checks["embedding"] != CheckOK {
		t.Errorf("unexpected checks: %v", report.Checks)
	}
	if _, ok := report.AreaSizes["labor_law"]; !ok {
		t.Error("expected labor_law size in report")
	}
}

func TestCheck_EmbeddingDownIsDegraded(t *testing.T) {
	svc := New(&mockPinger{}, &mockChecker{err: errors.New("api down")}, nil, &mockInspector{})

	report := svc.Check(context.Background())
	if report.Status != Degraded {
		t.Fatalf("status = %s, want %s", report.Status, Degraded)
	}
	if report.Checks["embedding"] != CheckError {
		t.Errorf("expected embedding error, got %v", report.Checks)
	}
	if report.Checks["database"] != CheckOK {
		t.Errorf("database should still be ok, got %v", report.Checks)
	}
}

func TestCheck_NilOptionalComponents(t *testing.T) {
	svc := New(nil, nil, nil, &mockInspector{})

	report := svc.Check(context.Background())
	if report.Status != Healthy {
		t.Fatalf("status = %s, want %s", report.Status, Healthy)
	}
	if _, ok := report.Checks["embedding"]; ok {
		t.Error("nil embedding checker must not be reported")
	}
}

func TestCheck_IndexListingError(t *testing.T) {
	svc := New(nil, nil, nil, &mockInspector{err: errors.New("io error")})

	report := svc.Check(context.Background())
	if report.Status != Degraded {
		t.Fatalf("status = %s, want %s", report.Status, Degraded)
	}
	if report.Checks["indexes"] != CheckError {
		t.Errorf("expected indexes error, got %v", report.Checks)
	}
}
