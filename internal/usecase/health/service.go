package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status is the aggregated verdict served on /health.
type Status string

const (
	// Healthy means every probe passed.
	Healthy Status = "ok"
	// Degraded means keyword retrieval still works but semantic retrieval does not.
	Degraded Status = "degraded"
	// Unhealthy means the catalog is unreachable and no search can succeed.
	Unhealthy Status = "error"
)

// CheckResult is the outcome of a single probe.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// Component names reported in Report.Checks.
const (
	ComponentCatalog   = "catalog"
	ComponentEmbedding = "embedding"
)

// DefaultProbeTimeout bounds each probe so a hung provider cannot stall /health.
const DefaultProbeTimeout = 3 * time.Second

// Report aggregates probe results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

type probe struct {
	name string
	// critical probes turn the report Unhealthy, the rest only Degraded.
	critical bool
	run      func(ctx context.Context) error
}

// Service runs the component probes.
type Service struct {
	probes  []probe
	timeout time.Duration
}

// New creates a Service. embedding can be nil.
func New(catalog CatalogPinger, embedding ProviderChecker) *Service {
	s := &Service{
		probes:  []probe{{name: ComponentCatalog, critical: true, run: catalog.Ping}},
		timeout: DefaultProbeTimeout,
	}
	if embedding != nil {
		s.probes = append(s.probes, probe{name: ComponentEmbedding, run: embedding.HealthCheck})
	}
	return s
}

// WithProbeTimeout overrides the per-probe deadline.
func (s *Service) WithProbeTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check runs all probes concurrently and folds them into one Report.
func (s *Service) Check(ctx context.Context) Report {
	var (
		mu     sync.Mutex
		checks = make(map[string]CheckResult, len(s.probes))
		status = Healthy
	)

	var g errgroup.Group
	for _, p := range s.probes {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			err := p.run(pctx)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				checks[p.name] = CheckOK
				return nil
			}
			checks[p.name] = CheckError
			switch {
			case p.critical:
				status = Unhealthy
			case status == Healthy:
				status = Degraded
			}
			return nil
		})
	}
	_ = g.Wait()

	return Report{Status: status, Checks: checks}
}
