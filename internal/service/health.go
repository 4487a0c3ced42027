package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/clapp-dev/clapp/internal/resolver"
)

// HealthReport is the system-wide check behind "clapp check".
type HealthReport struct {
	System    *resolver.SystemReport `json:"system"`
	IndexURL  string                 `json:"index_url"`
	Connected bool                   `json:"connected"`
}

// OK reports whether every check passed.
func (h *HealthReport) OK() bool {
	return h.Connected && h.System.OK()
}

func (h *HealthReport) String() string {
	var b strings.Builder
	b.WriteString(h.System.String())
	b.WriteString("\n")
	if h.Connected {
		fmt.Fprintf(&b, "✓ remote index reachable (%s)\n", h.IndexURL)
	} else {
		fmt.Fprintf(&b, "✗ remote index unreachable (%s)\n", h.IndexURL)
	}
	if len(h.System.Invalid) == 0 {
		b.WriteString("✓ all manifests are valid\n")
	} else {
		fmt.Fprintf(&b, "✗ %d invalid manifest(s)\n", len(h.System.Invalid))
	}
	return b.String()
}

// Health resolves every installed app and checks the remote index.
func (s *Service) Health(ctx context.Context) (*HealthReport, error) {
	sys, err := s.res.ResolveSystem()
	if err != nil {
		return nil, err
	}
	return &HealthReport{
		System:    sys,
		IndexURL:  s.remote.IndexURL(),
		Connected: s.remote.CheckConnectivity(ctx),
	}, nil
}
