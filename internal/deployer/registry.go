package deployer

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/dosanma1/chartpack/internal/chart"
)

// Factory creates a deployer for a remote configuration.
type Factory func(cfg Config, layout chart.Layout, logger *slog.Logger) Deployer

// Registry of available deployers
var deployers = map[string]Factory{
	"qrs": func(cfg Config, layout chart.Layout, logger *slog.Logger) Deployer {
		return NewQRSDeployer(cfg, layout, logger)
	},
}

// GetDeployer returns a deployer instance by name
func GetDeployer(name string, cfg Config, layout chart.Layout, logger *slog.Logger) (Deployer, error) {
	factory, ok := deployers[name]
	if !ok {
		return nil, fmt.Errorf("unknown deployer: %s (available: %s)", name, strings.Join(ListDeployers(), ", "))
	}
	return factory(cfg, layout, logger), nil
}

// ListDeployers returns all registered deployer names
func ListDeployers() []string {
	names := make([]string, 0, len(deployers))
	for name := range deployers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
