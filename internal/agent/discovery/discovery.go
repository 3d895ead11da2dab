// Package discovery locates vendor CLI binaries on the host. Explicit
// config overrides win; otherwise PATH is consulted, then the usual
// install locations package managers drop binaries into.
package discovery

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ninedotdev/jean/internal/agent/agents"
	"github.com/ninedotdev/jean/internal/common/logger"
)

// ErrNotInstalled means no binary was found for the vendor.
var ErrNotInstalled = errors.New("cli not installed")

// Resolver maps vendor IDs to absolute binary paths.
type Resolver struct {
	overrides map[string]string
	log       *logger.Logger
}

// NewResolver creates a resolver. overrides maps vendor ID to an
// explicit binary path from config; entries there bypass the search.
func NewResolver(overrides map[string]string, log *logger.Logger) *Resolver {
	return &Resolver{
		overrides: overrides,
		log:       log.WithFields(zap.String("component", "discovery")),
	}
}

// Resolve returns the absolute path of the vendor's binary.
func (r *Resolver) Resolve(agent agents.Agent) (string, error) {
	if override, ok := r.overrides[agent.ID()]; ok && override != "" {
		if _, err := os.Stat(override); err != nil {
			return "", fmt.Errorf("configured path for %s is not usable: %w", agent.ID(), err)
		}
		return override, nil
	}

	for _, name := range agent.BinaryNames() {
		if path, err := exec.LookPath(name); err == nil {
			abs, err := filepath.Abs(path)
			if err != nil {
				return "", err
			}
			r.log.Debug("Resolved CLI from PATH",
				zap.String("vendor", agent.ID()),
				zap.String("path", abs))
			return abs, nil
		}

		for _, dir := range searchDirs() {
			candidate := filepath.Join(dir, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				r.log.Debug("Resolved CLI from known location",
					zap.String("vendor", agent.ID()),
					zap.String("path", candidate))
				return candidate, nil
			}
		}
	}

	return "", fmt.Errorf("%w: %s (install with: %s)", ErrNotInstalled, agent.ID(), agent.InstallHint())
}

// Installed probes every vendor in the catalog and returns the paths of
// those present.
func (r *Resolver) Installed() map[string]string {
	found := make(map[string]string)
	for _, agent := range agents.All() {
		if path, err := r.Resolve(agent); err == nil {
			found[agent.ID()] = path
		}
	}
	return found
}

// searchDirs lists the locations npm, pip, and homebrew typically
// install CLIs into when they are not already on PATH.
func searchDirs() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	dirs := []string{
		"/usr/local/bin",
		"/opt/homebrew/bin",
	}
	if home != "" {
		dirs = append(dirs,
			filepath.Join(home, ".local", "bin"),
			filepath.Join(home, ".npm-global", "bin"),
			filepath.Join(home, "bin"),
		)
	}
	return dirs
}
