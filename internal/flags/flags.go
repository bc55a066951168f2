// Package flags resolves feature flag state across environment,
// platform, organization, and user scopes.
package flags

import (
	"context"
	"os"
	"strconv"
	"strings"

	"sideline/internal/store"
)

// Known flag keys. Unknown keys still resolve; they just default off.
const (
	KeyEntityResolution = "entity_resolution"
	KeyPipelineV2       = "pipeline_v2"
)

// Provider supplies stored flag rows. *store.Store satisfies it.
type Provider interface {
	GetFlag(ctx context.Context, key string, scope store.FlagScope, scopeID string) (*store.FeatureFlag, error)
	ListFlags(ctx context.Context) ([]*store.FeatureFlag, error)
}

// Evaluator answers flag lookups. Environment overrides are snapshotted
// at construction so a long-running daemon sees a stable view.
type Evaluator struct {
	provider Provider
	env      map[string]bool
}

// NewEvaluator builds an evaluator backed by provider. envPrefix names
// the environment namespace, e.g. SIDELINE_FLAG_ so that
// SIDELINE_FLAG_ENTITY_RESOLUTION=true forces a flag on everywhere.
func NewEvaluator(provider Provider, envPrefix string) *Evaluator {
	return &Evaluator{
		provider: provider,
		env:      snapshotEnv(envPrefix, os.Environ()),
	}
}

// NewEvaluatorFromEnviron is NewEvaluator with an explicit environment,
// used by tests.
func NewEvaluatorFromEnviron(provider Provider, envPrefix string, environ []string) *Evaluator {
	return &Evaluator{
		provider: provider,
		env:      snapshotEnv(envPrefix, environ),
	}
}

func snapshotEnv(prefix string, environ []string) map[string]bool {
	overrides := make(map[string]bool)
	if prefix == "" {
		return overrides
	}
	for _, entry := range environ {
		name, value, ok := strings.Cut(entry, "=")
		if !ok || !strings.HasPrefix(name, prefix) {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(name, prefix))
		if key == "" {
			continue
		}
		enabled, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			continue
		}
		overrides[key] = enabled
	}
	return overrides
}

// IsEnabled resolves key for the given organization and user. Precedence
// is environment, then user scope, then organization scope, then
// platform scope. An unset flag is off.
func (e *Evaluator) IsEnabled(ctx context.Context, key, organizationID, userID string) (bool, error) {
	return e.resolve(ctx, key, organizationID, userID, false)
}

// IsEnabledWithDefault is IsEnabled with an explicit fallback for flags
// that ship enabled and exist only as a kill switch.
func (e *Evaluator) IsEnabledWithDefault(ctx context.Context, key, organizationID, userID string, fallback bool) (bool, error) {
	return e.resolve(ctx, key, organizationID, userID, fallback)
}

func (e *Evaluator) resolve(ctx context.Context, key, organizationID, userID string, fallback bool) (bool, error) {
	if enabled, ok := e.env[key]; ok {
		return enabled, nil
	}
	lookups := []struct {
		scope   store.FlagScope
		scopeID string
	}{
		{store.ScopeUser, userID},
		{store.ScopeOrganization, organizationID},
		{store.ScopePlatform, ""},
	}
	for _, lookup := range lookups {
		if lookup.scope != store.ScopePlatform && lookup.scopeID == "" {
			continue
		}
		flag, err := e.provider.GetFlag(ctx, key, lookup.scope, lookup.scopeID)
		if err != nil {
			return false, err
		}
		if flag != nil {
			return flag.Enabled, nil
		}
	}
	return fallback, nil
}

// Snapshot reports all stored flags plus active environment overrides.
// Environment entries use scope "environment" and have no scope ID.
func (e *Evaluator) Snapshot(ctx context.Context) ([]*store.FeatureFlag, error) {
	stored, err := e.provider.ListFlags(ctx)
	if err != nil {
		return nil, err
	}
	for key, enabled := range e.env {
		stored = append(stored, &store.FeatureFlag{
			Key:     key,
			Scope:   "environment",
			Enabled: enabled,
		})
	}
	return stored, nil
}
