// Package services defines the external collaborator contracts the executor
// depends on (secrets, billing, observability, result storage) and the
// built-in implementations.
package services

import (
	"context"
	"os"
	"strings"
)

// EnvironmentService supplies decrypted environment variables for a user.
// Decryption failure is load-bearing: the executor aborts before any block
// runs, since downstream blocks cannot function without their secrets.
type EnvironmentService interface {
	GetDecryptedEnvironmentVariables(ctx context.Context, userID string) (map[string]string, error)
}

// UsageStatus reports whether a user may start an execution.
type UsageStatus struct {
	Exceeded bool   `json:"exceeded"`
	Message  string `json:"message,omitempty"`
}

// UsageService is the billing collaborator. The executor refuses to start a
// run when limits are exceeded.
type UsageService interface {
	CheckUsageLimits(ctx context.Context, userID string) (UsageStatus, error)
}

// StaticEnvironment serves a fixed variable map, used by the CLI and tests.
type StaticEnvironment struct {
	Vars map[string]string
}

func (s *StaticEnvironment) GetDecryptedEnvironmentVariables(_ context.Context, _ string) (map[string]string, error) {
	if s.Vars == nil {
		return map[string]string{}, nil
	}

	return s.Vars, nil
}

// ProcessEnvironment reads variables from the process environment, optionally
// restricted to a prefix which is stripped on the way out.
type ProcessEnvironment struct {
	Prefix string
}

func (p *ProcessEnvironment) GetDecryptedEnvironmentVariables(_ context.Context, _ string) (map[string]string, error) {
	vars := make(map[string]string)

	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}

		name := parts[0]
		if p.Prefix != "" {
			if !strings.HasPrefix(name, p.Prefix) {
				continue
			}

			name = strings.TrimPrefix(name, p.Prefix)
		}

		vars[name] = parts[1]
	}

	return vars, nil
}

// UnlimitedUsage allows every run. Deployments with billing plug in their own
// UsageService.
type UnlimitedUsage struct{}

func (u *UnlimitedUsage) CheckUsageLimits(_ context.Context, _ string) (UsageStatus, error) {
	return UsageStatus{}, nil
}
