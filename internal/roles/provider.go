// Package roles answers "what may the current user do" for the workflow's
// permission predicates.
package roles

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/aditpras/loan-workflow/internal/domain/workflow"
)

// Provider is the role-query collaborator
type Provider interface {
	CurrentRoles(ctx context.Context) ([]workflow.Role, error)
}

// StaticProvider serves a fixed role set; used for single-actor deployments
// and in tests.
type StaticProvider struct {
	roles []workflow.Role
}

// NewStaticProvider creates a provider with a fixed role set
func NewStaticProvider(roles ...workflow.Role) *StaticProvider {
	return &StaticProvider{roles: roles}
}

// CurrentRoles returns a copy of the fixed role set
func (p *StaticProvider) CurrentRoles(_ context.Context) ([]workflow.Role, error) {
	out := make([]workflow.Role, len(p.roles))
	copy(out, p.roles)
	return out, nil
}

// RemoteProvider queries the identity endpoint and caches the answer for a
// short TTL so permission checks stay synchronous and cheap.
type RemoteProvider struct {
	endpoint   string
	token      string
	ttl        time.Duration
	httpClient *http.Client

	mu        sync.Mutex
	cached    []workflow.Role
	fetchedAt time.Time
}

// RemoteConfig holds remote role provider configuration
type RemoteConfig struct {
	Endpoint string
	Token    string
	CacheTTL time.Duration
	Timeout  time.Duration
}

// NewRemoteProvider creates a provider backed by the identity endpoint
func NewRemoteProvider(cfg RemoteConfig) *RemoteProvider {
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = time.Minute
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &RemoteProvider{
		endpoint:   cfg.Endpoint,
		token:      cfg.Token,
		ttl:        ttl,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// CurrentRoles returns the caller's roles, refreshing the cache when the TTL lapsed
func (p *RemoteProvider) CurrentRoles(ctx context.Context) ([]workflow.Role, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil && time.Since(p.fetchedAt) < p.ttl {
		out := make([]workflow.Role, len(p.cached))
		copy(out, p.cached)
		return out, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build roles request: %w", err)
	}
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("roles endpoint returned %d", resp.StatusCode)
	}

	var payload struct {
		Roles []workflow.Role `json:"roles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode roles: %w", err)
	}

	p.cached = payload.Roles
	p.fetchedAt = time.Now()

	out := make([]workflow.Role, len(p.cached))
	copy(out, p.cached)
	return out, nil
}
