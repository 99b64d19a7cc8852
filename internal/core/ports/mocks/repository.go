package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lueurxax/ekki-bot/internal/core/domain"
	"github.com/lueurxax/ekki-bot/internal/core/ports"
)

type identityKey struct {
	kind domain.IdentityKind
	id   int64
}

// Repository is a thread-safe in-memory implementation of ports.Repository.
type Repository struct {
	mu         sync.RWMutex
	identities map[identityKey]domain.Identity
	logs       []domain.InteractionLogEntry

	// UpsertIdentityFn allows overriding UpsertIdentity behavior.
	UpsertIdentityFn func(ctx context.Context, patch domain.IdentityPatch) error

	// AppendLogFn allows overriding AppendLog behavior.
	AppendLogFn func(ctx context.Context, entry domain.InteractionLogEntry) error

	// PingFn allows overriding Ping behavior.
	PingFn func(ctx context.Context) error
}

// NewRepository creates a new in-memory repository.
func NewRepository() *Repository {
	return &Repository{
		identities: make(map[identityKey]domain.Identity),
	}
}

// UpsertIdentity inserts or refreshes an identity, keeping the newest LastSeenAt.
func (r *Repository) UpsertIdentity(ctx context.Context, patch domain.IdentityPatch) error {
	if r.UpsertIdentityFn != nil {
		return r.UpsertIdentityFn(ctx, patch)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := identityKey{kind: patch.Kind, id: patch.ExternalID}

	existing, ok := r.identities[key]
	if !ok {
		r.identities[key] = domain.Identity{
			Kind:        patch.Kind,
			ExternalID:  patch.ExternalID,
			DisplayName: patch.DisplayName,
			Handle:      patch.Handle,
			LastSeenAt:  patch.LastSeenAt,
			CreatedAt:   patch.LastSeenAt,
		}

		return nil
	}

	if patch.LastSeenAt.Before(existing.LastSeenAt) {
		return nil
	}

	existing.DisplayName = patch.DisplayName
	existing.Handle = patch.Handle
	existing.LastSeenAt = patch.LastSeenAt
	r.identities[key] = existing

	return nil
}

// GetIdentity returns a copy of the stored identity or nil.
func (r *Repository) GetIdentity(_ context.Context, kind domain.IdentityKind, externalID int64) (*domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identity, ok := r.identities[identityKey{kind: kind, id: externalID}]
	if !ok {
		return nil, nil
	}

	return &identity, nil
}

// SetBlocked flips the blocked flag of an existing identity.
func (r *Repository) SetBlocked(_ context.Context, kind domain.IdentityKind, externalID int64, blocked bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := identityKey{kind: kind, id: externalID}

	identity, ok := r.identities[key]
	if !ok {
		return false, nil
	}

	identity.Blocked = blocked
	r.identities[key] = identity

	return true, nil
}

// CountIdentities counts identities matching the filter.
func (r *Repository) CountIdentities(_ context.Context, filter domain.IdentityFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64

	for _, identity := range r.identities {
		if matches(identity, filter) {
			count++
		}
	}

	return count, nil
}

// ListRecentIdentities lists matching identities, newest LastSeenAt first.
func (r *Repository) ListRecentIdentities(_ context.Context, filter domain.IdentityFilter, limit int) ([]domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Identity, 0, len(r.identities))

	for _, identity := range r.identities {
		if matches(identity, filter) {
			result = append(result, identity)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].LastSeenAt.After(result[j].LastSeenAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// AppendLog records an interaction log entry.
func (r *Repository) AppendLog(ctx context.Context, entry domain.InteractionLogEntry) error {
	if r.AppendLogFn != nil {
		return r.AppendLogFn(ctx, entry)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.logs = append(r.logs, entry)

	return nil
}

// CountLogs returns the number of log entries.
func (r *Repository) CountLogs(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.logs)), nil
}

// RecentLogs returns the newest entries of a chat older than before, oldest first.
func (r *Repository) RecentLogs(_ context.Context, chatID int64, before time.Time, limit int) ([]domain.InteractionLogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.InteractionLogEntry

	for _, entry := range r.logs {
		if entry.ChatID == chatID && entry.Timestamp.Before(before) {
			result = append(result, entry)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})

	if limit > 0 && len(result) > limit {
		result = result[len(result)-limit:]
	}

	return result, nil
}

// Ping reports repository health.
func (r *Repository) Ping(ctx context.Context) error {
	if r.PingFn != nil {
		return r.PingFn(ctx)
	}

	return nil
}

// Logs returns a snapshot of all log entries.
func (r *Repository) Logs() []domain.InteractionLogEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.InteractionLogEntry, len(r.logs))
	copy(out, r.logs)

	return out
}

// Put stores an identity directly, replacing any existing record.
func (r *Repository) Put(identity domain.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.identities[identityKey{kind: identity.Kind, id: identity.ExternalID}] = identity
}

func matches(identity domain.Identity, filter domain.IdentityFilter) bool {
	if filter.Kind != "" && identity.Kind != filter.Kind {
		return false
	}

	if filter.Blocked != nil && identity.Blocked != *filter.Blocked {
		return false
	}

	return true
}

// Provider implements ports.RepositoryProvider over a fixed repository or error.
type Provider struct {
	Repo ports.Repository
	Err  error

	mu    sync.Mutex
	calls int
}

// StaticProvider returns a provider that always hands out repo.
func StaticProvider(repo ports.Repository) *Provider {
	return &Provider{Repo: repo}
}

// FailingProvider returns a provider whose Acquire always fails with err.
func FailingProvider(err error) *Provider {
	return &Provider{Err: err}
}

// Acquire returns the configured repository or error.
func (p *Provider) Acquire(_ context.Context) (ports.Repository, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()

	if p.Err != nil {
		return nil, p.Err
	}

	return p.Repo, nil
}

// Calls returns how many times Acquire was invoked.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.calls
}

var (
	_ ports.Repository         = (*Repository)(nil)
	_ ports.RepositoryProvider = (*Provider)(nil)
)
