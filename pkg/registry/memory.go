package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/multiverse-hub/inference-gateway/pkg/apierrors"
)

// MemoryStore implements Store using an in-memory map. It is used by tests
// and is suitable for single-process deployments that do not need the
// records to survive a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*ServerRecord
	// activeKeys tracks the uniqueness key for every currently-active
	// record, so Insert/Patch can reject collisions in O(1).
	activeKeys map[string]string
}

// NewMemoryStore creates an empty in-memory registry store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:    make(map[string]*ServerRecord),
		activeKeys: make(map[string]string),
	}
}

func (s *MemoryStore) Insert(ctx context.Context, record *ServerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.RegistrationID]; exists {
		return apierrors.New(apierrors.KindConflict, "registration_id already exists")
	}

	key := activeKey(record.ModelName, record.EndpointURL)
	if record.IsActive {
		if _, taken := s.activeKeys[key]; taken {
			return apierrors.New(apierrors.KindConflict, "model_name and endpoint_url combination already registered")
		}
	}

	cp := record.Clone()
	s.records[cp.RegistrationID] = cp
	if cp.IsActive {
		s.activeKeys[key] = cp.RegistrationID
	}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, registrationID string) (*ServerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[registrationID]
	if !ok {
		return nil, notFound()
	}
	return record.Clone(), nil
}

func (s *MemoryStore) Patch(ctx context.Context, registrationID string, patch Patch) (*ServerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[registrationID]
	if !ok {
		return nil, notFound()
	}

	oldKey := activeKey(record.ModelName, record.EndpointURL)
	newModelName := record.ModelName
	newEndpoint := record.EndpointURL
	if patch.ModelName != nil {
		newModelName = *patch.ModelName
	}
	if patch.EndpointURL != nil {
		newEndpoint = *patch.EndpointURL
	}
	newKey := activeKey(newModelName, newEndpoint)

	willBeActive := record.IsActive
	if patch.IsActive != nil {
		willBeActive = *patch.IsActive
	}

	if willBeActive && newKey != oldKey {
		if owner, taken := s.activeKeys[newKey]; taken && owner != registrationID {
			return nil, apierrors.New(apierrors.KindConflict, "model_name and endpoint_url combination already registered")
		}
	}

	applyPatch(record, patch)
	record.UpdatedAt = time.Now().UTC()

	if record.IsActive {
		delete(s.activeKeys, oldKey)
		s.activeKeys[newKey] = registrationID
	} else {
		delete(s.activeKeys, oldKey)
	}

	return record.Clone(), nil
}

func (s *MemoryStore) SoftDelete(ctx context.Context, registrationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[registrationID]
	if !ok {
		return nil
	}
	if record.IsActive {
		delete(s.activeKeys, activeKey(record.ModelName, record.EndpointURL))
		record.IsActive = false
		record.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (s *MemoryStore) List(ctx context.Context, filter Filter) ([]*ServerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*ServerRecord, 0)
	for _, record := range s.records {
		if matchesFilter(record, filter) {
			results = append(results, record.Clone())
		}
	}
	return results, nil
}

func (s *MemoryStore) FindHealthy(ctx context.Context, modelName string) ([]*ServerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*ServerRecord, 0)
	for _, record := range s.records {
		if record.IsActive && record.ModelName == modelName && record.HealthStatus == StatusHealthy {
			results = append(results, record.Clone())
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if !results[i].RegisteredAt.Equal(results[j].RegisteredAt) {
			return results[i].RegisteredAt.Before(results[j].RegisteredAt)
		}
		return results[i].RegistrationID < results[j].RegistrationID
	})
	return results, nil
}

func (s *MemoryStore) CountServers(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, record := range s.records {
		if record.IsActive {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) CountModels(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	models := make(map[string]struct{})
	for _, record := range s.records {
		if record.IsActive {
			models[record.ModelName] = struct{}{}
		}
	}
	return len(models), nil
}

func (s *MemoryStore) Stats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{Models: make(map[string]int)}
	for _, record := range s.records {
		if !record.IsActive {
			continue
		}
		stats.TotalServers++
		stats.Models[record.ModelName]++
		switch record.HealthStatus {
		case StatusHealthy:
			stats.Healthy++
		case StatusUnhealthy:
			stats.Unhealthy++
		default:
			stats.Unknown++
		}
	}
	return stats, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*ServerRecord)
	s.activeKeys = make(map[string]string)
	return nil
}

func notFound() error {
	return apierrors.New(apierrors.KindNotFound, "registration not found")
}

func matchesFilter(record *ServerRecord, filter Filter) bool {
	if !filter.IncludeInactive && !record.IsActive {
		return false
	}
	if filter.ModelName != "" && record.ModelName != filter.ModelName {
		return false
	}
	if filter.HealthStatus != "" && record.HealthStatus != filter.HealthStatus {
		return false
	}
	return true
}

func applyPatch(record *ServerRecord, patch Patch) {
	if patch.EndpointURL != nil {
		record.EndpointURL = *patch.EndpointURL
	}
	if patch.BackendAPIKey != nil {
		record.BackendAPIKey = *patch.BackendAPIKey
	}
	if patch.ModelName != nil {
		record.ModelName = *patch.ModelName
	}
	if patch.Capabilities != nil {
		record.Capabilities = *patch.Capabilities
	}
	if patch.Owner != nil {
		record.Owner = *patch.Owner
	}
	if patch.HealthStatus != nil {
		record.HealthStatus = *patch.HealthStatus
		if *patch.HealthStatus == StatusHealthy && patch.ConsecutiveFailures == nil {
			record.ConsecutiveFailures = 0
		}
	}
	if patch.ConsecutiveFailures != nil {
		record.ConsecutiveFailures = *patch.ConsecutiveFailures
	}
	if patch.LastCheckedAt != nil {
		record.LastCheckedAt = patch.LastCheckedAt
	}
	if patch.LastLatencyMs != nil {
		record.LastLatencyMs = patch.LastLatencyMs
	}
	if patch.IsActive != nil {
		record.IsActive = *patch.IsActive
	}
}
