// Package store defines the persistence interfaces for instance and widget
// definitions, plus in-memory implementations used in tests and for DB-less
// operation.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/OPSDECK/opsdeck/internal/models"
)

// InstanceRepository stores SystemInstance definitions. Lookups return a nil
// instance with a nil error when nothing matches.
type InstanceRepository interface {
	GetInstance(ctx context.Context, instanceID string) (*models.SystemInstance, error)
	ListInstances(ctx context.Context) ([]models.SystemInstance, error)
	SaveInstance(ctx context.Context, inst models.SystemInstance) error
	DeleteInstance(ctx context.Context, instanceID string) error
}

// WidgetRepository stores Widget definitions.
type WidgetRepository interface {
	GetWidget(ctx context.Context, id string) (*models.Widget, error)
	ListWidgets(ctx context.Context) ([]models.Widget, error)
	ListActiveWidgets(ctx context.Context) ([]models.Widget, error)
	SaveWidget(ctx context.Context, w models.Widget) error
	DeleteWidget(ctx context.Context, id string) error

	// CountByInstance reports how many widgets reference the instance, for
	// referential-integrity checks before instance deletion.
	CountByInstance(ctx context.Context, instanceID string) (int, error)
}

// MemoryInstanceRepository is an in-memory InstanceRepository.
type MemoryInstanceRepository struct {
	mu        sync.RWMutex
	instances map[string]models.SystemInstance
}

// NewMemoryInstanceRepository creates an empty in-memory instance repository.
func NewMemoryInstanceRepository() *MemoryInstanceRepository {
	return &MemoryInstanceRepository{instances: make(map[string]models.SystemInstance)}
}

// GetInstance retrieves an instance by id.
func (r *MemoryInstanceRepository) GetInstance(ctx context.Context, instanceID string) (*models.SystemInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[instanceID]
	if !ok {
		return nil, nil
	}
	return &inst, nil
}

// ListInstances returns all instances ordered by id.
func (r *MemoryInstanceRepository) ListInstances(ctx context.Context) ([]models.SystemInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.SystemInstance, 0, len(r.instances))
	for _, inst := range r.instances {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InstanceID < out[j].InstanceID })
	return out, nil
}

// SaveInstance inserts or replaces an instance.
func (r *MemoryInstanceRepository) SaveInstance(ctx context.Context, inst models.SystemInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances[inst.InstanceID] = inst
	return nil
}

// DeleteInstance removes an instance by id.
func (r *MemoryInstanceRepository) DeleteInstance(ctx context.Context, instanceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.instances, instanceID)
	return nil
}

// MemoryWidgetRepository is an in-memory WidgetRepository.
type MemoryWidgetRepository struct {
	mu      sync.RWMutex
	widgets map[string]models.Widget
}

// NewMemoryWidgetRepository creates an empty in-memory widget repository.
func NewMemoryWidgetRepository() *MemoryWidgetRepository {
	return &MemoryWidgetRepository{widgets: make(map[string]models.Widget)}
}

// GetWidget retrieves a widget by id.
func (r *MemoryWidgetRepository) GetWidget(ctx context.Context, id string) (*models.Widget, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.widgets[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

// ListWidgets returns all widgets ordered by name.
func (r *MemoryWidgetRepository) ListWidgets(ctx context.Context) ([]models.Widget, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Widget, 0, len(r.widgets))
	for _, w := range r.widgets {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ListActiveWidgets returns widgets with is_active=true.
func (r *MemoryWidgetRepository) ListActiveWidgets(ctx context.Context) ([]models.Widget, error) {
	all, err := r.ListWidgets(ctx)
	if err != nil {
		return nil, err
	}
	active := all[:0:0]
	for _, w := range all {
		if w.IsActive {
			active = append(active, w)
		}
	}
	return active, nil
}

// SaveWidget inserts or replaces a widget.
func (r *MemoryWidgetRepository) SaveWidget(ctx context.Context, w models.Widget) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.widgets[w.ID] = w
	return nil
}

// DeleteWidget removes a widget by id.
func (r *MemoryWidgetRepository) DeleteWidget(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.widgets, id)
	return nil
}

// CountByInstance reports how many widgets reference the instance.
func (r *MemoryWidgetRepository) CountByInstance(ctx context.Context, instanceID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, w := range r.widgets {
		if w.InstanceID == instanceID {
			count++
		}
	}
	return count, nil
}
