package registry

import (
	"errors"
	"fmt"
	"html"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/microcosm-cc/bluemonday"

	"github.com/GriffinCanCode/AgentOS/shell/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/shell/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/shell/internal/shared/utils"
)

// MaxCatalogSize defines the maximum number of descriptors in the catalog
const MaxCatalogSize = 4096

// ErrDuplicate reports a descriptor id that is already registered
var ErrDuplicate = errors.New("descriptor already registered")

// Manager is the descriptor catalog
type Manager struct {
	descriptors sync.Map
	size        int64 // Atomic counter for catalog size
	hidden      int64 // Atomic counter for NoDisplay descriptors
	failed      int64 // Atomic counter for rejected manifests
	policy      *bluemonday.Policy
	metrics     *monitoring.Metrics
}

// NewManager creates an empty catalog
func NewManager() *Manager {
	return &Manager{
		policy: bluemonday.StrictPolicy(),
	}
}

// WithMetrics adds metrics tracking to the catalog
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// Register validates and stores a descriptor. Display text is stripped of
// markup first.
func (m *Manager) Register(d *types.Descriptor) error {
	if d == nil {
		return fmt.Errorf("descriptor is nil")
	}
	clean := m.sanitize(d)
	if err := utils.ValidateDescriptor(clean); err != nil {
		return fmt.Errorf("invalid descriptor %q: %w", d.ID, err)
	}
	if atomic.LoadInt64(&m.size) >= MaxCatalogSize {
		return fmt.Errorf("catalog full (%d descriptors)", MaxCatalogSize)
	}
	if _, loaded := m.descriptors.LoadOrStore(clean.ID, clean); loaded {
		return fmt.Errorf("%w: %s", ErrDuplicate, clean.ID)
	}

	atomic.AddInt64(&m.size, 1)
	if clean.NoDisplay {
		atomic.AddInt64(&m.hidden, 1)
	}
	if m.metrics != nil {
		m.metrics.SetRegistryDescriptors(int(atomic.LoadInt64(&m.size)))
	}
	return nil
}

func (m *Manager) sanitize(d *types.Descriptor) *types.Descriptor {
	clean := *d
	clean.Name = m.plainText(d.Name)
	clean.GenericName = m.plainText(d.GenericName)
	clean.Description = m.plainText(d.Description)
	clean.Args = slices.Clone(d.Args)
	clean.Icons = slices.Clone(d.Icons)
	clean.Actions = make([]types.Action, len(d.Actions))
	for i, a := range d.Actions {
		a.Name = m.plainText(a.Name)
		a.Args = slices.Clone(a.Args)
		clean.Actions[i] = a
	}
	if d.Env != nil {
		clean.Env = make(map[string]string, len(d.Env))
		for k, v := range d.Env {
			clean.Env[k] = v
		}
	}
	return &clean
}

// plainText drops markup; the policy escapes entities, which are restored
func (m *Manager) plainText(s string) string {
	if s == "" {
		return s
	}
	return strings.TrimSpace(html.UnescapeString(m.policy.Sanitize(s)))
}

// Get retrieves a descriptor by id
func (m *Manager) Get(appID string) (*types.Descriptor, bool) {
	v, ok := m.descriptors.Load(appID)
	if !ok {
		return nil, false
	}
	return v.(*types.Descriptor), true
}

// Exists checks if a descriptor is registered
func (m *Manager) Exists(appID string) bool {
	_, ok := m.descriptors.Load(appID)
	return ok
}

// Remove deletes a descriptor
func (m *Manager) Remove(appID string) bool {
	v, ok := m.descriptors.LoadAndDelete(appID)
	if !ok {
		return false
	}
	atomic.AddInt64(&m.size, -1)
	if v.(*types.Descriptor).NoDisplay {
		atomic.AddInt64(&m.hidden, -1)
	}
	if m.metrics != nil {
		m.metrics.SetRegistryDescriptors(int(atomic.LoadInt64(&m.size)))
	}
	return true
}

// Descriptors returns every descriptor sorted by id
func (m *Manager) Descriptors() []*types.Descriptor {
	var out []*types.Descriptor
	m.descriptors.Range(func(_, value interface{}) bool {
		out = append(out, value.(*types.Descriptor))
		return true
	})
	slices.SortFunc(out, func(a, b *types.Descriptor) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// ListMetadata lists metadata for descriptors, skipping hidden ones unless asked
func (m *Manager) ListMetadata(includeHidden bool) []types.DescriptorMetadata {
	all := m.Descriptors()
	meta := make([]types.DescriptorMetadata, 0, len(all))
	for _, d := range all {
		if d.NoDisplay && !includeHidden {
			continue
		}
		meta = append(meta, d.ToMetadata())
	}
	return meta
}

// markFailed counts a manifest that could not be loaded
func (m *Manager) markFailed() {
	atomic.AddInt64(&m.failed, 1)
}

// Stats returns catalog statistics
func (m *Manager) Stats() types.RegistryStats {
	return types.RegistryStats{
		TotalDescriptors: int(atomic.LoadInt64(&m.size)),
		Hidden:           int(atomic.LoadInt64(&m.hidden)),
		Failed:           int(atomic.LoadInt64(&m.failed)),
	}
}
