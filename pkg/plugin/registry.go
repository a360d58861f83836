package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"time"

	xerrors "SongForge/internal/errors"
	"SongForge/pkg/logger"
)

// Registry keeps track of registered plugins and enforces that at most one
// entry per capability type is active.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
	order   []string

	now      func() time.Time
	audit    *slog.Logger
	observer func(Summary)
}

// Option modifies the behaviour of a registry.
type Option func(*Registry)

// WithClock overrides the registration timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithAuditLogger sets the logger that records registry mutations.
func WithAuditLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.audit = l
		}
	}
}

// WithObserver is called with a fresh summary after every mutation.
func WithObserver(fn func(Summary)) Option {
	return func(r *Registry) {
		r.observer = fn
	}
}

// RegisterOption customises a single registration.
type RegisterOption func(*registerOptions)

type registerOptions struct {
	id string
}

// WithEntryID registers the plugin under id instead of its identity id. It lets
// one instance serve several capability types under distinct entries.
func WithEntryID(id string) RegisterOption {
	return func(o *registerOptions) {
		o.id = id
	}
}

// NewRegistry constructs an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Register adds p as a plugin for capability t. A duplicate id is rejected and
// leaves the registry unchanged. With activate set, the entry becomes the
// active plugin for t in the same step, deactivating the previous one.
func (r *Registry) Register(t CapabilityType, p Plugin, activate bool, opts ...RegisterOption) error {
	if !t.Valid() {
		return xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("unknown capability type %q", t))
	}
	if p == nil {
		return xerrors.New(xerrors.CodeInvalidArgument, "plugin implementation cannot be nil")
	}
	ro := registerOptions{id: p.Identity().ID}
	for _, opt := range opts {
		if opt != nil {
			opt(&ro)
		}
	}
	id := strings.TrimSpace(ro.id)
	if id == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "plugin id cannot be empty")
	}
	if !Implements(p, t) {
		return xerrors.New(xerrors.CodeInvalidArgument,
			fmt.Sprintf("plugin %s does not implement the %s capability", id, t))
	}

	r.mu.Lock()
	if _, exists := r.entries[id]; exists {
		r.mu.Unlock()
		return xerrors.New(xerrors.CodeConflict, fmt.Sprintf("plugin with id %q is already registered", id),
			xerrors.WithMetadata("plugin_id", id))
	}
	r.entries[id] = Entry{ID: id, Type: t, Plugin: p, RegisteredAt: r.now()}
	r.order = append(r.order, id)
	var replaced string
	if activate {
		replaced = r.activateLocked(id)
	}
	summary := r.summaryLocked()
	r.mu.Unlock()

	r.auditLog().Info("plugin_registered",
		slog.String("plugin_id", id),
		slog.String("type", string(t)),
		slog.Bool("activated", activate),
		slog.String("replaced", replaced),
	)
	r.notify(summary)
	return nil
}

// Activate makes id the active plugin for its capability type. Every other
// entry of that type is deactivated in the same critical section.
func (r *Registry) Activate(id string) error {
	r.mu.Lock()
	entry, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return notFoundError(id)
	}
	replaced := r.activateLocked(id)
	summary := r.summaryLocked()
	r.mu.Unlock()

	r.auditLog().Info("plugin_activated",
		slog.String("plugin_id", id),
		slog.String("type", string(entry.Type)),
		slog.String("replaced", replaced),
	)
	r.notify(summary)
	return nil
}

// activateLocked flips the active flag and returns the id it displaced, if any.
func (r *Registry) activateLocked(id string) string {
	target := r.entries[id]
	var replaced string
	for _, other := range r.order {
		if other == id {
			continue
		}
		e := r.entries[other]
		if e.Type == target.Type && e.Active {
			e.Active = false
			r.entries[other] = e
			replaced = other
		}
	}
	target.Active = true
	r.entries[id] = target
	return replaced
}

// Deactivate clears the active flag of id. Other entries are untouched.
func (r *Registry) Deactivate(id string) error {
	r.mu.Lock()
	entry, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return notFoundError(id)
	}
	entry.Active = false
	r.entries[id] = entry
	summary := r.summaryLocked()
	r.mu.Unlock()

	r.auditLog().Info("plugin_deactivated", slog.String("plugin_id", id), slog.String("type", string(entry.Type)))
	r.notify(summary)
	return nil
}

// Unregister removes id and disposes its plugin once no other entry refers to
// the same instance. Unknown ids are ignored.
// The entry is detached under the lock so Dispose runs exactly once even when
// callers race; its error is returned after removal.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	entry, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	delete(r.entries, id)
	for i, other := range r.order {
		if other == id {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	shared := false
	for _, other := range r.entries {
		if samePlugin(other.Plugin, entry.Plugin) {
			shared = true
			break
		}
	}
	summary := r.summaryLocked()
	r.mu.Unlock()

	var err error
	if !shared {
		err = entry.Plugin.Dispose()
	}
	attrs := []any{slog.String("plugin_id", id), slog.String("type", string(entry.Type)), slog.Bool("disposed", !shared)}
	if err != nil {
		attrs = append(attrs, slog.Any("error", err))
	}
	r.auditLog().Info("plugin_unregistered", attrs...)
	r.notify(summary)
	if err != nil {
		return fmt.Errorf("dispose plugin %s: %w", id, err)
	}
	return nil
}

// Get returns the entry registered under id.
func (r *Registry) Get(id string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

// Active returns the active entry for t.
func (r *Registry) Active(t CapabilityType) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		if e := r.entries[id]; e.Type == t && e.Active {
			return e, true
		}
	}
	return Entry{}, false
}

// ByType returns the entries of t in registration order.
func (r *Registry) ByType(t CapabilityType) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0)
	for _, id := range r.order {
		if e := r.entries[id]; e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Entries returns every entry in registration order.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id])
	}
	return out
}

// IsReady delegates to the plugin's IsReady. Unknown ids report false.
func (r *Registry) IsReady(id string) bool {
	e, ok := r.Get(id)
	if !ok {
		return false
	}
	return e.Plugin.IsReady()
}

// Identity returns the identity of the plugin registered under id.
func (r *Registry) Identity(id string) (Identity, bool) {
	e, ok := r.Get(id)
	if !ok {
		return Identity{}, false
	}
	return e.Plugin.Identity(), true
}

// Initialize configures the plugin registered under id.
func (r *Registry) Initialize(ctx context.Context, id string, config map[string]string) error {
	e, ok := r.Get(id)
	if !ok {
		return notFoundError(id)
	}
	if err := e.Plugin.Initialize(ctx, config); err != nil {
		r.auditLog().Warn("plugin_initialize_failed", slog.String("plugin_id", id), slog.Any("error", err))
		return err
	}
	r.auditLog().Info("plugin_initialized", slog.String("plugin_id", id))
	r.notify(r.Summary())
	return nil
}

// Summary counts entries per type and reports the active id per type.
func (r *Registry) Summary() Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.summaryLocked()
}

func (r *Registry) summaryLocked() Summary {
	s := Summary{
		Total:  len(r.order),
		ByType: make(map[CapabilityType]int, len(capabilityOrder)),
		Active: make(map[CapabilityType]string, len(capabilityOrder)),
	}
	for _, t := range capabilityOrder {
		s.ByType[t] = 0
		s.Active[t] = ""
	}
	for _, id := range r.order {
		e := r.entries[id]
		s.ByType[e.Type]++
		if e.Active {
			s.Active[e.Type] = id
		}
	}
	return s
}

// Close unregisters every plugin, disposing each one.
func (r *Registry) Close() error {
	r.mu.RLock()
	ids := append([]string(nil), r.order...)
	r.mu.RUnlock()
	var errs []error
	for _, id := range ids {
		if err := r.Unregister(id); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close registry: %w", errors.Join(errs...))
	}
	return nil
}

// samePlugin compares instances without panicking on non-comparable types.
func samePlugin(a, b Plugin) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || ta == nil || !ta.Comparable() {
		return false
	}
	return a == b
}

func (r *Registry) auditLog() *slog.Logger {
	if r.audit != nil {
		return r.audit
	}
	return logger.Audit()
}

func (r *Registry) notify(s Summary) {
	if r.observer != nil {
		r.observer(s)
	}
}

// ActiveAs resolves the active plugin for t and asserts it to contract T.
func ActiveAs[T Plugin](r *Registry, t CapabilityType) (T, Entry, error) {
	var zero T
	e, ok := r.Active(t)
	if !ok {
		return zero, Entry{}, xerrors.New(xerrors.CodeNoActivePlugin,
			fmt.Sprintf("no active %s plugin", t), xerrors.WithMetadata("type", string(t)))
	}
	p, ok := e.Plugin.(T)
	if !ok {
		return zero, e, xerrors.New(xerrors.CodeInvalidArgument,
			fmt.Sprintf("plugin %s does not implement the %s capability", e.ID, t))
	}
	return p, e, nil
}

// ActiveLyrics returns the active lyrics generator.
func (r *Registry) ActiveLyrics() (LyricsGenerator, Entry, error) {
	return ActiveAs[LyricsGenerator](r, TypeLyrics)
}

// ActiveMidi returns the active MIDI generator.
func (r *Registry) ActiveMidi() (MidiGenerator, Entry, error) {
	return ActiveAs[MidiGenerator](r, TypeMidi)
}

// ActiveImage returns the active image generator.
func (r *Registry) ActiveImage() (ImageGenerator, Entry, error) {
	return ActiveAs[ImageGenerator](r, TypeImage)
}

// ActiveAnalyzer returns the active lyrics analyzer.
func (r *Registry) ActiveAnalyzer() (LyricsAnalyzer, Entry, error) {
	return ActiveAs[LyricsAnalyzer](r, TypeAnalysis)
}

// ActiveEvaluator returns the active song evaluator.
func (r *Registry) ActiveEvaluator() (SongEvaluator, Entry, error) {
	return ActiveAs[SongEvaluator](r, TypeEvaluation)
}
