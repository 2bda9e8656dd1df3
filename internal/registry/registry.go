// Package registry holds the in-memory collection of subjects backed by a
// store. It is the single core used by both the console and the HTTP form.
//
// A subject becomes visible only after the store accepted it, so the
// collection in memory and the file on disk list the same subjects in the
// same order.
package registry

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/JonMunkholm/subjects/internal/export"
	"github.com/JonMunkholm/subjects/internal/subject"
)

// Store is the persistence the registry writes through.
type Store interface {
	GetAll() ([]subject.Subject, error)
	Put(subject.Subject) error
	PutAll([]subject.Subject) error
}

// Listener is notified after subjects were added.
type Listener func(added []subject.Subject)

type subscription struct {
	id uint64
	fn Listener
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// Registry is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	store    Store
	subjects []subject.Subject
	logger   *slog.Logger

	subMu  sync.Mutex
	subs   []subscription
	nextID uint64
}

// Open seeds a registry with every subject the store holds.
func Open(store Store, opts ...Option) (*Registry, error) {
	r := &Registry{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	seed, err := store.GetAll()
	if err != nil {
		return nil, fmt.Errorf("load subjects: %w", err)
	}
	r.subjects = seed

	r.logger.Info("registry loaded", "subjects", len(seed))
	return r, nil
}

// Add persists s and then appends it. If the store fails, s is not added and
// the store error is returned.
func (r *Registry) Add(s subject.Subject) error {
	r.mu.Lock()
	if err := r.store.Put(s); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("store subject: %w", err)
	}
	r.subjects = append(r.subjects, s)
	total := len(r.subjects)
	r.mu.Unlock()

	r.logger.Info("subject added", "passport", s.Passport(), "total", total)
	r.notify([]subject.Subject{s})
	return nil
}

// AddAll persists subjects as one batch and then appends them all.
func (r *Registry) AddAll(subjects []subject.Subject) error {
	if len(subjects) == 0 {
		return nil
	}

	r.mu.Lock()
	if err := r.store.PutAll(subjects); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("store subjects: %w", err)
	}
	r.subjects = append(r.subjects, subjects...)
	total := len(r.subjects)
	r.mu.Unlock()

	r.logger.Info("subjects added", "count", len(subjects), "total", total)
	r.notify(slices.Clone(subjects))
	return nil
}

// Subjects returns a snapshot of the collection in insertion order.
func (r *Registry) Subjects() []subject.Subject {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.subjects)
}

// Len returns the number of subjects.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subjects)
}

// Subscribe registers fn to run after every successful Add or AddAll, on the
// adding goroutine. The returned func removes the subscription.
func (r *Registry) Subscribe(fn Listener) (unsubscribe func()) {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	r.nextID++
	id := r.nextID
	r.subs = append(r.subs, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			r.subMu.Lock()
			defer r.subMu.Unlock()
			r.subs = slices.DeleteFunc(r.subs, func(s subscription) bool {
				return s.id == id
			})
		})
	}
}

// notify runs outside r.mu so listeners may read the registry.
func (r *Registry) notify(added []subject.Subject) {
	r.subMu.Lock()
	subs := slices.Clone(r.subs)
	r.subMu.Unlock()

	for _, s := range subs {
		s.fn(added)
	}
}

// Export writes a snapshot of the collection to path, sorted when sorted is
// true and in insertion order otherwise.
func (r *Registry) Export(path string, sorted bool) error {
	snapshot := r.Subjects()

	write := export.Write
	if sorted {
		write = export.Export
	}
	if err := write(path, snapshot); err != nil {
		return err
	}

	r.logger.Info("subjects exported", "path", path, "count", len(snapshot), "sorted", sorted)
	return nil
}
