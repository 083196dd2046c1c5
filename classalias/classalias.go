package classalias

import (
	"reflect"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// Registry is a concurrency-safe, two-way alias<->type mapping. The zero
// value is not usable; construct one with New.
type Registry struct {
	byAlias *xsync.MapOf[string, reflect.Type]
	byType  *xsync.MapOf[reflect.Type, string]

	frozenMu sync.RWMutex
	frozen   bool
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		byAlias: xsync.NewMapOf[string, reflect.Type](),
		byType:  xsync.NewMapOf[reflect.Type, string](),
	}
}

// Register associates alias with the type of sample. It panics if called
// after Freeze, since the lifecycle contract (spec.md §9) is "mutated only
// before first use in steady state; concurrent readers after freeze".
func (r *Registry) Register(alias string, sample interface{}) {
	r.frozenMu.RLock()
	frozen := r.frozen
	r.frozenMu.RUnlock()
	if frozen {
		panic("classalias: Register called after Freeze")
	}

	t := reflect.TypeOf(sample)
	r.byAlias.Store(alias, t)
	r.byType.Store(t, alias)
}

// Freeze marks the registry read-only. Subsequent Register calls panic.
// Calling Freeze is optional but documents the intended lifecycle boundary
// explicitly.
func (r *Registry) Freeze() {
	r.frozenMu.Lock()
	r.frozen = true
	r.frozenMu.Unlock()
}

// NameOf returns the alias registered for v's dynamic type.
func (r *Registry) NameOf(v interface{}) (string, bool) {
	return r.byType.Load(reflect.TypeOf(v))
}

// TypeOf returns the type registered under alias.
func (r *Registry) TypeOf(alias string) (reflect.Type, bool) {
	return r.byAlias.Load(alias)
}

// defaultRegistry is the process-wide default, analogous to Chronicle's
// ClassAliasPool.CLASS_ALIASES - a convenience for callers that don't need
// an isolated registry per Wire.
var defaultRegistry = New()

// Default returns the process-wide default Registry.
func Default() *Registry { return defaultRegistry }
