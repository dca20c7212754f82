package klass

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
)

// Config controls the limits a Runtime enforces on the instances it creates.
type Config struct {
	Logger           *slog.Logger
	MemoryQuotaBytes int
	MaxInvokeDepth   int
	MaxLiveInstances int
}

// Runtime creates classes and keeps the books for them: estimated memory in
// use, live instances in creation order, and the current invocation depth.
// A Runtime is not safe for concurrent use.
type Runtime struct {
	config Config
	log    *slog.Logger
	live   []*Class
	used   int
	depth  int
}

// NewRuntime constructs a Runtime, filling defaults for zero limits.
func NewRuntime(cfg Config) (*Runtime, error) {
	if cfg.MemoryQuotaBytes < 0 {
		return nil, fmt.Errorf("memory quota must be non-negative, got %d", cfg.MemoryQuotaBytes)
	}
	if cfg.MaxInvokeDepth < 0 {
		return nil, fmt.Errorf("invoke depth limit must be non-negative, got %d", cfg.MaxInvokeDepth)
	}
	if cfg.MaxLiveInstances < 0 {
		return nil, fmt.Errorf("live instance limit must be non-negative, got %d", cfg.MaxLiveInstances)
	}
	if cfg.MemoryQuotaBytes == 0 {
		cfg.MemoryQuotaBytes = 1 << 20
	}
	if cfg.MaxInvokeDepth == 0 {
		cfg.MaxInvokeDepth = 64
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Runtime{
		config: cfg,
		log:    cfg.Logger,
	}, nil
}

func (rt *Runtime) Config() Config { return rt.config }

// MemoryInUse returns the estimated bytes held by live instances.
func (rt *Runtime) MemoryInUse() int { return rt.used }

// Live returns the number of instances created and not yet destroyed.
func (rt *Runtime) Live() int { return len(rt.live) }

// LiveClasses returns the live instances in creation order.
func (rt *Runtime) LiveClasses() []*Class {
	return slices.Clone(rt.live)
}

// Descriptor is the one-shot input to Create. Create copies everything it
// needs; the descriptor and the functions it points at are never modified.
type Descriptor struct {
	Name        string
	Constructor *Function
	Destructor  *Function
	Members     []Member
	Functions   []Function
}

// Create builds a Class from desc and runs its constructor, if any, before
// returning. Construction is atomic: when the constructor fails the instance
// is discarded without running the destructor and nil is returned. Side
// effects the constructor already performed are not undone.
func (rt *Runtime) Create(desc Descriptor) (*Class, error) {
	if rt == nil {
		return nil, errors.New("create: nil runtime")
	}

	var ctor, dtor *Function
	if desc.Constructor != nil {
		if !desc.Constructor.HasUnary() {
			return nil, fmt.Errorf("create %q: constructor %q: %w", desc.Name, desc.Constructor.Name(), ErrNoUnaryForm)
		}
		f := desc.Constructor.withKind(KindConstructor)
		ctor = &f
	}
	if desc.Destructor != nil {
		if !desc.Destructor.HasUnary() {
			return nil, fmt.Errorf("create %q: destructor %q: %w", desc.Name, desc.Destructor.Name(), ErrNoUnaryForm)
		}
		f := desc.Destructor.withKind(KindDestructor)
		dtor = &f
	}

	if limit := rt.config.MaxLiveInstances; limit > 0 && len(rt.live) >= limit {
		return nil, fmt.Errorf("create %q: %w (%d)", desc.Name, ErrLiveLimit, limit)
	}

	size := classFootprint(desc.Name, ctor, dtor, desc.Members, desc.Functions)
	if err := rt.charge(size); err != nil {
		return nil, fmt.Errorf("create %q: %w", desc.Name, err)
	}

	c := &Class{
		rt:        rt,
		id:        uuid.New(),
		name:      desc.Name,
		ctor:      ctor,
		dtor:      dtor,
		members:   slices.Clone(desc.Members),
		functions: slices.Clone(desc.Functions),
		footprint: size,
	}
	rt.live = append(rt.live, c)
	rt.log.Debug("class created", c.logAttrs()...)

	if c.ctor != nil {
		if _, err := c.dispatch(*c.ctor, nil); err != nil {
			c.release()
			return nil, fmt.Errorf("construct %q: %w", desc.Name, err)
		}
		if c.Released() {
			return nil, fmt.Errorf("construct %q: constructor destroyed the instance: %w", desc.Name, ErrReleased)
		}
	}
	return c, nil
}

// Close destroys every live instance in creation order, including instances
// created by destructors while closing, and reports how many it destroyed.
// Destructor errors are joined.
func (rt *Runtime) Close() (int, error) {
	destroyed := 0
	var errs []error
	for len(rt.live) > 0 {
		progress := false
		for _, c := range rt.LiveClasses() {
			// a destructor may have released a later instance already
			if c.Released() {
				continue
			}
			if err := c.Destroy(); err != nil {
				errs = append(errs, err)
			}
			if c.Released() {
				destroyed++
				progress = true
			}
		}
		if !progress {
			break
		}
	}
	return destroyed, errors.Join(errs...)
}

func (rt *Runtime) unregister(c *Class) {
	if i := slices.Index(rt.live, c); i >= 0 {
		rt.live = slices.Delete(rt.live, i, i+1)
	}
}
