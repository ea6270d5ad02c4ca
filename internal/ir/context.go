package ir

import (
	"log/slog"
	"slices"
	"sync"
)

// Context owns the interning table for one compilation unit.
//
// Storages live as long as the Context; there is no removal. Every handle
// built from a Context must not outlive it.
//
// Thread-safety: Intern and Make are safe for concurrent use. A single mutex
// guards lookup-or-insert; Storage reads need no locking.
type Context struct {
	id     string
	hasher func(Key) uint64
	logger *slog.Logger
	clock  *Clock

	mu       sync.Mutex
	buckets  map[uint64][]*Storage
	storages []*Storage

	regMu    sync.RWMutex
	variants map[Kind]Variant
	classes  map[string]Kind
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger used to report newly interned storages at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Context) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHasher replaces Key.Hash as the bucket function.
// Tests use a constant hasher to force every key into one bucket.
func WithHasher(hasher func(Key) uint64) Option {
	return func(c *Context) {
		if hasher != nil {
			c.hasher = hasher
		}
	}
}

// WithIDGenerator sets the generator for the context ID (default UUIDv7).
func WithIDGenerator(gen IDGenerator) Option {
	return func(c *Context) {
		if gen != nil {
			c.id = gen.Generate()
		}
	}
}

// WithClock sets the logical clock that stamps storage sequence numbers.
func WithClock(clock *Clock) Option {
	return func(c *Context) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// NewContext creates an empty Context with the built-in variants registered.
func NewContext(opts ...Option) *Context {
	c := &Context{
		hasher:   Key.Hash,
		logger:   slog.New(slog.DiscardHandler),
		clock:    NewClock(),
		buckets:  make(map[uint64][]*Storage),
		variants: make(map[Kind]Variant),
		classes:  make(map[string]Kind),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.id == "" {
		c.id = UUIDv7Generator{}.Generate()
	}
	for _, v := range builtinVariants() {
		if err := c.Register(v); err != nil {
			panic(err)
		}
	}
	return c
}

// ID returns the context identifier.
func (c *Context) ID() string {
	return c.id
}

// Intern returns the canonical Storage for key, creating it on first request.
// Equality is structural: independently built keys with equal content
// return the same *Storage.
//
// Intern does not validate key against the registered variants; use Make
// for requests coming from outside the compiler. A key with invalid UTF-8
// can be interned but has no AnnotationID and cannot be stored.
func (c *Context) Intern(key Key) *Storage {
	h := c.hasher(key)

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, s := range c.buckets[h] {
		if s.key.Equal(key) {
			return s
		}
	}

	s := &Storage{
		key:  NewKey(key.Kind, key.Params...),
		hash: h,
		seq:  c.clock.Next(),
	}
	c.buckets[h] = append(c.buckets[h], s)
	c.storages = append(c.storages, s)

	c.logger.Debug("interned annotation",
		"context", c.id,
		"kind", string(s.key.Kind),
		"params", s.key.Params,
		"seq", s.seq,
	)
	return s
}

// Lookup returns the Storage for key if it has already been interned.
func (c *Context) Lookup(key Key) (*Storage, bool) {
	h := c.hasher(key)

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, s := range c.buckets[h] {
		if s.key.Equal(key) {
			return s, true
		}
	}
	return nil, false
}

// Len returns the number of distinct storages held by the table.
func (c *Context) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.storages)
}

// Storages returns every storage in creation order.
func (c *Context) Storages() []*Storage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.storages)
}

// Annotations returns a handle for every storage in creation order.
func (c *Context) Annotations() []Annotation {
	storages := c.Storages()
	anns := make([]Annotation, len(storages))
	for i, s := range storages {
		anns[i] = Annotation{s: s}
	}
	return anns
}

// Clock returns the logical clock of the context.
func (c *Context) Clock() *Clock {
	return c.clock
}
