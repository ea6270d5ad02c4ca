package ir

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Built-in annotation kinds.
const (
	KindInline       Kind = "passes.InlineAnnotation"
	KindNoDedup      Kind = "transforms.NoDedupAnnotation"
	KindRunTransform Kind = "stage.RunFirrtlTransformAnnotation"
)

// ClassPrefix is prepended to a kind to form its fully qualified class name,
// as written in annotation files: "firrtl.passes.InlineAnnotation".
const ClassPrefix = "firrtl."

// Variant declares one annotation kind and the shape of its parameters.
type Variant struct {
	// Kind is the tag stored in every key of this variant.
	Kind Kind

	// Params names the parameters in key order. Arity is len(Params).
	Params []string

	// Aliases are extra class names that resolve to Kind.
	Aliases []string

	// Validate optionally checks parameter values after arity and encoding
	// checks have passed. A returned error becomes the MalformedError reason.
	Validate func(params []string) error
}

// Arity returns the number of parameters.
func (v Variant) Arity() int {
	return len(v.Params)
}

// Class returns the fully qualified class name of the variant.
func (v Variant) Class() string {
	return ClassPrefix + string(v.Kind)
}

func builtinVariants() []Variant {
	return []Variant{
		{Kind: KindInline},
		{Kind: KindNoDedup},
		{
			Kind:   KindRunTransform,
			Params: []string{"transform"},
			Validate: func(params []string) error {
				if strings.TrimSpace(params[0]) == "" {
					return errors.New("transform name must not be empty")
				}
				return nil
			},
		},
	}
}

// Register adds a variant to the context. Its kind, its qualified class name
// and its aliases must not collide with anything already registered.
func (c *Context) Register(v Variant) error {
	if v.Kind == "" {
		return errors.New("register variant: empty kind")
	}
	seen := make(map[string]bool, len(v.Params))
	for _, p := range v.Params {
		if p == "" {
			return fmt.Errorf("register variant %s: empty parameter name", v.Kind)
		}
		if p == "class" || p == "target" {
			return fmt.Errorf("register variant %s: parameter name %q is reserved", v.Kind, p)
		}
		if seen[p] {
			return fmt.Errorf("register variant %s: duplicate parameter %q", v.Kind, p)
		}
		seen[p] = true
	}

	c.regMu.Lock()
	defer c.regMu.Unlock()

	if _, ok := c.variants[v.Kind]; ok {
		return fmt.Errorf("register variant %s: already registered", v.Kind)
	}
	names := append([]string{string(v.Kind), v.Class()}, v.Aliases...)
	for _, name := range names {
		if owner, ok := c.classes[name]; ok {
			return fmt.Errorf("register variant %s: class %q already maps to %s", v.Kind, name, owner)
		}
	}

	v.Params = slices.Clone(v.Params)
	v.Aliases = slices.Clone(v.Aliases)
	c.variants[v.Kind] = v
	for _, name := range names {
		c.classes[name] = v.Kind
	}
	return nil
}

// Variant returns a copy of the registered variant for kind.
func (c *Context) Variant(kind Kind) (Variant, bool) {
	c.regMu.RLock()
	defer c.regMu.RUnlock()
	v, ok := c.variants[kind]
	v.Params = slices.Clone(v.Params)
	v.Aliases = slices.Clone(v.Aliases)
	return v, ok
}

// LookupClass resolves a class name from an annotation file to a kind.
// Both "passes.InlineAnnotation" and "firrtl.passes.InlineAnnotation" resolve.
func (c *Context) LookupClass(class string) (Kind, bool) {
	c.regMu.RLock()
	defer c.regMu.RUnlock()
	kind, ok := c.classes[class]
	return kind, ok
}

// Kinds returns every registered kind, sorted.
func (c *Context) Kinds() []Kind {
	c.regMu.RLock()
	defer c.regMu.RUnlock()
	kinds := make([]Kind, 0, len(c.variants))
	for k := range c.variants {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// Make validates a request against the registered variant for kind and
// interns it. On error nothing has been interned.
func (c *Context) Make(kind Kind, params ...string) (Annotation, error) {
	key := NewKey(kind, params...)

	v, ok := c.Variant(kind)
	if !ok {
		return Annotation{}, &MalformedError{Key: key, Reason: "unknown annotation kind"}
	}
	if len(params) != v.Arity() {
		return Annotation{}, &MalformedError{
			Key:    key,
			Reason: fmt.Sprintf("want %d parameter(s) %v, got %d", v.Arity(), v.Params, len(params)),
		}
	}
	for i, p := range params {
		if !utf8.ValidString(p) {
			return Annotation{}, &MalformedError{Key: key, Reason: fmt.Sprintf("parameter %q is not valid UTF-8", v.Params[i])}
		}
		if !norm.NFC.IsNormalString(p) {
			return Annotation{}, &MalformedError{Key: key, Reason: fmt.Sprintf("parameter %q is not NFC normalized", v.Params[i])}
		}
	}
	if v.Validate != nil {
		if err := v.Validate(key.Params); err != nil {
			return Annotation{}, &MalformedError{Key: key, Reason: err.Error()}
		}
	}

	return Annotation{s: c.Intern(key)}, nil
}

// MustMake is like Make but panics on error.
// Use only in tests or when inputs are known to be valid.
func (c *Context) MustMake(kind Kind, params ...string) Annotation {
	a, err := c.Make(kind, params...)
	if err != nil {
		panic(err)
	}
	return a
}

// MakeInline returns the inline marker annotation.
func MakeInline(c *Context) Annotation {
	return c.MustMake(KindInline)
}

// MakeNoDedup returns the do-not-deduplicate marker annotation.
func MakeNoDedup(c *Context) Annotation {
	return c.MustMake(KindNoDedup)
}

// MakeRunTransform returns the annotation requesting the named transform.
func MakeRunTransform(c *Context, name string) (Annotation, error) {
	return c.Make(KindRunTransform, name)
}
