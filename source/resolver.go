// Package source implements the pluggable source reference resolution
// contract of spec §4.6: resolve(reference) -> optional<byte-stream>.
package source

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Resolver resolves a declarative logical-source reference to a byte
// stream. Resolvers are pure with respect to the mapping model; they may
// perform I/O. A false ok with a nil error means "no match, try the next
// resolver"; implementations should not use this to mask real failures.
type Resolver interface {
	Resolve(reference string) (rc io.ReadCloser, ok bool, err error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(reference string) (io.ReadCloser, bool, error)

func (f ResolverFunc) Resolve(reference string) (io.ReadCloser, bool, error) {
	return f(reference)
}

// Composite tries each registered resolver in insertion order and returns
// the first match (spec §4.6).
type Composite struct {
	resolvers []Resolver
}

// NewComposite builds a Composite trying resolvers in the given order.
func NewComposite(resolvers ...Resolver) *Composite {
	return &Composite{resolvers: resolvers}
}

// Add appends another resolver to the end of the try order.
func (c *Composite) Add(r Resolver) {
	c.resolvers = append(c.resolvers, r)
}

// Resolve implements Resolver.
func (c *Composite) Resolve(reference string) (io.ReadCloser, bool, error) {
	for _, r := range c.resolvers {
		rc, ok, err := r.Resolve(reference)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return rc, true, nil
		}
	}
	return nil, false, nil
}

// FileResolver resolves a reference as a path relative to BaseDir on the
// local filesystem.
type FileResolver struct {
	BaseDir string
}

// NewFileResolver roots file resolution at baseDir.
func NewFileResolver(baseDir string) *FileResolver {
	return &FileResolver{BaseDir: baseDir}
}

// Resolve implements Resolver.
func (f *FileResolver) Resolve(reference string) (io.ReadCloser, bool, error) {
	path := reference
	if f.BaseDir != "" {
		path = filepath.Join(f.BaseDir, reference)
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return file, true, nil
}

// ClasspathResolver resolves a reference by stripping a base prefix and
// looking the remainder up in a provided in-memory tree of named
// resources, mirroring a JVM classpath resolver without requiring a real
// classpath.
type ClasspathResolver struct {
	BasePrefix string
	Resources  map[string][]byte
}

// NewClasspathResolver roots classpath resolution at basePrefix, serving
// byte slices out of resources.
func NewClasspathResolver(basePrefix string, resources map[string][]byte) *ClasspathResolver {
	return &ClasspathResolver{BasePrefix: basePrefix, Resources: resources}
}

// Resolve implements Resolver.
func (c *ClasspathResolver) Resolve(reference string) (io.ReadCloser, bool, error) {
	key := reference
	if c.BasePrefix != "" {
		if !strings.HasPrefix(reference, c.BasePrefix) {
			return nil, false, nil
		}
		key = strings.TrimPrefix(reference, c.BasePrefix)
		key = strings.TrimPrefix(key, "/")
	}
	data, ok := c.Resources[key]
	if !ok {
		return nil, false, nil
	}
	return io.NopCloser(bytes.NewReader(data)), true, nil
}

// NamedInputResolver resolves a reference by exact string-key match
// against a caller-supplied map of named byte streams (spec §4.5
// "map(namedInputStreams, ...)").
type NamedInputResolver struct {
	Inputs map[string][]byte
}

// NewNamedInputResolver builds a resolver over the given named inputs.
func NewNamedInputResolver(inputs map[string][]byte) *NamedInputResolver {
	return &NamedInputResolver{Inputs: inputs}
}

// Resolve implements Resolver.
func (n *NamedInputResolver) Resolve(reference string) (io.ReadCloser, bool, error) {
	data, ok := n.Inputs[reference]
	if !ok {
		return nil, false, nil
	}
	return io.NopCloser(bytes.NewReader(data)), true, nil
}
