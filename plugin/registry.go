package plugin

import (
	"slices"

	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/vsariola/bats"
)

// Registry dispatches plugin ids to the Format owning their namespace and
// merges the catalogs of all formats. A Registry is immutable after
// NewRegistry and safe for concurrent use.
type Registry struct {
	formats map[string]bats.Format
	order   []string
}

// NewRegistry registers the formats in the given order. The catalog of the
// registry lists the plugins of the formats in the same order.
func NewRegistry(formats ...bats.Format) (*Registry, error) {
	r := &Registry{formats: make(map[string]bats.Format, len(formats))}
	for _, f := range formats {
		if f == nil {
			continue
		}
		ns := f.Namespace()
		if ns == "" {
			return nil, errors.New("plugin format with an empty namespace")
		}
		if _, ok := r.formats[ns]; ok {
			return nil, errors.Errorf("plugin format %q registered twice", ns)
		}
		r.formats[ns] = f
		r.order = append(r.order, ns)
	}
	return r, nil
}

// Namespaces returns the namespaces of the registered formats.
func (r *Registry) Namespaces() []string {
	return slices.Clone(r.order)
}

// Format returns the format owning namespace.
func (r *Registry) Format(namespace string) (bats.Format, bool) {
	f, ok := r.formats[namespace]
	return f, ok
}

// Plugins returns the merged catalog. Every id in it can be passed to
// Instantiate as is.
func (r *Registry) Plugins() []bats.PluginDescriptor {
	var ret []bats.PluginDescriptor
	for _, ns := range r.order {
		for _, d := range r.formats[ns].Plugins() {
			if d.ID.Namespace() != ns {
				continue
			}
			ret = append(ret, d)
		}
	}
	return ret
}

func (r *Registry) Descriptor(id bats.PluginID) (bats.PluginDescriptor, bool) {
	f, ok := r.formats[id.Namespace()]
	if !ok {
		return bats.PluginDescriptor{}, false
	}
	for _, d := range f.Plugins() {
		if d.ID == id {
			return d, true
		}
	}
	return bats.PluginDescriptor{}, false
}

// Instantiate constructs a unit of the plugin. Every failure is reported as
// bats.ErrPluginInstantiationFailed, wrapped with the reason.
func (r *Registry) Instantiate(id bats.PluginID, sampleRate, bufferSize int) (bats.Unit, error) {
	f, ok := r.formats[id.Namespace()]
	if !ok {
		return nil, errors.Wrapf(bats.ErrPluginInstantiationFailed, "no format for namespace %q of %v", id.Namespace(), id)
	}
	u, err := f.Instantiate(id, sampleRate, bufferSize)
	if err != nil {
		if errors.Cause(err) == bats.ErrPluginInstantiationFailed {
			return nil, err
		}
		return nil, errors.Wrapf(bats.ErrPluginInstantiationFailed, "%v: %v", id, err)
	}
	if u == nil {
		return nil, errors.Wrapf(bats.ErrPluginInstantiationFailed, "%v: format returned no unit", id)
	}
	return u, nil
}

// Close closes the formats implementing io.Closer.
func (r *Registry) Close() error {
	var first error
	for _, ns := range r.order {
		if c, ok := r.formats[ns].(interface{ Close() error }); ok {
			if err := c.Close(); err != nil && first == nil {
				first = errors.Wrapf(err, "close format %v", ns)
			}
		}
	}
	return first
}
