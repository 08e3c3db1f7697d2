package plugin_test

import (
	"testing"

	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/vsariola/bats"
	"github.com/vsariola/bats/plugin"
	"github.com/vsariola/bats/plugin/builtin"
	"github.com/vsariola/bats/plugin/sample"
)

type fakeFormat struct {
	namespace string
	plugins   []bats.PluginDescriptor
	err       error
	closed    bool
}

func (f *fakeFormat) Namespace() string { return f.namespace }
func (f *fakeFormat) Plugins() []bats.PluginDescriptor { return f.plugins }
func (f *fakeFormat) Close() error { f.closed = true; return nil }

func (f *fakeFormat) Instantiate(id bats.PluginID, sampleRate, bufferSize int) (bats.Unit, error) {
	if f.err != nil {
		return nil, f.err
	}
	return builtin.Empty{}, nil
}

func TestRegistryCatalog(t *testing.T) {
	lv2 := &fakeFormat{namespace: "lv2", plugins: []bats.PluginDescriptor{
		{ID: "lv2:mda/EPiano", Name: "MDA EPiano", Instrument: true},
		{ID: "vst2:stray", Name: "not in the namespace"},
	}}
	r, err := plugin.NewRegistry(builtin.Format{}, lv2, sample.NewFormat(""))
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	catalog := r.Plugins()
	if len(catalog) != len(builtin.Format{}.Plugins())+1 {
		t.Fatalf("catalog has %d plugins", len(catalog))
	}
	if last := catalog[len(catalog)-1]; last.ID != "lv2:mda/EPiano" {
		t.Errorf("last plugin = %v, want lv2:mda/EPiano", last.ID)
	}
	for _, d := range catalog {
		got, ok := r.Descriptor(d.ID)
		if !ok || got.ID != d.ID {
			t.Errorf("Descriptor(%v) = %v, %v", d.ID, got.ID, ok)
		}
		if _, err := r.Instantiate(d.ID, 44100, 512); err != nil {
			t.Errorf("Instantiate(%v) failed: %v", d.ID, err)
		}
	}
	if _, ok := r.Descriptor("vst2:stray"); ok {
		t.Error("found a descriptor outside every namespace")
	}
	if ns := r.Namespaces(); len(ns) != 3 || ns[0] != "bats" || ns[1] != "lv2" || ns[2] != "sample" {
		t.Errorf("namespaces = %v", ns)
	}
	if err := r.Close(); err != nil || !lv2.closed {
		t.Errorf("Close() = %v, closed = %v", err, lv2.closed)
	}
}

func TestRegistryDuplicateNamespace(t *testing.T) {
	if _, err := plugin.NewRegistry(builtin.Format{}, &fakeFormat{namespace: "bats"}); err == nil {
		t.Error("registering a namespace twice succeeded")
	}
	if _, err := plugin.NewRegistry(&fakeFormat{}); err == nil {
		t.Error("registering an empty namespace succeeded")
	}
}

func TestRegistryInstantiationFailures(t *testing.T) {
	broken := &fakeFormat{namespace: "lv2", err: errors.New("no such uri")}
	r, err := plugin.NewRegistry(builtin.Format{}, broken)
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []bats.PluginID{"lv2:mda/EPiano", "ladspa:foo", "nonamespace", "bats:nope"} {
		t.Run(string(id), func(t *testing.T) {
			_, err := r.Instantiate(id, 44100, 512)
			if errors.Cause(err) != bats.ErrPluginInstantiationFailed {
				t.Fatalf("got %v, want ErrPluginInstantiationFailed", err)
			}
		})
	}
}
