package sample

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/vsariola/bats"
)

type (
	// Format exposes every .wav file below a directory as a sampler plugin.
	// The plugin id is the slash separated path of the file relative to the
	// directory, e.g. "sample:drums/kick.wav". Decoded samples are cached per
	// sample rate.
	Format struct {
		dir   string
		mutex sync.Mutex
		cache map[cacheKey]*Sample
	}

	cacheKey struct {
		name       string
		sampleRate int
	}
)

const Namespace = "sample"

func NewFormat(dir string) *Format {
	return &Format{dir: dir, cache: map[cacheKey]*Sample{}}
}

func (f *Format) Namespace() string { return Namespace }

func (f *Format) Dir() string { return f.dir }

// Plugins scans the directory. An empty or missing directory has no plugins.
func (f *Format) Plugins() []bats.PluginDescriptor {
	if f.dir == "" {
		return nil
	}
	var names []string
	filepath.WalkDir(f.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".wav") {
			return nil
		}
		if rel, err := filepath.Rel(f.dir, path); err == nil {
			names = append(names, filepath.ToSlash(rel))
		}
		return nil
	})
	sort.Strings(names)
	ret := make([]bats.PluginDescriptor, len(names))
	for i, name := range names {
		ret[i] = bats.PluginDescriptor{
			ID:         bats.NewPluginID(Namespace, name),
			Name:       strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)),
			Classes:    []string{"instrument", "sampler"},
			Instrument: true,
			Ports:      bats.Ports{AudioOut: 2, MIDIIn: true},
		}
	}
	return ret
}

func (f *Format) Instantiate(id bats.PluginID, sampleRate, bufferSize int) (bats.Unit, error) {
	s, err := f.load(id.Name(), sampleRate)
	if err != nil {
		return nil, err
	}
	return NewSampler(s), nil
}

func (f *Format) load(name string, sampleRate int) (*Sample, error) {
	if f.dir == "" {
		return nil, errors.New("no sample directory configured")
	}
	clean := filepath.FromSlash(name)
	if !filepath.IsLocal(clean) {
		return nil, errors.Errorf("sample %q outside the sample directory", name)
	}
	key := cacheKey{name: name, sampleRate: sampleRate}
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if s, ok := f.cache[key]; ok {
		return s, nil
	}
	s, err := Load(filepath.Join(f.dir, clean))
	if err != nil {
		return nil, err
	}
	s = s.Resample(sampleRate)
	f.cache[key] = s
	return s, nil
}
