//go:build vst2

// Package vst2 hosts VST 2.x plugins through pipelined.dev/audio/vst2. It is
// only built with the vst2 build tag, as it needs cgo and the VST SDK
// headers.
package vst2

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unsafe"

	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/vsariola/bats"
	"pipelined.dev/audio/vst2"
)

type (
	// Format lists the VST2 libraries found in its search paths. The plugin
	// id is the base name of the library without extension, e.g.
	// "vst2:TAL-NoiseMaker".
	Format struct {
		paths []string
		once  sync.Once
		libs  map[string]string // name to path
		names []string
	}

	// Unit is one loaded VST2 plugin.
	Unit struct {
		vst    *vst2.VST
		plugin *vst2.Plugin
		in     vst2.FloatBuffer
		out    vst2.FloatBuffer
		frames int
		params []bats.ParamInfo
	}
)

const Namespace = "vst2"

var libraryExtensions = map[string]bool{".dll": true, ".so": true, ".vst": true, ".dylib": true}

func NewFormat(paths ...string) *Format {
	return &Format{paths: paths}
}

func (f *Format) Namespace() string { return Namespace }

func (f *Format) scan() {
	f.libs = map[string]string{}
	for _, dir := range f.paths {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if !libraryExtensions[ext] {
				continue
			}
			name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
			if _, ok := f.libs[name]; ok {
				continue
			}
			f.libs[name] = filepath.Join(dir, e.Name())
			f.names = append(f.names, name)
		}
	}
}

func (f *Format) Plugins() []bats.PluginDescriptor {
	f.once.Do(f.scan)
	ret := make([]bats.PluginDescriptor, len(f.names))
	for i, name := range f.names {
		ret[i] = bats.PluginDescriptor{
			ID:      bats.NewPluginID(Namespace, name),
			Name:    name,
			Classes: []string{"vst2"},
			Ports:   bats.Ports{AudioIn: 2, AudioOut: 2, MIDIIn: true},
		}
	}
	return ret
}

func (f *Format) Instantiate(id bats.PluginID, sampleRate, bufferSize int) (bats.Unit, error) {
	f.once.Do(f.scan)
	path, ok := f.libs[id.Name()]
	if !ok {
		return nil, errors.Errorf("vst2 library %v not found", id.Name())
	}
	vst, err := vst2.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %v", path)
	}
	plugin := vst.Plugin(hostCallback(sampleRate, bufferSize))
	if plugin == nil {
		vst.Close()
		return nil, errors.Errorf("create instance of %v", path)
	}
	plugin.SetSampleRate(sampleRate)
	plugin.SetBufferSize(bufferSize)
	plugin.Start()
	u := &Unit{
		vst:    vst,
		plugin: plugin,
		in:     vst2.NewFloatBuffer(2, bufferSize),
		out:    vst2.NewFloatBuffer(2, bufferSize),
		frames: bufferSize,
	}
	for i := 0; i < plugin.NumParams(); i++ {
		u.params = append(u.params, bats.ParamInfo{ID: i, Name: plugin.ParamName(i), Default: plugin.ParamValue(i), Min: 0, Max: 1})
	}
	return u, nil
}

func hostCallback(sampleRate, bufferSize int) vst2.HostCallbackFunc {
	return func(op vst2.HostOpcode, index int32, value int64, ptr unsafe.Pointer, opt float32) int64 {
		switch op {
		case vst2.HostGetSampleRate:
			return int64(sampleRate)
		case vst2.HostGetBufferSize:
			return int64(bufferSize)
		case vst2.HostGetVendorVersion:
			return 1
		}
		return 0
	}
}

func (u *Unit) Ports() bats.Ports { return bats.Ports{AudioIn: 2, AudioOut: 2, MIDIIn: true} }

// Process runs the plugin. Calls longer than the buffer size the plugin was
// created with are processed in chunks.
// TODO: forward events to the plugin with effProcessEvents.
func (u *Unit) Process(in, out [][]float32, events []bats.MIDIEvent) error {
	n := len(out[0])
	for start := 0; start < n; start += u.frames {
		end := min(start+u.frames, n)
		for c := 0; c < 2; c++ {
			ch := u.in.Channel(c)
			if c < len(in) {
				copy(ch, in[c][start:end])
			} else {
				clear(ch)
			}
		}
		u.plugin.ProcessFloat(u.in, u.out)
		for c := range out {
			copy(out[c][start:end], u.out.Channel(c)[:end-start])
		}
	}
	return nil
}

func (u *Unit) Params() []bats.ParamInfo { return u.params }

func (u *Unit) Param(id int) float32 {
	return u.plugin.ParamValue(id)
}

func (u *Unit) SetParam(id int, value float32) {
	if id < 0 || id >= len(u.params) {
		return
	}
	u.plugin.SetParamValue(id, min(max(value, 0), 1))
}

func (u *Unit) Close() error {
	u.plugin.Close()
	u.in.Free()
	u.out.Free()
	return u.vst.Close()
}
