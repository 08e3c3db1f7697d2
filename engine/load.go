package engine

import (
	"math"
	"time"
)

// DefaultLoadTimeConstant is the time constant of the CPU load smoothing.
const DefaultLoadTimeConstant = 250 * time.Millisecond

type (
	// Load are the callback timing statistics. A load of 1 means the callback
	// used its whole buffer period.
	Load struct {
		Smoothed float64 // exponentially smoothed load
		Last     float64 // load of the last buffer
		Peak     float64 // highest load of a single buffer so far
		Overrun  bool    // the last buffer overran its period
		Overruns uint64
	}

	loadMeter struct {
		tau  time.Duration
		load Load
	}
)

// update folds the timing of one buffer into the statistics. The smoothing
// factor depends on the period so that the time constant holds regardless of
// the buffer size.
func (m *loadMeter) update(elapsed, period time.Duration, overrun bool) {
	if period <= 0 {
		return
	}
	raw := elapsed.Seconds() / period.Seconds()
	alpha := 1.0
	if m.tau > 0 {
		alpha = 1 - math.Exp(-period.Seconds()/m.tau.Seconds())
	}
	m.load.Smoothed += alpha * (raw - m.load.Smoothed)
	m.load.Last = raw
	if raw > m.load.Peak {
		m.load.Peak = raw
	}
	overrun = overrun || elapsed > period
	m.load.Overrun = overrun
	if overrun {
		m.load.Overruns++
	}
}

// CPULoad is the public load figure in [0, 1]: the smoothed load, forced to 1
// when the last buffer overran.
func (l Load) CPULoad() float64 {
	v := l.Smoothed
	if l.Overrun {
		v = 1
	}
	return math.Max(0, math.Min(1, v))
}
