package profile

import (
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"

	"github.com/google/pprof/profile"
)

// since we are assuming usage of this package from a single go routine, this channel only has
// one "producer", and one "consumer". it's purpose is to guarantee the order of execution of
// adding / removing a profiling session and sampling events, while enabling the caller
// to sample the events asynchronously.
var chCommands = make(chan command, 100)
var onceInit sync.Once

type command struct {
	p      *Profile
	pc     []uintptr
	remove bool
}

func worker() {
	for c := range chCommands {
		if c.p != nil {
			if c.remove {
				for i := 0; i < len(sessions); i++ {
					if sessions[i] == c.p {
						sessions[i] = sessions[len(sessions)-1]
						sessions = sessions[:len(sessions)-1]
						break
					}
				}
				close(c.p.chDone)

				// decrement active sessions
				atomic.AddUint32(&activeSessions, ^uint32(0))
			} else {
				sessions = append(sessions, c.p)
			}
			continue
		}

		// it's a sampling of one cell assignment
		collectSample(c.pc)
	}

}

// collectSample must be called from the worker go routine
func collectSample(pc []uintptr) {
	// for each session we may have a distinct sample, since ids of functions and locations may mismatch
	samples := make([]*profile.Sample, len(sessions))
	for i := range samples {
		samples[i] = &profile.Sample{Value: []int64{1}} // for now, we just collect new assignments count
	}

	frames := runtime.CallersFrames(pc)
	// Loop to get frames.
	// A fixed number of pcs can expand to an indefinite number of Frames.
	for {
		frame, more := frames.Next()

		if strings.Contains(frame.Function, "frontend.Synthesize") {
			// we stop; previous frame was the circuit's Synthesize method
			break
		}

		// filter the prover and layouter plumbing below the public API.
		// anonymous functions stay: region bodies are closures and carry the
		// user's line information.
		if filterProverPrivateFunc(frame.Function) || filterLayouterPrivateFunc(frame.Function) {
			continue
		}

		// [...] from generics display poorly in pprof
		// https://github.com/golang/go/issues/54105
		frame.Function = strings.ReplaceAll(frame.Function, "[...]", "[T]")

		for i := range samples {
			samples[i].Location = append(samples[i].Location, sessions[i].getLocation(&frame))
		}

		if !more {
			break
		}
		if strings.HasSuffix(frame.Function, ".Synthesize") {
			for i := range sessions {
				sessions[i].onceSetName.Do(func() {
					// once per profile session, we set the "name of the binary"
					// here we grep the struct name where "Synthesize" exist: hopefully the circuit Name
					fe := strings.Split(frame.Function, "/")
					circuitName := strings.TrimSuffix(fe[len(fe)-1], ".Synthesize")
					sessions[i].pprof.Mapping = []*profile.Mapping{
						{ID: 1, File: circuitName},
					}
				})
			}
			// no break --> we break when we hit frontend.Synthesize; in case we have nested Synthesize calls in the stack.
		}
	}

	for i := range sessions {
		sessions[i].pprof.Sample = append(sessions[i].pprof.Sample, samples[i])
	}
}

func filterProverPrivateFunc(f string) bool {
	// filter mock prover private APIs from the trace.
	return filterPrivateMethod(f, "github.com/consensys/grille/mock.(*Prover")
}

func filterLayouterPrivateFunc(f string) bool {
	// filter layouter private APIs from the trace.
	return filterPrivateMethod(f, "github.com/consensys/grille/frontend.(")
}

// filterPrivateMethod reports whether f is an unexported method on a receiver
// matching prefix. The receiver may carry generic brackets, so the method
// name is everything after the last dot.
func filterPrivateMethod(f, prefix string) bool {
	if !strings.HasPrefix(f, prefix) {
		return false
	}
	i := strings.LastIndex(f, ".")
	if i < 0 || i+1 >= len(f) {
		return false
	}
	c := []rune(f[i+1:])[0]
	return unicode.IsLower(c)
}
