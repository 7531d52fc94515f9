package debug

import (
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// SymbolTable interns the call-stack frames collected while declaring
// constraints, so each recorded stack is a compact slice of location ids.
type SymbolTable struct {
	Locations  []Location
	Functions  []Function
	mFunctions map[string]int // frame.File+frame.Function to id in Functions
	mLocations map[uint64]int // frame PC to location id in Locations
}

// Location is one collected frame: a function and a line within it.
type Location struct {
	FunctionID int
	Line       int64
}

// Function identifies a function by its short name, fully qualified name
// and defining file.
type Function struct {
	Name       string
	SystemName string
	Filename   string
}

func NewSymbolTable() SymbolTable {
	return SymbolTable{
		mFunctions: map[string]int{},
		mLocations: map[uint64]int{},
	}
}

// CollectStack records the current call stack, trimmed to the circuit code,
// and returns it as location ids into the table. Release builds keep at most
// two frames.
func (st *SymbolTable) CollectStack() []int {
	var r []int
	if Debug {
		r = make([]int, 0, 5)
	} else {
		r = make([]int, 0, 2)
	}
	// we stop when func name == Synthesize as it is where the circuit code should start

	var pc [20]uintptr
	n := runtime.Callers(3, pc[:])
	if n == 0 {
		return r
	}
	frames := runtime.CallersFrames(pc[:n])
	cpt := 0
	for {
		frame, more := frames.Next()
		fe := strings.Split(frame.Function, "/")
		function := fe[len(fe)-1]

		if !Debug {
			if cpt == 2 {
				// limit stack size to 2 when debug is not set.
				break
			}
			if strings.Contains(function, "runtime.gopanic") {
				continue
			}
			if strings.Contains(function, "frontend.(*singleLayouter)") {
				continue
			}
			if strings.Contains(frame.File, "grille/frontend") {
				continue
			}
			if strings.Contains(frame.File, "grille/mock") {
				continue
			}
			frame.File = filepath.Base(frame.File)
		}

		r = append(r, st.locationID(&frame))
		cpt++

		if !more {
			break
		}
		if strings.HasSuffix(function, "Synthesize") {
			break
		}
	}
	return r
}

// Sprint renders a stack previously returned by CollectStack.
func (st *SymbolTable) Sprint(stack []int) string {
	var sbb strings.Builder
	for _, lID := range stack {
		if lID < 0 || lID >= len(st.Locations) {
			continue
		}
		l := st.Locations[lID]
		f := st.Functions[l.FunctionID]
		sbb.WriteString(f.Name)
		sbb.WriteByte('\n')
		sbb.WriteByte('\t')
		sbb.WriteString(f.Filename)
		sbb.WriteByte(':')
		sbb.WriteString(strconv.Itoa(int(l.Line)))
		sbb.WriteByte('\n')
	}
	return sbb.String()
}

func (st *SymbolTable) locationID(frame *runtime.Frame) int {
	lID, ok := st.mLocations[uint64(frame.PC)]
	if !ok {
		// first let's see if we have the function.
		fID, ok := st.mFunctions[frame.File+frame.Function]
		if !ok {
			fe := strings.Split(frame.Function, "/")
			fName := fe[len(fe)-1]
			f := Function{
				Name:       fName,
				SystemName: frame.Function,
				Filename:   frame.File,
			}

			st.Functions = append(st.Functions, f)
			fID = len(st.Functions) - 1
			st.mFunctions[frame.File+frame.Function] = fID
		}

		l := Location{FunctionID: fID, Line: int64(frame.Line)}

		st.Locations = append(st.Locations, l)
		lID = len(st.Locations) - 1
		st.mLocations[uint64(frame.PC)] = lID
	}

	return lID
}
