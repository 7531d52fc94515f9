//go:build !debug

package debug

// Debug controls the verbosity of collected stacks: release builds keep them
// shallow and strip non-circuit frames. Build with -tags=debug for full
// stacks.
const Debug = false
