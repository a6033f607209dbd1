package util

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Options holds the configuration of one compiler invocation. It is populated from command line flags.
type Options struct {
	Src     []string // Paths to AST documents. Empty means stdin.
	Out     string   // Path to output file. Empty means stdout.
	Threads int      // Number of translation units generated in parallel.
	Verbose bool     // Set true if compiler should log debug information to stderr.
	LLVM    bool     // Set true if the tile IR should be translated to LLVM IR before output.
}

// ---------------------
// ----- Constants -----
// ---------------------

// MaxThreads is the maximum number of translation units generated in parallel.
const MaxThreads = 64

// AppVersion is printed by the version flag.
const AppVersion = "tlc 0.3.0"

// ---------------------
// ----- functions -----
// ---------------------

// ThreadCount returns the number of worker go routines to use for n units of work.
func (opt Options) ThreadCount(n int) int {
	t := opt.Threads
	if t < 1 {
		t = 1
	}
	if t > MaxThreads {
		t = MaxThreads
	}
	if t > n && n > 0 {
		t = n
	}
	return t
}
