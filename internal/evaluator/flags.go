package evaluator

// Flags control what scope a piece of code runs in and how a run request
// interacts with threads already running in the same context.
type Flags uint16

const (
	// scope of the code being processed
	FlagExpression Flags = 1 << iota // single expression, trailing garbage is an error
	FlagScriptBody                   // sequence of statements up to end of text
	FlagBlock                        // statements up to the enclosing '}'

	// run mode
	FlagSynchronously // run to completion on the caller, reject async functions
	FlagStopRunning   // pre-empt: abort running threads of the context first
	FlagQueue         // enqueue after running threads, FIFO
	FlagConcurrently  // run alongside already running threads
	FlagKeepVars      // do not clear context locals before the run
	FlagInitial       // first evaluation of a trigger expression
	FlagTimed         // evaluation caused by a scheduled re-evaluation timer
)

const scopeMask = FlagExpression | FlagScriptBody | FlagBlock
