package player

// CommandKind enumerates the runtime controls a device operator can issue.
type CommandKind int

const (
	// CmdSkip advances to the next item immediately.
	CmdSkip CommandKind = iota
	// CmdQuit stops the scheduler loop.
	CmdQuit
	// CmdSequential switches local-scan selection to sequential mode.
	CmdSequential
	// CmdRandom switches local-scan selection to random mode.
	CmdRandom
	// CmdToggleLoop flips the loop flag.
	CmdToggleLoop
	// CmdLonger increases both display durations by one step.
	CmdLonger
	// CmdShorter decreases both display durations by one step.
	CmdShorter
)

// Command is one input event fed to the scheduler.
type Command struct {
	Kind CommandKind
}
