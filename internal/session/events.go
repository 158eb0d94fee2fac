package session

// EventKind tags an Event.
type EventKind int

const (
	// EventNotify follows every accepted Capture, before it is persisted.
	EventNotify EventKind = iota
	// EventUpdateSession follows every persisted capture.
	EventUpdateSession
	// EventUndo follows every applied undo.
	EventUndo
	// EventUpdateFilename follows a rotation; the session is now known by NewID.
	EventUpdateFilename
	// EventWarning asks the user to act, e.g. close a program holding the file.
	EventWarning
	// EventCopyResult reports the outcome of CopyAll or CopyMasterFile.
	EventCopyResult
)

func (k EventKind) String() string {
	switch k {
	case EventNotify:
		return "notify"
	case EventUpdateSession:
		return "update"
	case EventUndo:
		return "undo"
	case EventUpdateFilename:
		return "rename"
	case EventWarning:
		return "warning"
	case EventCopyResult:
		return "copy"
	}
	return "unknown"
}

// Event is one state change reported by an Engine. Which fields are set
// depends on Kind.
type Event struct {
	Kind  EventKind
	ID    string // session id at the time of the event
	Count int
	Size  string

	OldID string // EventUpdateFilename
	NewID string

	Title   string // EventWarning
	Message string

	OK bool // EventCopyResult
}

// Observer receives engine events. It is called from the engine's worker
// goroutines and from Capture's caller, so it must be safe for concurrent use
// and should not block for long.
type Observer func(Event)
