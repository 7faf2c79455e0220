package ingest

// State is the ingestion run lifecycle. Ready and Error are terminal; a new
// run starts from a fresh orchestrator, never by resetting an old one.
type State int

const (
	StateIdle State = iota
	StateFetchingMetadata
	StateFetchingRows
	StateParsing
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateFetchingMetadata:
		return "FetchingMetadata"
	case StateFetchingRows:
		return "FetchingRows"
	case StateParsing:
		return "Parsing"
	case StateReady:
		return "Ready"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Label is the human-readable phase description surfaced to callers for
// progress feedback.
func (s State) Label() string {
	switch s {
	case StateIdle:
		return "Waiting to start"
	case StateFetchingMetadata:
		return "Fetching spreadsheet metadata"
	case StateFetchingRows:
		return "Fetching sheet rows"
	case StateParsing:
		return "Parsing translation keys"
	case StateReady:
		return "Done"
	case StateError:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no further transition can leave s.
func (s State) Terminal() bool {
	return s == StateReady || s == StateError
}

// allowed encodes the valid transitions: the linear happy path plus Error
// from any non-terminal state.
func allowed(from, to State) bool {
	if to == StateError {
		return !from.Terminal()
	}
	switch from {
	case StateIdle:
		return to == StateFetchingMetadata
	case StateFetchingMetadata:
		return to == StateFetchingRows
	case StateFetchingRows:
		return to == StateParsing
	case StateParsing:
		return to == StateReady
	default:
		return false
	}
}
