package pipeline

// State is a stage of one request
type State int

const (
	Idle State = iota
	Decoding
	Resampling
	Stamping
	Encoding
	Done
)

var stateNames = [...]string{
	Idle:       "idle",
	Decoding:   "decoding",
	Resampling: "resampling",
	Stamping:   "stamping",
	Encoding:   "encoding",
	Done:       "done",
}

func (s State) String() string {
	if s < Idle || s > Done {
		return "unknown"
	}
	return stateNames[s]
}

// Observer is told about every state transition of a request. err is nil
// except on Done for a failed request, where it carries the failure. It runs
// on the goroutine processing the request and must not block.
type Observer func(s State, err error)
