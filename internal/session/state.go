package session

type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateHandshaking
	StateRequesting
	StateListening
	StateDraining
	StateClosed
	StateAborted
)

var stateNames = [...]string{
	StateIdle:        "idle",
	StateConnecting:  "connecting",
	StateHandshaking: "handshaking",
	StateRequesting:  "requesting",
	StateListening:   "listening",
	StateDraining:    "draining",
	StateClosed:      "closed",
	StateAborted:     "aborted",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "invalid"
	}
	return stateNames[s]
}

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateAborted
}
