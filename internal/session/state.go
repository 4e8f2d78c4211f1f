package session

type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateRecording  State = "recording"
	StateListening  State = "listening"
	StateProcessing State = "processing"
	StateError      State = "error"
)

// Mode distinguishes meeting capture from voice scheduling commands.
type Mode string

const (
	ModeMeeting Mode = "meeting"
	ModeCommand Mode = "command"
)

// open reports whether a capture session and channel may be live.
func (s State) open() bool {
	return s == StateConnecting || s == StateRecording || s == StateListening
}

// Status is a point-in-time view of the session for the display layer.
type Status struct {
	State         State  `json:"state"`
	Mode          Mode   `json:"mode,omitempty"`
	AppointmentID string `json:"appointment_id,omitempty"`
	Date          string `json:"date,omitempty"`
	Language      string `json:"language,omitempty"`
	Elapsed       int    `json:"elapsed"`
	Transcript    string `json:"transcript"`
	Error         string `json:"error,omitempty"`
	Err           error  `json:"-"`
}
