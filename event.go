package dave

// Event is a sealed interface representing one event emitted by a remote run.
// Events arrive in emission order; the only ordering guarantee is that order,
// not grouping by track (text, code, output).
// The unexported marker method prevents external implementations.
type Event interface {
	event()
}

// EventTextCreated signals the start of a new piece of assistant narration.
type EventTextCreated struct{}

func (EventTextCreated) event() {}

// EventTextDelta carries a fragment of assistant narration.
type EventTextDelta struct {
	Delta string
}

func (EventTextDelta) event() {}

// EventTextDone signals the end of the current piece of narration.
type EventTextDone struct{}

func (EventTextDone) event() {}

// EventToolCallCreated signals the start of a code-interpreter call.
type EventToolCallCreated struct {
	ID string
}

func (EventToolCallCreated) event() {}

// EventToolCallDelta carries a fragment of generated code, execution outputs,
// or both. Either field may be empty.
type EventToolCallDelta struct {
	ID      string
	Input   string
	Outputs []CodeOutput
}

func (EventToolCallDelta) event() {}

// EventToolCallDone signals the end of a code-interpreter call.
type EventToolCallDone struct {
	ID string
}

func (EventToolCallDone) event() {}

// EventImageFileDone signals that the assistant produced an image, stored
// remotely under FileID.
type EventImageFileDone struct {
	FileID string
}

func (EventImageFileDone) event() {}

// EventTimeout signals that the run did not complete in time.
type EventTimeout struct{}

func (EventTimeout) event() {}

// EventException signals that the run failed mid-stream.
type EventException struct {
	Err error
}

func (EventException) event() {}

// OutputKind identifies the kind of a code-interpreter output.
type OutputKind string

const (
	OutputLogs  OutputKind = "logs"
	OutputImage OutputKind = "image"
)

// CodeOutput is one output of executed code.
type CodeOutput struct {
	Kind   OutputKind
	Logs   string // set for OutputLogs
	FileID string // set for OutputImage
}

// Interface compliance checks.
var (
	_ Event = EventTextCreated{}
	_ Event = EventTextDelta{}
	_ Event = EventTextDone{}
	_ Event = EventToolCallCreated{}
	_ Event = EventToolCallDelta{}
	_ Event = EventToolCallDone{}
	_ Event = EventImageFileDone{}
	_ Event = EventTimeout{}
	_ Event = EventException{}
)
