package dave

// EventUnknown stands in for an event kind added upstream that the reducer
// does not recognize yet.
type EventUnknown struct{}

func (EventUnknown) event() {}
