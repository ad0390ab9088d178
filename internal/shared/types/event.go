package types

// EventKind identifies a lifecycle transition
type EventKind string

const (
	EventStarted    EventKind = "started"
	EventTerminated EventKind = "terminated"
)

// Event is a lifecycle transition of one application
type Event struct {
	AppID string    `json:"id"`
	Kind  EventKind `json:"status"`
}

// Started builds a started event for appID
func Started(appID string) Event {
	return Event{AppID: appID, Kind: EventStarted}
}

// Terminated builds a terminated event for appID
func Terminated(appID string) Event {
	return Event{AppID: appID, Kind: EventTerminated}
}
