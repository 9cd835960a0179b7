package models

// PageStatus names the variant of a PageState.
type PageStatus string

const (
	PageStatusLoading  PageStatus = "loading"
	PageStatusNeedsPin PageStatus = "needs_pin"
	PageStatusError    PageStatus = "error"
	PageStatusReady    PageStatus = "ready"
)

// ErrorKind classifies why a session could not be loaded.
type ErrorKind string

const (
	ErrorKindMissingSession ErrorKind = "missing_session"
	ErrorKindAuthRequired   ErrorKind = "auth_required"
	ErrorKindRequestFailed  ErrorKind = "request_failed"
	ErrorKindParseFailed    ErrorKind = "parse_failed"
	ErrorKindNetworkFailed  ErrorKind = "network_failed"
)

// PageState is the state of one download page. Exactly one variant is active:
// Loading, NeedsPin, Failed or Ready.
type PageState interface {
	Status() PageStatus
	isPageState()
}

// Loading is active while a prepare-download request is in flight.
type Loading struct{}

// NeedsPin is active after the upstream answered 401.
type NeedsPin struct {
	Message string
}

// Failed is active after any other load failure.
type Failed struct {
	Kind      ErrorKind
	Message   string
	Retryable bool
}

// Ready holds the loaded manifest.
type Ready struct {
	Manifest *Manifest
}

func (Loading) Status() PageStatus  { return PageStatusLoading }
func (NeedsPin) Status() PageStatus { return PageStatusNeedsPin }
func (Failed) Status() PageStatus   { return PageStatusError }
func (Ready) Status() PageStatus    { return PageStatusReady }

func (Loading) isPageState()  {}
func (NeedsPin) isPageState() {}
func (Failed) isPageState()   {}
func (Ready) isPageState()    {}
