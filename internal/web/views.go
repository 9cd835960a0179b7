package web

// Meta carries values every template's head section reads.
type Meta struct {
	Title          string
	RefreshSeconds int
}

// FileRow is one manifest entry prepared for display.
type FileRow struct {
	ID          string
	FileName    string
	Name        string
	Directory   string
	Size        int64
	SizeText    string
	FileType    string
	SHA256      string
	Preview     string
	DownloadURL string
	DetailURL   string
}

// PageView is the data for the "page" template. Status is one of missing,
// loading, needs_pin, error or ready.
type PageView struct {
	Meta
	PageID      string
	SessionID   string
	Status      string
	Message     string
	Retryable   bool
	PinURL      string
	RetryURL    string
	SenderAlias string
	SenderModel string
	Files       []FileRow
	TotalText   string
	ShareURL    string
	QRURL       string
}

// DetailView is the data for the "detail" template.
type DetailView struct {
	Meta
	File    FileRow
	BackURL string
}

// MessageView is the data for simple message templates such as "notfound".
type MessageView struct {
	Meta
	Message string
}
