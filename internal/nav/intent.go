package nav

// IntentKind identifies a navigation request.
type IntentKind int

const (
	IntentLoadURL IntentKind = iota + 1
	IntentGoBack
	IntentGoForward
)

func (k IntentKind) String() string {
	switch k {
	case IntentLoadURL:
		return "load_url"
	case IntentGoBack:
		return "go_back"
	case IntentGoForward:
		return "go_forward"
	default:
		return "unknown"
	}
}

// Intent is a requested navigation. URL is only meaningful for IntentLoadURL
// and is validated by Session.Submit, not here.
type Intent struct {
	Kind IntentKind
	URL  string
}

// LoadURL requests a load of raw as a new history entry.
func LoadURL(raw string) Intent {
	return Intent{Kind: IntentLoadURL, URL: raw}
}

// GoBack requests a move to the previous history entry.
func GoBack() Intent {
	return Intent{Kind: IntentGoBack}
}

// GoForward requests a move to the next history entry.
func GoForward() Intent {
	return Intent{Kind: IntentGoForward}
}

// LoadID identifies one load issued to the surface. Zero is reserved for
// navigations the surface started on its own.
type LoadID uint64

// LoadRequest is handed to the Surface for every accepted intent.
type LoadRequest struct {
	ID       LoadID
	Location Location
	Kind     IntentKind
}

// Surface is the rendering engine. IssueLoad must not block, and every
// issued load must eventually be answered with exactly one of
// Session.OnLoadFinished or Session.OnLoadFailed carrying the same ID,
// delivered on the session's owner goroutine. Answering from inside IssueLoad
// is allowed.
type Surface interface {
	IssueLoad(req LoadRequest)
}
