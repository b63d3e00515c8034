package models

// ClientContext is the resolved browser/platform/IP descriptor for one request.
// The security core treats it as opaque input; parsing lives in the useragent
// package.
type ClientContext struct {
	IPPrivate      string `json:"ip_private"`
	IPPublic       string `json:"ip_public"`
	Browser        string `json:"browser"`
	BrowserVersion string `json:"browser_version"`
	Platform       string `json:"platform"`
	UserAgent      string `json:"user_agent"`
}

// IsZero reports whether no context has been captured yet.
func (c ClientContext) IsZero() bool {
	return c == ClientContext{}
}
