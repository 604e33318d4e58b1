package audit

import "fmt"

// AuthorizeEvent records a navigation decision. Only denials are logged by
// the server; allowed navigations are too frequent to be useful.
type AuthorizeEvent struct {
	PersistentID string
	Role         string
	Path         string
	Class        string
	ClientIP     string
	Allowed      bool
	Reason       string
}

func (e AuthorizeEvent) MessageID() string {
	return "authorize"
}

func (e AuthorizeEvent) Message() string {
	user := e.PersistentID
	if user == "" {
		user = "anonymous"
	}
	if e.Allowed {
		return fmt.Sprintf("%s allowed to open %s", user, e.Path)
	}
	return fmt.Sprintf("%s denied %s (%s): %s", user, e.Path, e.Class, e.Reason)
}

func (e AuthorizeEvent) Severity() Severity {
	if e.Allowed {
		return SeverityInfo
	}
	return SeverityNotice
}

func (e AuthorizeEvent) Facility() int {
	return FacilityAuth
}

func (e AuthorizeEvent) StructuredData() map[string]map[string]string {
	sd := map[string]map[string]string{
		SDIDSubject: {
			"id":   e.PersistentID,
			"role": e.Role,
		},
		SDIDAction: {
			"operation": "authorize",
			"path":      e.Path,
			"class":     e.Class,
			"result":    result(e.Allowed),
		},
	}
	if e.Reason != "" {
		sd[SDIDAction]["reason"] = e.Reason
	}
	if e.ClientIP != "" {
		sd[SDIDClient] = map[string]string{"ip": e.ClientIP}
	}
	return sd
}
