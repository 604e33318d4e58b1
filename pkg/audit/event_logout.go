package audit

import "fmt"

// LogoutEvent records a logout. Local state is cleared even when the
// provider sign-out fails, so a failed event still means "logged out here".
type LogoutEvent struct {
	PersistentID string
	ClientIP     string
	Success      bool
	ErrorMessage string
}

func (e LogoutEvent) MessageID() string {
	return "logout"
}

func (e LogoutEvent) Message() string {
	user := e.PersistentID
	if user == "" {
		user = "anonymous session"
	}
	if e.Success {
		return fmt.Sprintf("%s logged out", user)
	}
	msg := fmt.Sprintf("%s logged out locally but sign-out failed", user)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e LogoutEvent) Severity() Severity {
	if e.Success {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e LogoutEvent) Facility() int {
	return FacilityAuthPriv
}

func (e LogoutEvent) StructuredData() map[string]map[string]string {
	sd := map[string]map[string]string{
		SDIDSubject: {"id": e.PersistentID},
		SDIDAction: {
			"operation": "logout",
			"result":    result(e.Success),
		},
	}
	if e.ClientIP != "" {
		sd[SDIDClient] = map[string]string{"ip": e.ClientIP}
	}
	return sd
}
