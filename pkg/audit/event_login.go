package audit

import "fmt"

// LoginEvent records a username login attempt.
type LoginEvent struct {
	Username     string
	PersistentID string
	Role         string
	ClientIP     string
	// Created is true when the login created a new account.
	Created      bool
	Success      bool
	ErrorMessage string
}

func (e LoginEvent) MessageID() string {
	return "login"
}

func (e LoginEvent) Message() string {
	if !e.Success {
		msg := fmt.Sprintf("%s failed to log in", e.Username)
		if e.ErrorMessage != "" {
			msg += ": " + e.ErrorMessage
		}
		return msg
	}
	if e.Created {
		return fmt.Sprintf("%s created account %s with role %s", e.Username, e.PersistentID, e.Role)
	}
	return fmt.Sprintf("%s logged in as %s with role %s", e.Username, e.PersistentID, e.Role)
}

func (e LoginEvent) Severity() Severity {
	if e.Success {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e LoginEvent) Facility() int {
	return FacilityAuthPriv
}

func (e LoginEvent) StructuredData() map[string]map[string]string {
	sd := map[string]map[string]string{
		SDIDAuth: {
			"user": e.Username,
		},
		SDIDAction: {
			"operation": "login",
			"result":    result(e.Success),
		},
	}
	if e.PersistentID != "" {
		sd[SDIDSubject] = map[string]string{"id": e.PersistentID, "role": e.Role}
	}
	if e.ClientIP != "" {
		sd[SDIDClient] = map[string]string{"ip": e.ClientIP}
	}
	return sd
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
