package audit

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger()
	logger.SetWriter(&buf)

	event := LoginEvent{
		Username:     "alice",
		PersistentID: "4f1c2a",
		Role:         "student",
		ClientIP:     "192.168.1.1",
		Success:      true,
	}

	logger.Log(event)

	output := buf.String()

	// PRI = authpriv(10)*8 + info(6)
	if !strings.HasPrefix(output, "<86>1 ") {
		t.Errorf("Expected PRI <86>1 prefix, got %q", output)
	}
	if !strings.Contains(output, "quizdesk") {
		t.Error("Expected app name 'quizdesk' in output")
	}
	if !strings.Contains(output, " login ") {
		t.Error("Expected message ID 'login' in output")
	}
	if !strings.Contains(output, `[client@32473 ip="192.168.1.1"]`) {
		t.Errorf("Expected client structured data in output, got %q", output)
	}
	if !strings.Contains(output, "alice logged in as 4f1c2a with role student") {
		t.Error("Expected login message in output")
	}
}

func TestStructuredDataIsSorted(t *testing.T) {
	got := formatStructuredData(map[string]map[string]string{
		SDIDSubject: {"role": "admin", "id": "p1"},
		SDIDAction:  {"result": "success", "operation": "login"},
	})
	want := `[action@32473 operation="login" result="success"][subject@32473 id="p1" role="admin"]`
	if got != want {
		t.Errorf("formatStructuredData() = %q, want %q", got, want)
	}
}

func TestEscapeSDValue(t *testing.T) {
	got := escapeSDValue(`a"b]c\d`)
	want := `"a\"b\]c\\d"`
	if got != want {
		t.Errorf("escapeSDValue() = %q, want %q", got, want)
	}
}

func TestLoginEvent(t *testing.T) {
	tests := []struct {
		name    string
		event   LoginEvent
		wantMsg string
		wantSev Severity
	}{
		{
			name:    "returning user",
			event:   LoginEvent{Username: "alice", PersistentID: "p1", Role: "admin", Success: true},
			wantMsg: "alice logged in as p1",
			wantSev: SeverityInfo,
		},
		{
			name:    "new account",
			event:   LoginEvent{Username: "bob", PersistentID: "p2", Role: "student", Created: true, Success: true},
			wantMsg: "bob created account p2",
			wantSev: SeverityInfo,
		},
		{
			name:    "failure",
			event:   LoginEvent{Username: "carol", ErrorMessage: "store unavailable"},
			wantMsg: "carol failed to log in: store unavailable",
			wantSev: SeverityWarning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(tt.event.Message(), tt.wantMsg) {
				t.Errorf("Message() = %q, want to contain %q", tt.event.Message(), tt.wantMsg)
			}
			if tt.event.Severity() != tt.wantSev {
				t.Errorf("Severity() = %v, want %v", tt.event.Severity(), tt.wantSev)
			}
			if tt.event.MessageID() != "login" {
				t.Errorf("MessageID() = %v, want 'login'", tt.event.MessageID())
			}
		})
	}

	if _, ok := (LoginEvent{Username: "carol"}).StructuredData()[SDIDSubject]; ok {
		t.Error("failed login without persistent id should carry no subject")
	}
}

func TestLogoutEvent(t *testing.T) {
	ok := LogoutEvent{PersistentID: "p1", Success: true}
	if ok.Message() != "p1 logged out" {
		t.Errorf("Message() = %q", ok.Message())
	}

	failed := LogoutEvent{PersistentID: "p1", ErrorMessage: "timeout"}
	if !strings.Contains(failed.Message(), "logged out locally but sign-out failed: timeout") {
		t.Errorf("Message() = %q", failed.Message())
	}
	if failed.Severity() != SeverityWarning {
		t.Errorf("Severity() = %v, want SeverityWarning", failed.Severity())
	}
}

func TestReconcileEvent(t *testing.T) {
	degraded := ReconcileEvent{CredentialID: "c1", PersistentID: "c1", Role: "admin", Source: "fallback", Degraded: true}
	if degraded.Severity() != SeverityWarning {
		t.Errorf("Severity() = %v, want SeverityWarning", degraded.Severity())
	}
	if !strings.Contains(degraded.Message(), "degraded fallback") {
		t.Errorf("Message() = %q", degraded.Message())
	}

	resumed := ReconcileEvent{CredentialID: "c1", PersistentID: "p1", Role: "student", Source: "cache"}
	if resumed.Message() != "session resumed as p1 with role student from cache" {
		t.Errorf("Message() = %q", resumed.Message())
	}

	cleared := ReconcileEvent{Source: "restore", Cleared: true}
	if !strings.Contains(cleared.Message(), "cleared") {
		t.Errorf("Message() = %q", cleared.Message())
	}
}

func TestAuthorizeEvent(t *testing.T) {
	event := AuthorizeEvent{Role: "", Path: "/home", Class: "admin-only", Reason: "login-required"}
	if event.Message() != "anonymous denied /home (admin-only): login-required" {
		t.Errorf("Message() = %q", event.Message())
	}
	if event.StructuredData()[SDIDAction]["reason"] != "login-required" {
		t.Error("expected reason in structured data")
	}
}

func TestSetEnabled(t *testing.T) {
	defer SetEnabled(true)

	var buf bytes.Buffer
	DefaultLogger.SetWriter(&buf)
	defer DefaultLogger.SetWriter(os.Stdout)

	SetEnabled(false)
	Log(LogoutEvent{PersistentID: "p1", Success: true})
	if buf.Len() != 0 {
		t.Errorf("expected no output while disabled, got %q", buf.String())
	}
}
