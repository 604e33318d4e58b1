package audit

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestStoreSave(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStoreWithDB(db)

	event := LoginEvent{
		Username:     "alice",
		PersistentID: "p1",
		Role:         "admin",
		ClientIP:     "10.0.0.1",
		Success:      true,
	}

	mock.ExpectExec(`INSERT INTO messages`).
		WithArgs(
			FacilityAuthPriv,  // facility
			int(SeverityInfo), // severity
			sqlmock.AnyArg(),  // timestamp
			sqlmock.AnyArg(),  // hostname
			"quizdesk",        // appname
			sqlmock.AnyArg(),  // procid
			"login",           // msgid
			sqlmock.AnyArg(),  // sdata (JSON)
			sqlmock.AnyArg(),  // message
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = store.Save(event)
	if err != nil {
		t.Errorf("Save() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStoreSaveReconcileEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStoreWithDB(db)

	event := ReconcileEvent{
		CredentialID: "c1",
		PersistentID: "c1",
		Role:         "admin",
		Source:       "fallback",
		Degraded:     true,
	}

	mock.ExpectExec(`INSERT INTO messages`).
		WithArgs(
			FacilityAuth,
			int(SeverityWarning),
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
			"quizdesk",
			sqlmock.AnyArg(),
			"reconcile",
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = store.Save(event)
	if err != nil {
		t.Errorf("Save() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStoreSaveNilDB(t *testing.T) {
	store := &Store{}
	if err := store.Save(LogoutEvent{Success: true}); err != nil {
		t.Errorf("Save() with nil db error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Close() with nil db error = %v", err)
	}
}

func TestNewStoreWithoutURL(t *testing.T) {
	t.Setenv("AUDIT_DATABASE_URL", "")

	store, err := NewStore()
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if store != nil {
		t.Error("expected nil store when AUDIT_DATABASE_URL is unset")
	}
}

func TestNewMessage(t *testing.T) {
	ts := time.Date(2026, 3, 1, 9, 30, 0, 0, time.FixedZone("CET", 3600))
	msg := newMessage(LoginEvent{
		Username:     "alice",
		PersistentID: "p1",
		Role:         "admin",
		ClientIP:     "10.0.0.1",
		Success:      true,
	}, ts)

	if msg.Facility != FacilityAuthPriv {
		t.Errorf("Message.Facility = %v, want %v", msg.Facility, FacilityAuthPriv)
	}
	if msg.Msgid != "login" {
		t.Errorf("Message.Msgid = %v, want 'login'", msg.Msgid)
	}
	if msg.Appname != AppName {
		t.Errorf("Message.Appname = %v, want %v", msg.Appname, AppName)
	}
	if !msg.Timestamp.Equal(ts) || msg.Timestamp.Location() != time.UTC {
		t.Errorf("Message.Timestamp = %v, want %v in UTC", msg.Timestamp, ts)
	}
	if msg.Procid == "" {
		t.Error("Message.Procid is empty")
	}
	if _, ok := msg.Sdata[SDIDAuth]; !ok {
		t.Errorf("Message.Sdata missing %s: %v", SDIDAuth, msg.Sdata)
	}
}
