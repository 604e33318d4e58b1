package audit

import (
	"database/sql"
	"encoding/json"
	"os"
	"strconv"
	"time"

	_ "github.com/lib/pq"
)

// Store appends session events to the messages table of the audit database.
// A Store with no connection accepts every event and writes nothing.
type Store struct {
	db *sql.DB
}

// Message is one row of the messages table.
type Message struct {
	Facility  int                          `json:"facility"`
	Severity  int                          `json:"severity"`
	Timestamp time.Time                    `json:"timestamp"`
	Hostname  string                       `json:"hostname"`
	Appname   string                       `json:"appname"`
	Procid    string                       `json:"procid"`
	Msgid     string                       `json:"msgid"`
	Sdata     map[string]map[string]string `json:"sdata"`
	Message   string                       `json:"message"`
}

// newMessage renders event as a messages row stamped at ts.
func newMessage(event Event, ts time.Time) Message {
	hostname, _ := os.Hostname()
	return Message{
		Facility:  event.Facility(),
		Severity:  int(event.Severity()),
		Timestamp: ts.UTC(),
		Hostname:  hostname,
		Appname:   AppName,
		Procid:    strconv.Itoa(os.Getpid()),
		Msgid:     event.MessageID(),
		Sdata:     event.StructuredData(),
		Message:   event.Message(),
	}
}

// NewStore connects to AUDIT_DATABASE_URL. It returns a nil Store when the
// variable is empty, which leaves persistence off.
func NewStore() (*Store, error) {
	dsn := os.Getenv("AUDIT_DATABASE_URL")
	if dsn == "" {
		return nil, nil
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// NewStoreWithDB wraps an open connection.
func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save writes one row for event.
func (s *Store) Save(event Event) error {
	if s.db == nil {
		return nil
	}

	msg := newMessage(event, time.Now())
	sdata, err := json.Marshal(msg.Sdata)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO messages (facility, severity, timestamp, hostname, appname, procid, msgid, sdata, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		msg.Facility,
		msg.Severity,
		msg.Timestamp,
		msg.Hostname,
		msg.Appname,
		msg.Procid,
		msg.Msgid,
		sdata,
		msg.Message,
	)
	return err
}
