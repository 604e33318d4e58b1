package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/cucumber/godog"

	"github.com/quizdesk/quizdesk/pkg/identity"
	"github.com/quizdesk/quizdesk/pkg/server/endpoints"
	"github.com/quizdesk/quizdesk/pkg/store"
)

// StepsContext holds state shared between step definitions
type StepsContext struct {
	tc           *TestContext
	dir          string
	records      store.RecordStore
	devices      map[string]*Device
	client       *http.Client
	response     *http.Response
	responseBody []byte
}

// NewStepsContext creates a new steps context whose device caches live in dir
func NewStepsContext(tc *TestContext, dir string) *StepsContext {
	return &StepsContext{
		tc:      tc,
		dir:     dir,
		devices: make(map[string]*Device),
		client:  &http.Client{},
	}
}

// RegisterSteps registers all step definitions
func (s *StepsContext) RegisterSteps(sc *godog.ScenarioContext) {
	sc.After(func(ctx context.Context, _ *godog.Scenario, _ error) (context.Context, error) {
		for _, d := range s.devices {
			d.Stop()
		}
		return ctx, nil
	})

	// Background steps
	sc.Step(`^an empty record store$`, s.anEmptyRecordStore)
	sc.Step(`^device "([^"]*)" is running$`, s.deviceIsRunning)

	// Session steps
	sc.Step(`^device "([^"]*)" logs in as "([^"]*)"$`, s.deviceLogsIn)
	sc.Step(`^device "([^"]*)" logs in as "([^"]*)" with role "([^"]*)"$`, s.deviceLogsInWithRole)
	sc.Step(`^device "([^"]*)" logs out$`, s.deviceLogsOut)
	sc.Step(`^device "([^"]*)" restarts$`, s.deviceRestarts)
	sc.Step(`^device "([^"]*)" should be signed in as "([^"]*)" with role "([^"]*)"$`, s.deviceShouldBeSignedIn)
	sc.Step(`^device "([^"]*)" should be signed out$`, s.deviceShouldBeSignedOut)
	sc.Step(`^devices "([^"]*)" and "([^"]*)" should share a persistent id$`, s.devicesShouldSharePersistentID)
	sc.Step(`^there should be (\d+) active accounts? for "([^"]*)"$`, s.thereShouldBeActiveAccounts)

	// Navigation steps
	sc.Step(`^device "([^"]*)" opens "([^"]*)"$`, s.deviceOpens)
	sc.Step(`^the navigation should be allowed$`, s.theNavigationShouldBeAllowed)
	sc.Step(`^the navigation should redirect to "([^"]*)"$`, s.theNavigationShouldRedirectTo)
	sc.Step(`^device "([^"]*)" should resume at "([^"]*)"$`, s.deviceShouldResumeAt)

	// Response steps
	sc.Step(`^the response status should be (\d+)$`, s.theResponseStatusShouldBe)
}

// Background steps

func (s *StepsContext) anEmptyRecordStore() error {
	records, err := s.tc.NewRecordStore()
	if err != nil {
		return err
	}
	s.records = records
	return nil
}

func (s *StepsContext) deviceIsRunning(name string) error {
	if s.records == nil {
		return fmt.Errorf("no record store; add \"an empty record store\" to the background")
	}
	d, err := StartDevice(context.Background(), name, s.dir, s.records)
	if err != nil {
		return fmt.Errorf("failed to start device %s: %w", name, err)
	}
	s.devices[name] = d
	return nil
}

func (s *StepsContext) device(name string) (*Device, error) {
	d, ok := s.devices[name]
	if !ok {
		return nil, fmt.Errorf("device %s is not running", name)
	}
	return d, nil
}

// Session steps

func (s *StepsContext) deviceLogsIn(name, username string) error {
	return s.deviceLogsInWithRole(name, username, "")
}

func (s *StepsContext) deviceLogsInWithRole(name, username, role string) error {
	d, err := s.device(name)
	if err != nil {
		return err
	}
	body, _ := json.Marshal(endpoints.LoginRequest{Username: username, Role: role})
	return s.do(http.MethodPost, d.URL+"/session/login", body)
}

func (s *StepsContext) deviceLogsOut(name string) error {
	d, err := s.device(name)
	if err != nil {
		return err
	}
	return s.do(http.MethodDelete, d.URL+"/session", nil)
}

func (s *StepsContext) deviceRestarts(name string) error {
	d, err := s.device(name)
	if err != nil {
		return err
	}
	return d.Restart(context.Background())
}

func (s *StepsContext) session(name string) (*endpoints.SessionResponse, error) {
	d, err := s.device(name)
	if err != nil {
		return nil, err
	}
	if err := s.do(http.MethodGet, d.URL+"/session", nil); err != nil {
		return nil, err
	}
	if s.response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET /session returned %d: %s", s.response.StatusCode, s.responseBody)
	}
	var resp endpoints.SessionResponse
	if err := json.Unmarshal(s.responseBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}
	return &resp, nil
}

func (s *StepsContext) deviceShouldBeSignedIn(name, username, role string) error {
	resp, err := s.session(name)
	if err != nil {
		return err
	}
	if !resp.Authenticated || resp.Identity == nil {
		return fmt.Errorf("device %s is signed out", name)
	}
	if resp.Identity.DisplayName != username {
		return fmt.Errorf("expected display name %q, got %q", username, resp.Identity.DisplayName)
	}
	if resp.Identity.Role.String() != role {
		return fmt.Errorf("expected role %q, got %q", role, resp.Identity.Role)
	}
	return nil
}

func (s *StepsContext) deviceShouldBeSignedOut(name string) error {
	resp, err := s.session(name)
	if err != nil {
		return err
	}
	if resp.Authenticated {
		return fmt.Errorf("device %s is still signed in as %s", name, resp.Identity.DisplayName)
	}
	return nil
}

func (s *StepsContext) devicesShouldSharePersistentID(first, second string) error {
	a, err := s.session(first)
	if err != nil {
		return err
	}
	b, err := s.session(second)
	if err != nil {
		return err
	}
	if a.Identity == nil || b.Identity == nil {
		return fmt.Errorf("both devices must be signed in")
	}
	if a.Identity.PersistentID != b.Identity.PersistentID {
		return fmt.Errorf("persistent ids differ: %s != %s", a.Identity.PersistentID, b.Identity.PersistentID)
	}
	return nil
}

func (s *StepsContext) thereShouldBeActiveAccounts(count int, username string) error {
	recs, err := s.records.FindMany(context.Background(), store.Filter{
		Username:   identity.NormalizeUsername(username),
		ActiveOnly: true,
	})
	if err != nil {
		return err
	}
	if len(recs) != count {
		return fmt.Errorf("expected %d active accounts for %s, found %d", count, username, len(recs))
	}
	return nil
}

// Navigation steps

func (s *StepsContext) deviceOpens(name, path string) error {
	d, err := s.device(name)
	if err != nil {
		return err
	}
	return s.do(http.MethodGet, d.URL+"/authorize?path="+url.QueryEscape(path), nil)
}

func (s *StepsContext) decision() (*endpoints.AuthorizeResponse, error) {
	if s.response == nil {
		return nil, fmt.Errorf("no response received")
	}
	var resp endpoints.AuthorizeResponse
	if err := json.Unmarshal(s.responseBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse decision: %w", err)
	}
	return &resp, nil
}

func (s *StepsContext) theNavigationShouldBeAllowed() error {
	resp, err := s.decision()
	if err != nil {
		return err
	}
	if !resp.Allow {
		return fmt.Errorf("navigation to %s was denied (%s)", resp.Path, resp.Reason)
	}
	return nil
}

func (s *StepsContext) theNavigationShouldRedirectTo(redirect string) error {
	resp, err := s.decision()
	if err != nil {
		return err
	}
	if resp.Allow {
		return fmt.Errorf("navigation to %s was allowed", resp.Path)
	}
	if resp.Redirect != redirect {
		return fmt.Errorf("expected redirect %q, got %q", redirect, resp.Redirect)
	}
	return nil
}

func (s *StepsContext) deviceShouldResumeAt(name, destination string) error {
	d, err := s.device(name)
	if err != nil {
		return err
	}
	if err := s.do(http.MethodGet, d.URL+"/session/resume", nil); err != nil {
		return err
	}
	var resp endpoints.ResumeResponse
	if err := json.Unmarshal(s.responseBody, &resp); err != nil {
		return fmt.Errorf("failed to parse resume: %w", err)
	}
	if resp.Destination != destination {
		return fmt.Errorf("expected to resume at %q, got %q", destination, resp.Destination)
	}
	return nil
}

// Response steps

func (s *StepsContext) theResponseStatusShouldBe(status int) error {
	if s.response == nil {
		return fmt.Errorf("no response received")
	}
	if s.response.StatusCode != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, s.response.StatusCode, s.responseBody)
	}
	return nil
}

func (s *StepsContext) do(method, target string, body []byte) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, target, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	s.response = resp
	s.responseBody, err = io.ReadAll(resp.Body)
	return err
}
