package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/smartpay/internal/model"
	"github.com/theirongolddev/smartpay/internal/store"
)

var now = time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

func card(id, due string) model.CreditCard {
	return model.CreditCard{
		ID:              id,
		Bank:            "BBVA",
		CardName:        "Azul " + id,
		Balance:         1000,
		CreditLimit:     5000,
		InterestRate:    3.5,
		NextPaymentDate: due,
		MinimumPayment:  50,
	}
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestService(cards *[]model.CreditCard, loadErr *error) *Service {
	return New(Config{
		EventsBuffer: 10,
		Logger:       quietLogger(),
		Now:          func() time.Time { return now },
		Load: func() (store.State, error) {
			if loadErr != nil && *loadErr != nil {
				return store.State{}, *loadErr
			}
			return store.State{Cards: *cards}, nil
		},
	})
}

func TestComputeReminders(t *testing.T) {
	cards := []model.CreditCard{
		card("far", "2025-03-01"),
		card("soon", "2025-01-15"),
		card("late", "2025-01-05"),
		card("bad", "15/01/2025"),
		card("edge", "2025-01-17"),
	}

	got := ComputeReminders(cards, now, 7)
	if len(got) != 3 {
		t.Fatalf("reminders = %+v, want 3", got)
	}
	if got[0].CardID != "late" || !got[0].Overdue {
		t.Fatalf("first reminder = %+v, want overdue card", got[0])
	}
	if got[1].CardID != "soon" || got[1].DaysLeft != 5 {
		t.Fatalf("second reminder = %+v, want soon in 5 days", got[1])
	}
	if got[2].CardID != "edge" || got[2].DaysLeft != 7 {
		t.Fatalf("third reminder = %+v, want edge in 7 days", got[2])
	}
}

func TestDiffSnapshots(t *testing.T) {
	prev := Snapshot{Reminders: []Reminder{
		{CardID: "a", DueDate: "2025-01-15", DaysLeft: 5},
		{CardID: "b", DueDate: "2025-01-12", DaysLeft: 2},
	}}
	curr := Snapshot{Reminders: []Reminder{
		{CardID: "a", DueDate: "2025-01-15", DaysLeft: 4},
		{CardID: "c", DueDate: "2025-01-11", DaysLeft: 1},
	}}

	d := diffSnapshots(prev, curr)
	if len(d.Added) != 1 || d.Added[0] != "c" {
		t.Fatalf("Added = %v, want [c]", d.Added)
	}
	if len(d.Cleared) != 1 || d.Cleared[0] != "b" {
		t.Fatalf("Cleared = %v, want [b]", d.Cleared)
	}
	if len(d.Updated) != 1 || d.Updated[0] != "a" {
		t.Fatalf("Updated = %v, want [a]", d.Updated)
	}
	if !diffSnapshots(curr, curr).isZero() {
		t.Fatal("identical snapshots produced a delta")
	}
}

func TestPollPublishesOnlyOnChange(t *testing.T) {
	cards := []model.CreditCard{card("a", "2025-01-15")}
	s := newTestService(&cards, nil)

	s.pollOnce()
	s.pollOnce()
	cards = append(cards, card("b", "2025-01-12"))
	s.pollOnce()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.events) != 2 {
		t.Fatalf("events = %d, want 2", len(s.events))
	}
	if s.events[0].Type != "snapshot" || s.events[1].Type != "reminders_changed" {
		t.Fatalf("event types = %q, %q", s.events[0].Type, s.events[1].Type)
	}
	if s.pollCount != 3 {
		t.Fatalf("pollCount = %d, want 3", s.pollCount)
	}
}

func TestPollErrorIsRecorded(t *testing.T) {
	cards := []model.CreditCard{}
	loadErr := errors.New("database is locked")
	s := newTestService(&cards, &loadErr)

	s.pollOnce()
	st := s.snapshotStatus()
	if st.LastError != "database is locked" || st.PollCount != 1 {
		t.Fatalf("status = %+v", st)
	}

	loadErr = nil
	s.pollOnce()
	if st := s.snapshotStatus(); st.LastError != "" {
		t.Fatalf("LastError = %q after recovery", st.LastError)
	}
}

func TestPublishEventRingBuffer(t *testing.T) {
	s := New(Config{EventsBuffer: 2, Logger: quietLogger()})

	s.publishEvent(Event{ID: 1})
	s.publishEvent(Event{ID: 2})
	s.publishEvent(Event{ID: 3})

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].ID != 2 || s.events[1].ID != 3 {
		t.Fatalf("events ring contains IDs [%d, %d], want [2, 3]", s.events[0].ID, s.events[1].ID)
	}
}

func TestHTTPRoutes(t *testing.T) {
	cards := []model.CreditCard{card("a", "2025-01-15")}
	s := newTestService(&cards, nil)
	s.pollOnce()

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/healthz status = %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/v1/reminders")
	if err != nil {
		t.Fatal(err)
	}
	var reminders []Reminder
	if err := json.NewDecoder(resp.Body).Decode(&reminders); err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if len(reminders) != 1 || reminders[0].CardID != "a" {
		t.Fatalf("reminders = %+v", reminders)
	}

	resp, err = http.Get(srv.URL + "/v1/status")
	if err != nil {
		t.Fatal(err)
	}
	var st Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if st.PollCount != 1 || st.HorizonDays != 7 || st.Summary.Cards != 1 {
		t.Fatalf("status = %+v", st)
	}

	resp, err = http.Post(srv.URL+"/v1/status", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("POST /v1/status = %d, want 405", resp.StatusCode)
	}
}

func TestStreamSendsCurrentSnapshot(t *testing.T) {
	cards := []model.CreditCard{card("a", "2025-01-15")}
	s := newTestService(&cards, nil)
	s.pollOnce()

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()

	sc := bufio.NewScanner(resp.Body)
	if !sc.Scan() || sc.Text() != "event: snapshot" {
		t.Fatalf("first line = %q", sc.Text())
	}
	if !sc.Scan() || !strings.HasPrefix(sc.Text(), "data: ") || !strings.Contains(sc.Text(), `"card_id":"a"`) {
		t.Fatalf("data line = %q", sc.Text())
	}
}

func TestStoreLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smartpay.db")
	st, err := store.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.SaveCards([]model.CreditCard{card("a", "2025-01-15")}); err != nil {
		t.Fatal(err)
	}
	_ = st.Close()

	state, err := storeLoader(path)()
	if err != nil {
		t.Fatal(err)
	}
	if len(state.Cards) != 1 {
		t.Fatalf("cards = %d, want 1", len(state.Cards))
	}
}
