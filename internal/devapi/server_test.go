package devapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/smartpay/internal/app"
	"github.com/theirongolddev/smartpay/internal/model"
	"github.com/theirongolddev/smartpay/internal/outbox"
	"github.com/theirongolddev/smartpay/internal/remote"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestServer(t *testing.T) (*Server, *remote.Client) {
	t.Helper()
	s := New(Config{JWTSecret: "test-secret", Logger: quietLogger()})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, remote.NewClient(srv.URL, remote.WithLogger(quietLogger()))
}

func fields() model.CardFields {
	return model.CardFields{
		Bank:            "BBVA",
		CardName:        "Azul",
		Balance:         1000,
		CreditLimit:     5000,
		NextPaymentDate: "2025-01-15",
		MinimumPayment:  50,
		InterestRate:    3.5,
	}
}

func TestRegisterAndLogin(t *testing.T) {
	s, c := newTestServer(t)
	ctx := context.Background()

	res := c.Register(ctx, "Ana@X.com", "secret1", "Ana")
	if !res.Success || res.Data == nil {
		t.Fatalf("Register = %+v", res)
	}
	if sub, err := s.ParseToken(res.Data.Token); err != nil || sub != "ana@x.com" {
		t.Fatalf("ParseToken = %q, %v", sub, err)
	}

	if dup := c.Register(ctx, "ana@x.com", "secret2", "Ana"); dup.Success || dup.Error != "email already registered" {
		t.Fatalf("duplicate Register = %+v", dup)
	}

	if bad := c.Login(ctx, "ana@x.com", "wrong"); bad.Success || bad.Error != "invalid credentials" {
		t.Fatalf("Login wrong password = %+v", bad)
	}
	ok := c.Login(ctx, "ana@x.com", "secret1")
	if !ok.Success || ok.Data.FullName != "Ana" || ok.Data.Token == "" {
		t.Fatalf("Login = %+v", ok)
	}
}

func TestRegisterValidation(t *testing.T) {
	_, c := newTestServer(t)

	res := c.Register(context.Background(), "not-an-email", "123", "")
	if res.Success {
		t.Fatal("invalid register accepted")
	}
	for _, want := range []string{"Email", "Password", "FullName"} {
		if !strings.Contains(res.Error, want) {
			t.Fatalf("error %q does not mention %s", res.Error, want)
		}
	}
}

func TestParseTokenRejectsOtherSecret(t *testing.T) {
	s, c := newTestServer(t)
	res := c.Register(context.Background(), "a@x.com", "secret1", "Ana")

	other := New(Config{JWTSecret: "different", Logger: quietLogger()})
	if _, err := other.ParseToken(res.Data.Token); err == nil {
		t.Fatal("token verified with the wrong secret")
	}
	if _, err := s.ParseToken("garbage"); err == nil {
		t.Fatal("garbage token verified")
	}
}

func TestCardLifecycle(t *testing.T) {
	s, c := newTestServer(t)
	ctx := context.Background()

	added := c.AddCard(ctx, fields())
	if !added.Success || added.Data.ID == "" {
		t.Fatalf("AddCard = %+v", added)
	}
	id := added.Data.ID

	bal := 2000.0
	if res := c.UpdateCard(ctx, id, model.CardPatch{Balance: &bal}); !res.Success {
		t.Fatalf("UpdateCard = %+v", res)
	}
	s.mu.RLock()
	got := s.cards[0]
	s.mu.RUnlock()
	if got.Balance != 2000 || got.CreditLimit != 5000 {
		t.Fatalf("card after update = %+v", got)
	}

	if res := c.UpdateCard(ctx, "missing", model.CardPatch{Balance: &bal}); res.Success || res.Error != "card not found" {
		t.Fatalf("UpdateCard missing = %+v", res)
	}
	if res := c.DeleteCard(ctx, id); !res.Success {
		t.Fatalf("DeleteCard = %+v", res)
	}
	if res := c.DeleteCard(ctx, id); res.Success {
		t.Fatal("second DeleteCard succeeded")
	}
}

func TestListCards(t *testing.T) {
	s := New(Config{Logger: quietLogger()})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	c := remote.NewClient(srv.URL, remote.WithLogger(quietLogger()))

	list := func() []remote.Card {
		t.Helper()
		resp, err := http.Get(srv.URL + "/cards")
		if err != nil {
			t.Fatal(err)
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET /cards status = %d", resp.StatusCode)
		}
		var cards []remote.Card
		if err := json.NewDecoder(resp.Body).Decode(&cards); err != nil {
			t.Fatal(err)
		}
		return cards
	}

	if got := list(); len(got) != 0 {
		t.Fatalf("cards on a fresh server = %+v", got)
	}

	added := c.AddCard(context.Background(), fields())
	if !added.Success {
		t.Fatalf("AddCard = %+v", added)
	}
	got := list()
	if len(got) != 1 || got[0].ID != added.Data.ID || got[0].CardName != "Azul" || got[0].CreditLimit != 5000 {
		t.Fatalf("GET /cards = %+v", got)
	}
}

func TestAddCardValidation(t *testing.T) {
	_, c := newTestServer(t)
	f := fields()
	f.CreditLimit = 0
	f.NextPaymentDate = "15/01/2025"

	res := c.AddCard(context.Background(), f)
	if res.Success {
		t.Fatal("invalid card accepted")
	}
	if !strings.Contains(res.Error, "CreditLimit") || !strings.Contains(res.Error, "NextPaymentDate") {
		t.Fatalf("error = %q", res.Error)
	}
}

func TestAnalysis(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()

	if res := c.Analyze(ctx, "Ana"); res.Success {
		t.Fatal("analysis without profile succeeded")
	}

	c.UpdateProfile(ctx, model.UserProfile{FullName: "Ana", MonthlyIncome: 10000})
	c.AddCard(ctx, fields())

	res := c.Analyze(ctx, "Ana")
	if !res.Success {
		t.Fatalf("Analyze = %+v", res)
	}
	if len(res.Data.Cards) != 1 || res.Data.Profile.User != "Ana" {
		t.Fatalf("analysis = %+v", res.Data)
	}
}

func TestMalformedBodyAndUnknownRoute(t *testing.T) {
	s := New(Config{Logger: quietLogger()})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/cards", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatal(err)
	}
	var body struct{ Message string }
	_ = json.NewDecoder(resp.Body).Decode(&body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest || body.Message != "malformed JSON body" {
		t.Fatalf("status = %d, message = %q", resp.StatusCode, body.Message)
	}

	resp, err = http.Get(srv.URL + "/nope")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown route status = %d", resp.StatusCode)
	}
}

// An App mirroring through a single-worker outbox leaves the server holding the same
// cards, addressed by server ids.
func TestAppMirrorsIntoServer(t *testing.T) {
	s, c := newTestServer(t)
	ob := outbox.New(outbox.Options{Workers: 1, Timeout: 5 * time.Second, Logger: quietLogger()})
	a := app.New(app.Options{Sync: c, Outbox: ob, Logger: quietLogger()})

	if err := a.Register("ana@x.com", "secret1", "Ana"); err != nil {
		t.Fatal(err)
	}
	a.SetUser(&model.UserProfile{FullName: "Ana", MonthlyIncome: 10000})

	keep := a.AddCard(model.CreditCard{Bank: "BBVA", CardName: "Azul", Balance: 1000, CreditLimit: 5000,
		NextPaymentDate: "2025-01-15", MinimumPayment: 50, InterestRate: 3.5})
	drop := a.AddCard(model.CreditCard{Bank: "Klar", CardName: "Klar", Balance: 300, CreditLimit: 2000,
		NextPaymentDate: "2025-01-20", MinimumPayment: 30, InterestRate: 6})
	bal := 1500.0
	a.UpdateCard(keep, model.CardPatch{Balance: &bal})
	a.DeleteCard(drop)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ob.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if st := ob.Stats(); st.Failed != 0 {
		t.Fatalf("outbox stats = %+v", st)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.cards) != 1 || s.cards[0].CardName != "Azul" || s.cards[0].Balance != 1500 {
		t.Fatalf("server cards = %+v", s.cards)
	}
	if _, ok := s.users["ana@x.com"]; !ok {
		t.Fatal("account not mirrored")
	}
	if p, ok := s.profiles["Ana"]; !ok || p.MonthlyIncome != 10000 {
		t.Fatalf("profile not mirrored: %+v", p)
	}
}
