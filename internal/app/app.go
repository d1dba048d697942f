// Package app is the in-memory source of truth for a smartpay session.
//
// An App composes the persistent store and the remote sync client. Every mutation
// commits in memory first, is written to the store synchronously, and is mirrored to
// the remote service through the outbox without waiting for the result. Store and
// remote failures are logged and never surface as errors of the mutation.
package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/theirongolddev/smartpay/internal/model"
	"github.com/theirongolddev/smartpay/internal/outbox"
	"github.com/theirongolddev/smartpay/internal/remote"
	"github.com/theirongolddev/smartpay/internal/store"
)

var (
	// ErrEmailTaken is returned by Register when the email is already in the local
	// account registry.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned by Login when no registry entry matches.
	ErrInvalidCredentials = errors.New("incorrect email or password")
	// ErrNoProfile is reported by Analyze before onboarding is complete.
	ErrNoProfile = errors.New("complete your profile first")
)

// Store is the persistence the App writes through to. *store.Store implements it.
type Store interface {
	Load() (store.State, error)
	SaveProfile(model.UserProfile) error
	ClearProfile() error
	SaveCards([]model.CreditCard) error
	SaveAuthFlag(bool) error
	ClearSession() error
	Accounts() ([]model.Account, error)
	SaveAccounts([]model.Account) error
	RemoteIDs() (map[string]string, error)
	SaveRemoteIDs(map[string]string) error
}

// Syncer mirrors mutations remotely. *remote.Client implements it.
type Syncer interface {
	Register(ctx context.Context, email, password, fullName string) remote.Result[remote.Account]
	Login(ctx context.Context, email, password string) remote.Result[remote.Account]
	UpdateProfile(ctx context.Context, p model.UserProfile) remote.Result[remote.Ack]
	AddCard(ctx context.Context, f model.CardFields) remote.Result[remote.Card]
	UpdateCard(ctx context.Context, id string, p model.CardPatch) remote.Result[remote.Ack]
	DeleteCard(ctx context.Context, id string) remote.Result[remote.Ack]
	Analyze(ctx context.Context, fullName string) remote.Result[model.Analysis]
}

// Dispatcher runs remote jobs in the background. *outbox.Outbox implements it.
type Dispatcher interface {
	Enqueue(name string, job outbox.Job) bool
}

// Options wires an App. Store nil means memory-only; Sync or Outbox nil disables
// remote mirroring.
type Options struct {
	Store  Store
	Sync   Syncer
	Outbox Dispatcher
	Logger logrus.FieldLogger
	NewID  func() string
}

// Snapshot is a copy of the session state.
type Snapshot struct {
	User          *model.UserProfile
	Cards         []model.CreditCard
	Authenticated bool
}

// App holds the session state. It is safe for concurrent use, but is designed around a
// single writer: the UI layer.
type App struct {
	store  Store
	sync   Syncer
	outbox Dispatcher
	log    logrus.FieldLogger
	newID  func() string

	mu            sync.Mutex
	user          *model.UserProfile
	cards         []model.CreditCard
	authenticated bool
	accounts      []model.Account
	remoteIDs     map[string]string
	degraded      bool

	// epoch changes on logout; remote acks from an earlier session are ignored.
	epoch uint64
}

// New returns an empty App. Call Restore to load persisted state.
func New(opts Options) *App {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &App{
		store:     opts.Store,
		sync:      opts.Sync,
		outbox:    opts.Outbox,
		log:       opts.Logger,
		newID:     opts.NewID,
		remoteIDs: make(map[string]string),
		degraded:  opts.Store == nil,
	}
}

// Restore replaces the in-memory state with what the store holds. Absent values leave
// the corresponding state empty. A failing store leaves the App empty and degraded.
func (a *App) Restore() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.store == nil {
		return
	}

	st, err := a.store.Load()
	if err != nil {
		a.markDegraded("load", err)
		return
	}
	a.user = st.Profile
	a.cards = st.Cards
	a.authenticated = st.Authenticated

	if accounts, err := a.store.Accounts(); err != nil {
		a.markDegraded("accounts", err)
	} else {
		a.accounts = accounts
	}
	if ids, err := a.store.RemoteIDs(); err != nil {
		a.markDegraded("remote ids", err)
	} else {
		a.remoteIDs = ids
	}
}

// Login authenticates against the local account registry. The remote login runs in
// parallel and does not affect the outcome.
func (a *App) Login(email, password string) error {
	a.mirror("auth.login", func(ctx context.Context) error {
		return check(a.sync.Login(ctx, email, password))
	})

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, acc := range a.accounts {
		if acc.Email != email {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)) == nil {
			a.authenticated = true
			a.persist("auth", func(s Store) error { return s.SaveAuthFlag(true) })
			a.log.WithField("email", email).Info("logged in")
			return nil
		}
	}
	return ErrInvalidCredentials
}

// Register adds an account to the local registry and authenticates. The email check
// happens before any remote call.
func (a *App) Register(email, password, fullName string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, acc := range a.accounts {
		if acc.Email == email {
			return ErrEmailTaken
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	a.accounts = append(a.accounts, model.Account{Email: email, PasswordHash: string(hash), FullName: fullName})
	accounts := slices.Clone(a.accounts)
	a.persist("accounts", func(s Store) error { return s.SaveAccounts(accounts) })

	a.mirror("auth.register", func(ctx context.Context) error {
		return check(a.sync.Register(ctx, email, password, fullName))
	})

	a.authenticated = true
	a.persist("auth", func(s Store) error { return s.SaveAuthFlag(true) })
	a.log.WithField("email", email).Info("registered")
	return nil
}

// Logout clears the profile, cards and authentication flag from memory and from the
// store. The account registry is kept.
func (a *App) Logout() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.authenticated = false
	a.user = nil
	a.cards = nil
	a.remoteIDs = make(map[string]string)
	a.epoch++
	a.persist("session", Store.ClearSession)
}

// SetUser replaces the profile. A non-nil profile is persisted and pushed remotely; nil
// removes the persisted profile and is not mirrored.
func (a *App) SetUser(p *model.UserProfile) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if p == nil {
		a.user = nil
		a.persist("profile", Store.ClearProfile)
		return
	}

	profile := *p
	a.user = &profile
	a.persist("profile", func(s Store) error { return s.SaveProfile(profile) })
	a.mirror("user.profile", func(ctx context.Context) error {
		return check(a.sync.UpdateProfile(ctx, profile))
	})
}

// AddCard appends card and returns its id. A missing or already used id is replaced by
// a fresh one.
func (a *App) AddCard(card model.CreditCard) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	card = card.Clone()
	if card.ID == "" || a.indexOf(card.ID) >= 0 {
		if card.ID != "" {
			a.log.WithField("card", card.ID).Warn("duplicate card id, assigning a new one")
		}
		card.ID = a.newID()
	}
	if card.Transactions == nil {
		card.Transactions = []model.Transaction{}
	}

	a.cards = append(a.cards, card)
	a.saveCards()

	localID, fields, epoch := card.ID, card.Fields(), a.epoch
	a.mirror("cards.add", func(ctx context.Context) error {
		res := a.sync.AddCard(ctx, fields)
		if err := check(res); err != nil {
			return err
		}
		if res.Data != nil && res.Data.ID != "" {
			a.rememberRemoteID(epoch, localID, res.Data.ID)
		}
		return nil
	})
	return card.ID
}

// UpdateCard merges patch into the card with the given id. It reports whether the card
// exists; a missing card is a no-op.
func (a *App) UpdateCard(id string, patch model.CardPatch) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	i := a.indexOf(id)
	if i < 0 {
		return false
	}
	a.cards[i] = patch.Apply(a.cards[i])
	a.saveCards()

	if remotePatch := patch.Remote(); !remotePatch.IsEmpty() {
		a.mirror("cards.update", func(ctx context.Context) error {
			return check(a.sync.UpdateCard(ctx, a.remoteID(id), remotePatch))
		})
	}
	return true
}

// DeleteCard removes the card with the given id. It reports whether the card existed;
// a missing card is a no-op.
func (a *App) DeleteCard(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	i := a.indexOf(id)
	if i < 0 {
		return false
	}
	a.cards = slices.Delete(a.cards, i, i+1)
	a.saveCards()

	epoch := a.epoch
	a.mirror("cards.delete", func(ctx context.Context) error {
		if err := check(a.sync.DeleteCard(ctx, a.remoteID(id))); err != nil {
			return err
		}
		a.forgetRemoteID(epoch, id)
		return nil
	})
	return true
}

// AddTransaction appends tx to a card, assigning an id when missing.
func (a *App) AddTransaction(cardID string, tx model.Transaction) (model.Transaction, bool) {
	card, ok := a.GetCard(cardID)
	if !ok {
		return tx, false
	}
	if tx.ID == "" {
		tx.ID = a.newID()
	}
	txs := append(card.Transactions, tx)
	return tx, a.UpdateCard(cardID, model.CardPatch{Transactions: &txs})
}

// GetCard looks a card up by id.
func (a *App) GetCard(id string) (model.CreditCard, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	i := a.indexOf(id)
	if i < 0 {
		return model.CreditCard{}, false
	}
	return a.cards[i].Clone(), true
}

// Cards returns a copy of the card collection in insertion order.
func (a *App) Cards() []model.CreditCard {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cloneCards()
}

// User returns a copy of the profile, or nil.
func (a *App) User() *model.UserProfile {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.user == nil {
		return nil
	}
	u := *a.user
	return &u
}

// IsAuthenticated reports the session state.
func (a *App) IsAuthenticated() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.authenticated
}

// Snapshot returns a consistent copy of the whole session state.
func (a *App) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Snapshot{Cards: a.cloneCards(), Authenticated: a.authenticated}
	if a.user != nil {
		u := *a.user
		s.User = &u
	}
	return s
}

// Degraded reports whether a store operation failed during this session, meaning
// in-memory state may be ahead of what is on disk.
func (a *App) Degraded() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.degraded
}

// Analyze requests a payment plan for the current profile. Unlike mutations it waits
// for the remote result, since the result is what the caller wants to show.
func (a *App) Analyze(ctx context.Context) remote.Result[model.Analysis] {
	user := a.User()
	if user == nil {
		return remote.Failed[model.Analysis](ErrNoProfile.Error())
	}
	if a.sync == nil {
		return remote.Failed[model.Analysis]("remote sync is disabled")
	}
	return a.sync.Analyze(ctx, user.FullName)
}

// indexOf must be called with a.mu held.
func (a *App) indexOf(id string) int {
	return slices.IndexFunc(a.cards, func(c model.CreditCard) bool { return c.ID == id })
}

func (a *App) cloneCards() []model.CreditCard {
	out := make([]model.CreditCard, len(a.cards))
	for i, c := range a.cards {
		out[i] = c.Clone()
	}
	return out
}

// saveCards must be called with a.mu held.
func (a *App) saveCards() {
	cards := a.cloneCards()
	a.persist("cards", func(s Store) error { return s.SaveCards(cards) })
}

// persist must be called with a.mu held.
func (a *App) persist(key string, fn func(Store) error) {
	if a.store == nil {
		return
	}
	if err := fn(a.store); err != nil {
		a.markDegraded(key, err)
	}
}

func (a *App) markDegraded(key string, err error) {
	a.degraded = true
	a.log.WithError(err).WithField("key", key).Warn("store unavailable, continuing in memory")
}

func (a *App) mirror(name string, job outbox.Job) {
	if a.sync == nil || a.outbox == nil {
		return
	}
	a.outbox.Enqueue(name, job)
}

func (a *App) remoteID(localID string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if id, ok := a.remoteIDs[localID]; ok {
		return id
	}
	return localID
}

// rememberRemoteID records the server id of a card. A card deleted before the ack
// arrived is still recorded so the queued delete reaches the server id. Acks for a
// session that has since logged out are dropped.
func (a *App) rememberRemoteID(epoch uint64, localID, remoteID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if epoch != a.epoch {
		return
	}
	a.remoteIDs[localID] = remoteID
	ids := make(map[string]string, len(a.remoteIDs))
	for k, v := range a.remoteIDs {
		ids[k] = v
	}
	a.persist("remote ids", func(s Store) error { return s.SaveRemoteIDs(ids) })
}

func (a *App) forgetRemoteID(epoch uint64, localID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if epoch != a.epoch {
		return
	}
	if _, ok := a.remoteIDs[localID]; !ok {
		return
	}
	delete(a.remoteIDs, localID)
	ids := make(map[string]string, len(a.remoteIDs))
	for k, v := range a.remoteIDs {
		ids[k] = v
	}
	a.persist("remote ids", func(s Store) error { return s.SaveRemoteIDs(ids) })
}

func check[T any](r remote.Result[T]) error {
	if r.Success {
		return nil
	}
	if r.Error == "" {
		return errors.New("remote call failed")
	}
	return errors.New(r.Error)
}
