// Package devapi is an in-memory development implementation of the smartpay remote
// service. It serves the same HTTP contract the sync client speaks.
package devapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/theirongolddev/smartpay/internal/finance"
	"github.com/theirongolddev/smartpay/internal/model"
	"github.com/theirongolddev/smartpay/internal/remote"
	"github.com/theirongolddev/smartpay/internal/validator"
)

const (
	maxBodySize = 1 << 20
	tokenTTL    = 24 * time.Hour
)

// Config controls the development server.
type Config struct {
	JWTSecret string
	Logger    logrus.FieldLogger
	Now       func() time.Time
}

type user struct {
	Email        string
	FullName     string
	PasswordHash string
}

// Server holds every account, profile and card in memory. Cards are shared by all
// callers since the contract carries no session token.
type Server struct {
	secret []byte
	log    logrus.FieldLogger
	now    func() time.Time

	mu       sync.RWMutex
	users    map[string]user
	profiles map[string]model.UserProfile // by full name
	cards    []model.CreditCard
}

// New returns an empty server. Without a secret a random one is generated, so tokens
// do not survive a restart.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = uuid.NewString()
	}
	return &Server{
		secret:   []byte(cfg.JWTSecret),
		log:      cfg.Logger.WithField("component", "devapi"),
		now:      cfg.Now,
		users:    make(map[string]user),
		profiles: make(map[string]model.UserProfile),
	}
}

// Handler returns the HTTP router.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/user/profile", s.handleProfile).Methods(http.MethodPost)
	r.HandleFunc("/cards", s.handleListCards).Methods(http.MethodGet)
	r.HandleFunc("/cards", s.handleAddCard).Methods(http.MethodPost)
	r.HandleFunc("/cards/{id}", s.handleUpdateCard).Methods(http.MethodPut)
	r.HandleFunc("/cards/{id}", s.handleDeleteCard).Methods(http.MethodDelete)
	r.HandleFunc("/analysis", s.handleAnalysis).Methods(http.MethodPost)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.Use(s.logRequests)
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.now()
		next.ServeHTTP(w, r)
		s.log.WithFields(logrus.Fields{
			"method":  r.Method,
			"path":    r.URL.Path,
			"elapsed": s.now().Sub(start).String(),
		}).Debug("request")
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req remote.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	email := normalizeEmail(req.Email)

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not create account")
		return
	}

	s.mu.Lock()
	if _, taken := s.users[email]; taken {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "email already registered")
		return
	}
	s.users[email] = user{Email: email, FullName: req.FullName, PasswordHash: string(hash)}
	s.mu.Unlock()

	token, err := s.issueToken(email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	s.log.WithField("email", email).Info("account registered")
	writeJSON(w, http.StatusCreated, remote.Account{Email: email, FullName: req.FullName, Token: token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req remote.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	email := normalizeEmail(req.Email)

	s.mu.RLock()
	u, ok := s.users[email]
	s.mu.RUnlock()
	if !ok || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.issueToken(email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, remote.Account{Email: u.Email, FullName: u.FullName, Token: token})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	var p model.UserProfile
	if !decode(w, r, &p) {
		return
	}

	s.mu.Lock()
	s.profiles[p.FullName] = p
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, remote.Ack{Message: "profile saved"})
}

func (s *Server) handleListCards(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	out := make([]remote.Card, len(s.cards))
	for i, c := range s.cards {
		out[i] = remote.Card{ID: c.ID, CardFields: c.Fields()}
	}
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddCard(w http.ResponseWriter, r *http.Request) {
	var f model.CardFields
	if !decode(w, r, &f) {
		return
	}

	c := model.CreditCard{
		ID:              uuid.NewString(),
		Bank:            f.Bank,
		CardName:        f.CardName,
		Balance:         f.Balance,
		CreditLimit:     f.CreditLimit,
		NextPaymentDate: f.NextPaymentDate,
		MinimumPayment:  f.MinimumPayment,
		InterestRate:    f.InterestRate,
		Transactions:    []model.Transaction{},
	}

	s.mu.Lock()
	s.cards = append(s.cards, c)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, remote.Card{ID: c.ID, CardFields: f})
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var p model.CardPatch
	if !decode(w, r, &p) {
		return
	}
	p = p.Remote()

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		writeError(w, http.StatusNotFound, "card not found")
		return
	}
	s.cards[i] = p.Apply(s.cards[i])
	writeJSON(w, http.StatusOK, remote.Ack{Message: "card updated"})
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		writeError(w, http.StatusNotFound, "card not found")
		return
	}
	s.cards = slices.Delete(s.cards, i, i+1)
	writeJSON(w, http.StatusOK, remote.Ack{Message: "card deleted"})
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	var req remote.AnalysisRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.RLock()
	p, ok := s.profiles[req.FullName]
	cards := slices.Clone(s.cards)
	s.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no profile for %q", req.FullName))
		return
	}

	writeJSON(w, http.StatusOK, finance.BuildAnalysis(p, cards))
}

// indexOf must be called with s.mu held.
func (s *Server) indexOf(id string) int {
	return slices.IndexFunc(s.cards, func(c model.CreditCard) bool { return c.ID == id })
}

func (s *Server) issueToken(email string) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	})
	return token.SignedString(s.secret)
}

// ParseToken verifies a token issued by this server and returns its subject.
func (s *Server) ParseToken(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", fmt.Errorf("parsing token: %w", err)
	}
	return claims.Subject, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// decode reads a JSON body into dst and validates it, writing a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read body")
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		var syn *json.SyntaxError
		if errors.As(err, &syn) || len(data) == 0 {
			writeError(w, http.StatusBadRequest, "malformed JSON body")
			return false
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	if err := validator.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
