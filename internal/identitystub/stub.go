// Package identitystub is a local-development stand-in for the backend
// identity endpoint. It verifies an HS256 bearer token, maps the subject
// to a canned operator fixture, and serves the same wire shape as the real
// /api/v1/me. It also offers a dev-only password grant so the flow can be
// exercised with curl. Never deployed.
package identitystub

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/divedesk/divegate/identity"
)

// User is one canned identity fixture.
type User struct {
	Subject      string
	Email        string
	PasswordHash []byte
	Me           identity.Me
}

// Stub serves the dev identity endpoint.
type Stub struct {
	secret  []byte
	users   map[string]*User // keyed by subject
	byEmail map[string]*User
	nowTime func() time.Time
}

// StubOption modifies the Stub instance.
type StubOption func(*Stub)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) StubOption {
	return func(s *Stub) {
		s.nowTime = nowFunc
	}
}

// New creates a Stub signing and verifying tokens with secret.
func New(secret []byte, users []*User, options ...StubOption) (*Stub, error) {
	if len(secret) == 0 {
		return nil, errors.New("[identitystub.New] secret is required")
	}

	s := &Stub{
		secret:  secret,
		users:   make(map[string]*User),
		byEmail: make(map[string]*User),
		nowTime: time.Now,
	}
	for _, u := range users {
		s.users[u.Subject] = u
		s.byEmail[u.Email] = u
	}

	for _, opt := range options {
		opt(s)
	}

	return s, nil
}

// NewUser builds a fixture with a bcrypt-hashed password.
func NewUser(subject, email, password string, me identity.Me) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "[identitystub.NewUser] hashing password")
	}
	return &User{Subject: subject, Email: email, PasswordHash: hash, Me: me}, nil
}

// Handler returns the stub's HTTP surface.
func (s *Stub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+identity.MePath, s.meHandler)
	mux.HandleFunc("POST /dev/token", s.tokenHandler)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}

func (s *Stub) meHandler(w http.ResponseWriter, r *http.Request) {
	subject, err := s.subjectFromBearer(r)
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	user, ok := s.users[subject]
	if !ok {
		// Authenticated but unknown to the product: needs setup
		_ = json.NewEncoder(w).Encode(identity.Me{OK: false})
		return
	}

	_ = json.NewEncoder(w).Encode(user.Me)
}

func (s *Stub) tokenHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, `{"error":"invalid_request"}`, http.StatusBadRequest)
		return
	}

	user, ok := s.byEmail[r.FormValue("email")]
	if !ok || bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(r.FormValue("password"))) != nil {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusUnauthorized)
		return
	}

	now := s.nowTime()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   user.Subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		log.Err(err).Msg("failed to sign dev token")
		http.Error(w, `{"error":"server_error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"access_token": signed,
		"token_type":   "Bearer",
		"expires_in":   3600,
	})
}

func (s *Stub) subjectFromBearer(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", errors.New("missing bearer token")
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.nowTime))
	if err != nil {
		return "", errors.Wrap(err, "parsing bearer token")
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("invalid bearer token")
	}

	return claims.Subject, nil
}
