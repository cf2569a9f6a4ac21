package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultSessionMaxAge = 14 * 24 * time.Hour

// Session is the per-browser state carried in a signed cookie.
type Session struct {
	ID       string
	Visits   int
	IssuedAt time.Time
	Fresh    bool
}

type sessionClaims struct {
	Visits int `json:"visits"`
	jwt.RegisteredClaims
}

// SessionStore signs sessions into HS256 JWT cookies.
type SessionStore struct {
	name   string
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

func NewSessionStore(name string, secret []byte) *SessionStore {
	return &SessionStore{
		name:   name,
		secret: secret,
		maxAge: defaultSessionMaxAge,
		now:    time.Now,
	}
}

func (s *SessionStore) newSession() *Session {
	return &Session{ID: uuid.NewString(), IssuedAt: s.now(), Fresh: true}
}

// Load returns the session in r's cookie. A missing, tampered or expired
// cookie yields a fresh session.
func (s *SessionStore) Load(r *http.Request) *Session {
	cookie, err := r.Cookie(s.name)
	if err != nil {
		return s.newSession()
	}
	sess, err := s.decode(cookie.Value)
	if err != nil {
		log.Debugf("discarding session cookie: %v", err)
		return s.newSession()
	}
	return sess
}

func (s *SessionStore) decode(value string) (*Session, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(value, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("invalid session: %w", err)
	}
	if !token.Valid || claims.ID == "" {
		return nil, errors.New("invalid session")
	}
	sess := &Session{ID: claims.ID, Visits: claims.Visits}
	if claims.IssuedAt != nil {
		sess.IssuedAt = claims.IssuedAt.Time
	}
	return sess, nil
}

// Save writes sess back to the client. It must run before the body is
// written.
func (s *SessionStore) Save(rw http.ResponseWriter, sess *Session) error {
	now := s.now()
	claims := sessionClaims{
		Visits: sess.Visits,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			IssuedAt:  jwt.NewNumericDate(sess.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.maxAge)),
		},
	}
	value, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return fmt.Errorf("sign session: %w", err)
	}
	http.SetCookie(rw, &http.Cookie{
		Name:     s.name,
		Value:    value,
		Path:     "/",
		Expires:  now.Add(s.maxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

type sessionKey struct{}

func contextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFrom returns the session loaded by the session middleware, or nil.
func SessionFrom(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionKey{}).(*Session)
	return sess
}
