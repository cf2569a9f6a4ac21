package web

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, save, load *SessionStore, sess *Session) *Session {
	rec := httptest.NewRecorder()
	require.NoError(t, save.Save(rec, sess))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return load.Load(req)
}

func TestSessionStore_RoundTrip(t *testing.T) {
	store := NewSessionStore("sid", []byte("secret"))
	sess := store.newSession()
	sess.Visits = 3

	got := roundTrip(t, store, store, sess)
	assert.False(t, got.Fresh)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, 3, got.Visits)
}

func TestSessionStore_WrongSecret(t *testing.T) {
	a := NewSessionStore("sid", []byte("a"))
	b := NewSessionStore("sid", []byte("b"))
	sess := a.newSession()

	got := roundTrip(t, a, b, sess)
	assert.True(t, got.Fresh)
	assert.NotEqual(t, sess.ID, got.ID)
}

func TestSessionStore_Expired(t *testing.T) {
	store := NewSessionStore("sid", []byte("secret"))
	past := time.Now().Add(-30 * 24 * time.Hour)
	old := NewSessionStore("sid", []byte("secret"))
	old.now = func() time.Time { return past }
	sess := old.newSession()

	got := roundTrip(t, old, store, sess)
	assert.True(t, got.Fresh)
}

func TestSessionStore_NoCookie(t *testing.T) {
	store := NewSessionStore("sid", []byte("secret"))
	got := store.Load(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, got.Fresh)
	assert.NotEmpty(t, got.ID)
	assert.Zero(t, got.Visits)
}
