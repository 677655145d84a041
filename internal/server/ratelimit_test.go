package server

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestMultiLimiter_PerKeyAndRefill(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	m := newMultiLimiter(rate.Limit(1), 2, time.Minute)
	m.now = func() time.Time { return now }

	assert.True(t, m.allow("a"))
	assert.True(t, m.allow("a"))
	assert.False(t, m.allow("a"))
	assert.True(t, m.allow("b"))

	now = now.Add(time.Second)
	assert.True(t, m.allow("a"))
	assert.False(t, m.allow("a"))
}

func TestMultiLimiter_ForgetsIdleKeys(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	m := newMultiLimiter(rate.Limit(0.001), 1, time.Minute)
	m.now = func() time.Time { return now }

	assert.True(t, m.allow("a"))
	assert.False(t, m.allow("a"))

	now = now.Add(2 * time.Minute)
	assert.True(t, m.allow("b"))
	m.mu.Lock()
	_, kept := m.entries["a"]
	m.mu.Unlock()
	assert.False(t, kept)
}

func TestMultiLimiter_SweepsOncePerInterval(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	now := start
	m := newMultiLimiter(rate.Limit(1), 1, time.Minute)
	m.now = func() time.Time { return now }
	has := func(key string) bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		_, ok := m.entries[key]
		return ok
	}

	m.allow("x")
	now = start.Add(59 * time.Second)
	m.allow("a")
	now = start.Add(61 * time.Second)
	m.allow("c")
	assert.False(t, has("x"))
	assert.True(t, has("a"))

	// a is idle past ttl, but the last sweep was under a minute ago.
	now = start.Add(120 * time.Second)
	m.allow("d")
	assert.True(t, has("a"))

	now = start.Add(121 * time.Second)
	m.allow("e")
	assert.False(t, has("a"))
	assert.True(t, has("d"))
	assert.True(t, has("e"))
}

func TestTokens_UniqueIDs(t *testing.T) {
	iss := newTokenIssuer([]byte(testSecret), "keydir", time.Minute)

	jti := func() string {
		tok, _, err := iss.issue([16]byte{1})
		require.NoError(t, err)
		var claims jwt.RegisteredClaims
		_, _, err = jwt.NewParser().ParseUnverified(tok, &claims)
		require.NoError(t, err)
		_, err = uuid.Parse(claims.ID)
		require.NoError(t, err)
		return claims.ID
	}
	assert.NotEqual(t, jti(), jti())
}

func TestTokens_ExpiryAndIssuer(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	iss := newTokenIssuer([]byte(testSecret), "keydir", time.Minute)
	iss.now = func() time.Time { return now }

	tok, exp, err := iss.issue([16]byte{1})
	assert.NoError(t, err)
	assert.Equal(t, now.Add(time.Minute), exp)

	id, err := iss.parse(tok)
	assert.NoError(t, err)
	assert.Equal(t, [16]byte{1}, [16]byte(id))

	other := newTokenIssuer([]byte(testSecret), "elsewhere", time.Minute)
	other.now = iss.now
	_, err = other.parse(tok)
	assert.Error(t, err)

	now = now.Add(2 * time.Minute)
	_, err = iss.parse(tok)
	assert.Error(t, err)
}
