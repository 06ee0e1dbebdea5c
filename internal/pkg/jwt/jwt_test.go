package jwt

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	m, err := NewManager(Config{Secret: testSecret}, opts...)
	require.NoError(t, err)
	return m
}

func testIdentity() Identity {
	return Identity{ID: 42, Name: "Ada", Email: "ada@example.com", Role: "admin"}
}

func decodeSegment(t *testing.T, seg string) map[string]interface{} {
	t.Helper()
	raw, err := base64.RawURLEncoding.DecodeString(seg)
	require.NoError(t, err)
	out := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestNewManager_RequiresSecret(t *testing.T) {
	_, err := NewManager(Config{})
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestCreateToken_RoundTrip(t *testing.T) {
	m := newTestManager(t)
	sid := "0123456789abcdef0123456789abcdef"

	token, err := m.Generator.CreateToken(testIdentity(), sid)
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(token, "."))

	claims, ok := m.Verifier.Decode(token)
	require.True(t, ok)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, sid, claims.SessionID)
	assert.Equal(t, "Ada", claims.Name)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
	assert.Empty(t, claims.Type)
}

func TestCreateToken_WireFormat(t *testing.T) {
	m := newTestManager(t)
	token, err := m.Generator.CreateToken(testIdentity(), "abc")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	for _, p := range parts {
		assert.NotContains(t, p, "=")
		assert.NotContains(t, p, "+")
		assert.NotContains(t, p, "/")
	}

	header := decodeSegment(t, parts[0])
	assert.Equal(t, map[string]interface{}{"typ": "JWT", "alg": "HS256"}, header)

	payload := decodeSegment(t, parts[1])
	assert.Equal(t, float64(42), payload["sub"])
	assert.Equal(t, "abc", payload["sid"])
	iat := payload["iat"].(float64)
	exp := payload["exp"].(float64)
	assert.Equal(t, float64(86400), exp-iat)
}

func TestCreateToken_WithoutSession(t *testing.T) {
	m := newTestManager(t)
	token, err := m.Generator.CreateToken(testIdentity(), "")
	require.NoError(t, err)

	claims, ok := m.Verifier.Decode(token)
	require.True(t, ok)
	assert.False(t, claims.HasSession())
}

func TestDecode_RejectsExpired(t *testing.T) {
	past := time.Now().Add(-25 * time.Hour)
	issuer := newTestManager(t, WithClock(func() time.Time { return past }))
	verifier := newTestManager(t)

	token, err := issuer.Generator.CreateToken(testIdentity(), "sid")
	require.NoError(t, err)

	// Signature is valid under the shared secret, only the expiry is wrong.
	_, ok := issuer.Verifier.Decode(token)
	require.True(t, ok)

	_, ok = verifier.Verifier.Decode(token)
	assert.False(t, ok)
}

func TestDecode_RejectsTamperedPayload(t *testing.T) {
	m := newTestManager(t)
	token, err := m.Generator.CreateToken(testIdentity(), "sid")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	payload := []byte(parts[1])
	for i := range payload {
		tampered := make([]byte, len(payload))
		copy(tampered, payload)
		if tampered[i] == 'A' {
			tampered[i] = 'B'
		} else {
			tampered[i] = 'A'
		}
		forged := parts[0] + "." + string(tampered) + "." + parts[2]
		_, ok := m.Verifier.Decode(forged)
		assert.False(t, ok, "tampered position %d verified", i)
	}
}

func TestDecode_ForgedClaimsWithOriginalSignature(t *testing.T) {
	m := newTestManager(t)
	token, err := m.Generator.CreateToken(testIdentity(), "sid")
	require.NoError(t, err)
	parts := strings.Split(token, ".")

	payload := decodeSegment(t, parts[1])
	payload["role"] = "superuser"
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	forged := parts[0] + "." + base64.RawURLEncoding.EncodeToString(raw) + "." + parts[2]
	_, ok := m.Verifier.Decode(forged)
	assert.False(t, ok)
}

func TestDecode_Malformed(t *testing.T) {
	m := newTestManager(t)
	cases := []string{
		"",
		"abc",
		"a.b",
		"a.b.c.d",
		"!!!.@@@.###",
		base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256"}`)) + ".bm90LWpzb24.sig",
	}
	for _, tc := range cases {
		_, ok := m.Verifier.Decode(tc)
		assert.False(t, ok, "expected %q to be rejected", tc)
	}
}

func TestDecode_RejectsOtherSecret(t *testing.T) {
	m := newTestManager(t)
	other, err := NewManager(Config{Secret: "another-secret"})
	require.NoError(t, err)

	token, err := other.Generator.CreateToken(testIdentity(), "sid")
	require.NoError(t, err)

	_, ok := m.Verifier.Decode(token)
	assert.False(t, ok)
}

func TestRefreshToken_KeySeparation(t *testing.T) {
	m := newTestManager(t)

	refresh, err := m.Generator.CreateRefreshToken(42, "sid")
	require.NoError(t, err)
	access, err := m.Generator.CreateToken(testIdentity(), "sid")
	require.NoError(t, err)

	claims, ok := m.Verifier.DecodeRefresh(refresh)
	require.True(t, ok)
	assert.True(t, claims.IsRefresh())
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "sid", claims.SessionID)
	assert.Empty(t, claims.Email)

	// refresh token against the bare secret
	_, ok = m.Verifier.Decode(refresh)
	assert.False(t, ok)

	// access token against the refresh secret
	_, ok = m.Verifier.DecodeRefresh(access)
	assert.False(t, ok)
}

func TestRefreshToken_SignedWithSuffixedSecret(t *testing.T) {
	m := newTestManager(t)
	refresh, err := m.Generator.CreateRefreshToken(7, "sid")
	require.NoError(t, err)

	suffixed, err := NewManager(Config{Secret: testSecret + RefreshSecretSuffix})
	require.NoError(t, err)

	// The refresh key is exactly the base secret plus the suffix.
	claims, ok := suffixed.Verifier.Decode(refresh)
	require.True(t, ok)
	assert.Equal(t, TypeRefresh, claims.Type)
}

// Access and refresh tokens currently share the same 24h lifetime. This documents
// observed behaviour; it is not a requirement that they stay equal.
func TestTokenLifetimes_ObservedEquivalence(t *testing.T) {
	fixed := time.Unix(1_700_000_000, 0)
	m := newTestManager(t, WithClock(func() time.Time { return fixed }))

	access, err := m.Generator.CreateToken(testIdentity(), "sid")
	require.NoError(t, err)
	refresh, err := m.Generator.CreateRefreshToken(42, "sid")
	require.NoError(t, err)

	ac, ok := m.Verifier.Decode(access)
	require.True(t, ok)
	rc, ok := m.Verifier.DecodeRefresh(refresh)
	require.True(t, ok)

	assert.Equal(t, ac.ExpiresAt.Time, rc.ExpiresAt.Time)
	assert.Equal(t, fixed.Add(DefaultTTL), ac.ExpiresAt.Time)
}
