package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"calvino-service/internal/domain/auth"
	pkgsession "calvino-service/internal/pkg/session"
	"calvino-service/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLocator struct {
	location string
	calls    []string
}

func (l *stubLocator) FormattedLocation(_ context.Context, ip string) string {
	l.calls = append(l.calls, ip)
	return l.location
}

type revocation struct {
	userID    int64
	sessionID string
	reason    string
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []revocation
}

func (n *recordingNotifier) SessionRevoked(userID int64, sessionID, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, revocation{userID, sessionID, reason})
}

const iphoneUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Mobile/15E148"

func TestCreateSession_ClassifiesAndLocates(t *testing.T) {
	repo := memory.NewSessionRepository()
	loc := &stubLocator{location: "Paris, Île-de-France, France"}
	svc := NewSessionService(repo, loc, nil, nil)

	sess, err := svc.CreateSession(context.Background(), 7, "tok", "ref", "", auth.SessionExtra{
		IPAddress: "1.2.3.4",
		UserAgent: iphoneUA,
	})
	require.NoError(t, err)

	assert.Len(t, sess.SessionID, 32)
	assert.True(t, sess.IsActive)
	assert.Equal(t, pkgsession.DeviceMobile, sess.DeviceType)
	assert.Equal(t, "iOS Device", sess.DeviceName)
	assert.Equal(t, "Paris, Île-de-France, France", sess.Location)
	assert.Equal(t, []string{"1.2.3.4"}, loc.calls)

	stored, err := repo.FindBySessionID(context.Background(), sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), stored.UserID)
	assert.Equal(t, "tok", stored.Token)
}

func TestCreateSession_ExplicitLocationSkipsLookup(t *testing.T) {
	loc := &stubLocator{location: "ignored"}
	svc := NewSessionService(memory.NewSessionRepository(), loc, nil, nil)

	sess, err := svc.CreateSession(context.Background(), 1, "", "", "abc", auth.SessionExtra{
		IPAddress: "1.2.3.4",
		Location:  "Lyon",
	})
	require.NoError(t, err)
	assert.Equal(t, "abc", sess.SessionID)
	assert.Equal(t, "Lyon", sess.Location)
	assert.Empty(t, loc.calls)
}

func TestCreateSession_DefaultsUnknownLocation(t *testing.T) {
	svc := NewSessionService(memory.NewSessionRepository(), &stubLocator{}, nil, nil)

	sess, err := svc.CreateSession(context.Background(), 1, "", "", "", auth.SessionExtra{})
	require.NoError(t, err)
	assert.Equal(t, auth.DefaultLocation, sess.Location)
	assert.Equal(t, pkgsession.DeviceUnknown, sess.DeviceType)
}

func TestDeactivate_NotifiesAndKeepsRow(t *testing.T) {
	repo := memory.NewSessionRepository()
	notifier := &recordingNotifier{}
	svc := NewSessionService(repo, nil, notifier, nil)
	ctx := context.Background()

	sess, err := svc.CreateSession(ctx, 3, "", "", "", auth.SessionExtra{})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, sess, ReasonLogout))
	assert.False(t, sess.IsActive)

	stored, err := svc.FindBySessionID(ctx, sess.SessionID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
	assert.Equal(t, []revocation{{3, sess.SessionID, ReasonLogout}}, notifier.events)
}

func TestLogoutOtherSessions(t *testing.T) {
	repo := memory.NewSessionRepository()
	notifier := &recordingNotifier{}
	svc := NewSessionService(repo, nil, notifier, nil)
	ctx := context.Background()

	repo.Put(&auth.UserSession{UserID: 1, SessionID: "a", IsActive: true})
	repo.Put(&auth.UserSession{UserID: 1, SessionID: "b", IsActive: true})
	repo.Put(&auth.UserSession{UserID: 1, SessionID: "c", IsActive: true})
	repo.Put(&auth.UserSession{UserID: 1, SessionID: "d", IsActive: false})
	repo.Put(&auth.UserSession{UserID: 2, SessionID: "e", IsActive: true})

	n, err := svc.LogoutOtherSessions(ctx, 1, "b")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	for id, want := range map[string]bool{"a": false, "b": true, "c": false, "d": false, "e": true} {
		s, err := repo.FindBySessionID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, s.IsActive, "session %s", id)
	}

	require.Len(t, notifier.events, 2)
	assert.Equal(t, "a", notifier.events[0].sessionID)
	assert.Equal(t, "c", notifier.events[1].sessionID)

	n, err = svc.LogoutOtherSessions(ctx, 1, "b")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestActiveSessions_OrderedByLastActivity(t *testing.T) {
	repo := memory.NewSessionRepository()
	svc := NewSessionService(repo, nil, nil, nil)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	repo.Put(&auth.UserSession{UserID: 1, SessionID: "old", IsActive: true, LastActivity: base})
	repo.Put(&auth.UserSession{UserID: 1, SessionID: "new", IsActive: true, LastActivity: base.Add(time.Hour)})
	repo.Put(&auth.UserSession{UserID: 1, SessionID: "gone", IsActive: false, LastActivity: base.Add(2 * time.Hour)})

	sessions, err := svc.ActiveSessions(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "new", sessions[0].SessionID)
	assert.Equal(t, "old", sessions[1].SessionID)

	none, err := svc.ActiveSessions(context.Background(), 99)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestFindBySessionID_Empty(t *testing.T) {
	svc := NewSessionService(memory.NewSessionRepository(), nil, nil, nil)
	_, err := svc.FindBySessionID(context.Background(), "")
	assert.True(t, IsNotFound(err))
}
