package service_test

import (
	"testing"
	"time"

	"noizlabs/internal/domain"
	"noizlabs/internal/service"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessions(t *testing.T, f *fixture) (*service.Sessions, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	sessions := service.NewSessions("test-secret", time.Hour, service.NewRedisLoginTokens(rdb))
	sessions.SetClock(f.clock.Now)
	return sessions, mr
}

func newAuth(t *testing.T, f *fixture) (*service.AuthService, *service.Sessions) {
	sessions, _ := newSessions(t, f)
	return service.NewAuthService(f.deps, sessions), sessions
}

func authRequest(k keypair, at time.Time, ip string) service.AuthRequest {
	msg, sig := k.signedChallenge(at)
	return service.AuthRequest{WalletAddress: k.address, Signature: sig, Message: msg, IP: ip}
}

func TestAuthenticate_NewWalletThenLogin(t *testing.T) {
	f := newFixture(t)
	auth, sessions := newAuth(t, f)
	k := newKeypair(t)

	res, err := auth.Authenticate(f.ctx, authRequest(k, f.clock.Now(), "10.0.0.1"))
	require.NoError(t, err)
	assert.True(t, res.IsNewUser)
	assert.Equal(t, domain.WalletEmailAlias(k.address), res.Link.Email)
	assert.Equal(t, service.VerificationMagicLink, res.Link.VerificationType)
	assert.NotEmpty(t, res.Profile.ReferralCode)

	sess, err := auth.ExchangeLoginToken(f.ctx, res.Link.Token)
	require.NoError(t, err)
	assert.Equal(t, res.UserID, sess.UserID)

	uid, err := sessions.Parse(sess.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.UserID, uid)

	// login tokens are single use
	_, err = auth.ExchangeLoginToken(f.ctx, res.Link.Token)
	assert.ErrorIs(t, err, service.ErrInvalidLoginToken)

	again, err := auth.Authenticate(f.ctx, authRequest(k, f.clock.Now(), "10.0.0.1"))
	require.NoError(t, err)
	assert.False(t, again.IsNewUser)
	assert.Equal(t, res.UserID, again.UserID)
	assert.Equal(t, 1, f.store.ProfileCount())
}

func TestAuthenticate_SybilIPRejectsSecondWallet(t *testing.T) {
	f := newFixture(t)
	auth, _ := newAuth(t, f)
	first := newKeypair(t)
	second := newKeypair(t)

	_, err := auth.Authenticate(f.ctx, authRequest(first, f.clock.Now(), "10.0.0.1"))
	require.NoError(t, err)

	_, err = auth.Authenticate(f.ctx, authRequest(second, f.clock.Now(), "10.0.0.1"))
	require.ErrorIs(t, err, service.ErrIPAlreadyRegistered)
	assert.Equal(t, 1, f.store.ProfileCount())

	var rejected int
	for _, e := range f.store.AuditEntries() {
		if e.Action == domain.AuditActionSybilRejected {
			rejected++
		}
	}
	assert.Equal(t, 1, rejected)

	// the first wallet can still log in from anywhere
	_, err = auth.Authenticate(f.ctx, authRequest(first, f.clock.Now(), "10.0.0.2"))
	require.NoError(t, err)

	// and the second registers fine from its own address
	res, err := auth.Authenticate(f.ctx, authRequest(second, f.clock.Now(), "10.0.0.3"))
	require.NoError(t, err)
	assert.True(t, res.IsNewUser)
}

func TestAuthenticate_RejectsBadInput(t *testing.T) {
	f := newFixture(t)
	auth, _ := newAuth(t, f)
	k := newKeypair(t)
	other := newKeypair(t)
	now := f.clock.Now()

	_, err := auth.Authenticate(f.ctx, service.AuthRequest{WalletAddress: k.address})
	assert.ErrorIs(t, err, service.ErrMissingFields)

	req := authRequest(k, now, "")
	req.WalletAddress = "0OIl"
	_, err = auth.Authenticate(f.ctx, req)
	assert.ErrorIs(t, err, service.ErrInvalidWallet)

	req = authRequest(k, now, "")
	_, req.Signature = other.signedChallenge(now)
	_, err = auth.Authenticate(f.ctx, req)
	assert.ErrorIs(t, err, service.ErrInvalidSignature)

	req = authRequest(k, now, "")
	req.Signature = "not-base58-0OIl"
	_, err = auth.Authenticate(f.ctx, req)
	assert.ErrorIs(t, err, service.ErrInvalidSignature)

	_, err = auth.Authenticate(f.ctx, authRequest(k, now.Add(-11*time.Minute), ""))
	assert.ErrorIs(t, err, service.ErrInvalidChallenge)

	req = authRequest(k, now, "")
	req.Username = "x"
	_, err = auth.Authenticate(f.ctx, req)
	assert.ErrorIs(t, err, service.ErrInvalidUsername)

	assert.Zero(t, f.store.ProfileCount())
}

func TestAuthenticate_UsernameTaken(t *testing.T) {
	f := newFixture(t)
	auth, _ := newAuth(t, f)
	first := newKeypair(t)
	second := newKeypair(t)

	req := authRequest(first, f.clock.Now(), "")
	req.Username = "beatmaker"
	_, err := auth.Authenticate(f.ctx, req)
	require.NoError(t, err)

	req = authRequest(second, f.clock.Now(), "")
	req.Username = "beatmaker"
	_, err = auth.Authenticate(f.ctx, req)
	assert.ErrorIs(t, err, service.ErrUsernameTaken)
	assert.Equal(t, 1, f.store.ProfileCount())
}

func TestSessions_LoginTokenExpires(t *testing.T) {
	f := newFixture(t)
	sessions, mr := newSessions(t, f)
	p := f.addProfile("alice", nil)

	link, err := sessions.NewLoginLink(f.ctx, p)
	require.NoError(t, err)

	mr.FastForward(service.LoginTokenTTL + time.Second)
	_, err = sessions.Exchange(f.ctx, link.Token)
	assert.ErrorIs(t, err, service.ErrInvalidLoginToken)
}

func TestSessions_ParseRejectsExpiredAndForeignTokens(t *testing.T) {
	f := newFixture(t)
	sessions, _ := newSessions(t, f)

	sess, err := sessions.Issue(7, "")
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	_, err = sessions.Parse(sess.AccessToken)
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	foreign := service.NewSessions("other-secret", time.Hour, nil)
	foreign.SetClock(f.clock.Now)
	other, err := foreign.Issue(7, "")
	require.NoError(t, err)
	_, err = sessions.Parse(other.AccessToken)
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	_, err = sessions.Parse("garbage")
	assert.ErrorIs(t, err, service.ErrUnauthorized)
}

func TestAuthenticate_ConcurrentFirstLoginBecomesLogin(t *testing.T) {
	f := newFixture(t)
	auth, _ := newAuth(t, f)
	k := newKeypair(t)

	// another request registers the same wallet between our lookup and insert
	var racer *domain.Profile
	f.store.BeforeProfileCreate = func(p *domain.Profile) {
		if racer != nil {
			return
		}
		racer = &domain.Profile{WalletAddress: p.WalletAddress, Username: "racer", ReferralCode: "RACER001"}
		require.NoError(t, f.deps.Profiles.Create(f.ctx, racer))
	}

	res, err := auth.Authenticate(f.ctx, authRequest(k, f.clock.Now(), "10.0.0.1"))
	require.NoError(t, err)
	assert.False(t, res.IsNewUser)
	assert.Equal(t, racer.ID, res.UserID)
	assert.Equal(t, 1, f.store.ProfileCount())
}

func TestAuthenticate_RetriesReferralCodeCollision(t *testing.T) {
	f := newFixture(t)
	auth, _ := newAuth(t, f)
	alice := f.addProfile("alice", nil)
	k := newKeypair(t)

	collisions := 0
	f.store.BeforeProfileCreate = func(p *domain.Profile) {
		if collisions < 2 {
			collisions++
			p.ReferralCode = alice.ReferralCode
		}
	}

	res, err := auth.Authenticate(f.ctx, authRequest(k, f.clock.Now(), ""))
	require.NoError(t, err)
	assert.True(t, res.IsNewUser)
	assert.Equal(t, 2, collisions)
	assert.NotEqual(t, alice.ReferralCode, res.Profile.ReferralCode)
	assert.Equal(t, 2, f.store.ProfileCount())
}
