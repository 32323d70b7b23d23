package service_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"sync"
	"testing"
	"time"

	"noizlabs/internal/domain"
	"noizlabs/internal/repository"
	"noizlabs/internal/repository/memstore"
	"noizlabs/internal/service"
	"noizlabs/internal/wallet"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type feed struct {
	mu     sync.Mutex
	events []domain.PointsEvent
}

func (f *feed) PointsAwarded(ev domain.PointsEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

func (f *feed) Events() []domain.PointsEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.PointsEvent(nil), f.events...)
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	clock *fakeClock
	store *memstore.Store
	deps  service.Deps
	feed  *feed
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	store := memstore.New(clock.Now)
	f := &feed{}
	deps := store.Deps()
	deps.Notifier = f
	return &fixture{t: t, ctx: context.Background(), clock: clock, store: store, deps: deps, feed: f}
}

func (f *fixture) addProfile(wallet string, referredBy *string) *domain.Profile {
	f.t.Helper()
	p := &domain.Profile{
		WalletAddress: wallet,
		Username:      "u_" + wallet,
		ReferralCode:  repository.GenerateReferralCode(),
		ReferredBy:    referredBy,
	}
	require.NoError(f.t, f.deps.Profiles.Create(f.ctx, p))
	return p
}

func (f *fixture) addCategory(owner *domain.Profile, name string) *domain.Category {
	f.t.Helper()
	now := f.clock.Now()
	c := &domain.Category{Name: name, CreatorWallet: owner.WalletAddress, CreatedAt: now, ExpiresAt: now.Add(domain.CategoryLifetime)}
	require.NoError(f.t, f.deps.Categories.Create(f.ctx, c))
	return c
}

func (f *fixture) addClip(owner *domain.Profile, cat *domain.Category) *domain.AudioClip {
	f.t.Helper()
	c := &domain.AudioClip{
		Title:         "clip",
		CreatorWallet: owner.WalletAddress,
		CategoryID:    cat.ID,
		AudioURL:      "https://cdn.test/clip",
		ObjectKey:     "clips/" + domain.RefID(cat.ID) + "/" + owner.WalletAddress,
	}
	require.NoError(f.t, f.deps.Clips.Create(f.ctx, c))
	return c
}

func (f *fixture) addVote(voter *domain.Profile, clip *domain.AudioClip) *domain.Vote {
	f.t.Helper()
	v := &domain.Vote{BattleID: "b", ClipID: clip.ID, VoterWallet: voter.WalletAddress}
	require.NoError(f.t, f.deps.Votes.Create(f.ctx, v))
	return v
}

func (f *fixture) balance(wallet string) int64 {
	f.t.Helper()
	b, err := f.deps.Ledger.Balance(f.ctx, wallet)
	require.NoError(f.t, err)
	return b
}

type keypair struct {
	address string
	priv    ed25519.PrivateKey
}

func newKeypair(t *testing.T) keypair {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return keypair{address: wallet.Address(pub), priv: priv}
}

func (k keypair) signedChallenge(at time.Time) (message, signature string) {
	message = wallet.BuildChallenge(k.address, at)
	return message, wallet.Sign(k.priv, message)
}

// wavHeader is enough of a RIFF/WAVE file for content sniffing.
func wavHeader() []byte {
	b := []byte("RIFF\x24\x00\x00\x00WAVEfmt \x10\x00\x00\x00\x01\x00\x01\x00\x44\xac\x00\x00\x88\x58\x01\x00\x02\x00\x10\x00data\x00\x00\x00\x00")
	return append(b, make([]byte, 64)...)
}
