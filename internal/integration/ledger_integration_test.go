package integration

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"noizlabs/internal/domain"
	"noizlabs/internal/migrations"
	"noizlabs/internal/repository"
	"noizlabs/internal/service"
	"noizlabs/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	migs, err := migrations.All()
	require.NoError(t, err)
	for _, m := range migs {
		_, err := pool.Exec(context.Background(), m.SQL)
		require.NoError(t, err, "apply migration %s", m.Name)
	}
	return pool
}

func newProfile(t *testing.T, profiles *repository.ProfileRepository) *domain.Profile {
	t.Helper()
	w := "it_" + uuid.NewString()[:20]
	p := &domain.Profile{
		WalletAddress: w,
		Username:      "u" + w[3:20],
		ReferralCode:  repository.GenerateReferralCode(),
	}
	require.NoError(t, profiles.Create(context.Background(), p))
	return p
}

func TestLedger_CreditIsSingleUseUnderConcurrency(t *testing.T) {
	pool := connect(t)
	ctx := context.Background()
	ledger := repository.NewPointsRepository(pool)
	p := newProfile(t, repository.NewProfileRepository(pool))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := ledger.Credit(ctx, &domain.PointAward{
				WalletAddress: p.WalletAddress,
				Action:        string(domain.ActionUpload),
				Reference:     "42",
				Points:        domain.PointsUpload,
			})
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, applied)
	bal, err := ledger.Balance(ctx, p.WalletAddress)
	require.NoError(t, err)
	assert.Equal(t, domain.PointsUpload, bal)
}

func TestQuest_CheckInCompareAndSet(t *testing.T) {
	pool := connect(t)
	ctx := context.Background()
	quests := repository.NewQuestRepository(pool)
	p := newProfile(t, repository.NewProfileRepository(pool))
	today := domain.QuestDay(time.Now())

	ok, err := quests.CheckIn(ctx, p.WalletAddress, today, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = quests.CheckIn(ctx, p.WalletAddress, today, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	claimed, err := quests.ClaimFlag(ctx, p.WalletAddress, today, domain.QuestFlagVoteBonusClaimed)
	require.NoError(t, err)
	assert.True(t, claimed)
	claimed, err = quests.ClaimFlag(ctx, p.WalletAddress, today, domain.QuestFlagVoteBonusClaimed)
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestExpiry_PaysWinnerAndCascades(t *testing.T) {
	pool := connect(t)
	ctx := context.Background()
	deps := service.NewDeps(pool, nil)
	profiles := repository.NewProfileRepository(pool)

	owner := newProfile(t, profiles)
	creator := newProfile(t, profiles)
	voter := newProfile(t, profiles)

	past := time.Now().Add(-domain.CategoryLifetime - time.Hour)
	cat := &domain.Category{Name: "it", CreatorWallet: owner.WalletAddress, CreatedAt: past, ExpiresAt: past.Add(domain.CategoryLifetime)}
	require.NoError(t, deps.Categories.Create(ctx, cat))
	clip := &domain.AudioClip{Title: "t", CreatorWallet: creator.WalletAddress, CategoryID: cat.ID, AudioURL: "u", ObjectKey: "k"}
	require.NoError(t, deps.Clips.Create(ctx, clip))
	require.NoError(t, deps.Votes.Create(ctx, &domain.Vote{BattleID: "b", ClipID: clip.ID, VoterWallet: voter.WalletAddress}))

	report, err := service.NewExpiryService(deps, storage.NewMemory("")).ProcessExpired(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, report.Awarded, 1)

	bal, err := deps.Ledger.Balance(ctx, creator.WalletAddress)
	require.NoError(t, err)
	assert.Equal(t, domain.PointsCategoryWinner, bal)

	_, err = deps.Clips.GetByID(ctx, clip.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

