package service_test

import (
	"sync"
	"testing"
	"time"

	"noizlabs/internal/domain"
	"noizlabs/internal/ratelimit"
	"noizlabs/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPoints(f *fixture) *service.PointsService {
	limiter := ratelimit.NewMemory(ratelimit.Config{Limit: 30, Window: time.Minute}, f.clock.Now)
	return service.NewPointsService(f.deps, limiter)
}

func TestAward_UploadIsSingleUse(t *testing.T) {
	f := newFixture(t)
	svc := newPoints(f)
	alice := f.addProfile("alice", nil)
	clip := f.addClip(alice, f.addCategory(alice, "lofi"))

	req := service.AwardRequest{Action: domain.ActionUpload, Data: service.AwardData{ClipID: clip.ID}}
	res, err := svc.Award(f.ctx, alice.ID, req)
	require.NoError(t, err)
	assert.Equal(t, domain.PointsUpload, res.Points)
	assert.Equal(t, domain.PointsUpload, res.Balance)

	// still inside the freshness window
	f.clock.Advance(time.Minute)
	_, err = svc.Award(f.ctx, alice.ID, req)
	assert.ErrorIs(t, err, service.ErrAlreadyAwarded)
	assert.Equal(t, domain.PointsUpload, f.balance("alice"))
	assert.Len(t, f.store.Awards("alice"), 1)
}

func TestAward_RejectsStaleReference(t *testing.T) {
	f := newFixture(t)
	svc := newPoints(f)
	alice := f.addProfile("alice", nil)
	clip := f.addClip(alice, f.addCategory(alice, "lofi"))

	f.clock.Advance(service.FreshnessWindow + time.Second)
	_, err := svc.Award(f.ctx, alice.ID, service.AwardRequest{Action: domain.ActionUpload, Data: service.AwardData{ClipID: clip.ID}})
	assert.ErrorIs(t, err, service.ErrTooOld)
	assert.Zero(t, f.balance("alice"))
}

func TestAward_OwnershipMismatch(t *testing.T) {
	f := newFixture(t)
	svc := newPoints(f)
	alice := f.addProfile("alice", nil)
	bob := f.addProfile("bob", nil)
	cat := f.addCategory(alice, "lofi")
	clip := f.addClip(alice, cat)
	vote := f.addVote(bob, clip)

	_, err := svc.Award(f.ctx, bob.ID, service.AwardRequest{Action: domain.ActionUpload, Data: service.AwardData{ClipID: clip.ID}})
	assert.ErrorIs(t, err, service.ErrInvalidClip)

	_, err = svc.Award(f.ctx, alice.ID, service.AwardRequest{Action: domain.ActionVote, Data: service.AwardData{VoteID: vote.ID}})
	assert.ErrorIs(t, err, service.ErrInvalidVote)

	_, err = svc.Award(f.ctx, bob.ID, service.AwardRequest{Action: domain.ActionCategory, Data: service.AwardData{CategoryID: cat.ID}})
	assert.ErrorIs(t, err, service.ErrInvalidCategory)

	_, err = svc.Award(f.ctx, bob.ID, service.AwardRequest{Action: domain.ActionUpload, Data: service.AwardData{ClipID: 9999}})
	assert.ErrorIs(t, err, service.ErrInvalidClip)

	assert.Zero(t, f.balance("alice"))
	assert.Zero(t, f.balance("bob"))
}

func TestAward_UnknownActionAndSession(t *testing.T) {
	f := newFixture(t)
	svc := newPoints(f)
	alice := f.addProfile("alice", nil)

	_, err := svc.Award(f.ctx, alice.ID, service.AwardRequest{Action: "mint"})
	assert.ErrorIs(t, err, service.ErrUnknownAction)

	_, err = svc.Award(f.ctx, 424242, service.AwardRequest{Action: domain.ActionUpload})
	assert.ErrorIs(t, err, service.ErrUnauthorized)
}

func TestAward_RateLimitLeavesBalanceUntouched(t *testing.T) {
	f := newFixture(t)
	svc := newPoints(f)
	alice := f.addProfile("alice", nil)
	cat := f.addCategory(alice, "lofi")
	first := f.addClip(alice, cat)

	req := service.AwardRequest{Action: domain.ActionUpload, Data: service.AwardData{ClipID: first.ID}}
	for i := 0; i < 30; i++ {
		_, err := svc.Award(f.ctx, alice.ID, req)
		if i == 0 {
			require.NoError(t, err)
		} else {
			require.ErrorIs(t, err, service.ErrAlreadyAwarded)
		}
	}

	fresh := f.addClip(alice, f.addCategory(alice, "ambient"))
	_, err := svc.Award(f.ctx, alice.ID, service.AwardRequest{Action: domain.ActionUpload, Data: service.AwardData{ClipID: fresh.ID}})
	require.ErrorIs(t, err, service.ErrRateLimited)

	var limitErr *service.LimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Greater(t, limitErr.RetryAfter, time.Duration(0))

	assert.Equal(t, domain.PointsUpload, f.balance("alice"))
	assert.Len(t, f.store.Awards("alice"), 1)

	// the window slides and the fresh clip is still inside its own freshness window
	f.clock.Advance(time.Minute)
	res, err := svc.Award(f.ctx, alice.ID, service.AwardRequest{Action: domain.ActionUpload, Data: service.AwardData{ClipID: fresh.ID}})
	require.NoError(t, err)
	assert.Equal(t, 2*domain.PointsUpload, res.Balance)
}

func TestAward_VoteBonusOncePerDay(t *testing.T) {
	f := newFixture(t)
	limiter := ratelimit.NewMemory(ratelimit.Config{Limit: 100, Window: time.Minute}, f.clock.Now)
	svc := service.NewPointsService(f.deps, limiter)
	alice := f.addProfile("alice", nil)
	bob := f.addProfile("bob", nil)
	cat := f.addCategory(alice, "lofi")

	var last *service.AwardResult
	for i := 1; i <= domain.VoteBonusThreshold+1; i++ {
		vote := f.addVote(bob, f.addClip(alice, cat))
		res, err := svc.Award(f.ctx, bob.ID, service.AwardRequest{Action: domain.ActionVote, Data: service.AwardData{VoteID: vote.ID}})
		require.NoError(t, err)
		if i == domain.VoteBonusThreshold {
			assert.Equal(t, domain.PointsVote+domain.PointsVoteBonus, res.Points)
		} else {
			assert.Equal(t, domain.PointsVote, res.Points)
		}
		last = res
	}

	want := int64(domain.VoteBonusThreshold+1)*domain.PointsVote + domain.PointsVoteBonus
	assert.Equal(t, want, last.Balance)

	q, err := f.deps.Quests.Get(f.ctx, "bob", f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, domain.VoteBonusThreshold+1, q.VotesCast)
	assert.True(t, q.VoteBonusClaimed)
}

func TestAward_CategoryQuestBonusOncePerDay(t *testing.T) {
	f := newFixture(t)
	svc := newPoints(f)
	alice := f.addProfile("alice", nil)

	first := f.addCategory(alice, "lofi")
	res, err := svc.Award(f.ctx, alice.ID, service.AwardRequest{Action: domain.ActionCategory, Data: service.AwardData{CategoryID: first.ID}})
	require.NoError(t, err)
	assert.Equal(t, domain.PointsCategory+domain.PointsCategoryQuest, res.Points)

	second := f.addCategory(alice, "ambient")
	res, err = svc.Award(f.ctx, alice.ID, service.AwardRequest{Action: domain.ActionCategory, Data: service.AwardData{CategoryID: second.ID}})
	require.NoError(t, err)
	assert.Equal(t, domain.PointsCategory, res.Points)

	// next UTC day the quest bonus is available again
	f.clock.Advance(24 * time.Hour)
	third := f.addCategory(alice, "drill")
	res, err = svc.Award(f.ctx, alice.ID, service.AwardRequest{Action: domain.ActionCategory, Data: service.AwardData{CategoryID: third.ID}})
	require.NoError(t, err)
	assert.Equal(t, domain.PointsCategory+domain.PointsCategoryQuest, res.Points)
}

func TestAward_ReferralPaysBothSidesOnce(t *testing.T) {
	f := newFixture(t)
	svc := newPoints(f)
	referrer := f.addProfile("alice", nil)
	ref := referrer.WalletAddress
	bob := f.addProfile("bob", &ref)
	carol := f.addProfile("carol", nil)

	first := f.addCategory(bob, "lofi")
	req := service.AwardRequest{Action: domain.ActionReferral, Data: service.AwardData{CategoryID: first.ID}}
	res, err := svc.Award(f.ctx, bob.ID, req)
	require.NoError(t, err)
	assert.Equal(t, domain.PointsReferral, res.Points)
	assert.Equal(t, domain.PointsReferral, f.balance("alice"))
	assert.Equal(t, domain.PointsReferral, f.balance("bob"))

	_, err = svc.Award(f.ctx, bob.ID, req)
	assert.ErrorIs(t, err, service.ErrAlreadyAwarded)

	second := f.addCategory(bob, "ambient")
	_, err = svc.Award(f.ctx, bob.ID, service.AwardRequest{Action: domain.ActionReferral, Data: service.AwardData{CategoryID: second.ID}})
	assert.ErrorIs(t, err, service.ErrInvalidReferral)

	own := f.addCategory(carol, "drill")
	_, err = svc.Award(f.ctx, carol.ID, service.AwardRequest{Action: domain.ActionReferral, Data: service.AwardData{CategoryID: own.ID}})
	assert.ErrorIs(t, err, service.ErrInvalidReferral)

	assert.Equal(t, domain.PointsReferral, f.balance("alice"))
	assert.Equal(t, domain.PointsReferral, f.balance("bob"))
	assert.Zero(t, f.balance("carol"))
}

func TestAward_TaskUsesConfiguredReward(t *testing.T) {
	f := newFixture(t)
	svc := newPoints(f)
	tasks := service.NewTaskService(f.deps)
	alice := f.addProfile("alice", nil)
	task := f.store.AddTask(domain.Task{Kind: domain.TaskKindSocial, Title: "Follow", Reward: 30, IsActive: true})

	req := service.AwardRequest{Action: domain.ActionTask, Data: service.AwardData{TaskID: task.ID}}
	_, err := svc.Award(f.ctx, alice.ID, req)
	assert.ErrorIs(t, err, service.ErrInvalidTask)

	_, err = tasks.Complete(f.ctx, alice.ID, task.ID)
	require.NoError(t, err)

	res, err := svc.Award(f.ctx, alice.ID, req)
	require.NoError(t, err)
	assert.Equal(t, int64(30), res.Points)

	_, err = svc.Award(f.ctx, alice.ID, req)
	assert.ErrorIs(t, err, service.ErrAlreadyAwarded)
	assert.Equal(t, int64(30), f.balance("alice"))
}

func TestAward_PublishesToFeed(t *testing.T) {
	f := newFixture(t)
	svc := newPoints(f)
	alice := f.addProfile("alice", nil)
	clip := f.addClip(alice, f.addCategory(alice, "lofi"))

	_, err := svc.Award(f.ctx, alice.ID, service.AwardRequest{Action: domain.ActionUpload, Data: service.AwardData{ClipID: clip.ID}})
	require.NoError(t, err)

	events := f.feed.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "alice", events[0].WalletAddress)
	assert.Equal(t, domain.PointsUpload, events[0].Points)
	assert.Equal(t, domain.PointsUpload, events[0].Balance)
}

func TestAward_ParallelVotesPayBonusOnce(t *testing.T) {
	f := newFixture(t)
	limiter := ratelimit.NewMemory(ratelimit.Config{Limit: 100, Window: time.Minute}, f.clock.Now)
	svc := service.NewPointsService(f.deps, limiter)
	alice := f.addProfile("alice", nil)
	bob := f.addProfile("bob", nil)
	cat := f.addCategory(alice, "lofi")

	const n = 2 * domain.VoteBonusThreshold
	votes := make([]*domain.Vote, 0, n)
	for i := 0; i < n; i++ {
		votes = append(votes, f.addVote(bob, f.addClip(alice, cat)))
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for _, v := range votes {
		wg.Add(1)
		go func(voteID int64) {
			defer wg.Done()
			_, err := svc.Award(f.ctx, bob.ID, service.AwardRequest{Action: domain.ActionVote, Data: service.AwardData{VoteID: voteID}})
			errs <- err
		}(v.ID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	bonuses := 0
	for _, a := range f.store.Awards("bob") {
		if a.Action == domain.AwardVoteBonus {
			bonuses++
		}
	}
	assert.Equal(t, 1, bonuses)
	assert.Equal(t, int64(n)*domain.PointsVote+domain.PointsVoteBonus, f.balance("bob"))
}

func TestQuestClaimFlag_OneWinnerUnderContention(t *testing.T) {
	f := newFixture(t)
	f.addProfile("bob", nil)
	day := f.clock.Now()
	for i := 0; i < domain.VoteBonusThreshold; i++ {
		_, err := f.deps.Quests.IncrementVotes(f.ctx, "bob", day)
		require.NoError(t, err)
	}

	const workers = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := f.deps.Quests.ClaimFlag(f.ctx, "bob", day, domain.QuestFlagVoteBonusClaimed)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}
