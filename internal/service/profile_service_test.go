package service_test

import (
	"strings"
	"testing"

	"noizlabs/internal/domain"
	"noizlabs/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyReferralCode(t *testing.T) {
	f := newFixture(t)
	svc := service.NewProfileService(f.deps)
	alice := f.addProfile("alice", nil)
	bob := f.addProfile("bob", nil)

	_, err := svc.ApplyReferralCode(f.ctx, alice.ID, alice.ReferralCode)
	assert.ErrorIs(t, err, service.ErrSelfReferral)

	_, err = svc.ApplyReferralCode(f.ctx, bob.ID, "NOPE1234")
	assert.ErrorIs(t, err, service.ErrInvalidReferralCode)

	p, err := svc.ApplyReferralCode(f.ctx, bob.ID, " "+strings.ToLower(alice.ReferralCode)+" ")
	require.NoError(t, err)
	require.NotNil(t, p.ReferredBy)
	assert.Equal(t, "alice", *p.ReferredBy)

	_, err = svc.ApplyReferralCode(f.ctx, bob.ID, alice.ReferralCode)
	assert.ErrorIs(t, err, service.ErrAlreadyReferred)

	info, err := svc.ReferralInfo(f.ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ReferralCode, info.Code)
	assert.Equal(t, 1, info.Referrals)
}

func TestUpdateUsername(t *testing.T) {
	f := newFixture(t)
	svc := service.NewProfileService(f.deps)
	alice := f.addProfile("alice", nil)
	f.addProfile("bob", nil)

	_, err := svc.UpdateUsername(f.ctx, alice.ID, "a b")
	assert.ErrorIs(t, err, service.ErrInvalidUsername)

	_, err = svc.UpdateUsername(f.ctx, alice.ID, "u_bob")
	assert.ErrorIs(t, err, service.ErrUsernameTaken)

	p, err := svc.UpdateUsername(f.ctx, alice.ID, "beat_queen")
	require.NoError(t, err)
	assert.Equal(t, "beat_queen", p.Username)
}

func TestMe_IncludesBalanceQuestAndHistory(t *testing.T) {
	f := newFixture(t)
	svc := service.NewProfileService(f.deps)
	checkins := service.NewCheckinService(f.deps)
	alice := f.addProfile("alice", nil)

	_, err := checkins.CheckIn(f.ctx, alice.ID)
	require.NoError(t, err)

	me, err := svc.Me(f.ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PointsCheckin, me.Points)
	assert.True(t, me.Quest.CheckedIn)
	assert.Equal(t, 1, me.Quest.Streak)
	require.Len(t, me.History, 1)
	assert.Equal(t, domain.AwardCheckin, me.History[0].Action)

	board, err := svc.Leaderboard(f.ctx)
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, "alice", board[0].WalletAddress)
}

func TestCompleteTask(t *testing.T) {
	f := newFixture(t)
	svc := service.NewTaskService(f.deps)
	alice := f.addProfile("alice", nil)
	social := f.store.AddTask(domain.Task{Kind: domain.TaskKindSocial, Title: "Follow", Reward: 20, IsActive: true, SortOrder: 2})
	invite := f.store.AddTask(domain.Task{Kind: domain.TaskKindReferral, Title: "Invite", Reward: 50, IsActive: true, SortOrder: 1})
	retired := f.store.AddTask(domain.Task{Kind: domain.TaskKindSocial, Title: "Old", Reward: 5})

	ut, err := svc.Complete(f.ctx, alice.ID, social.ID)
	require.NoError(t, err)
	assert.True(t, ut.Verified)

	_, err = svc.Complete(f.ctx, alice.ID, social.ID)
	assert.ErrorIs(t, err, service.ErrTaskAlreadyCompleted)

	_, err = svc.Complete(f.ctx, alice.ID, invite.ID)
	assert.ErrorIs(t, err, service.ErrTaskRequirements)

	_, err = svc.Complete(f.ctx, alice.ID, retired.ID)
	assert.ErrorIs(t, err, service.ErrTaskNotFound)

	ref := alice.WalletAddress
	f.addProfile("bob", &ref)
	_, err = svc.Complete(f.ctx, alice.ID, invite.ID)
	require.NoError(t, err)

	views, err := svc.List(f.ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "Invite", views[0].Title)
	assert.True(t, views[0].Completed)
	assert.True(t, views[1].Completed)
}
