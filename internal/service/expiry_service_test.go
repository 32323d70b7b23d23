package service_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"noizlabs/internal/domain"
	"noizlabs/internal/service"
	"noizlabs/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpiry_TieGoesToEarliestClip(t *testing.T) {
	f := newFixture(t)
	blobs := storage.NewMemory("https://cdn.test")
	svc := service.NewExpiryService(f.deps, blobs)

	owner := f.addProfile("owner", nil)
	a := f.addProfile("a", nil)
	b := f.addProfile("b", nil)
	c := f.addProfile("c", nil)
	var voters []*domain.Profile
	for _, name := range []string{"v1", "v2", "v3", "v4", "v5"} {
		voters = append(voters, f.addProfile(name, nil))
	}
	cat := f.addCategory(owner, "lofi")

	clipA := f.addClip(a, cat)
	f.clock.Advance(time.Second)
	clipB := f.addClip(b, cat)
	f.clock.Advance(time.Second)
	clipC := f.addClip(c, cat)

	for clip, n := range map[*domain.AudioClip]int{clipA: 2, clipB: 5, clipC: 5} {
		for _, voter := range voters[:n] {
			f.addVote(voter, clip)
		}
	}
	for _, clip := range []*domain.AudioClip{clipA, clipB, clipC} {
		_, err := blobs.Put(f.ctx, clip.ObjectKey, strings.NewReader("RIFF"), 4, "audio/wav")
		require.NoError(t, err)
	}

	f.clock.Advance(domain.CategoryLifetime)
	report, err := svc.ProcessExpired(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, &service.ExpiryReport{Processed: 1, Awarded: 1}, report)

	assert.Zero(t, f.balance("a"))
	assert.Equal(t, domain.PointsCategoryWinner, f.balance("b"))
	assert.Zero(t, f.balance("c"))

	_, err = f.deps.Categories.GetByID(f.ctx, cat.ID)
	assert.Error(t, err)
	_, err = f.deps.Clips.GetByID(f.ctx, clipB.ID)
	assert.Error(t, err)
	assert.False(t, blobs.Has(clipA.ObjectKey))
	assert.False(t, blobs.Has(clipB.ObjectKey))

	// a second sweep finds nothing to do
	report, err = svc.ProcessExpired(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, &service.ExpiryReport{}, report)
	assert.Equal(t, domain.PointsCategoryWinner, f.balance("b"))
}

func TestExpiry_NoVotesNoAward(t *testing.T) {
	f := newFixture(t)
	svc := service.NewExpiryService(f.deps, storage.NewMemory(""))
	owner := f.addProfile("owner", nil)
	cat := f.addCategory(owner, "lofi")
	f.addClip(owner, cat)

	f.clock.Advance(domain.CategoryLifetime + time.Minute)
	report, err := svc.ProcessExpired(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Zero(t, report.Awarded)
	assert.Zero(t, f.balance("owner"))
}

func TestExpiry_LeavesActiveCategories(t *testing.T) {
	f := newFixture(t)
	svc := service.NewExpiryService(f.deps, storage.NewMemory(""))
	owner := f.addProfile("owner", nil)
	cat := f.addCategory(owner, "lofi")

	f.clock.Advance(domain.CategoryLifetime - time.Second)
	report, err := svc.ProcessExpired(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Processed)

	_, err = f.deps.Categories.GetByID(f.ctx, cat.ID)
	assert.NoError(t, err)
}

func TestExpiry_FailureIsIsolatedPerCategory(t *testing.T) {
	f := newFixture(t)
	svc := service.NewExpiryService(f.deps, storage.NewMemory(""))
	owner := f.addProfile("owner", nil)
	a := f.addProfile("a", nil)
	b := f.addProfile("b", nil)
	voter := f.addProfile("voter", nil)

	broken := f.addCategory(owner, "broken")
	f.addVote(voter, f.addClip(a, broken))
	healthy := f.addCategory(owner, "healthy")
	f.addVote(voter, f.addClip(b, healthy))

	f.store.FailCategoryDelete[broken.ID] = errors.New("boom")

	f.clock.Advance(domain.CategoryLifetime)
	report, err := svc.ProcessExpired(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, &service.ExpiryReport{Processed: 1, Awarded: 1, Failed: 1}, report)

	// the failed category rolled back, including its winner credit
	assert.Zero(t, f.balance("a"))
	assert.Equal(t, domain.PointsCategoryWinner, f.balance("b"))
	_, err = f.deps.Categories.GetByID(f.ctx, broken.ID)
	assert.NoError(t, err)

	// once fixed, the next sweep pays it exactly once
	delete(f.store.FailCategoryDelete, broken.ID)
	report, err = svc.ProcessExpired(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, &service.ExpiryReport{Processed: 1, Awarded: 1}, report)
	assert.Equal(t, domain.PointsCategoryWinner, f.balance("a"))
}
