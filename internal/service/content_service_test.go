package service_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"noizlabs/internal/domain"
	"noizlabs/internal/service"
	"noizlabs/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadClip_StoresBlobAndRecordsClip(t *testing.T) {
	f := newFixture(t)
	blobs := storage.NewMemory("https://cdn.test")
	svc := service.NewContentService(f.deps, blobs)
	alice := f.addProfile("alice", nil)

	cat, err := svc.CreateCategory(f.ctx, alice.ID, "  Late Night Lofi ")
	require.NoError(t, err)
	assert.Equal(t, "Late Night Lofi", cat.Name)
	assert.Equal(t, cat.CreatedAt.Add(domain.CategoryLifetime), cat.ExpiresAt)

	body := wavHeader()
	clip, err := svc.UploadClip(f.ctx, alice.ID, cat.ID, service.ClipUpload{Title: "Rainy Loop", Body: bytes.NewReader(body), Size: int64(len(body))})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(clip.ObjectKey, "clips/"))
	assert.Contains(t, clip.ObjectKey, "rainy-loop-")
	assert.Equal(t, "https://cdn.test/"+clip.ObjectKey, clip.AudioURL)
	assert.True(t, blobs.Has(clip.ObjectKey))

	_, err = svc.UploadClip(f.ctx, alice.ID, cat.ID, service.ClipUpload{Title: "Second", Body: bytes.NewReader(body), Size: int64(len(body))})
	assert.ErrorIs(t, err, service.ErrClipExists)
}

func TestUploadClip_RejectsBadFiles(t *testing.T) {
	f := newFixture(t)
	svc := service.NewContentService(f.deps, storage.NewMemory(""))
	alice := f.addProfile("alice", nil)
	cat := f.addCategory(alice, "lofi")

	text := []byte("just some text, not audio at all")
	_, err := svc.UploadClip(f.ctx, alice.ID, cat.ID, service.ClipUpload{Title: "t", Body: bytes.NewReader(text), Size: int64(len(text))})
	assert.ErrorIs(t, err, service.ErrUnsupportedMedia)

	_, err = svc.UploadClip(f.ctx, alice.ID, cat.ID, service.ClipUpload{Title: "t", Body: bytes.NewReader(nil), Size: service.MaxClipSize + 1})
	assert.ErrorIs(t, err, service.ErrFileTooLarge)

	big := append(wavHeader(), make([]byte, service.MaxClipSize)...)
	_, err = svc.UploadClip(f.ctx, alice.ID, cat.ID, service.ClipUpload{Title: "t", Body: bytes.NewReader(big), Size: -1})
	assert.ErrorIs(t, err, service.ErrFileTooLarge)

	body := wavHeader()
	_, err = svc.UploadClip(f.ctx, alice.ID, 9999, service.ClipUpload{Title: "t", Body: bytes.NewReader(body), Size: int64(len(body))})
	assert.ErrorIs(t, err, service.ErrCategoryNotFound)

	f.clock.Advance(domain.CategoryLifetime)
	_, err = svc.UploadClip(f.ctx, alice.ID, cat.ID, service.ClipUpload{Title: "t", Body: bytes.NewReader(body), Size: int64(len(body))})
	assert.ErrorIs(t, err, service.ErrCategoryClosed)
}

func TestCastVote(t *testing.T) {
	f := newFixture(t)
	svc := service.NewContentService(f.deps, storage.NewMemory(""))
	alice := f.addProfile("alice", nil)
	bob := f.addProfile("bob", nil)
	cat := f.addCategory(alice, "lofi")
	clip := f.addClip(alice, cat)

	_, err := svc.CastVote(f.ctx, alice.ID, clip.ID, "")
	assert.ErrorIs(t, err, service.ErrSelfVote)

	vote, err := svc.CastVote(f.ctx, bob.ID, clip.ID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.RefID(cat.ID), vote.BattleID)

	tallies, err := svc.ListClips(f.ctx, cat.ID)
	require.NoError(t, err)
	require.Len(t, tallies, 1)
	assert.Equal(t, int64(1), tallies[0].Votes)

	_, err = svc.CastVote(f.ctx, bob.ID, 9999, "")
	assert.ErrorIs(t, err, service.ErrClipNotFound)

	f.clock.Advance(domain.CategoryLifetime + time.Second)
	_, err = svc.CastVote(f.ctx, bob.ID, clip.ID, "")
	assert.ErrorIs(t, err, service.ErrCategoryClosed)
}

func TestCreateCategory_ValidatesName(t *testing.T) {
	f := newFixture(t)
	svc := service.NewContentService(f.deps, storage.NewMemory(""))
	alice := f.addProfile("alice", nil)

	_, err := svc.CreateCategory(f.ctx, alice.ID, "   ")
	assert.ErrorIs(t, err, service.ErrInvalidName)

	_, err = svc.CreateCategory(f.ctx, alice.ID, strings.Repeat("x", 65))
	assert.ErrorIs(t, err, service.ErrInvalidName)

	_, err = svc.CreateCategory(f.ctx, 31337, "lofi")
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	f.addCategory(alice, "old")
	f.clock.Advance(domain.CategoryLifetime)
	f.addCategory(alice, "new")
	active, err := svc.ListCategories(f.ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "new", active[0].Name)
}

func TestCastVote_OncePerClip(t *testing.T) {
	f := newFixture(t)
	svc := service.NewContentService(f.deps, storage.NewMemory(""))
	points := newPoints(f)
	alice := f.addProfile("alice", nil)
	bob := f.addProfile("bob", nil)
	cat := f.addCategory(alice, "lofi")
	clip := f.addClip(alice, cat)

	first, err := svc.CastVote(f.ctx, bob.ID, clip.ID, "")
	require.NoError(t, err)
	_, err = points.Award(f.ctx, bob.ID, service.AwardRequest{Action: domain.ActionVote, Data: service.AwardData{VoteID: first.ID}})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err = svc.CastVote(f.ctx, bob.ID, clip.ID, "")
		assert.ErrorIs(t, err, service.ErrAlreadyVoted)
	}

	tallies, err := svc.ListClips(f.ctx, cat.ID)
	require.NoError(t, err)
	require.Len(t, tallies, 1)
	assert.Equal(t, int64(1), tallies[0].Votes)
	assert.Equal(t, domain.PointsVote, f.balance("bob"))

	// a different clip is a different vote
	other := f.addClip(f.addProfile("carol", nil), cat)
	_, err = svc.CastVote(f.ctx, bob.ID, other.ID, "")
	require.NoError(t, err)
}
