package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"noizlabs/internal/domain"
	"noizlabs/internal/logger"
	"noizlabs/internal/storage"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const (
	MaxClipSize     = 10 << 20
	maxNameLength   = 64
	listLimit       = 100
	clipsKeyPrefix  = "clips"
	allowedVideoAlt = "video/webm"
)

// ClipUpload is a clip file as received from the client.
type ClipUpload struct {
	Title string
	Body  io.Reader
	Size  int64
}

// ContentService owns categories, clips and votes.
type ContentService struct {
	Deps
	blobs storage.BlobStore
}

func NewContentService(d Deps, blobs storage.BlobStore) *ContentService {
	return &ContentService{Deps: d, blobs: blobs}
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}

func (s *ContentService) CreateCategory(ctx context.Context, userID int64, name string) (*domain.Category, error) {
	p, err := s.profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if name, err = cleanName(name); err != nil {
		return nil, err
	}

	now := s.now()
	cat := &domain.Category{
		Name:          name,
		CreatorWallet: p.WalletAddress,
		CreatedAt:     now,
		ExpiresAt:     now.Add(domain.CategoryLifetime),
	}
	if err := s.Categories.Create(ctx, cat); err != nil {
		return nil, err
	}
	logger.WithContext(ctx).Info("category created", "category_id", cat.ID, "wallet", p.WalletAddress)
	return cat, nil
}

func (s *ContentService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.Categories.ListActive(ctx, s.now(), listLimit)
}

// openCategory returns the category if it still accepts clips and votes
func (s *ContentService) openCategory(ctx context.Context, id int64) (*domain.Category, error) {
	cat, err := s.Categories.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	if cat.Expired(s.now()) {
		return nil, ErrCategoryClosed
	}
	return cat, nil
}

// sniffAudio accepts audio/* (or a parent of it) and video/webm, which
// browsers use for recorded audio.
func sniffAudio(head []byte) (*mimetype.MIME, error) {
	mt := mimetype.Detect(head)
	for m := mt; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "audio/") || m.Is(allowedVideoAlt) {
			return mt, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedMedia, mt.String())
}

// UploadClip stores the file and records the clip. A wallet gets one clip
// per category.
func (s *ContentService) UploadClip(ctx context.Context, userID, categoryID int64, up ClipUpload) (*domain.AudioClip, error) {
	p, err := s.profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	title, err := cleanName(up.Title)
	if err != nil {
		return nil, err
	}
	if up.Size > MaxClipSize {
		return nil, ErrFileTooLarge
	}
	cat, err := s.openCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	exists, err := s.Clips.ExistsForCreator(ctx, p.WalletAddress, cat.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrClipExists
	}

	data, err := io.ReadAll(io.LimitReader(up.Body, MaxClipSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxClipSize {
		return nil, ErrFileTooLarge
	}
	mt, err := sniffAudio(data)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s/%d/%s-%s%s", clipsKeyPrefix, cat.ID, slug.Make(title), uuid.NewString(), mt.Extension())
	url, err := s.blobs.Put(ctx, key, bytes.NewReader(data), int64(len(data)), mt.String())
	if err != nil {
		return nil, fmt.Errorf("store clip: %w", err)
	}

	clip := &domain.AudioClip{
		Title:         title,
		CreatorWallet: p.WalletAddress,
		CategoryID:    cat.ID,
		AudioURL:      url,
		ObjectKey:     key,
	}
	if err := s.Clips.Create(ctx, clip); err != nil {
		if derr := s.blobs.Delete(ctx, key); derr != nil {
			logger.WithContext(ctx).Warn("orphan clip blob", "key", key, "error", derr)
		}
		return nil, err
	}
	logger.WithContext(ctx).Info("clip uploaded", "clip_id", clip.ID, "category_id", cat.ID, "bytes", len(data))
	return clip, nil
}

// ListClips returns a category's clips with their vote counts, most voted first.
func (s *ContentService) ListClips(ctx context.Context, categoryID int64) ([]domain.ClipTally, error) {
	if _, err := s.Categories.GetByID(ctx, categoryID); err != nil {
		if isNotFound(err) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return s.Clips.Tally(ctx, categoryID)
}

// CastVote appends a vote for a clip in an open category. A wallet votes for
// a clip once.
func (s *ContentService) CastVote(ctx context.Context, userID, clipID int64, battleID string) (*domain.Vote, error) {
	p, err := s.profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	clip, err := s.Clips.GetByID(ctx, clipID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrClipNotFound
		}
		return nil, err
	}
	if clip.CreatorWallet == p.WalletAddress {
		return nil, ErrSelfVote
	}
	if _, err := s.openCategory(ctx, clip.CategoryID); err != nil {
		return nil, err
	}

	battleID = strings.TrimSpace(battleID)
	if battleID == "" {
		battleID = domain.RefID(clip.CategoryID)
	}
	vote := &domain.Vote{BattleID: battleID, ClipID: clip.ID, VoterWallet: p.WalletAddress}
	if err := s.Votes.Create(ctx, vote); err != nil {
		if isConflict(err) {
			return nil, ErrAlreadyVoted
		}
		return nil, err
	}
	return vote, nil
}
