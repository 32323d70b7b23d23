package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"noizlabs/internal/domain"
	"noizlabs/internal/repository"
)

type Profiles struct{ s *Store }

func (r *Profiles) GetByID(_ context.Context, id int64) (*domain.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.st.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *Profiles) find(match func(p *domain.Profile) bool) (*domain.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var best *domain.Profile
	for _, p := range r.s.st.profiles {
		p := p
		if match(&p) && (best == nil || p.ID < best.ID) {
			best = &p
		}
	}
	if best == nil {
		return nil, repository.ErrNotFound
	}
	return best, nil
}

func (r *Profiles) GetByWallet(_ context.Context, wallet string) (*domain.Profile, error) {
	return r.find(func(p *domain.Profile) bool { return p.WalletAddress == wallet })
}

func (r *Profiles) GetBySignupIP(_ context.Context, ip string) (*domain.Profile, error) {
	return r.find(func(p *domain.Profile) bool { return ip != "" && p.SignupIP == ip })
}

func (r *Profiles) Create(_ context.Context, p *domain.Profile) error {
	if hook := r.s.BeforeProfileCreate; hook != nil {
		hook(p)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.st.profiles {
		switch {
		case other.WalletAddress == p.WalletAddress:
			return &repository.ConflictError{Constraint: repository.ConstraintProfileWallet}
		case other.Username == p.Username:
			return &repository.ConflictError{Constraint: repository.ConstraintProfileUsername}
		case other.ReferralCode == p.ReferralCode:
			return &repository.ConflictError{Constraint: repository.ConstraintProfileCode}
		}
	}
	p.ID = r.s.st.nextID()
	p.CreatedAt = r.s.stamp()
	if p.Timezone == "" {
		p.Timezone = "UTC"
	}
	r.s.st.profiles[p.ID] = *p
	r.s.st.points[p.WalletAddress] = 0
	return nil
}

func (r *Profiles) UpdateUsername(_ context.Context, id int64, username string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.st.profiles[id]
	if !ok {
		return repository.ErrNotFound
	}
	for _, other := range r.s.st.profiles {
		if other.ID != id && other.Username == username {
			return &repository.ConflictError{Constraint: repository.ConstraintProfileUsername}
		}
	}
	p.Username = username
	r.s.st.profiles[id] = p
	return nil
}

func (r *Profiles) SaveCheckin(_ context.Context, wallet string, day time.Time, streak int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, p := range r.s.st.profiles {
		if p.WalletAddress != wallet {
			continue
		}
		d := domain.QuestDay(day)
		p.CheckinStreak = streak
		p.LastCheckin = &d
		r.s.st.profiles[id] = p
		return nil
	}
	return repository.ErrNotFound
}

type Referrals struct{ s *Store }

func (r *Referrals) GetByCode(ctx context.Context, code string) (*domain.Profile, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	return (&Profiles{r.s}).find(func(p *domain.Profile) bool { return p.ReferralCode == code })
}

func (r *Referrals) LinkReferrer(_ context.Context, wallet, referrer string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if wallet == referrer {
		return false, nil
	}
	for id, p := range r.s.st.profiles {
		if p.WalletAddress != wallet {
			continue
		}
		if p.ReferredBy != nil {
			return false, nil
		}
		ref := referrer
		p.ReferredBy = &ref
		r.s.st.profiles[id] = p
		return true, nil
	}
	return false, nil
}

func (r *Referrals) CountReferrals(_ context.Context, wallet string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, p := range r.s.st.profiles {
		if p.ReferredBy != nil && *p.ReferredBy == wallet {
			n++
		}
	}
	return n, nil
}

type Ledger struct{ s *Store }

func (r *Ledger) Credit(_ context.Context, a *domain.PointAward) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if a.Points <= 0 {
		return false, fmt.Errorf("points must be positive, got %d", a.Points)
	}
	key := awardKey{a.WalletAddress, a.Action, a.Reference}
	if _, used := r.s.st.awards[key]; used {
		return false, nil
	}
	a.ID = r.s.st.nextID()
	a.CreatedAt = r.s.stamp()
	r.s.st.awards[key] = *a
	r.s.st.points[a.WalletAddress] += a.Points
	return true, nil
}

func (r *Ledger) Balance(_ context.Context, wallet string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.st.points[wallet], nil
}

func (r *Ledger) History(_ context.Context, wallet string, limit int) ([]*domain.PointAward, error) {
	all := r.s.Awards(wallet)
	var out []*domain.PointAward
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		a := all[i]
		out = append(out, &a)
	}
	return out, nil
}

func (r *Ledger) Top(_ context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.LeaderboardEntry
	for _, p := range r.s.st.profiles {
		if pts := r.s.st.points[p.WalletAddress]; pts > 0 {
			out = append(out, domain.LeaderboardEntry{WalletAddress: p.WalletAddress, Username: p.Username, Points: pts})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].WalletAddress < out[j].WalletAddress
	})
	if len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

type Quests struct{ s *Store }

func (r *Quests) row(wallet string, day time.Time) domain.DailyQuest {
	day = domain.QuestDay(day)
	q, ok := r.s.st.quests[questKey{wallet, day}]
	if !ok {
		q = domain.DailyQuest{WalletAddress: wallet, QuestDate: day}
	}
	return q
}

func (r *Quests) put(q domain.DailyQuest) {
	r.s.st.quests[questKey{q.WalletAddress, q.QuestDate}] = q
}

func (r *Quests) Get(_ context.Context, wallet string, day time.Time) (*domain.DailyQuest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	q, ok := r.s.st.quests[questKey{wallet, domain.QuestDay(day)}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &q, nil
}

func (r *Quests) IncrementVotes(_ context.Context, wallet string, day time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	q := r.row(wallet, day)
	q.VotesCast++
	r.put(q)
	return q.VotesCast, nil
}

func (r *Quests) ClaimFlag(_ context.Context, wallet string, day time.Time, flag domain.QuestFlag) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	q := r.row(wallet, day)
	switch flag {
	case domain.QuestFlagCategoryCreated:
	case domain.QuestFlagVoteBonusClaimed:
		if q.VotesCast < domain.VoteBonusThreshold {
			return false, nil
		}
	default:
		return false, fmt.Errorf("unknown quest flag %q", flag)
	}
	if q.Flag(flag) {
		return false, nil
	}
	q.SetFlag(flag)
	r.put(q)
	return true, nil
}

func (r *Quests) CheckIn(_ context.Context, wallet string, day time.Time, streak int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	q := r.row(wallet, day)
	if q.CheckedIn {
		return false, nil
	}
	q.CheckedIn = true
	q.Streak = streak
	r.put(q)
	return true, nil
}

func (r *Quests) DeleteExcept(_ context.Context, day time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	day = domain.QuestDay(day)
	var n int64
	for k := range r.s.st.quests {
		if !k.day.Equal(day) {
			delete(r.s.st.quests, k)
			n++
		}
	}
	return n, nil
}

type Categories struct{ s *Store }

func (r *Categories) Create(_ context.Context, c *domain.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c.ID = r.s.st.nextID()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = r.s.stamp()
	}
	r.s.st.categories[c.ID] = *c
	return nil
}

func (r *Categories) GetByID(_ context.Context, id int64) (*domain.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.st.categories[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *Categories) filter(match func(c domain.Category) bool, less func(a, b domain.Category) bool, limit int) []*domain.Category {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []domain.Category
	for _, c := range r.s.st.categories {
		if match(c) {
			all = append(all, c)
		}
	}
	sort.Slice(all, func(i, j int) bool { return less(all[i], all[j]) })
	var out []*domain.Category
	for i := range all {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, &all[i])
	}
	return out
}

func byCreated(a, b domain.Category) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func (r *Categories) FirstByCreator(_ context.Context, wallet string) (*domain.Category, error) {
	res := r.filter(func(c domain.Category) bool { return c.CreatorWallet == wallet }, byCreated, 1)
	if len(res) == 0 {
		return nil, repository.ErrNotFound
	}
	return res[0], nil
}

func (r *Categories) ListActive(_ context.Context, now time.Time, limit int) ([]*domain.Category, error) {
	return r.filter(
		func(c domain.Category) bool { return c.ExpiresAt.After(now) },
		func(a, b domain.Category) bool { return byCreated(b, a) },
		limit,
	), nil
}

func (r *Categories) ListExpired(_ context.Context, now time.Time, limit int) ([]*domain.Category, error) {
	return r.filter(
		func(c domain.Category) bool { return !c.ExpiresAt.After(now) },
		func(a, b domain.Category) bool {
			if !a.ExpiresAt.Equal(b.ExpiresAt) {
				return a.ExpiresAt.Before(b.ExpiresAt)
			}
			return a.ID < b.ID
		},
		limit,
	), nil
}

// Delete cascades to the category's clips and their votes.
func (r *Categories) Delete(_ context.Context, id int64) error {
	if err := r.s.FailCategoryDelete[id]; err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.st.categories, id)
	for clipID, c := range r.s.st.clips {
		if c.CategoryID != id {
			continue
		}
		delete(r.s.st.clips, clipID)
		for voteID, v := range r.s.st.votes {
			if v.ClipID == clipID {
				delete(r.s.st.votes, voteID)
			}
		}
	}
	return nil
}

type Clips struct{ s *Store }

func (r *Clips) Create(_ context.Context, c *domain.AudioClip) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.categories[c.CategoryID]; !ok {
		return fmt.Errorf("category %d does not exist", c.CategoryID)
	}
	c.ID = r.s.st.nextID()
	c.CreatedAt = r.s.stamp()
	r.s.st.clips[c.ID] = *c
	return nil
}

func (r *Clips) GetByID(_ context.Context, id int64) (*domain.AudioClip, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.st.clips[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *Clips) ExistsForCreator(_ context.Context, wallet string, categoryID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.st.clips {
		if c.CreatorWallet == wallet && c.CategoryID == categoryID {
			return true, nil
		}
	}
	return false, nil
}

func (r *Clips) Tally(_ context.Context, categoryID int64) ([]domain.ClipTally, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.ClipTally
	for _, c := range r.s.st.clips {
		if c.CategoryID != categoryID {
			continue
		}
		t := domain.ClipTally{AudioClip: c}
		for _, v := range r.s.st.votes {
			if v.ClipID == c.ID {
				t.Votes++
			}
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Votes != b.Votes {
			return a.Votes > b.Votes
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (r *Clips) VoteCount(_ context.Context, clipID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, v := range r.s.st.votes {
		if v.ClipID == clipID {
			n++
		}
	}
	return n, nil
}

type Votes struct{ s *Store }

func (r *Votes) Create(_ context.Context, v *domain.Vote) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.clips[v.ClipID]; !ok {
		return fmt.Errorf("clip %d does not exist", v.ClipID)
	}
	for _, other := range r.s.st.votes {
		if other.ClipID == v.ClipID && other.VoterWallet == v.VoterWallet {
			return &repository.ConflictError{Constraint: repository.ConstraintVoteOnce}
		}
	}
	v.ID = r.s.st.nextID()
	v.CreatedAt = r.s.stamp()
	r.s.st.votes[v.ID] = *v
	return nil
}

func (r *Votes) GetByID(_ context.Context, id int64) (*domain.Vote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.st.votes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &v, nil
}

type Tasks struct{ s *Store }

func (r *Tasks) ListActive(_ context.Context) ([]*domain.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Task
	for _, t := range r.s.st.tasks {
		if t.IsActive {
			t := t
			out = append(out, &t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *Tasks) GetByID(_ context.Context, id int64) (*domain.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.st.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (r *Tasks) CreateUserTask(_ context.Context, ut *domain.UserTask) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.st.userTasks {
		if other.WalletAddress == ut.WalletAddress && other.TaskID == ut.TaskID {
			return repository.ErrConflict
		}
	}
	ut.ID = r.s.st.nextID()
	ut.CreatedAt = r.s.stamp()
	r.s.st.userTasks[ut.ID] = *ut
	return nil
}

func (r *Tasks) GetUserTask(_ context.Context, wallet string, taskID int64) (*domain.UserTask, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, ut := range r.s.st.userTasks {
		if ut.WalletAddress == wallet && ut.TaskID == taskID {
			return &ut, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Tasks) ListUserTasks(_ context.Context, wallet string) ([]*domain.UserTask, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.UserTask
	for _, ut := range r.s.st.userTasks {
		if ut.WalletAddress == wallet {
			ut := ut
			out = append(out, &ut)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type Audit struct{ s *Store }

func (r *Audit) Create(_ context.Context, entry *domain.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entry.ID = r.s.st.nextID()
	entry.CreatedAt = r.s.stamp()
	r.s.st.audit = append(r.s.st.audit, *entry)
	return nil
}
