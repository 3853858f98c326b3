package services

import (
	"context"
	"sync"

	"github.com/contesthub/apiserver/internal/store"
	"github.com/contesthub/apiserver/types"
)

// fakeUserRepo is an in-memory UserRepository and NotificationRepository.
type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]*types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int]*types.User)}
}

func (r *fakeUserRepo) add(user types.User) types.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = &user
	return user
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return *user, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return *user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Username == username {
			return *user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) GetByIDs(_ context.Context, ids []int) ([]types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([]types.User, 0, len(ids))
	for _, id := range ids {
		if user, ok := r.users[id]; ok {
			users = append(users, *user)
		}
	}
	return users, nil
}

func (r *fakeUserRepo) List(_ context.Context) ([]types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([]types.User, 0, len(r.users))
	for id := 1; id <= r.nextID; id++ {
		if user, ok := r.users[id]; ok {
			users = append(users, *user)
		}
	}
	return users, nil
}

func (r *fakeUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return types.User{}, store.ErrConflict
		}
	}
	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = &user
	return user, nil
}

func (r *fakeUserRepo) Mutate(_ context.Context, id int, fn func(*types.User) error) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	copied := *user
	if err := fn(&copied); err != nil {
		return types.User{}, err
	}
	r.users[id] = &copied
	return copied, nil
}

func (r *fakeUserRepo) SetFollow(_ context.Context, followerID, targetID int, follow bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	follower, ok := r.users[followerID]
	if !ok {
		return store.ErrNotFound
	}
	target, ok := r.users[targetID]
	if !ok {
		return store.ErrNotFound
	}
	if follow {
		follower.Follows = addIntOnce(follower.Follows, targetID)
		target.Followers = addIntOnce(target.Followers, followerID)
	} else {
		follower.Follows = removeIntAll(follower.Follows, targetID)
		target.Followers = removeIntAll(target.Followers, followerID)
	}
	return nil
}

func (r *fakeUserRepo) SetHostAuth(_ context.Context, userID int, hostAuth bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	user.HostAuth = hostAuth
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) AppendNotification(_ context.Context, userID int, n types.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	user.Notifications = append(user.Notifications, n)
	return nil
}

// fakeCompetitionRepo is an in-memory CompetitionRepository. It mirrors
// the cross-table effects of the real store onto a linked fakeUserRepo.
type fakeCompetitionRepo struct {
	mu     sync.Mutex
	nextID int
	comps  map[int]*types.Competition
	users  *fakeUserRepo
}

func newFakeCompetitionRepo(users *fakeUserRepo) *fakeCompetitionRepo {
	return &fakeCompetitionRepo{comps: make(map[int]*types.Competition), users: users}
}

func (r *fakeCompetitionRepo) List(_ context.Context, _ string) ([]types.Competition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	comps := make([]types.Competition, 0, len(r.comps))
	for id := r.nextID; id >= 1; id-- {
		if comp, ok := r.comps[id]; ok {
			comps = append(comps, *comp)
		}
	}
	return comps, nil
}

func (r *fakeCompetitionRepo) Get(_ context.Context, id int) (types.Competition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	comp, ok := r.comps[id]
	if !ok {
		return types.Competition{}, store.ErrNotFound
	}
	return *comp, nil
}

func (r *fakeCompetitionRepo) GetByIDs(_ context.Context, ids []int) ([]types.Competition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	comps := make([]types.Competition, 0, len(ids))
	for _, id := range ids {
		if comp, ok := r.comps[id]; ok {
			comps = append(comps, *comp)
		}
	}
	return comps, nil
}

func (r *fakeCompetitionRepo) Create(_ context.Context, comp types.Competition) (types.Competition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	comp.ID = r.nextID
	r.comps[comp.ID] = &comp

	r.users.mu.Lock()
	if host, ok := r.users.users[comp.HostID]; ok {
		host.Competitions = addIntOnce(host.Competitions, comp.ID)
	}
	r.users.mu.Unlock()
	return comp, nil
}

func (r *fakeCompetitionRepo) Mutate(_ context.Context, id int, fn func(*types.Competition) error) (types.Competition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	comp, ok := r.comps[id]
	if !ok {
		return types.Competition{}, store.ErrNotFound
	}
	copied := *comp
	if err := fn(&copied); err != nil {
		return types.Competition{}, err
	}
	r.comps[id] = &copied
	return copied, nil
}

func (r *fakeCompetitionRepo) Join(_ context.Context, compID, userID int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	comp, ok := r.comps[compID]
	if !ok {
		return false, store.ErrNotFound
	}
	for _, id := range comp.Participants {
		if id == userID {
			return false, nil
		}
	}
	comp.Participants = append(comp.Participants, userID)

	r.users.mu.Lock()
	if user, ok := r.users.users[userID]; ok {
		user.Competitions = addIntOnce(user.Competitions, compID)
	}
	r.users.mu.Unlock()
	return true, nil
}

func (r *fakeCompetitionRepo) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.comps[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.comps, id)

	r.users.mu.Lock()
	for _, user := range r.users.users {
		user.Competitions = removeIntAll(user.Competitions, id)
	}
	r.users.mu.Unlock()
	return nil
}

// fakeApplicantRepo is an in-memory ApplicantRepository.
type fakeApplicantRepo struct {
	mu         sync.Mutex
	nextID     int
	applicants map[int]*types.Applicant
}

func newFakeApplicantRepo() *fakeApplicantRepo {
	return &fakeApplicantRepo{applicants: make(map[int]*types.Applicant)}
}

func (r *fakeApplicantRepo) GetByID(_ context.Context, id int) (types.Applicant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	applicant, ok := r.applicants[id]
	if !ok {
		return types.Applicant{}, store.ErrNotFound
	}
	return *applicant, nil
}

func (r *fakeApplicantRepo) ListByStatus(_ context.Context, status string) ([]types.Applicant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var applicants []types.Applicant
	for id := 1; id <= r.nextID; id++ {
		if applicant, ok := r.applicants[id]; ok && applicant.Status == status {
			applicants = append(applicants, *applicant)
		}
	}
	return applicants, nil
}

func (r *fakeApplicantRepo) HasPending(_ context.Context, userID int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, applicant := range r.applicants {
		if applicant.UserID == userID && applicant.Status == types.ApplicantPending {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeApplicantRepo) Create(_ context.Context, applicant types.Applicant) (types.Applicant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	applicant.ID = r.nextID
	r.applicants[applicant.ID] = &applicant
	return applicant, nil
}

func (r *fakeApplicantRepo) Decide(_ context.Context, id int, status string) (types.Applicant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	applicant, ok := r.applicants[id]
	if !ok {
		return types.Applicant{}, store.ErrNotFound
	}
	if applicant.Status != types.ApplicantPending {
		return types.Applicant{}, store.ErrConflict
	}
	applicant.Status = status
	return *applicant, nil
}

// fakePublisher records everything published to the broker.
type fakePublisher struct {
	mu        sync.Mutex
	published []publishedEvent
}

type publishedEvent struct {
	Channel string
	Data    []byte
	Attrs   map[string]string
}

func (p *fakePublisher) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, publishedEvent{Channel: channel, Data: data, Attrs: attrs})
	return "msg-1", nil
}

func addIntOnce(list []int, value int) []int {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}

func removeIntAll(list []int, value int) []int {
	out := list[:0]
	for _, v := range list {
		if v != value {
			out = append(out, v)
		}
	}
	return out
}
