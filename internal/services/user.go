package services

import (
	"context"
	"time"

	"github.com/contesthub/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	GetByIDs(ctx context.Context, ids []int) ([]types.User, error)
	List(ctx context.Context) ([]types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Mutate(ctx context.Context, id int, fn func(*types.User) error) (types.User, error)
	SetFollow(ctx context.Context, followerID, targetID int, follow bool) error
	SetHostAuth(ctx context.Context, userID int, hostAuth bool) error
	Delete(ctx context.Context, id int) error
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (types.User, error) {
	return s.repo.GetByUsername(ctx, username)
}

func (s *UserService) List(ctx context.Context) ([]types.User, error) {
	return s.repo.List(ctx)
}

func (s *UserService) Create(ctx context.Context, user types.User) (types.User, error) {
	return s.repo.Create(ctx, user)
}

func (s *UserService) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

// UpdateProfile overwrites the mutable identity fields of the user.
func (s *UserService) UpdateProfile(ctx context.Context, userID int, fullname, username, email string, dob time.Time) (types.User, error) {
	return s.repo.Mutate(ctx, userID, func(user *types.User) error {
		user.Fullname = fullname
		user.Username = username
		user.Email = email
		if !dob.IsZero() {
			user.DOB = dob
		}
		return nil
	})
}

// SetPassword overwrites the stored password hash in place.
func (s *UserService) SetPassword(ctx context.Context, userID int, passwordHash string) error {
	_, err := s.repo.Mutate(ctx, userID, func(user *types.User) error {
		user.PasswordHash = passwordHash
		return nil
	})
	return err
}

// Follow records the (follower, target) edge on both sides. Idempotent.
func (s *UserService) Follow(ctx context.Context, followerID, targetID int) error {
	return s.repo.SetFollow(ctx, followerID, targetID, true)
}

// Unfollow removes the (follower, target) edge from both sides. Idempotent.
func (s *UserService) Unfollow(ctx context.Context, followerID, targetID int) error {
	return s.repo.SetFollow(ctx, followerID, targetID, false)
}

// RateHost appends a review to the host and recomputes the average rating
// as the arithmetic mean of all review ratings.
func (s *UserService) RateHost(ctx context.Context, hostID, reviewerID, rating int, content string) (types.User, error) {
	reviewer, err := s.repo.GetByID(ctx, reviewerID)
	if err != nil {
		return types.User{}, err
	}

	return s.repo.Mutate(ctx, hostID, func(host *types.User) error {
		host.Reviews = append(host.Reviews, types.Review{
			ReviewerID:       reviewer.ID,
			ReviewerUsername: reviewer.Username,
			Content:          content,
			Rating:           rating,
		})
		var sum int
		for _, review := range host.Reviews {
			sum += review.Rating
		}
		host.AvgRating = float64(sum) / float64(len(host.Reviews))
		return nil
	})
}
