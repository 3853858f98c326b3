package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/contesthub/apiserver/internal/storage"
	"github.com/contesthub/apiserver/internal/store"
	"github.com/contesthub/apiserver/types"
	"github.com/google/uuid"
)

const maxAttachmentBytes = 5 << 20

// ErrInvalidAttachment wraps attachment validation failures (size or type).
var ErrInvalidAttachment = errors.New("invalid attachment")

// ErrStorageUnavailable is returned when an attachment is supplied but no
// object-storage backend is configured.
var ErrStorageUnavailable = errors.New("attachment storage is not configured")

var allowedAttachmentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"application/pdf": true,
	"text/plain":      true,
}

// AttachmentUpload is a file received alongside an announcement.
type AttachmentUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// FeedService manages the announcement and comment feed of a competition.
// Entries carry immutable ids assigned at creation; ordering comes from
// creation timestamps, never from array position.
type FeedService struct {
	repo          CompetitionRepository
	notifications *NotificationService
	storage       *storage.Storage
}

// NewFeedService constructs a FeedService. storage may be nil, in which
// case announcements cannot carry attachments.
func NewFeedService(repo CompetitionRepository, notifications *NotificationService, st *storage.Storage) *FeedService {
	return &FeedService{
		repo:          repo,
		notifications: notifications,
		storage:       st,
	}
}

// PostAnnouncement appends an announcement to the competition feed and
// fans out a notification to every participant except the author.
func (s *FeedService) PostAnnouncement(ctx context.Context, compID int, author types.User, content string, questionSet *types.QuestionSet, upload *AttachmentUpload) (types.Announcement, error) {
	announcement := types.Announcement{
		ID:             uuid.NewString(),
		Content:        content,
		AuthorID:       author.ID,
		AuthorUsername: author.Username,
		CreatedAt:      time.Now(),
		Comments:       []types.Comment{},
		QuestionSet:    questionSet,
	}

	if upload != nil {
		attachment, err := s.storeAttachment(ctx, author.ID, upload)
		if err != nil {
			return types.Announcement{}, err
		}
		announcement.Attachment = attachment
	}

	comp, err := s.repo.Mutate(ctx, compID, func(comp *types.Competition) error {
		comp.Announcements = append(comp.Announcements, announcement)
		return nil
	})
	if err != nil {
		if announcement.Attachment != nil && s.storage != nil {
			_ = s.storage.Delete(ctx, announcement.Attachment.ObjectKey)
		}
		return types.Announcement{}, err
	}

	notice := fmt.Sprintf("New announcement in %s", comp.Title)
	for _, participantID := range comp.Participants {
		if participantID == author.ID {
			continue
		}
		if err := s.notifications.Notify(ctx, participantID, types.NotificationAnnouncement, notice, comp.ID); err != nil {
			return types.Announcement{}, err
		}
	}

	return announcement, nil
}

// ListAnnouncements returns the competition feed, newest first.
func (s *FeedService) ListAnnouncements(ctx context.Context, compID int) ([]types.Announcement, error) {
	comp, err := s.repo.Get(ctx, compID)
	if err != nil {
		return nil, err
	}
	announcements := make([]types.Announcement, len(comp.Announcements))
	copy(announcements, comp.Announcements)
	sort.SliceStable(announcements, func(i, j int) bool {
		return announcements[i].CreatedAt.After(announcements[j].CreatedAt)
	})
	return announcements, nil
}

// GetAnnouncement returns a single feed entry by id.
func (s *FeedService) GetAnnouncement(ctx context.Context, compID int, announcementID string) (types.Announcement, error) {
	comp, err := s.repo.Get(ctx, compID)
	if err != nil {
		return types.Announcement{}, err
	}
	for _, announcement := range comp.Announcements {
		if announcement.ID == announcementID {
			return announcement, nil
		}
	}
	return types.Announcement{}, store.ErrNotFound
}

// DeleteAnnouncement removes exactly the identified entry. Allowed for the
// announcement author and the host. The stored attachment, if any, is
// removed after the feed update commits.
func (s *FeedService) DeleteAnnouncement(ctx context.Context, compID int, announcementID string, actorID int) error {
	var removedAttachment *types.Attachment
	_, err := s.repo.Mutate(ctx, compID, func(comp *types.Competition) error {
		idx := announcementIndex(comp.Announcements, announcementID)
		if idx < 0 {
			return store.ErrNotFound
		}
		announcement := comp.Announcements[idx]
		if actorID != announcement.AuthorID && actorID != comp.HostID {
			return ErrForbidden
		}
		removedAttachment = announcement.Attachment
		comp.Announcements = append(comp.Announcements[:idx], comp.Announcements[idx+1:]...)
		return nil
	})
	if err != nil {
		return err
	}

	if removedAttachment != nil && s.storage != nil {
		_ = s.storage.Delete(ctx, removedAttachment.ObjectKey)
	}
	return nil
}

// PostComment appends a comment to the identified announcement.
func (s *FeedService) PostComment(ctx context.Context, compID int, announcementID string, author types.User, content string) (types.Comment, error) {
	comment := types.Comment{
		ID:             uuid.NewString(),
		Content:        content,
		AuthorID:       author.ID,
		AuthorUsername: author.Username,
		CreatedAt:      time.Now(),
	}

	_, err := s.repo.Mutate(ctx, compID, func(comp *types.Competition) error {
		idx := announcementIndex(comp.Announcements, announcementID)
		if idx < 0 {
			return store.ErrNotFound
		}
		comp.Announcements[idx].Comments = append(comp.Announcements[idx].Comments, comment)
		return nil
	})
	if err != nil {
		return types.Comment{}, err
	}
	return comment, nil
}

// DeleteComment removes exactly one comment from exactly the identified
// announcement. Allowed for the comment author and the host.
func (s *FeedService) DeleteComment(ctx context.Context, compID int, announcementID, commentID string, actorID int) error {
	_, err := s.repo.Mutate(ctx, compID, func(comp *types.Competition) error {
		idx := announcementIndex(comp.Announcements, announcementID)
		if idx < 0 {
			return store.ErrNotFound
		}
		comments := comp.Announcements[idx].Comments
		for i, comment := range comments {
			if comment.ID != commentID {
				continue
			}
			if actorID != comment.AuthorID && actorID != comp.HostID {
				return ErrForbidden
			}
			comp.Announcements[idx].Comments = append(comments[:i], comments[i+1:]...)
			return nil
		}
		return store.ErrNotFound
	})
	return err
}

func (s *FeedService) storeAttachment(ctx context.Context, authorID int, upload *AttachmentUpload) (*types.Attachment, error) {
	if s.storage == nil {
		return nil, ErrStorageUnavailable
	}
	if len(upload.Data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidAttachment)
	}
	if int64(len(upload.Data)) > maxAttachmentBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidAttachment, maxAttachmentBytes)
	}
	if !allowedAttachmentTypes[upload.ContentType] {
		return nil, fmt.Errorf("%w: only JPEG, PNG, PDF, and TXT files are allowed", ErrInvalidAttachment)
	}

	key := fmt.Sprintf("%d-%s", authorID, upload.Filename)
	if err := s.storage.Put(ctx, key, bytes.NewReader(upload.Data), int64(len(upload.Data)), upload.ContentType); err != nil {
		return nil, err
	}

	return &types.Attachment{
		ID:          uuid.NewString(),
		ObjectKey:   key,
		Filename:    upload.Filename,
		ContentType: upload.ContentType,
		Size:        int64(len(upload.Data)),
	}, nil
}

func announcementIndex(announcements []types.Announcement, id string) int {
	for i, announcement := range announcements {
		if announcement.ID == id {
			return i
		}
	}
	return -1
}
