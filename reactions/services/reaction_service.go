// Copyright (c) 2025 Tessera Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	stderrors "errors"
	"fmt"

	commentRepository "github.com/tessera-social/tessera/comments/repository"
	"github.com/tessera-social/tessera/internal/events"
	"github.com/tessera-social/tessera/internal/types"
	notificationRepository "github.com/tessera-social/tessera/notifications/repository"
	postmodels "github.com/tessera-social/tessera/posts/models"
	postRepository "github.com/tessera-social/tessera/posts/repository"
	"github.com/tessera-social/tessera/reactions/errors"
	"github.com/tessera-social/tessera/reactions/models"
	"github.com/tessera-social/tessera/reactions/repository"
	"github.com/tessera-social/tessera/shared/interfaces"
	tagRepository "github.com/tessera-social/tessera/tags/repository"
)

// reactionService implements the ReactionService interface
type reactionService struct {
	reactionRepo repository.ReactionRepository
	postRepo     postRepository.PostRepository
	commentRepo  commentRepository.CommentRepository
	notifRepo    notificationRepository.NotificationRepository
	tagRepo      tagRepository.TagRepository
	txManager    interfaces.TxManager
}

// NewReactionService creates a new instance of the reaction service
func NewReactionService(
	reactionRepo repository.ReactionRepository,
	postRepo postRepository.PostRepository,
	commentRepo commentRepository.CommentRepository,
	notifRepo notificationRepository.NotificationRepository,
	tagRepo tagRepository.TagRepository,
	txManager interfaces.TxManager,
) ReactionService {
	return &reactionService{
		reactionRepo: reactionRepo,
		postRepo:     postRepo,
		commentRepo:  commentRepo,
		notifRepo:    notifRepo,
		tagRepo:      tagRepo,
		txManager:    txManager,
	}
}

func (s *reactionService) Toggle(ctx context.Context, targetType string, targetID int64, req *models.ToggleRequest, user *types.UserContext) (*models.ToggleResult, error) {
	if user == nil || user.UserID <= 0 {
		return nil, errors.ErrInvalidUserContext
	}
	if targetType != models.TargetTypePost && targetType != models.TargetTypeComment {
		return nil, errors.ErrTargetNotFound
	}

	var result *models.ToggleResult
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		// The row lock on the target serializes concurrent toggles by the
		// same actor; after it the read-modify-write below is race free.
		if err := s.lockTarget(txCtx, targetType, targetID); err != nil {
			return err
		}

		existing, err := s.reactionRepo.FindByActorAndTarget(txCtx, user.UserID, targetType, targetID)
		if err != nil && !stderrors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("reaction lookup: %w", err)
		}

		var (
			action   string
			reaction *models.Reaction
		)
		switch {
		case existing == nil:
			reaction = &models.Reaction{
				ActorID:    user.UserID,
				TargetType: targetType,
				TargetID:   targetID,
				Kind:       req.Kind,
				ActorName:  user.Name,
			}
			if err := s.reactionRepo.Insert(txCtx, reaction); err != nil {
				if !stderrors.Is(err, repository.ErrDuplicate) {
					return err
				}
				// Lost a race against a toggle that slipped in before our
				// lock; re-read and treat the press against the current row.
				existing, err = s.reactionRepo.FindByActorAndTarget(txCtx, user.UserID, targetType, targetID)
				if err != nil {
					return fmt.Errorf("reaction re-read: %w", err)
				}
				action, reaction, err = s.toggleExisting(txCtx, existing, req.Kind, targetType, targetID)
				if err != nil {
					return err
				}
				break
			}
			action = models.ActionAdded
			if err := s.incrementCounter(txCtx, targetType, targetID, 1); err != nil {
				return err
			}
		default:
			action, reaction, err = s.toggleExisting(txCtx, existing, req.Kind, targetType, targetID)
			if err != nil {
				return err
			}
		}

		event := events.Event{
			ActorID:        user.UserID,
			Reaction:       reaction,
			ReactionAction: action,
		}
		if reaction == nil {
			// Carry the pre-delete snapshot so downstream consumers can
			// still tell whose reaction went away.
			event.Reaction = existing
		}

		count, err := s.attachTarget(txCtx, &event, targetType, targetID)
		if err != nil {
			return err
		}

		switch action {
		case models.ActionAdded:
			event.Action = events.ActionReactionAdded
		case models.ActionChanged:
			event.Action = events.ActionReactionChanged
		case models.ActionRemoved:
			event.Action = events.ActionReactionRemoved
		}
		events.Emit(txCtx, event)

		result = &models.ToggleResult{
			Action:         action,
			Reaction:       reaction,
			ReactionsCount: count,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// toggleExisting applies a press against the actor's current reaction:
// same kind removes it, another kind changes it in place. The returned
// reaction is nil after a removal.
func (s *reactionService) toggleExisting(ctx context.Context, existing *models.Reaction, kind, targetType string, targetID int64) (string, *models.Reaction, error) {
	if existing.Kind == kind {
		if err := s.reactionRepo.Delete(ctx, existing.ID); err != nil {
			return "", nil, err
		}
		if err := s.notifRepo.DeleteForSubjects(ctx, "reaction", []int64{existing.ID}); err != nil {
			return "", nil, err
		}
		if err := s.incrementCounter(ctx, targetType, targetID, -1); err != nil {
			return "", nil, err
		}
		return models.ActionRemoved, nil, nil
	}

	if err := s.reactionRepo.UpdateKind(ctx, existing.ID, kind); err != nil {
		return "", nil, err
	}
	existing.Kind = kind
	return models.ActionChanged, existing, nil
}

func (s *reactionService) Counts(ctx context.Context, targetType string, targetID int64) (*models.CountsView, error) {
	if err := s.verifyTarget(ctx, targetType, targetID); err != nil {
		return nil, err
	}
	counts, err := s.reactionRepo.CountsForTarget(ctx, targetType, targetID)
	if err != nil {
		return nil, fmt.Errorf("reaction counts: %w", err)
	}
	return counts, nil
}

func (s *reactionService) lockTarget(ctx context.Context, targetType string, targetID int64) error {
	switch targetType {
	case models.TargetTypePost:
		if _, err := s.postRepo.LockForUpdate(ctx, targetID); err != nil {
			return mapTargetError(err)
		}
	case models.TargetTypeComment:
		if _, err := s.commentRepo.LockForUpdate(ctx, targetID); err != nil {
			return mapTargetError(err)
		}
	}
	return nil
}

func (s *reactionService) verifyTarget(ctx context.Context, targetType string, targetID int64) error {
	switch targetType {
	case models.TargetTypePost:
		if _, err := s.postRepo.FindByID(ctx, targetID); err != nil {
			return mapTargetError(err)
		}
	case models.TargetTypeComment:
		if _, err := s.commentRepo.FindByID(ctx, targetID); err != nil {
			return mapTargetError(err)
		}
	default:
		return errors.ErrTargetNotFound
	}
	return nil
}

// attachTarget reloads the target after the toggle so the event carries
// the post-toggle counters, and returns the target's reactions count.
func (s *reactionService) attachTarget(ctx context.Context, event *events.Event, targetType string, targetID int64) (int, error) {
	switch targetType {
	case models.TargetTypePost:
		post, err := s.refreshedPost(ctx, targetID)
		if err != nil {
			return 0, err
		}
		event.Post = post
		return post.ReactionsCount, nil
	case models.TargetTypeComment:
		comment, err := s.commentRepo.FindByID(ctx, targetID)
		if err != nil {
			return 0, mapTargetError(err)
		}
		event.Comment = comment
		return comment.ReactionsCount, nil
	}
	return 0, errors.ErrTargetNotFound
}

func (s *reactionService) refreshedPost(ctx context.Context, postID int64) (*postmodels.Post, error) {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return nil, mapTargetError(err)
	}
	tags, err := s.tagRepo.ListForPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	for _, tag := range tags {
		post.Tags = append(post.Tags, tag.View())
	}
	return post, nil
}

func (s *reactionService) incrementCounter(ctx context.Context, targetType string, targetID int64, delta int) error {
	if targetType == models.TargetTypePost {
		return s.postRepo.IncrementReactionsCount(ctx, targetID, delta)
	}
	return s.commentRepo.IncrementReactionsCount(ctx, targetID, delta)
}

func mapTargetError(err error) error {
	if stderrors.Is(err, postRepository.ErrNotFound) || stderrors.Is(err, commentRepository.ErrNotFound) {
		return errors.ErrTargetNotFound
	}
	return fmt.Errorf("reaction target lookup: %w", err)
}
