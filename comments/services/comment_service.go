// Copyright (c) 2025 Tessera Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/tessera-social/tessera/comments/errors"
	"github.com/tessera-social/tessera/comments/models"
	"github.com/tessera-social/tessera/comments/repository"
	"github.com/tessera-social/tessera/internal/events"
	"github.com/tessera-social/tessera/internal/types"
	notificationRepository "github.com/tessera-social/tessera/notifications/repository"
	postmodels "github.com/tessera-social/tessera/posts/models"
	postRepository "github.com/tessera-social/tessera/posts/repository"
	reactionmodels "github.com/tessera-social/tessera/reactions/models"
	reactionRepository "github.com/tessera-social/tessera/reactions/repository"
	"github.com/tessera-social/tessera/shared/interfaces"
	tagRepository "github.com/tessera-social/tessera/tags/repository"
)

// commentService implements the CommentService interface
type commentService struct {
	commentRepo  repository.CommentRepository
	postRepo     postRepository.PostRepository
	reactionRepo reactionRepository.ReactionRepository
	notifRepo    notificationRepository.NotificationRepository
	tagRepo      tagRepository.TagRepository
	txManager    interfaces.TxManager
}

// NewCommentService creates a new instance of the comment service
func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo postRepository.PostRepository,
	reactionRepo reactionRepository.ReactionRepository,
	notifRepo notificationRepository.NotificationRepository,
	tagRepo tagRepository.TagRepository,
	txManager interfaces.TxManager,
) CommentService {
	return &commentService{
		commentRepo:  commentRepo,
		postRepo:     postRepo,
		reactionRepo: reactionRepo,
		notifRepo:    notifRepo,
		tagRepo:      tagRepo,
		txManager:    txManager,
	}
}

func (s *commentService) CreateComment(ctx context.Context, parentType string, parentID int64, req *models.CreateCommentRequest, user *types.UserContext) (*models.CommentView, error) {
	if user == nil || user.UserID <= 0 {
		return nil, errors.ErrInvalidUserContext
	}
	if parentType != models.CommentableTypePost && parentType != models.CommentableTypeComment {
		return nil, errors.ErrCommentableNotFound
	}

	comment := &models.Comment{
		AuthorID:        user.UserID,
		Description:     req.Description,
		CommentableType: parentType,
		CommentableID:   parentID,
		AuthorName:      user.Name,
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var parentComment *models.Comment

		// Root resolution is one hop: the parent post's own id, or the
		// parent comment's cached root.
		switch parentType {
		case models.CommentableTypePost:
			post, err := s.postRepo.FindByID(txCtx, parentID)
			if err != nil {
				return mapParentError(err)
			}
			comment.RootPostID = post.ID
		case models.CommentableTypeComment:
			parent, err := s.commentRepo.FindByID(txCtx, parentID)
			if err != nil {
				return mapParentError(err)
			}
			parentComment = parent
			comment.RootPostID = parent.RootPostID
		}

		if err := s.commentRepo.Create(txCtx, comment); err != nil {
			return err
		}

		if err := s.postRepo.IncrementCommentsCount(txCtx, comment.RootPostID, 1); err != nil {
			return err
		}
		if parentComment != nil {
			if err := s.commentRepo.IncrementRepliesCount(txCtx, parentComment.ID, 1); err != nil {
				return err
			}
			parentComment.RepliesCount++
		}

		rootPost, err := s.refreshedRootPost(txCtx, comment.RootPostID)
		if err != nil {
			return err
		}

		events.Emit(txCtx, events.Event{
			Action:        events.ActionCommentCreated,
			ActorID:       user.UserID,
			Comment:       comment,
			ParentComment: parentComment,
			Post:          rootPost,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	view := comment.View()
	return &view, nil
}

func (s *commentService) ListComments(ctx context.Context, parentType string, parentID int64, page types.PageQuery, viewer *types.UserContext) ([]models.CommentView, types.PageMeta, error) {
	if parentType != models.CommentableTypePost && parentType != models.CommentableTypeComment {
		return nil, types.PageMeta{}, errors.ErrCommentableNotFound
	}
	page.Normalize()

	comments, total, err := s.commentRepo.ListFor(ctx, parentType, parentID, page)
	if err != nil {
		return nil, types.PageMeta{}, err
	}

	var viewerKinds map[int64]string
	if viewer != nil && viewer.UserID > 0 {
		ids := make([]int64, len(comments))
		for i := range comments {
			ids[i] = comments[i].ID
		}
		viewerKinds, err = s.reactionRepo.KindsForTargets(ctx, viewer.UserID, reactionmodels.TargetTypeComment, ids)
		if err != nil {
			return nil, types.PageMeta{}, err
		}
	}

	views := make([]models.CommentView, 0, len(comments))
	for i := range comments {
		view := comments[i].View()
		if viewerKinds != nil {
			view.ViewerReaction = viewerKinds[comments[i].ID]
		}
		views = append(views, view)
	}
	return views, types.NewPageMeta(page, total), nil
}

func (s *commentService) UpdateComment(ctx context.Context, id int64, req *models.UpdateCommentRequest, user *types.UserContext) (*models.CommentView, error) {
	if user == nil || user.UserID <= 0 {
		return nil, errors.ErrInvalidUserContext
	}

	var updated *models.Comment
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		comment, err := s.commentRepo.FindByID(txCtx, id)
		if err != nil {
			return mapRepoError(err)
		}
		if comment.AuthorID != user.UserID {
			return errors.ErrCommentOwnershipRequired
		}

		comment.Description = req.Description
		if err := s.commentRepo.Update(txCtx, comment); err != nil {
			return mapRepoError(err)
		}

		rootPost, err := s.refreshedRootPost(txCtx, comment.RootPostID)
		if err != nil {
			return err
		}

		events.Emit(txCtx, events.Event{
			Action:  events.ActionCommentUpdated,
			ActorID: user.UserID,
			Comment: comment,
			Post:    rootPost,
		})
		updated = comment
		return nil
	})
	if err != nil {
		return nil, err
	}

	view := updated.View()
	return &view, nil
}

func (s *commentService) DeleteComment(ctx context.Context, id int64, user *types.UserContext) error {
	if user == nil || user.UserID <= 0 {
		return errors.ErrInvalidUserContext
	}

	return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		comment, err := s.commentRepo.FindByID(txCtx, id)
		if err != nil {
			return mapRepoError(err)
		}
		if comment.AuthorID != user.UserID {
			return errors.ErrCommentOwnershipRequired
		}

		subtree, err := s.commentRepo.Subtree(txCtx, id)
		if err != nil {
			return err
		}
		subtreeIDs := make([]int64, len(subtree))
		for i := range subtree {
			subtreeIDs[i] = subtree[i].ID
		}

		// Notifications referencing the subtree or its reactions go
		// before the rows they point at.
		if err := s.notifRepo.DeleteForSubjects(txCtx, "comment", subtreeIDs); err != nil {
			return err
		}
		reactionIDs, err := s.reactionRepo.DeleteForTargets(txCtx, reactionmodels.TargetTypeComment, subtreeIDs)
		if err != nil {
			return err
		}
		if err := s.notifRepo.DeleteForSubjects(txCtx, "reaction", reactionIDs); err != nil {
			return err
		}
		if err := s.commentRepo.DeleteByIDs(txCtx, subtreeIDs); err != nil {
			return err
		}

		if err := s.postRepo.IncrementCommentsCount(txCtx, comment.RootPostID, -len(subtree)); err != nil {
			return err
		}

		var parentComment *models.Comment
		if comment.CommentableType == models.CommentableTypeComment {
			if err := s.commentRepo.IncrementRepliesCount(txCtx, comment.CommentableID, -1); err != nil {
				return err
			}
			parentComment, err = s.commentRepo.FindByID(txCtx, comment.CommentableID)
			if err != nil && !stderrors.Is(err, repository.ErrNotFound) {
				return err
			}
		}

		rootPost, err := s.refreshedRootPost(txCtx, comment.RootPostID)
		if err != nil {
			return err
		}

		events.Emit(txCtx, events.Event{
			Action:          events.ActionCommentDeleted,
			ActorID:         user.UserID,
			Comment:         comment,
			ParentComment:   parentComment,
			DeletedComments: subtree,
			Post:            rootPost,
		})
		return nil
	})
}

func (s *commentService) RootPost(ctx context.Context, commentID int64) (*postmodels.Post, error) {
	comment, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	post, err := s.postRepo.FindByID(ctx, comment.RootPostID)
	if err != nil {
		return nil, fmt.Errorf("root post lookup: %w", err)
	}
	return post, nil
}

func (s *commentService) Ancestors(ctx context.Context, commentID int64) ([]models.Comment, error) {
	comment, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	var ancestors []models.Comment
	for comment.CommentableType == models.CommentableTypeComment {
		parent, err := s.commentRepo.FindByID(ctx, comment.CommentableID)
		if err != nil {
			return nil, mapRepoError(err)
		}
		ancestors = append(ancestors, *parent)
		comment = parent
	}
	return ancestors, nil
}

// refreshedRootPost reloads the root post with its tags so the fan-out
// view on the global topic carries current counters.
func (s *commentService) refreshedRootPost(ctx context.Context, postID int64) (*postmodels.Post, error) {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("root post refresh: %w", err)
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

func mapRepoError(err error) error {
	if stderrors.Is(err, repository.ErrNotFound) {
		return errors.ErrCommentNotFound
	}
	return fmt.Errorf("comment repository: %w", err)
}

func mapParentError(err error) error {
	if stderrors.Is(err, repository.ErrNotFound) || stderrors.Is(err, postRepository.ErrNotFound) {
		return errors.ErrCommentableNotFound
	}
	return fmt.Errorf("commentable lookup: %w", err)
}
