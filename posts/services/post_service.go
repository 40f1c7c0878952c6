// Copyright (c) 2025 Tessera Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	stderrors "errors"
	"fmt"

	commentmodels "github.com/tessera-social/tessera/comments/models"
	commentRepository "github.com/tessera-social/tessera/comments/repository"
	"github.com/tessera-social/tessera/internal/events"
	"github.com/tessera-social/tessera/internal/types"
	notificationRepository "github.com/tessera-social/tessera/notifications/repository"
	"github.com/tessera-social/tessera/posts/errors"
	"github.com/tessera-social/tessera/posts/models"
	"github.com/tessera-social/tessera/posts/repository"
	reactionmodels "github.com/tessera-social/tessera/reactions/models"
	reactionRepository "github.com/tessera-social/tessera/reactions/repository"
	"github.com/tessera-social/tessera/shared/interfaces"
	tagmodels "github.com/tessera-social/tessera/tags/models"
	tagRepository "github.com/tessera-social/tessera/tags/repository"
	userRepository "github.com/tessera-social/tessera/users/repository"
)

const recentCommentsLimit = 3

// postService implements the PostService interface
type postService struct {
	postRepo     repository.PostRepository
	commentRepo  commentRepository.CommentRepository
	reactionRepo reactionRepository.ReactionRepository
	notifRepo    notificationRepository.NotificationRepository
	tagRepo      tagRepository.TagRepository
	userRepo     userRepository.UserRepository
	txManager    interfaces.TxManager
}

// NewPostService creates a new instance of the post service
func NewPostService(
	postRepo repository.PostRepository,
	commentRepo commentRepository.CommentRepository,
	reactionRepo reactionRepository.ReactionRepository,
	notifRepo notificationRepository.NotificationRepository,
	tagRepo tagRepository.TagRepository,
	userRepo userRepository.UserRepository,
	txManager interfaces.TxManager,
) PostService {
	return &postService{
		postRepo:     postRepo,
		commentRepo:  commentRepo,
		reactionRepo: reactionRepo,
		notifRepo:    notifRepo,
		tagRepo:      tagRepo,
		userRepo:     userRepo,
		txManager:    txManager,
	}
}

func (s *postService) CreatePost(ctx context.Context, req *models.CreatePostRequest, user *types.UserContext) (*models.PostView, error) {
	if user == nil || user.UserID <= 0 {
		return nil, errors.ErrInvalidUserContext
	}

	post := &models.Post{
		AuthorID:    user.UserID,
		Title:       req.Title,
		Description: req.Description,
		AuthorName:  user.Name,
	}
	post.ImageURL.String = req.ImageURL
	post.ImageURL.Valid = req.ImageURL != ""

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.postRepo.Create(txCtx, post); err != nil {
			return err
		}

		tags, err := s.tagRepo.EnsureTags(txCtx, req.Tags)
		if err != nil {
			return err
		}
		tagIDs := make([]int64, len(tags))
		for i, tag := range tags {
			tagIDs[i] = tag.ID
			post.Tags = append(post.Tags, tag.View())
		}
		if err := s.tagRepo.ReplaceForPost(txCtx, post.ID, tagIDs); err != nil {
			return err
		}

		if err := s.userRepo.IncrementPostsCount(txCtx, user.UserID, 1); err != nil {
			return err
		}

		events.Emit(txCtx, events.Event{
			Action:  events.ActionPostCreated,
			ActorID: user.UserID,
			Post:    post,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	view := post.View()
	return &view, nil
}

func (s *postService) GetPost(ctx context.Context, id int64, viewer *types.UserContext) (*models.PostView, error) {
	post, err := s.postRepo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}

	tags, err := s.tagRepo.ListForPost(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, tag := range tags {
		post.Tags = append(post.Tags, tag.View())
	}

	view := post.View()

	recent, _, err := s.commentRepo.ListFor(ctx, commentmodels.CommentableTypePost, id,
		types.PageQuery{Page: 1, PerPage: recentCommentsLimit})
	if err != nil {
		return nil, err
	}
	for i := range recent {
		view.RecentComments = append(view.RecentComments, recent[i].View())
	}

	if viewer != nil && viewer.UserID > 0 {
		kinds, err := s.reactionRepo.KindsForTargets(ctx, viewer.UserID, reactionmodels.TargetTypePost, []int64{id})
		if err != nil {
			return nil, err
		}
		view.ViewerReaction = kinds[id]
	}
	return &view, nil
}

func (s *postService) ListPosts(ctx context.Context, query *models.ListPostsQuery, viewer *types.UserContext) ([]models.PostView, types.PageMeta, error) {
	page := query.PageQuery()
	filter := repository.ListFilter{
		UserID: query.UserID,
		Search: query.Search,
		TagIDs: query.TagIDs,
		Page:   page,
	}

	posts, total, err := s.postRepo.List(ctx, filter)
	if err != nil {
		return nil, types.PageMeta{}, err
	}

	postIDs := make([]int64, len(posts))
	for i := range posts {
		postIDs[i] = posts[i].ID
	}

	tagsByPost, err := s.tagRepo.ListForPosts(ctx, postIDs)
	if err != nil {
		return nil, types.PageMeta{}, err
	}

	var viewerKinds map[int64]string
	if viewer != nil && viewer.UserID > 0 {
		viewerKinds, err = s.reactionRepo.KindsForTargets(ctx, viewer.UserID, reactionmodels.TargetTypePost, postIDs)
		if err != nil {
			return nil, types.PageMeta{}, err
		}
	}

	views := make([]models.PostView, 0, len(posts))
	for i := range posts {
		for _, tag := range tagsByPost[posts[i].ID] {
			posts[i].Tags = append(posts[i].Tags, tag.View())
		}
		view := posts[i].View()
		if viewerKinds != nil {
			view.ViewerReaction = viewerKinds[posts[i].ID]
		}
		views = append(views, view)
	}
	return views, types.NewPageMeta(page, total), nil
}

func (s *postService) UpdatePost(ctx context.Context, id int64, req *models.UpdatePostRequest, user *types.UserContext) (*models.PostView, error) {
	if user == nil || user.UserID <= 0 {
		return nil, errors.ErrInvalidUserContext
	}

	var updated *models.Post
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		post, err := s.postRepo.FindByID(txCtx, id)
		if err != nil {
			return mapRepoError(err)
		}
		if post.AuthorID != user.UserID {
			return errors.ErrPostOwnershipRequired
		}

		post.Title = req.Title
		post.Description = req.Description
		post.ImageURL.String = req.ImageURL
		post.ImageURL.Valid = req.ImageURL != ""

		if err := s.postRepo.Update(txCtx, post); err != nil {
			return mapRepoError(err)
		}

		tags, err := s.tagRepo.EnsureTags(txCtx, req.Tags)
		if err != nil {
			return err
		}
		tagIDs := make([]int64, len(tags))
		post.Tags = make([]tagmodels.TagView, 0, len(tags))
		for i, tag := range tags {
			tagIDs[i] = tag.ID
			post.Tags = append(post.Tags, tag.View())
		}
		if err := s.tagRepo.ReplaceForPost(txCtx, post.ID, tagIDs); err != nil {
			return err
		}

		events.Emit(txCtx, events.Event{
			Action:  events.ActionPostUpdated,
			ActorID: user.UserID,
			Post:    post,
		})
		updated = post
		return nil
	})
	if err != nil {
		return nil, err
	}

	view := updated.View()
	return &view, nil
}

func (s *postService) DeletePost(ctx context.Context, id int64, user *types.UserContext) error {
	if user == nil || user.UserID <= 0 {
		return errors.ErrInvalidUserContext
	}

	return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		post, err := s.postRepo.FindByID(txCtx, id)
		if err != nil {
			return mapRepoError(err)
		}
		if post.AuthorID != user.UserID {
			return errors.ErrPostOwnershipRequired
		}

		// Cascade bottom-up: notifications reference comments and
		// reactions, reactions reference comments, so they go first.
		if err := s.notifRepo.DeleteCascadeForPost(txCtx, id); err != nil {
			return err
		}

		if err := s.reactionRepo.DeleteCascadeForPost(txCtx, id); err != nil {
			return err
		}
		if _, err := s.commentRepo.DeleteForRootPost(txCtx, id); err != nil {
			return err
		}
		if err := s.tagRepo.DeleteForPost(txCtx, id); err != nil {
			return err
		}
		if err := s.postRepo.Delete(txCtx, id); err != nil {
			return mapRepoError(err)
		}
		if err := s.userRepo.IncrementPostsCount(txCtx, post.AuthorID, -1); err != nil {
			return err
		}

		events.Emit(txCtx, events.Event{
			Action:  events.ActionPostDeleted,
			ActorID: user.UserID,
			Post:    post,
		})
		return nil
	})
}

func mapRepoError(err error) error {
	if stderrors.Is(err, repository.ErrNotFound) {
		return errors.ErrPostNotFound
	}
	return fmt.Errorf("post repository: %w", err)
}
