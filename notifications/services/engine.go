// Copyright (c) 2025 Tessera Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tessera-social/tessera/internal/events"
	"github.com/tessera-social/tessera/internal/pkg/log"
	"github.com/tessera-social/tessera/notifications/models"
	"github.com/tessera-social/tessera/notifications/repository"
	reactionmodels "github.com/tessera-social/tessera/reactions/models"
	"github.com/tessera-social/tessera/shared/interfaces"
	userRepository "github.com/tessera-social/tessera/users/repository"
)

const previewMaxRunes = 120

// Engine derives notification rows from committed domain events. It runs
// as a commit hook, so every Create happens in its own transaction after
// the mutation that caused it has committed. Derivation failures are
// logged and swallowed; a missed notification never breaks anything else.
type Engine struct {
	notifRepo repository.NotificationRepository
	userRepo  userRepository.UserRepository
	txManager interfaces.TxManager
}

// NewEngine creates the notification engine.
func NewEngine(notifRepo repository.NotificationRepository, userRepo userRepository.UserRepository, txManager interfaces.TxManager) *Engine {
	return &Engine{notifRepo: notifRepo, userRepo: userRepo, txManager: txManager}
}

// HandleEvent is the commit hook entry point.
func (e *Engine) HandleEvent(ctx context.Context, evt events.Event) error {
	switch evt.Action {
	case events.ActionPostCreated, events.ActionPostUpdated:
		e.derivePostMentions(ctx, evt)
	case events.ActionCommentCreated:
		e.deriveCommentCreated(ctx, evt)
	case events.ActionCommentUpdated:
		e.deriveCommentMentions(ctx, evt)
	case events.ActionReactionAdded:
		e.deriveReactionAdded(ctx, evt)
	}
	return nil
}

func (e *Engine) deriveCommentCreated(ctx context.Context, evt events.Event) {
	comment := evt.Comment
	if comment == nil {
		return
	}

	// Direct comment on a post pings the post author; a reply pings the
	// parent comment's author. Self-actions are suppressed here and by the
	// recipient <> actor constraint.
	if evt.ParentComment != nil {
		e.create(ctx, &models.Notification{
			RecipientID:    evt.ParentComment.AuthorID,
			ActorID:        evt.ActorID,
			Kind:           models.KindReplyToComment,
			SubjectType:    models.SubjectTypeComment,
			SubjectID:      comment.ID,
			ActorName:      comment.AuthorName,
			SubjectPreview: preview(comment.Description),
		})
	} else if evt.Post != nil {
		e.create(ctx, &models.Notification{
			RecipientID:    evt.Post.AuthorID,
			ActorID:        evt.ActorID,
			Kind:           models.KindCommentOnPost,
			SubjectType:    models.SubjectTypeComment,
			SubjectID:      comment.ID,
			ActorName:      comment.AuthorName,
			SubjectPreview: preview(comment.Description),
		})
	}

	e.deriveCommentMentions(ctx, evt)
}

func (e *Engine) deriveCommentMentions(ctx context.Context, evt events.Event) {
	comment := evt.Comment
	if comment == nil {
		return
	}
	e.deriveMentions(ctx, evt.ActorID, comment.AuthorName, comment.Description,
		models.SubjectTypeComment, comment.ID)
}

func (e *Engine) derivePostMentions(ctx context.Context, evt events.Event) {
	post := evt.Post
	if post == nil {
		return
	}
	body := post.Title + "\n" + post.Description
	e.deriveMentions(ctx, evt.ActorID, post.AuthorName, body,
		models.SubjectTypePost, post.ID)
}

func (e *Engine) deriveMentions(ctx context.Context, actorID int64, actorName, body, subjectType string, subjectID int64) {
	handles := ExtractMentionHandles(body)
	if len(handles) == 0 {
		return
	}

	users, err := e.userRepo.FindByHandles(ctx, handles)
	if err != nil {
		log.Error("mention resolution failed for %s %d: %v", subjectType, subjectID, err)
		return
	}

	for i := range users {
		e.create(ctx, &models.Notification{
			RecipientID:    users[i].ID,
			ActorID:        actorID,
			Kind:           models.KindMention,
			SubjectType:    subjectType,
			SubjectID:      subjectID,
			ActorName:      actorName,
			SubjectPreview: preview(body),
		})
	}
}

func (e *Engine) deriveReactionAdded(ctx context.Context, evt events.Event) {
	reaction := evt.Reaction
	if reaction == nil {
		return
	}

	notification := &models.Notification{
		ActorID:     evt.ActorID,
		SubjectType: models.SubjectTypeReaction,
		SubjectID:   reaction.ID,
		ActorName:   reaction.ActorName,
	}
	switch {
	case reaction.TargetType == reactionmodels.TargetTypePost && evt.Post != nil:
		notification.RecipientID = evt.Post.AuthorID
		notification.Kind = models.KindReactionOnPost
		notification.SubjectPreview = preview(evt.Post.Title)
	case reaction.TargetType == reactionmodels.TargetTypeComment && evt.Comment != nil:
		notification.RecipientID = evt.Comment.AuthorID
		notification.Kind = models.KindReactionOnComment
		notification.SubjectPreview = preview(evt.Comment.Description)
	default:
		return
	}
	e.create(ctx, notification)
}

// create persists one notification in its own transaction and re-emits it
// as notification.created so the fan-out delivers it. Self-actions and
// mention duplicates come back as created=false and are silently dropped.
func (e *Engine) create(ctx context.Context, notification *models.Notification) {
	if notification.RecipientID <= 0 || notification.RecipientID == notification.ActorID {
		return
	}

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		created, err := e.notifRepo.Create(txCtx, notification)
		if err != nil {
			return fmt.Errorf("notification insert: %w", err)
		}
		if !created {
			return nil
		}
		events.Emit(txCtx, events.Event{
			Action:       events.ActionNotificationCreated,
			ActorID:      notification.ActorID,
			RecipientID:  notification.RecipientID,
			Notification: notification,
		})
		return nil
	})
	if err != nil {
		log.Error("notification create failed (%s for user %d): %v",
			notification.Kind, notification.RecipientID, err)
	}
}

// preview trims the subject body down to a renderable excerpt.
func preview(body string) string {
	body = strings.TrimSpace(body)
	if utf8.RuneCountInString(body) <= previewMaxRunes {
		return body
	}
	runes := []rune(body)
	return string(runes[:previewMaxRunes-1]) + "…"
}
