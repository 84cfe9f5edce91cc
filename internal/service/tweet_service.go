// Package service holds the business logic behind the API handlers.
package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"chirp/internal/media"
	"chirp/internal/models"
	"chirp/internal/observability"
	"chirp/internal/repository"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
)

// TweetService creates, edits and deletes tweets of every variant and keeps the
// denormalized counters consistent with each change.
type TweetService struct {
	store  *repository.Store
	media  media.Store
	mapper *TweetMapper
	now    func() time.Time
}

// MediaUpload is an attachment as received from the client.
type MediaUpload struct {
	Data        []byte
	ContentType string
}

type CreateTweetInput struct {
	AuthorID uint
	Content  string
	Media    *MediaUpload
}

// UpdateTweetInput carries the fields to overwrite; nil fields are kept.
type UpdateTweetInput struct {
	TweetID     uint
	RequesterID uint
	Content     *string
	Media       *MediaUpload
}

func NewTweetService(store *repository.Store, mediaStore media.Store, mapper *TweetMapper) *TweetService {
	return &TweetService{
		store:  store,
		media:  mediaStore,
		mapper: mapper,
		now:    time.Now,
	}
}

// validateContent trims content and checks it holds 1 to 280 characters.
func validateContent(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", models.NewInvalidStateError("Tweet content must not be blank")
	}
	if utf8.RuneCountInString(trimmed) > models.MaxTweetLength {
		return "", models.NewInvalidStateError("Tweet content exceeds 280 characters")
	}
	return trimmed, nil
}

// CreatePost publishes an original tweet.
func (s *TweetService) CreatePost(ctx context.Context, in CreateTweetInput) (_ *models.TweetResponse, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "tweet", "create_post", attribute.Int("user.id", int(in.AuthorID)))
	defer func() { span.Finish(err) }()

	content, err := validateContent(in.Content)
	if err != nil {
		return nil, err
	}

	tweet := &models.Tweet{UserID: in.AuthorID, Content: content, TweetType: models.TweetTypeTweet}
	if err := s.publish(ctx, tweet, in.Media, func(tx *repository.Store) error {
		if err := requireUser(ctx, tx, in.AuthorID); err != nil {
			return err
		}
		return s.insert(ctx, tx, tweet)
	}); err != nil {
		return nil, err
	}

	observability.TweetMutations.WithLabelValues("create").Inc()
	return s.render(ctx, tweet.ID, in.AuthorID)
}

// Reply answers parentID. Replying to a retweet answers the retweeted original.
func (s *TweetService) Reply(ctx context.Context, parentID uint, in CreateTweetInput) (_ *models.TweetResponse, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "tweet", "reply", attribute.Int("tweet.parent_id", int(parentID)))
	defer func() { span.Finish(err) }()

	content, err := validateContent(in.Content)
	if err != nil {
		return nil, err
	}

	tweet := &models.Tweet{UserID: in.AuthorID, Content: content, TweetType: models.TweetTypeReply}
	if err := s.publish(ctx, tweet, in.Media, func(tx *repository.Store) error {
		if err := requireUser(ctx, tx, in.AuthorID); err != nil {
			return err
		}
		parent, err := resolveLiveTarget(ctx, tx, parentID, "Cannot reply to a deleted tweet")
		if err != nil {
			return err
		}
		tweet.ParentTweetID = &parent.ID
		if err := s.insert(ctx, tx, tweet); err != nil {
			return err
		}
		return tx.Tweets.Increment(ctx, parent.ID, repository.TweetReplies)
	}); err != nil {
		return nil, err
	}

	observability.TweetMutations.WithLabelValues("reply").Inc()
	return s.render(ctx, tweet.ID, in.AuthorID)
}

// Quote re-shares targetID with new content. Quoting a retweet quotes its original.
func (s *TweetService) Quote(ctx context.Context, targetID uint, in CreateTweetInput) (_ *models.TweetResponse, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "tweet", "quote", attribute.Int("tweet.target_id", int(targetID)))
	defer func() { span.Finish(err) }()

	content, err := validateContent(in.Content)
	if err != nil {
		return nil, err
	}

	tweet := &models.Tweet{UserID: in.AuthorID, Content: content, TweetType: models.TweetTypeQuote}
	if err := s.publish(ctx, tweet, in.Media, func(tx *repository.Store) error {
		if err := requireUser(ctx, tx, in.AuthorID); err != nil {
			return err
		}
		original, err := resolveLiveTarget(ctx, tx, targetID, "Cannot quote a deleted tweet")
		if err != nil {
			return err
		}
		tweet.ParentTweetID = &original.ID
		if err := s.insert(ctx, tx, tweet); err != nil {
			return err
		}
		return tx.Tweets.Increment(ctx, original.ID, repository.TweetRetweets)
	}); err != nil {
		return nil, err
	}

	observability.TweetMutations.WithLabelValues("quote").Inc()
	return s.render(ctx, tweet.ID, in.AuthorID)
}

// Retweet toggles the author's retweet of targetID's original. Creating one
// returns the new retweet; undoing one returns the original.
func (s *TweetService) Retweet(ctx context.Context, targetID, authorID uint) (_ *models.TweetResponse, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "tweet", "retweet", attribute.Int("tweet.target_id", int(targetID)))
	defer func() { span.Finish(err) }()

	var resultID uint
	var undone bool
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := requireUser(ctx, tx, authorID); err != nil {
			return err
		}
		original, err := resolveLiveTarget(ctx, tx, targetID, "Cannot retweet a deleted tweet")
		if err != nil {
			return err
		}

		existing, err := tx.Tweets.FindRetweet(ctx, authorID, original.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			undone = true
			resultID = original.ID
			return undoRetweet(ctx, tx, existing)
		}

		retweet := &models.Tweet{
			UserID:        authorID,
			Content:       original.Content,
			TweetType:     models.TweetTypeRetweet,
			MediaURL:      original.MediaURL,
			MediaType:     original.MediaType,
			ParentTweetID: &original.ID,
		}
		if err := s.insert(ctx, tx, retweet); err != nil {
			return err
		}
		resultID = retweet.ID
		return tx.Tweets.Increment(ctx, original.ID, repository.TweetRetweets)
	})
	if err != nil {
		return nil, err
	}

	observability.TweetMutations.WithLabelValues(lo.Ternary(undone, "unretweet", "retweet")).Inc()
	return s.render(ctx, resultID, authorID)
}

// Update edits content and/or media of the requester's own tweet.
func (s *TweetService) Update(ctx context.Context, in UpdateTweetInput) (_ *models.TweetResponse, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "tweet", "update", attribute.Int("tweet.id", int(in.TweetID)))
	defer func() { span.Finish(err) }()

	if in.Content == nil && in.Media == nil {
		return nil, models.NewValidationError("Nothing to update")
	}

	current, err := s.store.Fresh().Tweets.GetByID(ctx, in.TweetID)
	if err != nil {
		return nil, err
	}
	content, err := checkEditable(current, in)
	if err != nil {
		return nil, err
	}

	upd := repository.TweetUpdate{Content: content}
	if in.Media != nil {
		url, mediaType, err := s.upload(ctx, in.Media)
		if err != nil {
			return nil, err
		}
		upd.MediaURL = &url
		upd.MediaType = &mediaType
	}

	var replaced *string
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		tweet, err := tx.Tweets.GetByID(ctx, in.TweetID)
		if err != nil {
			return err
		}
		if _, err := checkEditable(tweet, in); err != nil {
			return err
		}
		replaced = tweet.MediaURL
		upd.At = s.now()
		return tx.Tweets.Update(ctx, tweet.ID, upd)
	})
	if err != nil {
		s.discard(ctx, upd.MediaURL)
		return nil, err
	}
	if upd.MediaURL != nil {
		s.discard(ctx, replaced)
	}

	observability.TweetMutations.WithLabelValues("update").Inc()
	return s.render(ctx, in.TweetID, in.RequesterID)
}

// checkEditable enforces ownership and state rules for an edit and returns the
// validated content, if any.
func checkEditable(tweet *models.Tweet, in UpdateTweetInput) (*string, error) {
	if tweet.UserID != in.RequesterID {
		return nil, models.NewForbiddenError("You can only edit your own tweets")
	}
	if tweet.Deleted {
		return nil, models.NewInvalidStateError("Cannot edit a deleted tweet")
	}
	if tweet.IsRetweet() {
		return nil, models.NewInvalidStateError("Retweets cannot be edited")
	}
	if in.Content == nil {
		return nil, nil
	}
	content, err := validateContent(*in.Content)
	if err != nil {
		return nil, err
	}
	return &content, nil
}

// Delete soft-deletes the requester's tweet and cascades in one transaction:
// the parent's reply count drops for a reply, every retweet of the tweet is
// removed along with its retweeter's tweet count, and the author's tweet count
// drops. The masked tweet is returned.
//
// Deleting a retweet row removes it like an undo and returns the original.
func (s *TweetService) Delete(ctx context.Context, tweetID, requesterID uint) (_ *models.TweetResponse, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "tweet", "delete", attribute.Int("tweet.id", int(tweetID)))
	defer func() { span.Finish(err) }()

	resultID := tweetID
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		tweet, err := tx.Tweets.GetByID(ctx, tweetID)
		if err != nil {
			return err
		}
		if tweet.UserID != requesterID {
			return models.NewForbiddenError("You can only delete your own tweets")
		}
		if tweet.Deleted {
			return models.NewInvalidStateError("Tweet is already deleted")
		}

		if tweet.IsRetweet() {
			resultID = *tweet.ParentTweetID
			return undoRetweet(ctx, tx, tweet)
		}

		if tweet.TweetType == models.TweetTypeReply && tweet.HasParent() {
			if err := tx.Tweets.Decrement(ctx, *tweet.ParentTweetID, repository.TweetReplies); err != nil {
				return err
			}
		}

		retweets, err := tx.Tweets.ListRetweets(ctx, tweet.ID)
		if err != nil {
			return err
		}
		if len(retweets) > 0 {
			ids := lo.Map(retweets, func(rt models.Tweet, _ int) uint { return rt.ID })
			if err := tx.Tweets.HardDelete(ctx, ids...); err != nil {
				return err
			}
			for _, rt := range retweets {
				if err := tx.Users.Decrement(ctx, rt.UserID, repository.UserTweets); err != nil {
					return err
				}
			}
		}

		ok, err := tx.Tweets.SoftDelete(ctx, tweet.ID, s.now())
		if err != nil {
			return err
		}
		if !ok {
			return models.NewInvalidStateError("Tweet is already deleted")
		}
		return tx.Users.Decrement(ctx, tweet.UserID, repository.UserTweets)
	})
	if err != nil {
		return nil, err
	}

	observability.TweetMutations.WithLabelValues("delete").Inc()
	return s.render(ctx, resultID, requesterID)
}

// GetShadow returns the pre-deletion payload of the requester's deleted tweet.
func (s *TweetService) GetShadow(ctx context.Context, tweetID, requesterID uint) (*models.ShadowResponse, error) {
	tweet, err := s.store.Fresh().Tweets.GetByID(ctx, tweetID)
	if err != nil {
		return nil, err
	}
	if tweet.UserID != requesterID {
		return nil, models.NewForbiddenError("Only the author can view a deleted tweet's content")
	}
	if !tweet.Deleted {
		return nil, models.NewInvalidStateError("Tweet is not deleted")
	}
	return &models.ShadowResponse{
		ID:                tweet.ID,
		OriginalContent:   tweet.OriginalContent,
		OriginalMediaURL:  tweet.OriginalMediaURL,
		OriginalMediaType: tweet.OriginalMediaType,
		DeletedAt:         tweet.DeletedAt,
	}, nil
}

// GetByID renders a tweet with its conversation thread.
func (s *TweetService) GetByID(ctx context.Context, tweetID, viewerID uint) (*models.TweetDetailResponse, error) {
	tweet, err := s.store.Tweets.GetByID(ctx, tweetID)
	if err != nil {
		return nil, err
	}
	return s.mapper.ToDetail(ctx, tweet, viewerID)
}

// ListFeed pages through every tweet, deleted ones included as placeholders.
func (s *TweetService) ListFeed(ctx context.Context, viewerID uint, req models.PageRequest) (models.Page[models.TweetResponse], error) {
	tweets, total, err := s.store.Tweets.List(ctx, req)
	return s.page(ctx, tweets, total, err, req, viewerID)
}

// ListByUser pages through one author's tweets.
func (s *TweetService) ListByUser(ctx context.Context, userID, viewerID uint, req models.PageRequest) (models.Page[models.TweetResponse], error) {
	if err := requireUser(ctx, s.store, userID); err != nil {
		return models.Page[models.TweetResponse]{}, err
	}
	tweets, total, err := s.store.Tweets.ListByUser(ctx, userID, req)
	return s.page(ctx, tweets, total, err, req, viewerID)
}

// ListReplies pages through the direct replies of tweetID.
func (s *TweetService) ListReplies(ctx context.Context, tweetID, viewerID uint, req models.PageRequest) (models.Page[models.TweetResponse], error) {
	if _, err := s.store.Tweets.GetByID(ctx, tweetID); err != nil {
		return models.Page[models.TweetResponse]{}, err
	}
	tweets, total, err := s.store.Tweets.ListReplies(ctx, tweetID, req)
	return s.page(ctx, tweets, total, err, req, viewerID)
}

// ListHomeTimeline pages through the viewer's and their followees' live tweets.
func (s *TweetService) ListHomeTimeline(ctx context.Context, viewerID uint, req models.PageRequest) (models.Page[models.TweetResponse], error) {
	tweets, total, err := s.store.Tweets.ListTimeline(ctx, viewerID, req)
	return s.page(ctx, tweets, total, err, req, viewerID)
}

func (s *TweetService) page(ctx context.Context, tweets []models.Tweet, total int64, err error, req models.PageRequest, viewerID uint) (models.Page[models.TweetResponse], error) {
	return renderPage(ctx, s.mapper, tweets, total, err, req, viewerID)
}

func renderPage(ctx context.Context, mapper *TweetMapper, tweets []models.Tweet, total int64, err error, req models.PageRequest, viewerID uint) (models.Page[models.TweetResponse], error) {
	if err != nil {
		return models.Page[models.TweetResponse]{}, err
	}
	content, err := mapper.ToResponses(ctx, tweets, viewerID)
	if err != nil {
		return models.Page[models.TweetResponse]{}, err
	}
	return models.NewPage(content, req, total), nil
}

// publish uploads attachment, runs fn in a transaction and drops the upload
// again when the transaction fails.
func (s *TweetService) publish(ctx context.Context, tweet *models.Tweet, attachment *MediaUpload, fn func(tx *repository.Store) error) error {
	tweet.MediaType = models.MediaTypeNone
	if attachment != nil {
		url, mediaType, err := s.upload(ctx, attachment)
		if err != nil {
			return err
		}
		tweet.MediaURL = &url
		tweet.MediaType = mediaType
	}

	if err := s.store.Transaction(ctx, fn); err != nil {
		s.discard(ctx, tweet.MediaURL)
		return err
	}
	return nil
}

// insert stores tweet and counts it for its author.
func (s *TweetService) insert(ctx context.Context, tx *repository.Store, tweet *models.Tweet) error {
	now := s.now()
	tweet.CreatedAt = now
	tweet.UpdatedAt = now
	if err := tx.Tweets.Create(ctx, tweet); err != nil {
		return err
	}
	return tx.Users.Increment(ctx, tweet.UserID, repository.UserTweets)
}

func (s *TweetService) upload(ctx context.Context, attachment *MediaUpload) (string, models.MediaType, error) {
	if s.media == nil {
		return "", models.MediaTypeNone, models.NewValidationError("Media uploads are not enabled")
	}
	contentType := media.ResolveContentType(attachment.Data, attachment.ContentType)
	url, err := s.media.Upload(ctx, attachment.Data, contentType)
	if err != nil {
		return "", models.MediaTypeNone, err
	}
	return url, media.DetermineMediaType(contentType), nil
}

// discard removes an uploaded blob that no tweet references anymore.
func (s *TweetService) discard(ctx context.Context, url *string) {
	if url == nil || *url == "" || s.media == nil {
		return
	}
	if err := s.media.Delete(ctx, *url); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "failed to delete media", "url", *url, "error", err)
	}
}

func (s *TweetService) render(ctx context.Context, tweetID, viewerID uint) (*models.TweetResponse, error) {
	tweet, err := s.store.Fresh().Tweets.GetByID(ctx, tweetID)
	if err != nil {
		return nil, err
	}
	return s.mapper.ToResponse(ctx, tweet, viewerID)
}

// resolveLiveTarget loads id and follows a retweet to its original. Either
// being deleted fails with deletedMsg.
func resolveLiveTarget(ctx context.Context, tx *repository.Store, id uint, deletedMsg string) (*models.Tweet, error) {
	target, err := tx.Tweets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if target.Deleted {
		return nil, models.NewInvalidStateError(deletedMsg)
	}
	if !target.IsRetweet() {
		return target, nil
	}
	original, err := tx.Tweets.GetByID(ctx, *target.ParentTweetID)
	if err != nil {
		return nil, err
	}
	if original.Deleted {
		return nil, models.NewInvalidStateError(deletedMsg)
	}
	return original, nil
}

// undoRetweet removes a retweet row and reverses its counter effects.
func undoRetweet(ctx context.Context, tx *repository.Store, retweet *models.Tweet) error {
	if err := tx.Tweets.HardDelete(ctx, retweet.ID); err != nil {
		return err
	}
	if err := tx.Tweets.Decrement(ctx, *retweet.ParentTweetID, repository.TweetRetweets); err != nil {
		return err
	}
	return tx.Users.Decrement(ctx, retweet.UserID, repository.UserTweets)
}

func requireUser(ctx context.Context, store *repository.Store, id uint) error {
	ok, err := store.Users.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewNotFoundError("User", id)
	}
	return nil
}
