package service

import (
	"context"

	"chirp/internal/models"
	"chirp/internal/repository"

	"github.com/samber/lo"
)

// TweetMapper renders stored tweets for one viewer. Viewer 0 is anonymous and
// never likes or retweets anything.
type TweetMapper struct {
	store *repository.Store
}

func NewTweetMapper(store *repository.Store) *TweetMapper {
	return &TweetMapper{store: store}
}

// renderContext holds everything a batch of projections needs, loaded up front.
type renderContext struct {
	viewerID   uint
	referenced map[uint]*models.Tweet
	users      map[uint]models.User
	liked      map[uint]bool
	retweets   map[uint]uint
}

// ToResponse renders a single tweet.
func (m *TweetMapper) ToResponse(ctx context.Context, tweet *models.Tweet, viewerID uint) (*models.TweetResponse, error) {
	out, err := m.ToResponses(ctx, []models.Tweet{*tweet}, viewerID)
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// ToResponses renders tweets in order with a fixed number of lookups per batch.
func (m *TweetMapper) ToResponses(ctx context.Context, tweets []models.Tweet, viewerID uint) ([]models.TweetResponse, error) {
	rc, err := m.load(ctx, tweets, viewerID)
	if err != nil {
		return nil, err
	}
	return lo.Map(tweets, func(t models.Tweet, _ int) models.TweetResponse {
		return rc.render(&t)
	}), nil
}

// ToDetail renders tweet with its immediate parent and the full ancestor chain
// ordered root first.
func (m *TweetMapper) ToDetail(ctx context.Context, tweet *models.Tweet, viewerID uint) (*models.TweetDetailResponse, error) {
	ancestors, err := m.ancestors(ctx, tweet)
	if err != nil {
		return nil, err
	}

	batch := append([]models.Tweet{*tweet}, ancestors...)
	rendered, err := m.ToResponses(ctx, batch, viewerID)
	if err != nil {
		return nil, err
	}

	thread := lo.Reverse(rendered[1:])
	detail := &models.TweetDetailResponse{
		TweetResponse:      rendered[0],
		ConversationThread: thread,
		PartOfThread:       len(thread) > 0,
	}
	if len(thread) > 0 {
		parent := thread[len(thread)-1]
		detail.ParentTweet = &parent
	}
	return detail, nil
}

// ancestors follows parent links from tweet upwards, nearest first.
func (m *TweetMapper) ancestors(ctx context.Context, tweet *models.Tweet) ([]models.Tweet, error) {
	var chain []models.Tweet
	seen := map[uint]bool{tweet.ID: true}
	next := tweet.ParentTweetID
	for next != nil && !seen[*next] {
		seen[*next] = true
		parent, err := m.store.Tweets.GetByID(ctx, *next)
		if err != nil {
			if models.HasCode(err, models.CodeNotFound) {
				break
			}
			return nil, err
		}
		chain = append(chain, *parent)
		next = parent.ParentTweetID
	}
	return chain, nil
}

func (m *TweetMapper) load(ctx context.Context, tweets []models.Tweet, viewerID uint) (*renderContext, error) {
	rc := &renderContext{viewerID: viewerID, liked: map[uint]bool{}, retweets: map[uint]uint{}}

	parentIDs := lo.FilterMap(tweets, func(t models.Tweet, _ int) (uint, bool) {
		if t.ParentTweetID == nil {
			return 0, false
		}
		return *t.ParentTweetID, true
	})
	referenced, err := m.store.Tweets.GetByIDs(ctx, parentIDs)
	if err != nil {
		return nil, err
	}
	rc.referenced = referenced

	userIDs := lo.Map(tweets, func(t models.Tweet, _ int) uint { return t.UserID })
	for _, p := range referenced {
		userIDs = append(userIDs, p.UserID)
	}
	if rc.users, err = m.store.Users.GetByIDs(ctx, userIDs); err != nil {
		return nil, err
	}

	if viewerID == 0 {
		return rc, nil
	}

	targets := lo.FilterMap(tweets, func(t models.Tweet, _ int) (uint, bool) {
		target := rc.stateTarget(&t)
		return target, target != 0
	})
	if len(targets) == 0 {
		return rc, nil
	}

	liked, err := m.store.Likes.LikedTweetIDs(ctx, viewerID, targets)
	if err != nil {
		return nil, err
	}
	for _, id := range liked {
		rc.liked[id] = true
	}
	if rc.retweets, err = m.store.Tweets.RetweetIDs(ctx, viewerID, targets); err != nil {
		return nil, err
	}
	return rc, nil
}

// stateTarget is the tweet whose liked/retweeted state applies to t, or 0 when
// the state is not computed because the content is masked.
func (rc *renderContext) stateTarget(t *models.Tweet) uint {
	if t.IsRetweet() {
		original := rc.parentOf(t)
		if original == nil || original.Deleted {
			return 0
		}
		return original.ID
	}
	if t.Deleted {
		return 0
	}
	return t.ID
}

func (rc *renderContext) parentOf(t *models.Tweet) *models.Tweet {
	if t.ParentTweetID == nil {
		return nil
	}
	return rc.referenced[*t.ParentTweetID]
}

func (rc *renderContext) render(t *models.Tweet) models.TweetResponse {
	resp := models.TweetResponse{
		ID:        t.ID,
		UserID:    t.UserID,
		TweetType: t.TweetType,
		CreatedAt: t.CreatedAt,
		Deleted:   t.Deleted,
		DeletedAt: t.DeletedAt,
	}
	author := rc.users[t.UserID]
	resp.Username = author.Username
	resp.UserFullName = author.FullName()
	resp.UserProfileImage = author.ProfileImage

	if t.IsRetweet() {
		rc.renderRetweet(&resp, t)
		return resp
	}

	if t.Deleted {
		mask(&resp, t)
	} else {
		showContent(&resp, t)
		rc.applyViewerState(&resp, t.ID)
	}

	if parent := rc.parentOf(t); parent != nil {
		rc.attachParent(&resp, parent)
	} else if t.HasParent() {
		resp.ParentTweetID = t.ParentTweetID
		resp.ParentTweetDeleted = true
	}
	return resp
}

// renderRetweet shows the retweeter's identity around the original rendered live.
func (rc *renderContext) renderRetweet(resp *models.TweetResponse, t *models.Tweet) {
	retweetedAt := t.CreatedAt
	resp.RetweetedAt = &retweetedAt

	original := rc.parentOf(t)
	if original == nil {
		resp.ParentTweetID = t.ParentTweetID
		resp.ParentTweetDeleted = true
		mask(resp, t)
		return
	}

	rc.attachParent(resp, original)
	resp.CreatedAt = original.CreatedAt
	if original.Deleted {
		mask(resp, original)
		return
	}
	showContent(resp, original)
	rc.applyViewerState(resp, original.ID)
}

func (rc *renderContext) attachParent(resp *models.TweetResponse, parent *models.Tweet) {
	parentID := parent.ID
	parentUserID := parent.UserID
	resp.ParentTweetID = &parentID
	resp.ParentTweetUserID = &parentUserID
	resp.ParentTweetDeleted = parent.Deleted

	author := rc.users[parent.UserID]
	resp.OriginalUsername = author.Username
	resp.OriginalUserFullName = author.FullName()
	resp.OriginalUserProfileImage = author.ProfileImage
}

func (rc *renderContext) applyViewerState(resp *models.TweetResponse, targetID uint) {
	if rc.viewerID == 0 {
		return
	}
	resp.Liked = rc.liked[targetID]
	if id, ok := rc.retweets[targetID]; ok {
		retweetID := id
		resp.Retweeted = true
		resp.RetweetID = &retweetID
	}
}

func showContent(resp *models.TweetResponse, t *models.Tweet) {
	mediaType := t.MediaType
	resp.Content = t.Content
	resp.MediaURL = t.MediaURL
	resp.MediaType = &mediaType
	resp.LikeCount = t.LikeCount
	resp.RetweetCount = t.RetweetCount
	resp.ReplyCount = t.ReplyCount
}

// mask renders the placeholder block of a deleted tweet. Only the reply count
// survives; the author identity stays on the response.
func mask(resp *models.TweetResponse, t *models.Tweet) {
	resp.Content = models.DeletedTweetPlaceholder
	resp.MediaURL = nil
	resp.MediaType = nil
	resp.LikeCount = 0
	resp.RetweetCount = 0
	resp.ReplyCount = t.ReplyCount
	resp.Deleted = true
	if t.DeletedAt != nil {
		resp.DeletedAt = t.DeletedAt
	}
	resp.Liked = false
	resp.Retweeted = false
	resp.RetweetID = nil
}
