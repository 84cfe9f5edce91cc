// Package seed populates a database with demo users, tweets and engagement.
// Tweets, likes and follows go through the service layer so every counter
// the seeder touches stays consistent with its fact rows.
package seed

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"unicode/utf8"

	"chirp/internal/models"
	"chirp/internal/repository"
	"chirp/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options configures a seeding run.
type Options struct {
	Users          int
	Posts          int
	Replies        int
	Retweets       int
	Quotes         int
	Likes          int
	FollowsPerUser int
	Deletes        int
}

// DefaultOptions is a small but well connected data set.
func DefaultOptions() Options {
	return Options{
		Users:          25,
		Posts:          120,
		Replies:        60,
		Retweets:       40,
		Quotes:         15,
		Likes:          300,
		FollowsPerUser: 6,
		Deletes:        5,
	}
}

// Summary counts what a run produced.
type Summary struct {
	Users    int
	Tweets   int
	Replies  int
	Retweets int
	Quotes   int
	Likes    int
	Follows  int
	Deletes  int
}

// Seeder writes demo data through the services.
type Seeder struct {
	db      *gorm.DB
	rng     *rand.Rand
	faker   *gofakeit.Faker
	tweets  *service.TweetService
	likes   *service.LikeService
	follows *service.FollowService
}

// NewSeeder creates a Seeder bound to db. A non-zero seed makes runs
// reproducible. Media uploads are disabled.
func NewSeeder(db *gorm.DB, seed int64) *Seeder {
	if seed == 0 {
		seed = rand.Int63() // #nosec G404: acceptable for seeding
	}
	store := repository.NewStore(db)
	mapper := service.NewTweetMapper(store)
	return &Seeder{
		db:      db,
		rng:     rand.New(rand.NewSource(seed)), // #nosec G404: acceptable for seeding
		faker:   gofakeit.New(seed),
		tweets:  service.NewTweetService(store, nil, mapper),
		likes:   service.NewLikeService(store, mapper),
		follows: service.NewFollowService(store),
	}
}

// ClearAll removes every seeded row, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	log.Println("Clearing existing data...")
	tx := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []interface{}{&models.Like{}, &models.Follow{}, &models.Tweet{}, &models.User{}} {
		if err := tx.Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	return nil
}

// Run seeds users, the follow graph, tweets and engagement.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Summary, error) {
	sum := &Summary{}

	users, err := s.CreateUsers(ctx, opts.Users)
	if err != nil {
		return sum, fmt.Errorf("failed to create users: %w", err)
	}
	sum.Users = len(users)
	if len(users) == 0 {
		return sum, nil
	}

	if sum.Follows, err = s.seedFollows(ctx, users, opts.FollowsPerUser); err != nil {
		return sum, fmt.Errorf("failed to seed follows: %w", err)
	}

	var live []uint
	for i := 0; i < opts.Posts; i++ {
		author := s.pick(users)
		resp, err := s.tweets.CreatePost(ctx, service.CreateTweetInput{AuthorID: author, Content: s.content()})
		if err != nil {
			return sum, fmt.Errorf("failed to create tweet: %w", err)
		}
		live = append(live, resp.ID)
		sum.Tweets++
	}
	if len(live) == 0 {
		return sum, nil
	}

	for i := 0; i < opts.Replies; i++ {
		resp, err := s.tweets.Reply(ctx, s.pick(live), service.CreateTweetInput{AuthorID: s.pick(users), Content: s.content()})
		if err != nil {
			return sum, fmt.Errorf("failed to create reply: %w", err)
		}
		live = append(live, resp.ID)
		sum.Replies++
	}

	for i := 0; i < opts.Quotes; i++ {
		resp, err := s.tweets.Quote(ctx, s.pick(live), service.CreateTweetInput{AuthorID: s.pick(users), Content: s.content()})
		if err != nil {
			return sum, fmt.Errorf("failed to create quote: %w", err)
		}
		live = append(live, resp.ID)
		sum.Quotes++
	}

	retweeted := map[[2]uint]bool{}
	for i := 0; i < opts.Retweets; i++ {
		key := [2]uint{s.pick(users), s.pick(live)}
		if retweeted[key] {
			continue
		}
		if _, err := s.tweets.Retweet(ctx, key[1], key[0]); err != nil {
			return sum, fmt.Errorf("failed to retweet: %w", err)
		}
		retweeted[key] = true
		sum.Retweets++
	}

	liked := map[[2]uint]bool{}
	for i := 0; i < opts.Likes; i++ {
		key := [2]uint{s.pick(users), s.pick(live)}
		if liked[key] {
			continue
		}
		if _, err := s.likes.ToggleLike(ctx, key[1], key[0]); err != nil {
			return sum, fmt.Errorf("failed to like: %w", err)
		}
		liked[key] = true
		sum.Likes++
	}

	for i := 0; i < opts.Deletes && i < len(live); i++ {
		victim, err := s.loadTweet(ctx, s.pick(live))
		if err != nil {
			return sum, err
		}
		if victim.Deleted {
			continue
		}
		if _, err := s.tweets.Delete(ctx, victim.ID, victim.UserID); err != nil {
			return sum, fmt.Errorf("failed to delete tweet %d: %w", victim.ID, err)
		}
		sum.Deletes++
	}

	return sum, nil
}

// CreateUsers inserts n users with generated profiles.
func (s *Seeder) CreateUsers(ctx context.Context, n int) ([]uint, error) {
	ids := make([]uint, 0, n)
	for i := 0; i < n; i++ {
		first, last := s.faker.FirstName(), s.faker.LastName()
		username := s.username(first, i)
		user := &models.User{
			FirstName:    truncate(first, 50),
			LastName:     truncate(last, 50),
			Username:     username,
			Email:        username + "@example.com",
			Bio:          truncate(s.faker.Sentence(10), 160),
			ProfileImage: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", s.faker.UUID()),
			Verified:     s.rng.Intn(10) == 0,
		}
		if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
			return ids, err
		}
		ids = append(ids, user.ID)
	}
	return ids, nil
}

func (s *Seeder) seedFollows(ctx context.Context, users []uint, perUser int) (int, error) {
	if len(users) < 2 {
		return 0, nil
	}
	created := 0
	for _, follower := range users {
		for j := 0; j < perUser; j++ {
			followed := s.pick(users)
			if followed == follower {
				continue
			}
			_, err := s.follows.Follow(ctx, follower, followed)
			if models.HasCode(err, models.CodeConflict) {
				continue
			}
			if err != nil {
				return created, err
			}
			created++
		}
	}
	return created, nil
}

func (s *Seeder) loadTweet(ctx context.Context, id uint) (*models.Tweet, error) {
	var tweet models.Tweet
	if err := s.db.WithContext(ctx).First(&tweet, id).Error; err != nil {
		return nil, fmt.Errorf("failed to load tweet %d: %w", id, err)
	}
	return &tweet, nil
}

func (s *Seeder) pick(ids []uint) uint {
	return ids[s.rng.Intn(len(ids))]
}

func (s *Seeder) content() string {
	text := s.faker.Sentence(s.rng.Intn(15) + 4)
	if s.rng.Intn(3) == 0 {
		text += " #" + strings.ToLower(s.faker.Word())
	}
	return truncate(text, models.MaxTweetLength)
}

// username keeps within the 15 character column and stays unique per run.
func (s *Seeder) username(first string, i int) string {
	suffix := fmt.Sprintf("%d%02d", i, s.rng.Intn(100))
	base := strings.ToLower(strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return r
		}
		return -1
	}, first))
	if base == "" {
		base = "user"
	}
	return truncate(base, 15-len(suffix)) + suffix
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
