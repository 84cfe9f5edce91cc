// Command seed fills the database with demo users, tweets and engagement.
package main

import (
	"context"
	"flag"
	"log"

	"chirp/internal/config"
	"chirp/internal/database"
	"chirp/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()

	numUsers := flag.Int("users", defaults.Users, "Number of users to create")
	numPosts := flag.Int("posts", defaults.Posts, "Number of original tweets to create")
	numReplies := flag.Int("replies", defaults.Replies, "Number of replies to create")
	numRetweets := flag.Int("retweets", defaults.Retweets, "Number of retweet attempts")
	numQuotes := flag.Int("quotes", defaults.Quotes, "Number of quote tweets to create")
	numLikes := flag.Int("likes", defaults.Likes, "Number of like attempts")
	follows := flag.Int("follows", defaults.FollowsPerUser, "Follow attempts per user")
	deletes := flag.Int("deletes", defaults.Deletes, "Number of tweets to soft-delete")
	randSeed := flag.Int64("seed", 0, "Random seed; 0 picks one")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	s := seed.NewSeeder(db, *randSeed)

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	sum, err := s.Run(ctx, seed.Options{
		Users:          *numUsers,
		Posts:          *numPosts,
		Replies:        *numReplies,
		Retweets:       *numRetweets,
		Quotes:         *numQuotes,
		Likes:          *numLikes,
		FollowsPerUser: *follows,
		Deletes:        *deletes,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d users, %d tweets, %d replies, %d quotes, %d retweets, %d likes, %d follows, %d deletes",
		sum.Users, sum.Tweets, sum.Replies, sum.Quotes, sum.Retweets, sum.Likes, sum.Follows, sum.Deletes)
}
