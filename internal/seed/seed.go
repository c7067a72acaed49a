package seed

import (
	"fmt"
	"log"
	"math/rand"

	"commune/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Run populates the database with a plausible community: users, posts
// spread over boards and time, comments, likes (with consistent counters),
// and a handful of tags.
func Run(db *gorm.DB, opts Options) error {
	if opts.Users <= 0 {
		opts.Users = 20
	}
	if opts.Posts <= 0 {
		opts.Posts = 100
	}
	if opts.Comments <= 0 {
		opts.Comments = opts.Posts * 3
	}

	f := NewFactory(db, opts)

	users := make([]*models.User, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		user, err := f.CreateUser()
		if err != nil {
			return fmt.Errorf("seed users: %w", err)
		}
		users = append(users, user)
	}
	log.Printf("seeded %d users", len(users))

	posts := make([]*models.Post, 0, opts.Posts)
	for i := 0; i < opts.Posts; i++ {
		author := users[rand.Intn(len(users))]
		post, err := f.CreatePost(author)
		if err != nil {
			return fmt.Errorf("seed posts: %w", err)
		}
		if rand.Intn(2) == 0 {
			tags := []string{gofakeit.Word(), gofakeit.Word()}
			if err := f.AttachTags(post, tags...); err != nil {
				return fmt.Errorf("seed tags: %w", err)
			}
		}
		posts = append(posts, post)
	}
	log.Printf("seeded %d posts", len(posts))

	for i := 0; i < opts.Comments; i++ {
		commenter := users[rand.Intn(len(users))]
		post := posts[rand.Intn(len(posts))]
		if _, err := f.CreateComment(commenter, post); err != nil {
			return fmt.Errorf("seed comments: %w", err)
		}
	}
	log.Printf("seeded %d comments", opts.Comments)

	likes := 0
	for _, post := range posts {
		// Each post gets likes from a random prefix of the user list, so the
		// (post, user) pair stays unique.
		for _, user := range users[:rand.Intn(len(users))] {
			if err := f.CreateLike(user, post); err != nil {
				return fmt.Errorf("seed likes: %w", err)
			}
			likes++
		}
	}
	log.Printf("seeded %d likes", likes)

	return nil
}

// ClearAll removes seeded data in dependency order. Hard deletes, so reseeds
// start from a genuinely empty state.
func ClearAll(db *gorm.DB) error {
	for _, table := range []string{"post_tags", "post_likes", "comments", "tags", "posts", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}
