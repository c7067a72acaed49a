// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"commune/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Every seeded account shares this password so demo logins are easy.
const seedPassword = "password123"

// Options tunes how much data a seeding run produces.
type Options struct {
	Users    int
	Posts    int
	Comments int
	// SkipBcrypt stores the plaintext password for fast local reseeds.
	// Logins will not work; only use it when row volume is all that matters.
	SkipBcrypt bool
}

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db   *gorm.DB
	opts Options
	rand *rand.Rand
}

// NewFactory creates a Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	return &Factory{
		db:   db,
		opts: opts,
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateUser constructs and persists a sample user. Optional override
// functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := &models.User{
		Email:           gofakeit.Email(),
		Nickname:        gofakeit.Username(),
		ProfileImageURL: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
	}

	if f.opts.SkipBcrypt {
		user.Password = seedPassword
	} else {
		hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.Password = string(hash)
	}

	for _, override := range overrides {
		override(user)
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreatePost constructs and persists a sample post owned by user, with a
// created_at spread over the last 90 days so listings look lived-in.
func (f *Factory) CreatePost(user *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	boardTypes := []string{models.BoardTypeCouple, models.BoardTypePlanner, models.BoardTypePrivate}

	post := &models.Post{
		UserID:    user.ID,
		Title:     gofakeit.Sentence(5),
		Content:   gofakeit.Paragraph(1, 3, 5, "\n"),
		BoardType: boardTypes[f.rand.Intn(len(boardTypes))],
	}
	if f.rand.Intn(3) == 0 {
		post.ImageURL = fmt.Sprintf("https://picsum.photos/seed/%s/800/800", gofakeit.UUID())
	}

	daysBack := f.rand.Intn(90)
	hoursBack := f.rand.Intn(24)
	post.CreatedAt = time.Now().
		Add(-time.Duration(daysBack)*24*time.Hour - time.Duration(hoursBack)*time.Hour)

	for _, override := range overrides {
		override(post)
	}
	if err := f.db.Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// CreateComment persists a comment by user on post.
func (f *Factory) CreateComment(user *models.User, post *models.Post, overrides ...func(*models.Comment)) (*models.Comment, error) {
	comment := &models.Comment{
		PostID:  post.ID,
		UserID:  user.ID,
		Content: gofakeit.Sentence(8),
	}
	for _, override := range overrides {
		override(comment)
	}
	if err := f.db.Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateLike records a like and keeps the post counter consistent.
func (f *Factory) CreateLike(user *models.User, post *models.Post) error {
	like := &models.PostLike{PostID: post.ID, UserID: user.ID}
	if err := f.db.Create(like).Error; err != nil {
		return err
	}
	return f.db.Model(&models.Post{}).
		Where("id = ?", post.ID).
		Update("like_count", gorm.Expr("like_count + 1")).Error
}

// AttachTags creates-or-finds the named tags and attaches them to post.
func (f *Factory) AttachTags(post *models.Post, names ...string) error {
	for _, name := range names {
		tag := models.Tag{Name: name}
		if err := f.db.Where("name = ?", name).FirstOrCreate(&tag).Error; err != nil {
			return err
		}
		if err := f.db.Model(post).Association("Tags").Append(&tag); err != nil {
			return err
		}
	}
	return nil
}
