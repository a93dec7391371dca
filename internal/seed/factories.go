// Package seed provides helpers to create demo accounts, follow graphs and
// interests in the application database. These helpers are intended for
// development and testing only.
package seed

import (
	"fmt"
	"log"
	"strings"
	"time"

	"usersvc/internal/auth"
	"usersvc/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// DefaultPassword is the plain password of every seeded account.
const DefaultPassword = "Password123"

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by the seeder and tests.
type Factory struct {
	db    *gorm.DB
	opts  Options
	faker *gofakeit.Faker
	// synthetic ID counter when running in DryRun mode
	nextID uint
	// cached hash so bulk seeding pays bcrypt once
	passwordHash string
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
// A zero opts.RandomSeed seeds from the clock.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{db: db, opts: opts, faker: gofakeit.New(seed), nextID: 1000}
}

func (f *Factory) password() (string, error) {
	if f.opts.SkipBcrypt {
		return DefaultPassword, nil
	}
	if f.passwordHash == "" {
		hashed, err := auth.HashPassword(DefaultPassword)
		if err != nil {
			return "", err
		}
		f.passwordHash = hashed
	}
	return f.passwordHash, nil
}

// BuildUser constructs a sample `models.User` without persisting it.
func (f *Factory) BuildUser(overrides ...func(*models.User)) (*models.User, error) {
	first := f.faker.FirstName()
	last := f.faker.LastName()
	handle := strings.ToLower(fmt.Sprintf("%s%s%d", first, last, f.faker.Number(100, 9999)))
	dob := f.faker.DateRange(time.Now().AddDate(-70, 0, 0), time.Now().AddDate(-18, 0, 0)).UTC().Truncate(24 * time.Hour)

	password, err := f.password()
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}

	user := &models.User{
		Email:       handle + "@" + f.faker.DomainName(),
		Username:    handle,
		Password:    password,
		Name:        first,
		Surname:     last,
		DateOfBirth: &dob,
		Bio:         f.faker.Sentence(10),
		Avatar:      fmt.Sprintf("avatars/%s.png", f.faker.UUID()),
		Location:    f.faker.City(),
		IsPublic:    f.faker.Number(0, 9) > 1,
	}

	for _, override := range overrides {
		override(user)
	}
	return user, nil
}

// CreateUser constructs and persists a sample `models.User`.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user, err := f.BuildUser(overrides...)
	if err != nil {
		return nil, err
	}

	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
		log.Printf("[dry-run] CreateUser: %s (%s)", user.Username, user.Email)
		return user, nil
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	// gorm skips zero values for columns with a default
	if !user.IsPublic {
		if err := f.db.Model(user).Update("is_public", false).Error; err != nil {
			return nil, err
		}
	}
	return user, nil
}

// CreateFollow persists an edge meaning follower follows followee.
func (f *Factory) CreateFollow(follower, followee *models.User) error {
	if f.opts.DryRun {
		return nil
	}
	return f.db.Create(&models.Follow{FollowerID: follower.ID, FolloweeID: followee.ID}).Error
}

// SetInterests replaces the interests of user. With no explicit interests it
// picks between one and five random hobbies.
func (f *Factory) SetInterests(user *models.User, interests ...string) ([]string, error) {
	if len(interests) == 0 {
		n := f.faker.Number(1, 5)
		for i := 0; i < n; i++ {
			interests = append(interests, strings.ToLower(f.faker.Hobby()))
		}
	}
	if f.opts.DryRun {
		return interests, nil
	}

	err := f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Interest{}).Error; err != nil {
			return err
		}
		rows := make([]models.Interest, 0, len(interests))
		for _, interest := range interests {
			rows = append(rows, models.Interest{UserID: user.ID, Interest: interest})
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return interests, nil
}

// CreateBiometricToken registers a random biometric token for user.
func (f *Factory) CreateBiometricToken(user *models.User) (string, error) {
	token := auth.NewBiometricToken()
	if f.opts.DryRun {
		return token, nil
	}
	if err := f.db.Create(&models.BiometricToken{UserID: user.ID, Token: token}).Error; err != nil {
		return "", err
	}
	return token, nil
}

// pick returns a random index in [0, n).
func (f *Factory) pick(n int) int {
	return f.faker.Number(0, n-1)
}
