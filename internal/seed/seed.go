package seed

import (
	"fmt"
	"log"

	"usersvc/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers        int
	FollowsPerUser  int
	BiometricTokens bool
	ShouldClean     bool
	SkipBcrypt      bool
	DryRun          bool
	RandomSeed      int64
}

// Result summarises what a seeding run created.
type Result struct {
	Users     []*models.User
	Follows   int
	Interests int
	Tokens    int
}

// Seeder populates the database with a random social graph.
type Seeder struct {
	db      *gorm.DB
	opts    Options
	factory *Factory
}

// NewSeeder returns a Seeder writing through db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, opts: opts, factory: NewFactory(db, opts)}
}

// Factory exposes the underlying entity factory.
func (s *Seeder) Factory() *Factory {
	return s.factory
}

// ClearAll removes every follow, interest, biometric token and user.
func (s *Seeder) ClearAll() error {
	if s.opts.DryRun {
		log.Println("[dry-run] ClearAll skipped")
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{
			&models.Follow{},
			&models.Interest{},
			&models.BiometricToken{},
			&models.User{},
		} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return fmt.Errorf("clear %T: %w", model, err)
			}
		}
		return nil
	})
}

// Seed creates NumUsers accounts, each following up to FollowsPerUser
// distinct other accounts and carrying a few interests.
func (s *Seeder) Seed() (*Result, error) {
	log.Printf("🌱 Starting database seeding with %d users...", s.opts.NumUsers)

	if s.opts.ShouldClean {
		if err := s.ClearAll(); err != nil {
			return nil, fmt.Errorf("failed to clear existing data: %w", err)
		}
	}

	res := &Result{}
	for i := 0; i < s.opts.NumUsers; i++ {
		user, err := s.factory.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("failed to create user %d: %w", i, err)
		}
		res.Users = append(res.Users, user)

		interests, err := s.factory.SetInterests(user)
		if err != nil {
			return nil, fmt.Errorf("failed to set interests for %s: %w", user.Email, err)
		}
		res.Interests += len(interests)

		if s.opts.BiometricTokens {
			if _, err := s.factory.CreateBiometricToken(user); err != nil {
				return nil, fmt.Errorf("failed to create biometric token for %s: %w", user.Email, err)
			}
			res.Tokens++
		}
	}
	log.Printf("✓ %d users created", len(res.Users))

	follows, err := s.seedFollows(res.Users)
	if err != nil {
		return nil, err
	}
	res.Follows = follows
	log.Printf("✓ %d follow relations created", follows)

	log.Println("🎉 Database seeding completed successfully!")
	return res, nil
}

func (s *Seeder) seedFollows(users []*models.User) (int, error) {
	perUser := followsFor(s.opts.FollowsPerUser, len(users))
	created := 0
	for i, follower := range users {
		chosen := make(map[int]bool, perUser)
		for len(chosen) < perUser {
			j := s.factory.pick(len(users))
			if j == i || chosen[j] {
				continue
			}
			chosen[j] = true
			if err := s.factory.CreateFollow(follower, users[j]); err != nil {
				return created, fmt.Errorf("failed to create follow %s -> %s: %w", follower.Email, users[j].Email, err)
			}
			created++
		}
	}
	return created, nil
}

// followsFor clamps the requested out-degree to the number of other users.
func followsFor(requested, users int) int {
	if users < 2 || requested <= 0 {
		return 0
	}
	if requested > users-1 {
		return users - 1
	}
	return requested
}
