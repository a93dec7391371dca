// Command main runs the database seeder for the users service.
package main

import (
	"flag"
	"log"

	"usersvc/internal/config"
	"usersvc/internal/database"
	"usersvc/internal/seed"
)

func main() {
	// Parse command line flags
	numUsers := flag.Int("users", 50, "Number of users to create")
	follows := flag.Int("follows", 5, "Number of accounts each user follows")
	biometric := flag.Bool("biometric", false, "Register a biometric token per user")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	fast := flag.Bool("fast", false, "Store plain passwords instead of bcrypt hashes")
	dryRun := flag.Bool("dry-run", false, "Generate data without writing to the database")
	randomSeed := flag.Int64("seed", 0, "Random seed (0 uses the clock)")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d users, %d follows each, clean=%v\n", *numUsers, *follows, *shouldClean)

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close() }()

	s := seed.NewSeeder(db, seed.Options{
		NumUsers:        *numUsers,
		FollowsPerUser:  *follows,
		BiometricTokens: *biometric,
		ShouldClean:     *shouldClean,
		SkipBcrypt:      *fast,
		DryRun:          *dryRun,
		RandomSeed:      *randomSeed,
	})

	res, err := s.Seed()
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ All done! %d users, %d follows, %d interests, %d biometric tokens.",
		len(res.Users), res.Follows, res.Interests, res.Tokens)
	if !*fast {
		log.Printf("📧 All test users have the password: %s", seed.DefaultPassword)
	}
}
