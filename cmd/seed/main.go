// Command seed populates the database with demo data.
package main

import (
	"flag"
	"log"

	"commune/internal/config"
	"commune/internal/database"
	"commune/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numPosts := flag.Int("posts", 100, "Number of posts to create")
	numComments := flag.Int("comments", 0, "Number of comments to create (default posts*3)")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	skipBcrypt := flag.Bool("skip-bcrypt", false, "Store plaintext passwords for fast reseeds (logins will not work)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if *shouldClean {
		if err := seed.ClearAll(db); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	err = seed.Run(db, seed.Options{
		Users:      *numUsers,
		Posts:      *numPosts,
		Comments:   *numComments,
		SkipBcrypt: *skipBcrypt,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Done. Seeded accounts log in with the password: password123")
}
