// Command main runs the database seeder for Inkwell.
package main

import (
	"flag"
	"log"

	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/middleware"
	"inkwell/internal/seed"

	"github.com/joho/godotenv"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	postsPerUser := flag.Int("posts", 5, "Number of posts per user")
	commentsPerPost := flag.Int("comments", 3, "Number of comments per published post")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	categoriesOnly := flag.Bool("categories-only", false, "Only ensure the default categories exist")
	randSeed := flag.Int64("seed", 0, "Random seed for reproducible data (0 = time based)")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	middleware.InitLogger(middleware.LogOptions{Env: cfg.Env, Level: cfg.LogLevel})

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if *categoriesOnly {
		if err := seed.Categories(db); err != nil {
			log.Fatalf("Category seeding failed: %v", err)
		}
		log.Println("Default categories ensured.")
		return
	}

	res, err := seed.Seed(db, seed.Options{
		NumUsers:        *numUsers,
		PostsPerUser:    *postsPerUser,
		CommentsPerPost: *commentsPerPost,
		ShouldClean:     *shouldClean,
		Factory:         seed.FactoryOptions{Seed: *randSeed},
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d users, %d posts, %d comments, %d likes.", res.Users, res.Posts, res.Comments, res.Likes)
	log.Printf("All seeded users have the password: %s", seed.DemoPassword)
}
