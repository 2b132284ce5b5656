// Command seed fills a development database with demo users and posts.
package main

import (
	"context"
	"flag"
	"log"

	"postgate/internal/config"
	"postgate/internal/database"
	"postgate/internal/middleware"
	"postgate/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 30, "Number of users to create")
	postsPerUser := flag.Int("posts", 5, "Number of posts per user")
	shouldClean := flag.Bool("clean", true, "Clean users and posts before seeding")
	seedValue := flag.Int64("seed", 0, "Random seed for repeatable content (0 = random)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}
	middleware.ConfigureLogger(cfg.Env, cfg.DBEcho)

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	res, err := seed.NewSeeder(db).Run(ctx, seed.Options{
		NumUsers:     *numUsers,
		PostsPerUser: *postsPerUser,
		ShouldClean:  *shouldClean,
		Seed:         *seedValue,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d users and %d posts", res.Users, res.Posts)
	log.Printf("All seeded users have the password: %s", seed.DemoPassword)
}
