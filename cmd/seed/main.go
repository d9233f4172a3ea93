// Command seed wipes the blog collections and fills them with sample data.
package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackwatters45/blog-api/config"
	"github.com/jackwatters45/blog-api/database"
	"github.com/jackwatters45/blog-api/logger"
	"github.com/jackwatters45/blog-api/models"
	"golang.org/x/crypto/bcrypt"
)

const samplePassword = "password"

type sampleUser struct {
	first, last, username string
	role                  models.Role
}

var sampleUsers = []sampleUser{
	{"John", "Watters", "johnwatters", models.RoleAdmin},
	{"Jane", "Doe", "janedoe", models.RoleUser},
	{"Alice", "Johnson", "alicejohnson", models.RoleUser},
	{"Bob", "Smith", "bobsmith", models.RoleUser},
}

var sampleTopics = []string{"Programming", "Travel", "Cooking", "Science"}

var filler = strings.Repeat("The quick brown fox jumps over the lazy dog while the byline waits for the editor. ", 4)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Error.Fatalf("connect: %v", err)
	}
	defer store.Disconnect()

	if err := seed(ctx, store); err != nil {
		logger.Error.Fatalf("Error populating the database: %v", err)
	}
	logger.Info.Println("Database populated successfully.")
}

func seed(ctx context.Context, store *database.Store) error {
	if err := store.DropAll(ctx); err != nil {
		return fmt.Errorf("drop: %w", err)
	}
	if err := store.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("indexes: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(samplePassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	users := make([]*models.User, 0, len(sampleUsers))
	for _, su := range sampleUsers {
		u := models.NewUser(su.first, su.last, su.username+"@example.com", su.username, string(hash), su.role)
		if err := store.CreateUser(ctx, u); err != nil {
			return fmt.Errorf("user %s: %w", su.username, err)
		}
		users = append(users, u)
	}
	logger.Info.Printf("Created %d users (password %q)", len(users), samplePassword)

	topics := make([]*models.Topic, 0, len(sampleTopics))
	for _, name := range sampleTopics {
		t := models.NewTopic(name)
		if err := store.CreateTopic(ctx, t); err != nil {
			return fmt.Errorf("topic %s: %w", name, err)
		}
		topics = append(topics, t)
	}
	logger.Info.Printf("Created %d topics", len(topics))

	var posts []*models.Post
	for i, author := range users {
		for j, topic := range topics {
			title := fmt.Sprintf("%s notes, part %d", topic.Name, i+1)
			p := models.NewPost(author.ID, topic.ID, title, filler, j != len(topics)-1)
			if err := store.CreatePost(ctx, p); err != nil {
				return fmt.Errorf("post %q: %w", title, err)
			}
			posts = append(posts, p)
		}
	}
	logger.Info.Printf("Created %d posts", len(posts))

	for i, p := range posts {
		reader := users[(i+1)%len(users)]
		top := models.NewComment(reader.ID, p.ID, fmt.Sprintf("Sample comment %d", i+1), models.TopLevel{})
		if err := store.CreateComment(ctx, top); err != nil {
			return fmt.Errorf("comment: %w", err)
		}
		reply := models.NewComment(p.Author, p.ID, "Thanks for reading!", models.Reply{Parent: top.ID})
		if err := store.CreateComment(ctx, reply); err != nil {
			return fmt.Errorf("reply: %w", err)
		}
		if p.Published {
			if _, err := store.LikePost(ctx, p.ID, reader.ID); err != nil {
				return fmt.Errorf("like: %w", err)
			}
		}
	}

	for i, u := range users {
		target := users[(i+1)%len(users)]
		if err := store.Follow(ctx, u.ID, target.ID); err != nil {
			return fmt.Errorf("follow: %w", err)
		}
	}
	logger.Info.Println("Created comments, likes and follows")
	return nil
}
