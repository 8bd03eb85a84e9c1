package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ibtikar/ibtikar-backend/internal/applications"
	"github.com/ibtikar/ibtikar-backend/internal/authprovider"
	"github.com/ibtikar/ibtikar-backend/internal/database"
	"github.com/ibtikar/ibtikar-backend/internal/gateway"
	"github.com/ibtikar/ibtikar-backend/internal/guard"
	"github.com/ibtikar/ibtikar-backend/internal/identity"
	"github.com/ibtikar/ibtikar-backend/internal/messages"
	"github.com/ibtikar/ibtikar-backend/internal/projects"
	"github.com/ibtikar/ibtikar-backend/internal/session"
)

// Seeds a database with demo accounts and marketplace data so the frontend
// has something to render. Safe to re-run; duplicate accounts are skipped.
func main() {
	ctx := context.Background()

	var gw gateway.Gateway
	if uri := os.Getenv("MONGODB_URI"); uri != "" {
		client, err := database.ConnectMongo(ctx, uri, 10*time.Second, 3, time.Second)
		if err != nil {
			log.Fatalf("cannot connect to MongoDB: %v", err)
		}
		defer func() { _ = client.Disconnect(ctx) }()
		dbName := os.Getenv("MONGODB_DATABASE")
		if dbName == "" {
			dbName = "ibtikar"
		}
		gw = gateway.NewMongo(client.Database(dbName))
	} else {
		log.Printf("warning: MONGODB_URI not set; seeding an in-memory gateway is a dry run")
		gw = gateway.NewMemory()
	}

	if err := run(ctx, gw); err != nil {
		log.Fatalf("seed: %v", err)
	}
}

// run provisions the demo users through the session store, then seeds the
// marketplace documents as the resulting identities.
func run(ctx context.Context, gw gateway.Gateway) error {
	store := session.NewStore(gw, authprovider.NewLocal(gw))
	defer store.Close()

	company, err := seedUser(ctx, store, "hello@waves.example", "Waves Media", identity.RoleCompany, gateway.Document{
		"companySize": "11-50",
		"industry":    "media production",
	})
	if err != nil {
		return err
	}
	creator, err := seedUser(ctx, store, "maha@creators.example", "Maha", identity.RoleCreator, gateway.Document{
		"bio":    "Motion designer and editor.",
		"skills": []string{"editing", "motion", "color"},
	})
	if err != nil {
		return err
	}
	if company == nil || creator == nil {
		log.Printf("demo users already present; skipping marketplace seed")
		return nil
	}

	projectsSvc := projects.NewService(gw)
	p, err := projectsSvc.Create(ctx, company, projects.CreateInput{
		Title:       "Product launch reel",
		Description: "A 60 second launch reel for our spring campaign.",
		Budget:      7500,
		Deadline:    time.Now().Add(30 * 24 * time.Hour),
		Skills:      []string{"editing", "motion"},
	})
	if err != nil {
		return fmt.Errorf("seed project: %w", err)
	}

	applicationsSvc := applications.NewService(gw, projectsSvc)
	if _, err := applicationsSvc.Apply(ctx, creator, p.ID, "I have shipped a dozen launch reels; portfolio on request."); err != nil {
		return fmt.Errorf("seed application: %w", err)
	}

	messagesSvc := messages.NewService(gw)
	if _, err := messagesSvc.Send(ctx, company, creator.ID, "Thanks for applying, your reel looks great."); err != nil {
		return fmt.Errorf("seed message: %w", err)
	}

	if err := store.Logout(ctx); err != nil {
		return fmt.Errorf("seed logout: %w", err)
	}
	log.Printf("seeded company=%s creator=%s project=%s", company.ID, creator.ID, p.ID)
	return nil
}

// seedUser registers and fills in one demo profile. A nil identity with a nil
// error means the account already exists from an earlier run.
func seedUser(ctx context.Context, store *session.Store, email, name string, role identity.Role, extra gateway.Document) (*identity.Identity, error) {
	if err := store.Register(ctx, email, "demo-password-1", role); err != nil {
		if authprovider.IsAuthError(err) {
			log.Printf("account %s: %v", email, err)
			return nil, nil
		}
		return nil, fmt.Errorf("register %s: %w", email, err)
	}
	if d := guard.Check(store.Snapshot()); d != guard.Allow {
		return nil, fmt.Errorf("register %s: expected an authenticated session, got %v", email, d)
	}

	profile := gateway.Document{"displayName": name}
	for k, v := range extra {
		profile[k] = v
	}
	if err := store.UpdateProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("profile for %s: %w", email, err)
	}
	return store.Current()
}
