// seed inserts a development user with one session of sample events, using the first
// release of the catalog. Idempotent: skips when the dev user already has a session.
package main

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"

	"playlog/backend/internal/catalog"
	"playlog/backend/internal/config"
	"playlog/backend/internal/db"
	eventrepo "playlog/backend/internal/event/repository"
	eventservice "playlog/backend/internal/event/service"
	sessionrepo "playlog/backend/internal/session/repository"
	sessionservice "playlog/backend/internal/session/service"
	"playlog/backend/internal/security"
	userrepo "playlog/backend/internal/user/repository"
	userservice "playlog/backend/internal/user/service"
)

const devUsername = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	secret, err := cfg.SessionSecret()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	deriver, err := security.NewSessionKeyDeriver(secret)
	if err != nil {
		log.Fatalf("session keys: %v", err)
	}
	cat, err := catalog.Load(cfg.ReleaseCatalog)
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}
	releases := cat.Releases()
	if len(releases) == 0 {
		log.Fatalf("catalog %s has no releases", cfg.ReleaseCatalog)
	}

	store, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	sessions := sessionrepo.NewSQLRepository(store)

	userID, err := userservice.NewService(userrepo.NewSQLRepository(store)).FindOrCreate(ctx, devUsername)
	if err != nil {
		log.Fatalf("create dev user: %v", err)
	}
	existing, err := sessions.ListByUser(ctx, userID, nil)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if len(existing) > 0 {
		log.Printf("Seed already applied (user %q has sessions). Skipping.", devUsername)
		return
	}

	start := time.Now().UTC()
	sessionID, _, err := sessionservice.NewService(sessions, deriver).Create(ctx, sessionservice.CreateParams{
		UserID:       userID,
		ReleaseID:    releases[0].ID,
		ClientTime:   start,
		LibraryRevID: "seed",
		Detail:       `{"source":"seed"}`,
	})
	if err != nil {
		log.Fatalf("create session: %v", err)
	}

	group := uuid.NewString()
	at := func(d time.Duration) string { return start.Add(d).Format(time.RFC3339Nano) }
	records := []string{
		`{"session_sequence_index":1,"client_time":"` + at(time.Second) + `","type_id":1,"category_id":0,"detail":"{\"screen\":\"title\"}"}`,
		`{"session_sequence_index":2,"client_time":"` + at(2*time.Second) + `","type_id":2,"category_id":1,"detail":"{\"level\":1}","task_start":{"task_id":1,"group_id":"` + group + `"}}`,
		`{"session_sequence_index":3,"client_time":"` + at(3*time.Second) + `","type_id":3,"category_id":1,"detail":"{\"move\":\"left\"}","task_event":{"task_id":1,"task_sequence_index":1}}`,
		`{"session_sequence_index":4,"client_time":"` + at(4*time.Second) + `","type_id":4,"category_id":1,"detail":"{\"result\":\"win\"}","task_event":{"task_id":1,"task_sequence_index":2}}`,
	}
	raw := make([]json.RawMessage, len(records))
	for i, r := range records {
		raw[i] = json.RawMessage(r)
	}
	if err := eventservice.NewService(eventrepo.NewSQLRepository(store)).Ingest(ctx, sessionID, raw); err != nil {
		log.Fatalf("ingest sample events: %v", err)
	}

	log.Printf("Seed complete: user %s (%s), session %s on release %s with %d events.",
		devUsername, userID, sessionID, releases[0].ID, len(records))
}
