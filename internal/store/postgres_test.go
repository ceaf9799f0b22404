package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/PratikDhanave/sprintbot/internal/models"
)

// openTestStore connects to DB_URL or skips.
func openTestStore(t *testing.T) *PostgresStore {
	t.Helper()
	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		t.Skip("DB_URL not set")
	}
	ctx := context.Background()
	st, err := NewPostgresStore(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(st.Close)
	if err := st.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}
	// Twice: the schema must be re-runnable.
	if err := st.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema rerun: %v", err)
	}
	return st
}

func TestInsertInteraction_Idempotent(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	user := "test-" + uuid.NewString()
	in := models.Interaction{
		EventKey:  "Ev-" + uuid.NewString(),
		ChannelID: "C1",
		UserID:    user,
		Text:      "Show me my tickets",
		Intent:    models.IntentGetMyTickets,
		Reply:     "No tickets assigned to you.",
	}

	inserted, err := st.InsertInteraction(ctx, in)
	if err != nil || !inserted {
		t.Fatalf("first insert: inserted=%v err=%v", inserted, err)
	}
	inserted, err = st.InsertInteraction(ctx, in)
	if err != nil || inserted {
		t.Fatalf("duplicate insert: inserted=%v err=%v", inserted, err)
	}

	later := in
	later.EventKey = "Ev-" + uuid.NewString()
	later.Intent = models.IntentBotCapabilities
	later.CreatedAt = time.Now().UTC().Add(time.Minute)
	if _, err := st.InsertInteraction(ctx, later); err != nil {
		t.Fatalf("second insert: %v", err)
	}

	got, err := st.RecentInteractions(ctx, user, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 || got[0].Intent != models.IntentBotCapabilities || got[1].EventKey != in.EventKey {
		t.Fatalf("unexpected history %+v", got)
	}
}

func TestInsertInteraction_Validation(t *testing.T) {
	st := &PostgresStore{}
	if _, err := st.InsertInteraction(context.Background(), models.Interaction{}); err == nil {
		t.Fatal("expected validation error")
	}
}
