package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/creaotrhubn26/wedflow-sub006/internal/domain"
	"github.com/creaotrhubn26/wedflow-sub006/internal/repo"
	"github.com/creaotrhubn26/wedflow-sub006/internal/search"
)

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "services_test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// recordedNotifier captures broadcasts for assertions.
type recordedNotifier struct {
	mu       sync.Mutex
	messages []string // conversation IDs
	typing   []string // "conversationID/sender"
}

func (n *recordedNotifier) BroadcastMessage(conversationID string, _ any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, conversationID)
}

func (n *recordedNotifier) BroadcastTyping(conversationID, sender string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.typing = append(n.typing, conversationID+"/"+sender)
}

func strPtr(s string) *string { return &s }
func intPtr(v int) *int       { return &v }

func seedCouple(t *testing.T, db *gorm.DB, id string, estimate *int) {
	t.Helper()
	c := &domain.Couple{ID: id, DisplayName: "Test Couple", GuestEstimate: estimate}
	if err := repo.CreateCouple(context.Background(), db, c); err != nil {
		t.Fatalf("seed couple: %v", err)
	}
}

func seedVendor(t *testing.T, db *gorm.DB, v *domain.Vendor) {
	t.Helper()
	if err := repo.CreateVendor(context.Background(), db, v); err != nil {
		t.Fatalf("seed vendor: %v", err)
	}
}

// ----- MatchService -----

func TestMatchesRejectsUnknownCategory(t *testing.T) {
	svc := NewMatchService(newServiceDB(t))
	if _, err := svc.Matches(context.Background(), "c1", MatchQuery{Category: "plumbing"}); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("err = %v, want ErrInvalidCategory", err)
	}
}

func TestMatchesVenueCapacityFromProductEnvelope(t *testing.T) {
	db := newServiceDB(t)
	svc := NewMatchService(db)

	seedVendor(t, db, &domain.Vendor{
		ID:           "v1",
		BusinessName: "Herregården",
		CategoryID:   strPtr("venue"),
		Products: []domain.VendorProduct{
			{ID: "p1", Name: "Lillesal", VenueMinGuests: intPtr(20), VenueMaxGuests: intPtr(60)},
			{ID: "p2", Name: "Storsal", VenueMinGuests: intPtr(50), VenueMaxGuests: intPtr(200)},
		},
	})

	got, err := svc.Matches(context.Background(), "nobody", MatchQuery{Category: "venue", GuestCount: intPtr(150)})
	if err != nil {
		t.Fatalf("Matches: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	// 150 guests fit inside the 20..200 envelope: base 50 + capacity 30.
	if got[0].Score != 80 {
		t.Fatalf("score = %d, want 80", got[0].Score)
	}
}

func TestMatchesGuestCountPrecedence(t *testing.T) {
	ctx := context.Background()
	db := newServiceDB(t)
	svc := NewMatchService(db)

	// Venue that only fits small parties; scoring tells us which count won.
	seedVendor(t, db, &domain.Vendor{
		ID:           "v-small",
		BusinessName: "Lite lokale",
		CategoryID:   strPtr("venue"),
		Products: []domain.VendorProduct{
			{ID: "p1", Name: "Sal", VenueMinGuests: intPtr(1), VenueMaxGuests: intPtr(30)},
		},
	})

	seedCouple(t, db, "c1", intPtr(25))

	// Stored estimate (25) fits → capacity bonus.
	got, err := svc.Matches(ctx, "c1", MatchQuery{Category: "venue"})
	if err != nil {
		t.Fatalf("Matches: %v", err)
	}
	if got[0].Score != 80 {
		t.Fatalf("stored estimate: score = %d, want 80", got[0].Score)
	}

	// 40 confirmed guests → ceil(40*1.1)=44 > 30 → no capacity bonus,
	// overriding the stored estimate.
	for i := 0; i < 40; i++ {
		if _, err := repo.CreateGuest(ctx, db, "c1", "gjest", domain.GuestConfirmed); err != nil {
			t.Fatalf("seed guest: %v", err)
		}
	}
	got, err = svc.Matches(ctx, "c1", MatchQuery{Category: "venue"})
	if err != nil {
		t.Fatalf("Matches: %v", err)
	}
	if got[0].Score != 50 {
		t.Fatalf("confirmed estimate: score = %d, want 50", got[0].Score)
	}

	// Explicit override beats both.
	got, err = svc.Matches(ctx, "c1", MatchQuery{Category: "venue", GuestCount: intPtr(10)})
	if err != nil {
		t.Fatalf("Matches: %v", err)
	}
	if got[0].Score != 80 {
		t.Fatalf("override: score = %d, want 80", got[0].Score)
	}
}

func TestMatchesUnknownCoupleUsesQueryOnly(t *testing.T) {
	db := newServiceDB(t)
	svc := NewMatchService(db)

	seedVendor(t, db, &domain.Vendor{
		ID:           "v1",
		BusinessName: "Fotografen",
		CategoryID:   strPtr("photographer"),
		Location:     strPtr("Bergen sentrum"),
	})

	got, err := svc.Matches(context.Background(), "ghost", MatchQuery{
		Category: "photographer",
		Location: strPtr("Bergen"),
	})
	if err != nil {
		t.Fatalf("Matches: %v", err)
	}
	// base 50 + location 25; no guest count, so no event-size bonus
	if got[0].Score != 75 {
		t.Fatalf("score = %d, want 75", got[0].Score)
	}
}

// ----- VendorService -----

func TestVendorSearchValidation(t *testing.T) {
	db := newServiceDB(t)
	svc := &VendorService{DB: db, Index: search.NewIndexFromVendors(nil)}

	if _, err := svc.Search(context.Background(), "   ", 3); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("err = %v, want ErrEmptyQuery", err)
	}

	got, err := svc.Search(context.Background(), "blomster", 3)
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("empty index: %v (%v)", got, err)
	}
}

func TestVendorSearchCapsK(t *testing.T) {
	vendors := make([]domain.Vendor, 0, 5)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		vendors = append(vendors, domain.Vendor{ID: id, BusinessName: "Blomster " + id})
	}
	svc := &VendorService{Index: search.NewIndexFromVendors(vendors), MaxResults: 2}

	got, err := svc.Search(context.Background(), "blomster", 50)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
}

func TestVendorGetNotFound(t *testing.T) {
	svc := &VendorService{DB: newServiceDB(t)}
	if _, err := svc.Get(context.Background(), "missing"); !errors.Is(err, ErrVendorNotFound) {
		t.Fatalf("err = %v, want ErrVendorNotFound", err)
	}
}

// ----- ConversationService -----

func TestStartConversationIdempotent(t *testing.T) {
	ctx := context.Background()
	db := newServiceDB(t)
	svc := &ConversationService{DB: db}

	seedVendor(t, db, &domain.Vendor{ID: "v1", BusinessName: "Fotografen"})

	first, err := svc.Start(ctx, "c1", "v1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	second, err := svc.Start(ctx, "c1", "v1")
	if err != nil {
		t.Fatalf("Start again: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected the same thread, got %s and %s", first.ID, second.ID)
	}

	if _, err := svc.Start(ctx, "c1", "no-vendor"); !errors.Is(err, ErrVendorNotFound) {
		t.Fatalf("err = %v, want ErrVendorNotFound", err)
	}
}

func TestConversationOwnership(t *testing.T) {
	ctx := context.Background()
	db := newServiceDB(t)
	svc := &ConversationService{DB: db}

	seedVendor(t, db, &domain.Vendor{ID: "v1", BusinessName: "Fotografen"})
	conv, _ := svc.Start(ctx, "c1", "v1")

	if _, err := svc.Get(ctx, "c2", conv.ID); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("err = %v, want ErrConversationNotFound", err)
	}

	items, total, err := svc.ListPage(ctx, "c2", 1, 20)
	if err != nil || total != 0 || len(items) != 0 {
		t.Fatalf("foreign couple list: %v %d (%v)", items, total, err)
	}
}

// ----- MessageService -----

func newMessageFixture(t *testing.T) (*MessageService, *recordedNotifier, string) {
	t.Helper()
	db := newServiceDB(t)
	seedVendor(t, db, &domain.Vendor{ID: "v1", BusinessName: "Fotografen"})
	conv, err := repo.CreateConversation(context.Background(), db, "c1", "v1")
	if err != nil {
		t.Fatalf("seed conversation: %v", err)
	}
	hub := &recordedNotifier{}
	svc := &MessageService{DB: db, Hub: hub, MaxBodyRunes: 50}
	return svc, hub, conv.ID
}

func TestSendValidatesAndBroadcasts(t *testing.T) {
	ctx := context.Background()
	svc, hub, convID := newMessageFixture(t)

	if _, _, err := svc.Send(ctx, "c1", SendInput{ConversationID: convID, Body: "   "}); !errors.Is(err, ErrEmptyBody) {
		t.Fatalf("err = %v, want ErrEmptyBody", err)
	}
	long := make([]byte, 60)
	for i := range long {
		long[i] = 'x'
	}
	if _, _, err := svc.Send(ctx, "c1", SendInput{ConversationID: convID, Body: string(long)}); !errors.Is(err, ErrTooLong) {
		t.Fatalf("err = %v, want ErrTooLong", err)
	}
	if _, _, err := svc.Send(ctx, "c1", SendInput{ConversationID: "nope", Body: "hei"}); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("err = %v, want ErrConversationNotFound", err)
	}
	// Foreign couple cannot post into the thread.
	if _, _, err := svc.Send(ctx, "c2", SendInput{ConversationID: convID, Body: "hei"}); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("err = %v, want ErrConversationNotFound", err)
	}

	msg, replayed, err := svc.Send(ctx, "c1", SendInput{ConversationID: convID, Body: " hei "})
	if err != nil || replayed {
		t.Fatalf("Send: %v replayed=%v", err, replayed)
	}
	if msg.Body != "hei" || msg.SenderType != domain.SenderCouple || msg.SenderID != "c1" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if len(hub.messages) != 1 || hub.messages[0] != convID {
		t.Fatalf("broadcasts = %v", hub.messages)
	}
}

func TestSendIdempotentReplay(t *testing.T) {
	ctx := context.Background()
	svc, hub, convID := newMessageFixture(t)

	in := SendInput{ConversationID: convID, Body: "hei", IdempotencyKey: "key-1"}
	first, replayed, err := svc.Send(ctx, "c1", in)
	if err != nil || replayed {
		t.Fatalf("first send: %v replayed=%v", err, replayed)
	}

	second, replayed, err := svc.Send(ctx, "c1", in)
	if err != nil {
		t.Fatalf("second send: %v", err)
	}
	if !replayed || second.ID != first.ID {
		t.Fatalf("replay expected, got replayed=%v id=%s want %s", replayed, second.ID, first.ID)
	}
	// Only the first send reached the hub.
	if len(hub.messages) != 1 {
		t.Fatalf("broadcasts = %v", hub.messages)
	}

	// A different key inserts a fresh message.
	third, replayed, err := svc.Send(ctx, "c1", SendInput{ConversationID: convID, Body: "hei", IdempotencyKey: "key-2"})
	if err != nil || replayed || third.ID == first.ID {
		t.Fatalf("fresh key: %v replayed=%v id=%s", err, replayed, third.ID)
	}
}

func TestEditAndDeleteOwnership(t *testing.T) {
	ctx := context.Background()
	svc, hub, convID := newMessageFixture(t)

	msg, _, err := svc.Send(ctx, "c1", SendInput{ConversationID: convID, Body: "hei"})
	if err != nil {
		t.Fatalf("seed send: %v", err)
	}
	vendorMsg, err := repo.CreateMessage(ctx, svc.DB, convID, domain.SenderVendor, "v1", "hallo", nil, nil)
	if err != nil {
		t.Fatalf("seed vendor message: %v", err)
	}

	edited, err := svc.Edit(ctx, "c1", msg.ID, "hei igjen")
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if edited.Body != "hei igjen" || edited.EditedAt == nil {
		t.Fatalf("edit not applied: %+v", edited)
	}
	if len(hub.messages) != 2 { // send + edit
		t.Fatalf("broadcasts = %v", hub.messages)
	}

	// The couple cannot edit or delete the vendor's message.
	if _, err := svc.Edit(ctx, "c1", vendorMsg.ID, "x"); !errors.Is(err, ErrForbiddenMessage) {
		t.Fatalf("err = %v, want ErrForbiddenMessage", err)
	}
	if err := svc.Delete(ctx, "c1", vendorMsg.ID); !errors.Is(err, ErrForbiddenMessage) {
		t.Fatalf("err = %v, want ErrForbiddenMessage", err)
	}

	// A foreign couple sees neither message.
	if _, err := svc.Edit(ctx, "c2", msg.ID, "x"); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("err = %v, want ErrMessageNotFound", err)
	}

	if err := svc.Delete(ctx, "c1", msg.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, "c1", msg.ID); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("second delete err = %v, want ErrMessageNotFound", err)
	}
}

func TestListPageAndTyping(t *testing.T) {
	ctx := context.Background()
	svc, hub, convID := newMessageFixture(t)

	for _, body := range []string{"en", "to", "tre"} {
		if _, _, err := svc.Send(ctx, "c1", SendInput{ConversationID: convID, Body: body}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	items, total, err := svc.ListPage(ctx, "c1", convID, 2, 2)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if total != 3 || len(items) != 1 || items[0].Body != "tre" {
		t.Fatalf("page = %+v total = %d", items, total)
	}

	if _, _, err := svc.ListPage(ctx, "c2", convID, 1, 20); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("err = %v, want ErrConversationNotFound", err)
	}

	if err := svc.Typing(ctx, "c1", convID); err != nil {
		t.Fatalf("Typing: %v", err)
	}
	if len(hub.typing) != 1 || hub.typing[0] != convID+"/"+domain.SenderCouple {
		t.Fatalf("typing broadcasts = %v", hub.typing)
	}
	if err := svc.Typing(ctx, "c2", convID); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("err = %v, want ErrConversationNotFound", err)
	}
}

func TestSendReplayAfterOriginalDeleted(t *testing.T) {
	ctx := context.Background()
	svc, _, convID := newMessageFixture(t)

	in := SendInput{ConversationID: convID, Body: "hei", IdempotencyKey: "key-1"}
	first, _, err := svc.Send(ctx, "c1", in)
	if err != nil {
		t.Fatalf("first send: %v", err)
	}
	if err := svc.Delete(ctx, "c1", first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// With the original gone the key no longer replays; the unique index
	// still blocks a second insert under the same key.
	_, _, err = svc.Send(ctx, "c1", in)
	if !errors.Is(err, repo.ErrDuplicate) {
		t.Fatalf("err = %v, want repo.ErrDuplicate", err)
	}
}
