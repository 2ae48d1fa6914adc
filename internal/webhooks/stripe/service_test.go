package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v84"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nochance19900208-source/Real-Estate/internal/subscriptions"
	"github.com/nochance19900208-source/Real-Estate/internal/users"
	"github.com/nochance19900208-source/Real-Estate/pkg/logger"
)

type fakeSubStore struct {
	byStripeID map[string]*subscriptions.Subscription
	inserted   []*subscriptions.Subscription
	updates    map[string]bson.M
}

func newFakeSubStore() *fakeSubStore {
	return &fakeSubStore{
		byStripeID: map[string]*subscriptions.Subscription{},
		updates:    map[string]bson.M{},
	}
}

func (f *fakeSubStore) Insert(_ context.Context, sub *subscriptions.Subscription) error {
	sub.ID = primitive.NewObjectID()
	f.inserted = append(f.inserted, sub)
	f.byStripeID[sub.StripeSubscriptionID] = sub
	return nil
}

func (f *fakeSubStore) ByStripeID(_ context.Context, stripeID string) (*subscriptions.Subscription, error) {
	sub, ok := f.byStripeID[stripeID]
	if !ok {
		return nil, subscriptions.ErrNotFound
	}
	return sub, nil
}

func (f *fakeSubStore) UpdateFields(_ context.Context, id primitive.ObjectID, fields bson.M) error {
	f.updates[id.Hex()] = fields
	return nil
}

func (f *fakeSubStore) UpdateFieldsByStripeID(_ context.Context, stripeID string, fields bson.M) error {
	f.updates[stripeID] = fields
	return nil
}

type fakeUserDir struct {
	byCustomer map[string]*users.User
}

func (f *fakeUserDir) GetByStripeCustomerID(_ context.Context, customerID string) (*users.User, error) {
	u, ok := f.byCustomer[customerID]
	if !ok {
		return nil, users.ErrNotFound
	}
	return u, nil
}

type fakeStripeLookup struct {
	list          []subscriptions.ProviderSubscription
	listErr       error
	invoiceSubID  string
	subCustomer   string
	customerEmail string
}

func (f *fakeStripeLookup) GetSubscription(_ context.Context, id string) (*subscriptions.ProviderSubscription, error) {
	return &subscriptions.ProviderSubscription{ID: id, Status: "active", Customer: f.subCustomer}, nil
}

func (f *fakeStripeLookup) ListSubscriptions(_ context.Context, _ string, _ int64) ([]subscriptions.ProviderSubscription, error) {
	return f.list, f.listErr
}

func (f *fakeStripeLookup) InvoiceSubscriptionID(_ context.Context, _ string) (string, error) {
	return f.invoiceSubID, nil
}

func (f *fakeStripeLookup) CustomerEmail(_ context.Context, _ string) (string, error) {
	return f.customerEmail, nil
}

func newTestWebhookService(t *testing.T, store *fakeSubStore, dir *fakeUserDir, lookup *fakeStripeLookup, now time.Time) *Service {
	t.Helper()
	if dir == nil {
		dir = &fakeUserDir{byCustomer: map[string]*users.User{}}
	}
	svc, err := NewService(ServiceParams{
		Subscriptions: store,
		Users:         dir,
		Stripe:        lookup,
		Logger:        logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Now:           func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func event(t *testing.T, eventType stripe.EventType, payload any) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return &stripe.Event{
		ID:   "evt_test",
		Type: eventType,
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestPaymentSucceededExtendsExistingRecord(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeSubStore()
	sub := &subscriptions.Subscription{
		ID:                   primitive.NewObjectID(),
		StripeSubscriptionID: "sub_1",
		Status:               subscriptions.StatusInactive,
	}
	store.byStripeID["sub_1"] = sub
	svc := newTestWebhookService(t, store, nil, &fakeStripeLookup{}, now)

	evt := event(t, stripe.EventTypePaymentIntentCreated, map[string]any{
		"id":           "in_1",
		"subscription": "sub_1",
	})
	if err := svc.HandleEvent(context.Background(), evt); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	fields := store.updates[sub.ID.Hex()]
	if fields == nil {
		t.Fatal("expected an update")
	}
	if fields["status"] != subscriptions.StatusActive {
		t.Fatalf("status = %v, want active", fields["status"])
	}
	if got, want := fields["ends_at"].(time.Time), now.Add(30*24*time.Hour); !got.Equal(want) {
		t.Fatalf("ends_at = %v, want %v", got, want)
	}
}

func TestPaymentSucceededResolvesViaCustomerList(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeSubStore()
	sub := &subscriptions.Subscription{
		ID:                   primitive.NewObjectID(),
		StripeSubscriptionID: "sub_active",
	}
	store.byStripeID["sub_active"] = sub
	lookup := &fakeStripeLookup{list: []subscriptions.ProviderSubscription{
		{ID: "sub_old", Status: "canceled"},
		{ID: "sub_active", Status: "active"},
	}}
	svc := newTestWebhookService(t, store, nil, lookup, now)

	evt := event(t, stripe.EventTypePaymentIntentCreated, map[string]any{
		"id":       "pi_1",
		"customer": "cus_1",
	})
	if err := svc.HandleEvent(context.Background(), evt); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if store.updates[sub.ID.Hex()] == nil {
		t.Fatal("expected the active customer subscription to be extended")
	}
}

func TestPaymentSucceededSynthesizesMissingRecord(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeSubStore()
	dir := &fakeUserDir{byCustomer: map[string]*users.User{
		"cus_1": {Email: "known@example.com"},
	}}
	lookup := &fakeStripeLookup{subCustomer: "cus_1"}
	svc := newTestWebhookService(t, store, dir, lookup, now)

	evt := event(t, stripe.EventTypePaymentIntentCreated, map[string]any{
		"id":           "in_1",
		"subscription": "sub_new",
	})
	if err := svc.HandleEvent(context.Background(), evt); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	if len(store.inserted) != 1 {
		t.Fatalf("expected one synthesized record, got %d", len(store.inserted))
	}
	got := store.inserted[0]
	if got.UserEmail != "known@example.com" {
		t.Fatalf("user_email = %q", got.UserEmail)
	}
	if got.Status != subscriptions.StatusActive || got.Plan != subscriptions.PlanPremium {
		t.Fatalf("unexpected record: %+v", got)
	}
	if !got.EndsAt.Equal(now.Add(30 * 24 * time.Hour)) {
		t.Fatalf("ends_at = %v", got.EndsAt)
	}
}

func TestPaymentSucceededFallsBackToStripeCustomerEmail(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeSubStore()
	lookup := &fakeStripeLookup{subCustomer: "cus_unknown", customerEmail: "stripe@example.com"}
	svc := newTestWebhookService(t, store, nil, lookup, now)

	evt := event(t, stripe.EventTypePaymentIntentCreated, map[string]any{
		"id":           "in_1",
		"subscription": "sub_new",
	})
	if err := svc.HandleEvent(context.Background(), evt); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(store.inserted) != 1 || store.inserted[0].UserEmail != "stripe@example.com" {
		t.Fatalf("unexpected inserts: %+v", store.inserted)
	}
}

func TestPaymentSucceededSkipsWhenUnresolvable(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeSubStore()
	svc := newTestWebhookService(t, store, nil, &fakeStripeLookup{}, now)

	evt := event(t, stripe.EventTypePaymentIntentCreated, map[string]any{})
	if err := svc.HandleEvent(context.Background(), evt); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(store.inserted) != 0 || len(store.updates) != 0 {
		t.Fatal("expected no writes for an unresolvable payment event")
	}
}

func TestPaymentFailedDeactivates(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeSubStore()
	sub := &subscriptions.Subscription{
		ID:                   primitive.NewObjectID(),
		StripeSubscriptionID: "sub_1",
		Status:               subscriptions.StatusActive,
	}
	store.byStripeID["sub_1"] = sub
	svc := newTestWebhookService(t, store, nil, &fakeStripeLookup{}, now)

	evt := event(t, stripe.EventTypeInvoicePaymentFailed, map[string]any{
		"id":           "in_1",
		"subscription": "sub_1",
	})
	if err := svc.HandleEvent(context.Background(), evt); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	fields := store.updates[sub.ID.Hex()]
	if fields == nil || fields["status"] != subscriptions.StatusInactive {
		t.Fatalf("unexpected update: %v", fields)
	}
	if !fields["ends_at"].(time.Time).Equal(now) {
		t.Fatalf("ends_at = %v, want %v", fields["ends_at"], now)
	}
}

func TestSubscriptionDeletedUsesCanceledAt(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	canceledAt := time.Date(2026, 5, 20, 9, 0, 0, 0, time.UTC)
	store := newFakeSubStore()
	svc := newTestWebhookService(t, store, nil, &fakeStripeLookup{}, now)

	evt := event(t, stripe.EventTypeCustomerSubscriptionDeleted, map[string]any{
		"id":          "sub_1",
		"canceled_at": canceledAt.Unix(),
	})
	if err := svc.HandleEvent(context.Background(), evt); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	fields := store.updates["sub_1"]
	if fields == nil || fields["status"] != subscriptions.StatusCancelled {
		t.Fatalf("unexpected update: %v", fields)
	}
	if !fields["ends_at"].(time.Time).Equal(canceledAt) {
		t.Fatalf("ends_at = %v, want %v", fields["ends_at"], canceledAt)
	}
}

func TestSubscriptionUpdatedReactsOnlyToScheduledCancel(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	cancelAt := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	store := newFakeSubStore()
	svc := newTestWebhookService(t, store, nil, &fakeStripeLookup{}, now)

	evt := event(t, stripe.EventTypeCustomerSubscriptionUpdated, map[string]any{"id": "sub_1"})
	if err := svc.HandleEvent(context.Background(), evt); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(store.updates) != 0 {
		t.Fatal("update without cancel_at must not write")
	}

	evt = event(t, stripe.EventTypeCustomerSubscriptionUpdated, map[string]any{
		"id":        "sub_1",
		"cancel_at": cancelAt.Unix(),
	})
	if err := svc.HandleEvent(context.Background(), evt); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	fields := store.updates["sub_1"]
	if fields == nil || fields["status"] != subscriptions.StatusCancelled {
		t.Fatalf("unexpected update: %v", fields)
	}
	if !fields["ends_at"].(time.Time).Equal(cancelAt) {
		t.Fatalf("ends_at = %v, want %v", fields["ends_at"], cancelAt)
	}
}

func TestUnknownEventTypeIsAcknowledged(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeSubStore()
	svc := newTestWebhookService(t, store, nil, &fakeStripeLookup{}, now)

	evt := event(t, stripe.EventType("charge.refunded"), map[string]any{"id": "ch_1"})
	if err := svc.HandleEvent(context.Background(), evt); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(store.updates) != 0 || len(store.inserted) != 0 {
		t.Fatal("unknown events must not write")
	}
}

type fakeIdemStore struct {
	keys map[string]bool
}

func (f *fakeIdemStore) Get(_ context.Context, _ string) (string, error) { return "", nil }

func (f *fakeIdemStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *fakeIdemStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("test:%s:%s", scope, id)
}

func (f *fakeIdemStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.keys, k)
	}
	return nil
}

func TestIdempotencyGuardDetectsDuplicates(t *testing.T) {
	store := &fakeIdemStore{keys: map[string]bool{}}
	guard, err := NewIdempotencyGuard(store, time.Hour)
	if err != nil {
		t.Fatalf("NewIdempotencyGuard: %v", err)
	}

	dup, err := guard.CheckAndMark(context.Background(), "evt_1")
	if err != nil || dup {
		t.Fatalf("first event should not be a duplicate, dup=%v err=%v", dup, err)
	}
	dup, err = guard.CheckAndMark(context.Background(), "evt_1")
	if err != nil || !dup {
		t.Fatalf("second event should be a duplicate, dup=%v err=%v", dup, err)
	}

	if err := guard.Delete(context.Background(), "evt_1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	dup, err = guard.CheckAndMark(context.Background(), "evt_1")
	if err != nil || dup {
		t.Fatalf("after delete the event should be fresh again, dup=%v err=%v", dup, err)
	}
}
