package subscriptions

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nochance19900208-source/Real-Estate/internal/users"
	pkgerrors "github.com/nochance19900208-source/Real-Estate/pkg/errors"
	"github.com/nochance19900208-source/Real-Estate/pkg/logger"
)

type fakeStore struct {
	subs    []*Subscription
	updates map[string]bson.M
	failAll bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{updates: map[string]bson.M{}}
}

func (f *fakeStore) Insert(_ context.Context, sub *Subscription) error {
	if f.failAll {
		return errors.New("store down")
	}
	sub.ID = primitive.NewObjectID()
	sub.CreatedAt = time.Now().UTC()
	f.subs = append(f.subs, sub)
	return nil
}

func (f *fakeStore) MostRecentByUser(_ context.Context, userID string) (*Subscription, error) {
	var latest *Subscription
	for _, s := range f.subs {
		if s.UserID != userID {
			continue
		}
		if latest == nil || s.CreatedAt.After(latest.CreatedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

func (f *fakeStore) ActiveByUser(_ context.Context, userID string) (*Subscription, error) {
	for _, s := range f.subs {
		if s.UserID == userID && s.Status == StatusActive {
			return s, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeStore) MostRecentCancelledByUser(_ context.Context, userID string) (*Subscription, error) {
	var latest *Subscription
	for _, s := range f.subs {
		if s.UserID != userID || s.Status != StatusCancelled {
			continue
		}
		if latest == nil || s.CreatedAt.After(latest.CreatedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

func (f *fakeStore) HasUnexpiredAccess(_ context.Context, userID string, now time.Time) (bool, error) {
	for _, s := range f.subs {
		if s.UserID == userID && s.HasAccess(now) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) UpdateFields(_ context.Context, id primitive.ObjectID, fields bson.M) error {
	for _, s := range f.subs {
		if s.ID == id {
			if status, ok := fields["status"].(Status); ok {
				s.Status = status
			}
			f.updates[id.Hex()] = fields
			return nil
		}
	}
	return ErrNotFound
}

type fakeStripe struct {
	customers      map[string]string
	created        []string
	attachErr      error
	createErr      error
	remoteStatus   string
	getErr         error
	cancelCalls    []bool
	cancelErr      error
	nextCustomerID string
	nextSubID      string
}

func newFakeStripe() *fakeStripe {
	return &fakeStripe{
		customers:      map[string]string{},
		remoteStatus:   "active",
		nextCustomerID: "cus_test",
		nextSubID:      "sub_test",
	}
}

func (f *fakeStripe) FindCustomerByEmail(_ context.Context, email string) (string, error) {
	return f.customers[email], nil
}

func (f *fakeStripe) CreateCustomer(_ context.Context, email, _ string) (string, error) {
	f.customers[email] = f.nextCustomerID
	return f.nextCustomerID, nil
}

func (f *fakeStripe) AttachPaymentMethod(_ context.Context, _, token string) (string, error) {
	if f.attachErr != nil {
		return "", f.attachErr
	}
	return "pm_" + token, nil
}

func (f *fakeStripe) SetDefaultPaymentMethod(_ context.Context, _, _ string) error { return nil }

func (f *fakeStripe) EnsureProduct(_ context.Context, _ string) error { return nil }

func (f *fakeStripe) CreateSubscription(_ context.Context, customerID, _ string, _ int64) (*ProviderSubscription, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, customerID)
	return &ProviderSubscription{ID: f.nextSubID, Status: "active", Customer: customerID}, nil
}

func (f *fakeStripe) GetSubscription(_ context.Context, id string) (*ProviderSubscription, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &ProviderSubscription{ID: id, Status: f.remoteStatus}, nil
}

func (f *fakeStripe) SetCancelAtPeriodEnd(_ context.Context, _ string, cancel bool) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelCalls = append(f.cancelCalls, cancel)
	return nil
}

func (f *fakeStripe) ListSubscriptions(_ context.Context, _ string, _ int64) ([]ProviderSubscription, error) {
	return nil, nil
}

func (f *fakeStripe) InvoiceSubscriptionID(_ context.Context, _ string) (string, error) {
	return "", nil
}

func (f *fakeStripe) CustomerEmail(_ context.Context, _ string) (string, error) { return "", nil }

func newTestService(t *testing.T, store *fakeStore, sc *fakeStripe, now time.Time) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Store:     store,
		Stripe:    sc,
		ProductID: "prod_test",
		Logger:    logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Now:       func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func testUser() *users.User {
	return &users.User{
		ID:       primitive.NewObjectID(),
		Email:    "buyer@example.com",
		Name:     "Buyer",
		Role:     "user",
		IsActive: true,
	}
}

func TestChargeThenActivateStoresThirtyDayPeriod(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	sc := newFakeStripe()
	svc := newTestService(t, store, sc, now)
	user := testUser()

	stripeSubID, err := svc.Charge(context.Background(), user.Email, user.Name, "tok_visa")
	if err != nil {
		t.Fatalf("Charge: %v", err)
	}
	if len(store.subs) != 0 {
		t.Fatal("charge alone must not touch the store")
	}

	resp, err := svc.Activate(context.Background(), user, stripeSubID)
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if !resp.Success || resp.SubscriptionID == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if !strings.Contains(resp.Message, "Account created") {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
	if len(store.subs) != 1 {
		t.Fatalf("expected one stored subscription, got %d", len(store.subs))
	}
	sub := store.subs[0]
	if sub.Plan != PlanPremium || sub.Status != StatusActive || sub.PaymentProvider != ProviderStripe {
		t.Fatalf("unexpected record: %+v", sub)
	}
	if sub.StripeSubscriptionID != stripeSubID {
		t.Fatalf("record carries %q, charge returned %q", sub.StripeSubscriptionID, stripeSubID)
	}
	if got, want := sub.EndsAt, now.Add(30*24*time.Hour); !got.Equal(want) {
		t.Fatalf("ends_at = %v, want %v", got, want)
	}
	if len(sc.created) != 1 {
		t.Fatalf("expected one stripe subscription, got %d", len(sc.created))
	}
}

func TestChargeDeclinedLeavesNothingBehind(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	sc := newFakeStripe()
	sc.attachErr = errors.New("card declined")
	svc := newTestService(t, store, sc, now)

	_, err := svc.Charge(context.Background(), "buyer@example.com", "Buyer", "tok_bad")
	if err == nil {
		t.Fatal("expected error")
	}
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.subs) != 0 || len(sc.created) != 0 {
		t.Fatal("declined charge must not create records")
	}
}

func TestCreateForUserRejectsUnexpiredActive(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	sc := newFakeStripe()
	svc := newTestService(t, store, sc, now)
	user := testUser()

	store.subs = append(store.subs, &Subscription{
		ID: primitive.NewObjectID(), UserID: user.PublicID(),
		Status: StatusActive, EndsAt: now.Add(10 * 24 * time.Hour),
	})

	_, err := svc.CreateForUser(context.Background(), user, "tok_visa")
	if err == nil {
		t.Fatal("expected error")
	}
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}
	if appErr.Message() != "You already have an active subscription" {
		t.Fatalf("unexpected message: %q", appErr.Message())
	}
}

func TestCreateForUserAllowsWhenActiveExpired(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	sc := newFakeStripe()
	svc := newTestService(t, store, sc, now)
	user := testUser()

	store.subs = append(store.subs, &Subscription{
		ID: primitive.NewObjectID(), UserID: user.PublicID(),
		Status: StatusActive, EndsAt: now.Add(-24 * time.Hour),
	})

	resp, err := svc.CreateForUser(context.Background(), user, "tok_visa")
	if err != nil {
		t.Fatalf("CreateForUser: %v", err)
	}
	if resp.Message != "Subscription activated successfully!" {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
}

func TestRenewReactivatesCancelledWithoutCharging(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	sc := newFakeStripe()
	svc := newTestService(t, store, sc, now)
	user := testUser()

	sub := &Subscription{
		ID: primitive.NewObjectID(), UserID: user.PublicID(),
		Status: StatusCancelled, StripeSubscriptionID: "sub_old",
		EndsAt: now.Add(5 * 24 * time.Hour), CreatedAt: now.Add(-10 * 24 * time.Hour),
	}
	store.subs = append(store.subs, sub)

	resp, err := svc.Renew(context.Background(), user, "tok_visa")
	if err != nil {
		t.Fatalf("Renew: %v", err)
	}
	if !strings.Contains(resp.Message, "reactivated") {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
	if len(sc.created) != 0 {
		t.Fatal("renew of a cancelled unexpired subscription must not charge")
	}
	if sub.Status != StatusActive {
		t.Fatalf("status = %s, want active", sub.Status)
	}
	if len(sc.cancelCalls) != 1 || sc.cancelCalls[0] {
		t.Fatalf("expected cancel_at_period_end=false call, got %v", sc.cancelCalls)
	}
}

func TestRenewRejectsUnexpiredActive(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	sc := newFakeStripe()
	svc := newTestService(t, store, sc, now)
	user := testUser()

	store.subs = append(store.subs, &Subscription{
		ID: primitive.NewObjectID(), UserID: user.PublicID(),
		Status: StatusActive, EndsAt: now.Add(24 * time.Hour),
	})

	_, err := svc.Renew(context.Background(), user, "tok_visa")
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRenewChargesWhenExpired(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	sc := newFakeStripe()
	svc := newTestService(t, store, sc, now)
	user := testUser()

	store.subs = append(store.subs, &Subscription{
		ID: primitive.NewObjectID(), UserID: user.PublicID(),
		Status: StatusCancelled, EndsAt: now.Add(-time.Hour),
	})

	resp, err := svc.Renew(context.Background(), user, "tok_visa")
	if err != nil {
		t.Fatalf("Renew: %v", err)
	}
	if resp.Message != "Subscription renewed successfully!" {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
	if len(sc.created) != 1 {
		t.Fatalf("expected a new stripe subscription, got %d", len(sc.created))
	}
}

func TestCancelActiveSubscription(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	sc := newFakeStripe()
	svc := newTestService(t, store, sc, now)
	user := testUser()

	sub := &Subscription{
		ID: primitive.NewObjectID(), UserID: user.PublicID(),
		Status: StatusActive, StripeSubscriptionID: "sub_1",
		EndsAt: now.Add(20 * 24 * time.Hour),
	}
	store.subs = append(store.subs, sub)

	msg, err := svc.Cancel(context.Background(), user)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if !strings.Contains(msg, "end of your current billing period") {
		t.Fatalf("unexpected message: %q", msg)
	}
	if sub.Status != StatusCancelled {
		t.Fatalf("status = %s, want cancelled", sub.Status)
	}
	if len(sc.cancelCalls) != 1 || !sc.cancelCalls[0] {
		t.Fatalf("expected cancel_at_period_end=true call, got %v", sc.cancelCalls)
	}
}

func TestCancelProceedsLocallyOnStripeFailure(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	sc := newFakeStripe()
	sc.getErr = errors.New("stripe down")
	svc := newTestService(t, store, sc, now)
	user := testUser()

	sub := &Subscription{
		ID: primitive.NewObjectID(), UserID: user.PublicID(),
		Status: StatusActive, StripeSubscriptionID: "sub_1",
		EndsAt: now.Add(time.Hour),
	}
	store.subs = append(store.subs, sub)

	msg, err := svc.Cancel(context.Background(), user)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if !strings.Contains(msg, "contact support") {
		t.Fatalf("unexpected message: %q", msg)
	}
	if sub.Status != StatusCancelled {
		t.Fatalf("status = %s, want cancelled", sub.Status)
	}
}

func TestCancelWithoutActiveSubscription(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, newFakeStore(), newFakeStripe(), now)

	_, err := svc.Cancel(context.Background(), testUser())
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
	if appErr.Message() != "No active subscription found" {
		t.Fatalf("unexpected message: %q", appErr.Message())
	}
}

func TestReactivateRejectsExpired(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	svc := newTestService(t, store, newFakeStripe(), now)
	user := testUser()

	store.subs = append(store.subs, &Subscription{
		ID: primitive.NewObjectID(), UserID: user.PublicID(),
		Status: StatusCancelled, EndsAt: now.Add(-time.Minute),
	})

	_, err := svc.Reactivate(context.Background(), user)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(appErr.Message(), "expired") {
		t.Fatalf("unexpected message: %q", appErr.Message())
	}
}

func TestReactivateWithoutCancelledSubscription(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, newFakeStore(), newFakeStripe(), now)

	_, err := svc.Reactivate(context.Background(), testUser())
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCurrentReturnsNilWhenNeverSubscribed(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, newFakeStore(), newFakeStripe(), now)

	sub, err := svc.Current(context.Background(), testUser())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if sub != nil {
		t.Fatalf("expected nil, got %+v", sub)
	}
}

func TestCurrentReportsExpiredWithoutRewriting(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	svc := newTestService(t, store, newFakeStripe(), now)
	user := testUser()

	store.subs = append(store.subs, &Subscription{
		ID: primitive.NewObjectID(), UserID: user.PublicID(),
		Status: StatusActive, EndsAt: now.Add(-time.Hour), CreatedAt: now.Add(-31 * 24 * time.Hour),
	})

	sub, err := svc.Current(context.Background(), user)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if sub.Status != StatusExpired {
		t.Fatalf("status = %s, want %s", sub.Status, StatusExpired)
	}
	if store.subs[0].Status != StatusActive {
		t.Fatal("stored status must not be rewritten on read")
	}
}

func TestHasActiveAccess(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	svc := newTestService(t, store, newFakeStripe(), now)
	user := testUser()

	ok, err := svc.HasActiveAccess(context.Background(), user)
	if err != nil || ok {
		t.Fatalf("expected no access, got ok=%v err=%v", ok, err)
	}

	store.subs = append(store.subs, &Subscription{
		ID: primitive.NewObjectID(), UserID: user.PublicID(),
		Status: StatusCancelled, EndsAt: now.Add(time.Hour),
	})
	ok, err = svc.HasActiveAccess(context.Background(), user)
	if err != nil || !ok {
		t.Fatalf("cancelled but unexpired should keep access, got ok=%v err=%v", ok, err)
	}

	admin := testUser()
	admin.Role = "admin"
	ok, err = svc.HasActiveAccess(context.Background(), admin)
	if err != nil || !ok {
		t.Fatalf("admin should always have access, got ok=%v err=%v", ok, err)
	}
}

func TestEffectiveStatusDerivesExpired(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	sub := &Subscription{Status: StatusActive, EndsAt: now.Add(-time.Second)}
	if got := sub.EffectiveStatus(now); got != StatusExpired {
		t.Fatalf("EffectiveStatus = %s, want expired", got)
	}
	sub.EndsAt = now.Add(time.Second)
	if got := sub.EffectiveStatus(now); got != StatusActive {
		t.Fatalf("EffectiveStatus = %s, want active", got)
	}
}
