package usecase

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clawlab/companion/adapters/storage"
	"github.com/clawlab/companion/domain/entities"
)

var yarn = entities.Product{ProductID: "y1", Name: "Yarn", ImageURL: "/y1.png", UnitPrice: 1299}

func newCartFixture(t *testing.T, store *storage.MemoryStore) (*CartService, *recordingNotifier) {
	t.Helper()
	notifier := &recordingNotifier{}
	svc := NewCartService(store, notifier, zap.NewNop())
	svc.SetCheckoutDelay(0)
	return svc, notifier
}

func validShipping() entities.ShippingAddress {
	return entities.ShippingAddress{
		FullName: "Jane Doe",
		Address:  "1 Loom Lane",
		City:     "Weaverton",
		State:    "CA",
		ZipCode:  "90210",
		Country:  "US",
		Phone:    "555-0100",
	}
}

func TestCartAddUpdateRemoveScenario(t *testing.T) {
	svc, notifier := newCartFixture(t, storage.NewMemoryStore())

	svc.AddItem(yarn)
	svc.AddItem(yarn)
	svc.AddItem(yarn)

	snap := svc.Snapshot()
	require.Len(t, snap.Lines, 1)
	assert.Equal(t, 3, snap.Lines[0].Quantity)
	assert.Equal(t, 3, snap.ItemCount)
	assert.Equal(t, entities.Cents(3897), snap.Subtotal)
	assert.Equal(t, 3, notifier.countKind(entities.NotificationSuccess))

	// Below the floor: silently ignored, no notification.
	before := notifier.count()
	svc.UpdateQuantity("y1", 0)
	snap = svc.Snapshot()
	assert.Equal(t, 3, snap.Lines[0].Quantity)
	assert.Equal(t, before, notifier.count())

	svc.UpdateQuantity("y1", 5)
	snap = svc.Snapshot()
	assert.Equal(t, 5, snap.Lines[0].Quantity)
	assert.Equal(t, entities.Cents(6495), snap.Subtotal)
	assert.Equal(t, before, notifier.count(), "updateQuantity is a high-frequency control and never notifies")

	svc.RemoveItem("y1")
	assert.Empty(t, svc.Snapshot().Lines)
	assert.Equal(t, 1, notifier.countKind(entities.NotificationInfo))

	// Removing again is a silent no-op.
	svc.RemoveItem("y1")
	assert.Equal(t, 1, notifier.countKind(entities.NotificationInfo))
}

func TestCartPriceFrozenAcrossAdds(t *testing.T) {
	svc, _ := newCartFixture(t, storage.NewMemoryStore())

	svc.AddItem(yarn)
	cheaper := yarn
	cheaper.UnitPrice = 999
	svc.AddItem(cheaper)

	snap := svc.Snapshot()
	require.Len(t, snap.Lines, 1)
	assert.Equal(t, entities.Cents(1299), snap.Lines[0].UnitPrice)
	assert.Equal(t, 2, snap.Lines[0].Quantity)
	assert.Equal(t, entities.Cents(2598), snap.Subtotal)
}

func TestCartPersistenceRoundTrip(t *testing.T) {
	store := storage.NewMemoryStore()
	svc, _ := newCartFixture(t, store)

	svc.AddItem(yarn)
	svc.AddItem(entities.Product{ProductID: "n1", Name: "Needles", UnitPrice: 499})
	svc.UpdateQuantity("y1", 4)

	reloaded, _ := newCartFixture(t, store)
	snap := reloaded.Snapshot()
	require.Len(t, snap.Lines, 2)
	assert.Equal(t, "y1", snap.Lines[0].ProductID)
	assert.Equal(t, 4, snap.Lines[0].Quantity)
	assert.Equal(t, entities.Cents(1299*4+499), snap.Subtotal)
}

func TestCartCorruptStoreStartsEmpty(t *testing.T) {
	store := storage.NewMemoryStore()
	store.Set("cart", `[{"product_id":"","quantity":-2}]`)

	svc, notifier := newCartFixture(t, store)
	assert.Empty(t, svc.Snapshot().Lines)
	_, present := store.Get("cart")
	assert.False(t, present, "corrupt record must be removed")
	assert.Zero(t, notifier.count(), "corrupt store handling must be silent")
}

func TestCheckoutSuccessClearsCart(t *testing.T) {
	store := storage.NewMemoryStore()
	svc, notifier := newCartFixture(t, store)
	svc.SetOutcomeSource(always(0.0)) // guaranteed success

	svc.AddItem(yarn)
	svc.AddItem(entities.Product{ProductID: "n1", Name: "Needles", UnitPrice: 499})

	orderID, err := svc.Checkout(validShipping(), "card-1")
	require.NoError(t, err)
	assert.NotEmpty(t, orderID)

	snap := svc.Snapshot()
	assert.Empty(t, snap.Lines)
	assert.False(t, snap.IsProcessingPayment)

	raw, present := store.Get("cart")
	assert.True(t, present)
	assert.JSONEq(t, "[]", raw, "persisted cart must reflect the empty list")
	assert.Zero(t, notifier.countKind(entities.NotificationError), "no errors expected: %v", notifier.all())
	assert.Equal(t, 3, notifier.countKind(entities.NotificationSuccess), "two adds plus the order confirmation")
}

func TestCheckoutFailureKeepsCart(t *testing.T) {
	svc, notifier := newCartFixture(t, storage.NewMemoryStore())
	svc.SetOutcomeSource(always(0.99)) // guaranteed failure

	svc.AddItem(yarn)

	_, err := svc.Checkout(validShipping(), "card-1")
	assert.ErrorIs(t, err, entities.ErrPaymentFailed)

	snap := svc.Snapshot()
	require.Len(t, snap.Lines, 1, "failed checkout must leave the cart intact")
	assert.False(t, snap.IsProcessingPayment)
	assert.Equal(t, entities.ErrPaymentFailed.Error(), snap.LastError)
	assert.Equal(t, 1, notifier.countCode(entities.CodePaymentFailed))
}

func TestCheckoutPreconditions(t *testing.T) {
	svc, notifier := newCartFixture(t, storage.NewMemoryStore())

	_, err := svc.Checkout(validShipping(), "card-1")
	assert.ErrorIs(t, err, entities.ErrEmptyCart)
	assert.Equal(t, 1, notifier.countCode(entities.CodeEmptyCart))

	svc.AddItem(yarn)
	bad := validShipping()
	bad.City = ""
	_, err = svc.Checkout(bad, "card-1")
	assert.ErrorIs(t, err, entities.ErrInvalidShipping)
	assert.Equal(t, 1, notifier.countCode(entities.CodeInvalidShipping))
	require.Len(t, svc.Snapshot().Lines, 1)
}

func TestCheckoutSingleFlight(t *testing.T) {
	svc, _ := newCartFixture(t, storage.NewMemoryStore())
	svc.SetCheckoutDelay(100 * time.Millisecond)
	svc.SetOutcomeSource(always(0.0))

	svc.AddItem(yarn)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := svc.Checkout(validShipping(), "card-1")
		assert.NoError(t, err)
	}()

	require.Eventually(t, func() bool {
		return svc.Snapshot().IsProcessingPayment
	}, time.Second, time.Millisecond)

	before := svc.Snapshot()
	_, err := svc.Checkout(validShipping(), "card-2")
	assert.ErrorIs(t, err, entities.ErrCommandInFlight)
	after := svc.Snapshot()
	assert.Equal(t, before.LastError, after.LastError)
	assert.Equal(t, before.ItemCount, after.ItemCount)

	wg.Wait()
	assert.Empty(t, svc.Snapshot().Lines)
}
