package orders

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func TestPaymentEventsOnlyMoveForward(t *testing.T) {
	conn := dbtest.Open(t)
	user := dbtest.SeedUser(t, conn, "buyer")
	order := seedOrder(t, conn, user.ID, "pi_42", time.Now().UTC())
	repo := NewRepository(conn)
	events, err := NewPaymentEvents(repo, db.Wrap(conn), logger.Nop())
	require.NoError(t, err)
	ctx := context.Background()

	changed, err := events.Apply(ctx, enums.PaymentProviderStripe, "pi_42", enums.OrderStatusCompleted)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = events.Apply(ctx, enums.PaymentProviderStripe, "pi_42", enums.OrderStatusFailed)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = events.Apply(ctx, enums.PaymentProviderStripe, "pi_42", enums.OrderStatusCancelled)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = events.Apply(ctx, enums.PaymentProviderStripe, "pi_missing", enums.OrderStatusCompleted)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = events.Apply(ctx, enums.PaymentProviderStripe, " ", enums.OrderStatusCompleted)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	assert.Equal(t, enums.OrderStatusCancelled, orderStatus(t, conn, order.ID))
}
