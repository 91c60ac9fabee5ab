package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawsuite/pawsuite-backend/pkg/database"
	"github.com/pawsuite/pawsuite-backend/pkg/logger"
	"github.com/pawsuite/pawsuite-backend/pkg/org"
	"github.com/pawsuite/pawsuite-backend/pkg/testutil"
)

var movementCols = []string{
	"id", "item_id", "batch_id", "change", "reason", "reference_id", "user_id", "note", "created_at",
}

func newMovementRepoTest(t *testing.T) (*MovementRepository, *testutil.MockDB, context.Context) {
	mockDB := testutil.NewMockDB(t)
	t.Cleanup(func() { mockDB.Close() })

	db := database.NewFromSqlx(mockDB.DB, logger.New("repository-test", "development"))
	ctx := org.WithOrgID(context.Background(), testOrgID)
	return NewMovementRepository(db), mockDB, ctx
}

func TestMovementRepositoryCreate(t *testing.T) {
	repo, mockDB, ctx := newMovementRepoTest(t)

	now := time.Now()
	mockDB.ExpectOrgQuery(testOrgID, "INSERT INTO stock_movements",
		testutil.MockRows("created_at").AddRow(now))

	batchID := "batch-1"
	movement := &StockMovement{
		ItemID:  "item-1",
		BatchID: &batchID,
		Change:  -5,
		Reason:  ReasonAppointmentUsage,
	}

	err := repo.Create(ctx, movement)
	require.NoError(t, err)
	assert.NotEmpty(t, movement.ID)
	assert.Equal(t, now, movement.CreatedAt)

	mockDB.ExpectationsWereMet(t)
}

func TestMovementRepositoryListByItem(t *testing.T) {
	repo, mockDB, ctx := newMovementRepoTest(t)

	rows := testutil.MockRows(movementCols...).
		AddRow("m2", "item-1", nil, 10, ReasonPurchase, nil, nil, nil, time.Now()).
		AddRow("m1", "item-1", "batch-1", -3, ReasonAppointmentUsage, "ref-1", "user-1", nil, time.Now().Add(-time.Hour))

	mockDB.ExpectOrgQuery(testOrgID, "FROM stock_movements(.+)ORDER BY created_at DESC", rows)

	movements, err := repo.ListByItem(ctx, "item-1", MovementFilter{Limit: 50})
	require.NoError(t, err)
	require.Len(t, movements, 2)

	assert.Equal(t, 10, movements[0].Change)
	assert.Equal(t, -3, movements[1].Change)
	require.NotNil(t, movements[1].ReferenceID)
	assert.Equal(t, "ref-1", *movements[1].ReferenceID)

	mockDB.ExpectationsWereMet(t)
}

func TestMovementRepositorySumPurchases(t *testing.T) {
	repo, mockDB, ctx := newMovementRepoTest(t)

	mockDB.ExpectOrgQuery(testOrgID, `reason = 'PURCHASE' AND change > 0`,
		testutil.MockRows("coalesce").AddRow(120))

	from := time.Now().AddDate(0, -12, 0)
	total, err := repo.SumPurchases(ctx, "item-1", from, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 120, total)

	mockDB.ExpectationsWereMet(t)
}

func TestMovementRepositoryRequiresOrg(t *testing.T) {
	repo, _, _ := newMovementRepoTest(t)

	err := repo.Create(context.Background(), &StockMovement{ItemID: "item-1", Change: 1, Reason: ReasonPurchase})
	require.Error(t, err)
	assert.ErrorIs(t, err, org.ErrNoOrgInContext)
}
