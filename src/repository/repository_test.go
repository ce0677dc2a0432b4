package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"papertrader/src/database"
	"papertrader/src/ledger"
	"papertrader/src/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	dialector := postgres.New(postgres.Config{
		DSN:                  "sqlmock_db_0",
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	})

	gdb, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		sqlDB.Close()
		t.Fatalf("failed to open gorm DB with sqlmock: %v", err)
	}

	return gdb, mock
}

func newSQLiteDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	db, err := database.Open(database.Config{
		DatabaseURLMain: "file:" + name + "?mode=memory&cache=shared",
		GormLogLevel:    1,
		MaxOpenConns:    1,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})
	return db
}

func TestExceptionRepositoryCreate(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := NewExceptionRepositoryWithDB(mockDB)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "exceptions"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectCommit()

	exc := &model.Exception{
		Service: "papertrader",
		Module:  "refresh_cycle",
		Method:  "Run",
		Asset:   "bitcoin",
		Message: "market data unavailable",
		Level:   "error",
	}
	require.NoError(t, repo.Create(context.Background(), exc))
	assert.Equal(t, uint(7), exc.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerSnapshotRepository_SaveUpsertsOnSession(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := NewLedgerSnapshotRepositoryWithDB(mockDB)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "ledger_snapshots"`) + `.*` +
		regexp.QuoteMeta(`ON CONFLICT ("session_id") DO UPDATE SET "payload"="excluded"."payload","updated_at"="excluded"."updated_at"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	snap := ledger.New(ledger.DefaultConfig()).Snapshot()
	require.NoError(t, repo.Save(context.Background(), "default", snap))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerSnapshotRepository_RoundTrip(t *testing.T) {
	db := newSQLiteDB(t, "ledger_snapshot_roundtrip")
	repo := NewLedgerSnapshotRepositoryWithDB(db)
	ctx := context.Background()

	snap, err := repo.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, snap, "nothing stored yet")

	l := ledger.New(ledger.DefaultConfig(), ledger.WithPersistence(repo))
	_, err = l.Buy("BTC", decimal.RequireFromString("0.1"), decimal.NewFromInt(20000))
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, "alice", l.Snapshot()))

	_, err = l.Sell("BTC", decimal.RequireFromString("0.05"), decimal.NewFromInt(22000))
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, "alice", l.Snapshot()))

	var rows int64
	require.NoError(t, db.Model(&model.LedgerSnapshot{}).Where("session_id = ?", "alice").Count(&rows).Error)
	assert.Equal(t, int64(1), rows, "second save updates the same row")

	loaded, err := repo.Load(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	want := l.Snapshot()
	assert.True(t, want.Balance("BTC").Equal(loaded.Balance("BTC")))
	assert.True(t, want.Balance("USD").Equal(loaded.Balance("USD")))
	assert.Len(t, loaded.Transactions, 2)
	assert.Len(t, loaded.Positions, 1)

	require.NoError(t, repo.Delete(ctx, "alice"))
	loaded, err = repo.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestLedgerSnapshotRepository_RestoreThroughLedger(t *testing.T) {
	db := newSQLiteDB(t, "ledger_snapshot_restore")
	repo := NewLedgerSnapshotRepositoryWithDB(db)
	ctx := context.Background()

	first := ledger.New(ledger.DefaultConfig(), ledger.WithPersistence(repo))
	_, err := first.Buy("ETH", decimal.NewFromInt(1), decimal.NewFromInt(2000))
	require.NoError(t, err)
	require.NoError(t, first.Save(ctx))

	second := ledger.New(ledger.DefaultConfig(), ledger.WithPersistence(repo))
	restored, err := second.Restore(ctx)
	require.NoError(t, err)
	assert.True(t, restored)
	assert.True(t, second.Balance("ETH").Equal(decimal.NewFromInt(1)))
}

func TestDailyCandleRepository(t *testing.T) {
	db := newSQLiteDB(t, "daily_candles")
	repo := NewDailyCandleRepositoryWithDB(db)
	ctx := context.Background()

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candle := func(offset int, close int64) model.DailyCandle {
		return model.DailyCandle{
			Datetime: day.AddDate(0, 0, offset),
			Symbol:   "BTC_USDT",
			Open:     decimal.NewFromInt(close - 1),
			High:     decimal.NewFromInt(close + 1),
			Low:      decimal.NewFromInt(close - 2),
			Close:    decimal.NewFromInt(close),
			Volume:   decimal.NewFromInt(10),
		}
	}

	require.NoError(t, repo.Upsert(ctx, []model.DailyCandle{candle(1, 110), candle(0, 100)}))
	require.NoError(t, repo.Upsert(ctx, []model.DailyCandle{candle(1, 115)}))
	require.NoError(t, repo.Upsert(ctx, nil))

	series, err := repo.Series(ctx, "BTC_USDT", day)
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, 100.0, series[0].Price)
	assert.Equal(t, 115.0, series[1].Price)

	latest, err := repo.Latest(ctx, "BTC_USDT")
	require.NoError(t, err)
	assert.True(t, latest.Equal(day.AddDate(0, 0, 1)))

	latest, err = repo.Latest(ctx, "ETH_USDT")
	require.NoError(t, err)
	assert.True(t, latest.IsZero())
}

func TestExceptionRepository_NoDatabase(t *testing.T) {
	repo := NewExceptionRepositoryWithDB(nil)
	err := repo.Create(context.Background(), &model.Exception{Message: "x"})
	assert.ErrorIs(t, err, ErrNoDatabase)
}
