package repository

import (
	"context"
	"time"

	"papertrader/src/database"
	"papertrader/src/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DailyCandleRepository struct {
	db *gorm.DB
}

func NewDailyCandleRepository() *DailyCandleRepository {
	return &DailyCandleRepository{db: database.MainDB}
}

func NewDailyCandleRepositoryWithDB(db *gorm.DB) *DailyCandleRepository {
	return &DailyCandleRepository{db: db}
}

// Upsert inserts candles, updating OHLCV on (datetime, symbol) conflicts.
func (r *DailyCandleRepository) Upsert(ctx context.Context, candles []model.DailyCandle) error {
	if len(candles) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "datetime"}, {Name: "symbol"}},
		DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume"}),
	}).Create(&candles).Error
}

// Series returns the closes of symbol since from, oldest first.
func (r *DailyCandleRepository) Series(ctx context.Context, symbol string, from time.Time) ([]model.PricePoint, error) {
	var rows []model.DailyCandle
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND datetime >= ?", symbol, from).
		Order("datetime ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	points := make([]model.PricePoint, 0, len(rows))
	for _, c := range rows {
		points = append(points, c.PricePoint())
	}
	return points, nil
}

// Latest returns the datetime of the newest candle of symbol, zero when none.
func (r *DailyCandleRepository) Latest(ctx context.Context, symbol string) (time.Time, error) {
	var c model.DailyCandle
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("datetime DESC").
		Limit(1).
		Find(&c).Error
	if err != nil {
		return time.Time{}, err
	}
	return c.Datetime, nil
}
