package analyze

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"papertrader/src/connectors"
	"papertrader/src/indicator"
	"papertrader/src/model"
	"papertrader/src/repository"
	"papertrader/src/risk"
	"papertrader/src/signal"

	"github.com/nntaoli-project/goex"
	"github.com/nntaoli-project/goex/binance"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	Interval1h = "1h"
	Interval4h = "4h"
	Interval1d = "1d"
)

var ErrNoCandles = errors.New("no candles returned")

// Report is the analysis plus the trailing stop a long held over the whole
// window would have reached.
type Report struct {
	model.Analysis
	TrailingStop *decimal.Decimal `json:"trailing_stop,omitempty"`
}

// Analyzer imports klines for one asset, stores daily bars when a database is
// configured, and prints EMA, forecast and signal for the series.
type Analyzer struct {
	Log     *logger.Entry
	DB      *gorm.DB
	Config  *Config
	Catalog *connectors.Catalog
	Out     io.Writer

	exchange goex.API
	now      func() time.Time
}

func (a *Analyzer) Start(ctx context.Context) error {
	report, err := a.Run(ctx)
	if err != nil {
		return err
	}
	if a.Out == nil {
		return nil
	}
	enc := json.NewEncoder(a.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// Run fetches, persists and analyses the configured asset.
func (a *Analyzer) Run(ctx context.Context) (Report, error) {
	a.setup()
	start, err := a.determineStartPoint(ctx)
	if err != nil {
		return Report{}, err
	}

	klines, err := a.fetchSeries(start, a.now())
	if err != nil {
		return Report{}, err
	}
	if len(klines) == 0 {
		return Report{}, fmt.Errorf("%s: %w", a.pair(), ErrNoCandles)
	}

	candles := a.toCandles(klines)
	if err := a.save(ctx, candles); err != nil {
		return Report{}, err
	}

	points, err := a.series(ctx, klines)
	if err != nil {
		return Report{}, err
	}

	cfg := a.Config
	result := indicator.Analyze(points, cfg.Period, cfg.Steps, a.parseDuration())
	last := points[len(points)-1]
	report := Report{Analysis: model.Analysis{
		Asset:     a.assetID(),
		Price:     last.Price,
		Period:    cfg.Period,
		EMA:       result.EMA,
		Forecast:  result.Forecast,
		Signal:    signal.Classify(last.Price, result.EMA, cfg.Period),
		Momentum:  indicator.Momentum(points, a.momentumConfig()),
		Source:    connectors.ProviderBinance,
		UpdatedAt: a.now().UTC(),
	}}
	if sl, ok := risk.TrailingStop(risk.SideLong, candles, cfg.Period); ok {
		report.TrailingStop = &sl
	}
	if len(points) > 1 && points[len(points)-2].Price > 0 {
		prev := points[len(points)-2].Price
		report.Change24h = (last.Price - prev) * 100 / prev
	}
	if cross, ok := signal.DetectCross(points, result.EMA, cfg.Period); ok {
		report.Signal = cross
	}

	a.Log.WithFields(logger.Fields{
		"pair":       a.pair().String(),
		"candles":    len(points),
		"price":      report.Price,
		"signal":     report.Signal.Type,
		"confidence": report.Signal.Confidence,
	}).Info("analysis done")
	return report, nil
}

// momentumConfig keeps the default SMA windows and period stats, with the
// RSI period taken from the command config.
func (a *Analyzer) momentumConfig() indicator.MomentumConfig {
	cfg := indicator.DefaultMomentumConfig()
	if a.Config.RSI > 0 {
		cfg.RSIPeriod = a.Config.RSI
	}
	return cfg
}

func (a *Analyzer) setup() {
	if a.Config == nil {
		a.Config = GetConfig()
	}
	if a.Log == nil {
		a.Log = logger.WithField("cmd", "analyze")
	}
	if a.Catalog == nil {
		a.Catalog = connectors.DefaultCatalog()
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.exchange == nil {
		a.exchange = a.newBinanceInstance()
	}
}

func (a *Analyzer) newBinanceInstance() *binance.Binance {
	endpoint := a.Config.Endpoint
	if endpoint == "" {
		endpoint = binance.GLOBAL_API_BASE_URL
	}
	apiConfig := &goex.APIConfig{
		HttpClient: &http.Client{Timeout: 15 * time.Second},
		Endpoint:   strings.TrimRight(endpoint, "/"),
	}
	return binance.NewWithConfig(apiConfig)
}

// determineStartPoint starts Days back, or one bar before the newest stored
// candle in auto mode.
func (a *Analyzer) determineStartPoint(ctx context.Context) (time.Time, error) {
	start := a.now().Add(-time.Duration(a.Config.Days) * 24 * time.Hour)
	if !a.Config.AutoMode || !a.persists() {
		return start, nil
	}

	latest, err := repository.NewDailyCandleRepositoryWithDB(a.DB).Latest(ctx, a.pair().String())
	if err != nil {
		a.Log.WithError(err).Error("Failed to query latest datetime")
		return time.Time{}, err
	}
	if latest.IsZero() {
		a.Log.WithField("StartDt", start.String()).Info("no stored candles, starting from the configured window")
		return start, nil
	}
	resumed := latest.Add(-a.parseDuration())
	a.Log.WithField("StartDt", resumed.String()).Info("resuming from the newest stored candle")
	return resumed, nil
}

func (a *Analyzer) fetchSeries(start, end time.Time) ([]goex.Kline, error) {
	const millis = 1000
	return a.exchange.GetKlineRecords(
		a.pair(),
		a.parseDurationToGoex(),
		a.Config.Limit,
		goex.OptionalParameter{}.
			Optional("startTime", start.Unix()*millis).
			Optional("endTime", end.Unix()*millis),
	)
}

func (a *Analyzer) toCandles(klines []goex.Kline) []model.DailyCandle {
	candles := make([]model.DailyCandle, 0, len(klines))
	for _, k := range klines {
		candles = append(candles, model.DailyCandle{
			Datetime: time.Unix(k.Timestamp, 0).UTC(),
			Symbol:   a.pair().String(),
			Open:     decimal.NewFromFloat(k.Open),
			High:     decimal.NewFromFloat(k.High),
			Low:      decimal.NewFromFloat(k.Low),
			Close:    decimal.NewFromFloat(k.Close),
			Volume:   decimal.NewFromFloat(k.Vol),
		})
	}
	return candles
}

func (a *Analyzer) save(ctx context.Context, candles []model.DailyCandle) error {
	if !a.persists() {
		return nil
	}
	if err := repository.NewDailyCandleRepositoryWithDB(a.DB).Upsert(ctx, candles); err != nil {
		a.Log.WithError(err).Error("save, Upsert")
		return err
	}
	a.Log.WithFields(logger.Fields{
		"Symbol":  a.pair().String(),
		"candles": len(candles),
	}).Info("daily candles inserted or updated in database")
	return nil
}

// series reads the analysis window back from the database when daily bars
// are stored there, so earlier imports extend the history.
func (a *Analyzer) series(ctx context.Context, klines []goex.Kline) ([]model.PricePoint, error) {
	if a.persists() {
		from := a.now().Add(-time.Duration(a.Config.Days) * 24 * time.Hour)
		points, err := repository.NewDailyCandleRepositoryWithDB(a.DB).Series(ctx, a.pair().String(), from)
		if err != nil {
			return nil, err
		}
		if len(points) > 0 {
			return points, nil
		}
	}
	points := make([]model.PricePoint, 0, len(klines))
	for _, k := range klines {
		points = append(points, model.PricePoint{Timestamp: time.Unix(k.Timestamp, 0).UTC(), Price: k.Close})
	}
	return points, nil
}

// persists reports whether candles go to the database: only daily bars do.
func (a *Analyzer) persists() bool {
	return a.DB != nil && a.Config.Interval == Interval1d
}

func (a *Analyzer) assetID() string {
	if asset, ok := a.Catalog.Resolve(a.Config.Asset); ok {
		return asset.ID
	}
	return strings.ToLower(a.Config.Asset)
}

func (a *Analyzer) pair() goex.CurrencyPair {
	symbol := strings.ToUpper(a.Config.Asset)
	if asset, ok := a.Catalog.Resolve(a.Config.Asset); ok {
		symbol = asset.Symbol
	}
	return goex.NewCurrencyPair(goex.Currency{Symbol: symbol}, goex.Currency{Symbol: strings.ToUpper(a.Config.Quote)})
}

func (a *Analyzer) parseDuration() time.Duration {
	var duration time.Duration
	switch a.Config.Interval {
	case Interval1h:
		duration = time.Hour
	case Interval4h:
		duration = 4 * time.Hour
	case Interval1d:
		duration = 24 * time.Hour
	default:
		panic("invalid ANALYZE_INTERVAL env var")
	}
	return duration
}

func (a *Analyzer) parseDurationToGoex() goex.KlinePeriod {
	var period goex.KlinePeriod
	switch a.Config.Interval {
	case Interval1h:
		period = goex.KLINE_PERIOD_1H
	case Interval4h:
		period = goex.KLINE_PERIOD_4H
	case Interval1d:
		period = goex.KLINE_PERIOD_1DAY
	default:
		panic("invalid ANALYZE_INTERVAL env var")
	}
	return period
}
