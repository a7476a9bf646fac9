// Package store keeps backtest runs in a sqlite database, so that runs can be listed and
// compared long after their outputs were written.
package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/etnz/backtester"
	"github.com/etnz/backtester/date"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrUnknownRun is returned when a run id is not in the store.
var ErrUnknownRun = errors.New("unknown run")

// RunModel is one saved backtest.
type RunModel struct {
	ID               string          `gorm:"primaryKey;size:36" json:"id"`
	Name             string          `gorm:"index" json:"name"`
	Universe         string          `json:"universe"`
	From             string          `gorm:"size:10" json:"from"`
	To               string          `gorm:"size:10" json:"to"`
	Currency         string          `gorm:"size:3" json:"currency"`
	InitialCapital   decimal.Decimal `json:"initial_capital"`
	FinalValue       decimal.Decimal `json:"final_value"`
	CumulativeReturn *float64        `json:"cumulative_return,omitempty"`
	SharpeRatio      *float64        `json:"sharpe_ratio,omitempty"`
	MaxDrawdown      *float64        `json:"max_drawdown,omitempty"`
	Trades           int             `json:"trades"`
	CreatedAt        time.Time       `json:"created_at"`
}

// PointModel is one period of a saved run.
type PointModel struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	RunID         string          `gorm:"index;size:36" json:"run_id"`
	Date          string          `gorm:"size:10" json:"date"`
	Cash          decimal.Decimal `json:"cash"`
	Equity        decimal.Decimal `json:"equity"`
	Total         decimal.Decimal `json:"total"`
	CumulativePnL decimal.Decimal `json:"cumulative_pnl"`
	Return        *float64        `json:"return,omitempty"`
}

// LotModel is one lot of a saved run. Seq keeps the ledger order.
type LotModel struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	RunID      string          `gorm:"index;size:36" json:"run_id"`
	Seq        int             `json:"seq"`
	Instrument string          `gorm:"index" json:"instrument"`
	Shares     decimal.Decimal `json:"shares"`
	EntryDate  string          `gorm:"size:10" json:"entry_date"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	ExitDate   string          `gorm:"size:10" json:"exit_date"`
	ExitPrice  decimal.Decimal `json:"exit_price"`
	Status     string          `gorm:"size:10;not null;default:open" json:"status"`
}

// Store is a sqlite database of runs.
type Store struct {
	db *gorm.DB
}

// Open opens, and creates if needed, the database at dsn. dsn is a sqlite file name or URI,
// "file::memory:?cache=shared" for an in memory database.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("could not open store %q: %w", dsn, err)
	}
	if err := db.AutoMigrate(&RunModel{}, &PointModel{}, &LotModel{}); err != nil {
		return nil, fmt.Errorf("could not migrate store %q: %w", dsn, err)
	}
	log.WithField("dsn", dsn).Debug("store opened")
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RunInput is what SaveRun saves.
type RunInput struct {
	Universe       string
	InitialCapital decimal.Decimal
	Result         *backtester.Result
	Ledger         *backtester.Ledger // optional
}

// finite returns a pointer to f, or nil when f cannot be stored.
func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// SaveRun saves a run and returns its id.
func (s *Store) SaveRun(ctx context.Context, in RunInput) (string, error) {
	if in.Result == nil {
		return "", fmt.Errorf("no result to save")
	}
	res := in.Result
	last := res.Evolution.Last()
	run := RunModel{
		ID:             uuid.NewString(),
		Name:           res.Name,
		Universe:       in.Universe,
		Currency:       last.Total.Currency(),
		InitialCapital: in.InitialCapital,
		FinalValue:     last.Total.Decimal(),
	}
	if n := len(res.Frame.Dates); n > 0 {
		run.From, run.To = res.Frame.Dates[0].String(), res.Frame.Dates[n-1].String()
	}
	if p := res.Performance; p != nil {
		run.CumulativeReturn = finite(float64(p.CumulativeReturn))
		run.SharpeRatio = finite(p.SharpeRatio)
		run.MaxDrawdown = finite(float64(p.MaxDrawdown))
	}

	points := make([]PointModel, len(res.Evolution))
	for i, p := range res.Evolution {
		points[i] = PointModel{
			RunID:         run.ID,
			Date:          p.Date.String(),
			Cash:          p.Cash.Decimal(),
			Equity:        p.Equity.Decimal(),
			Total:         p.Total.Decimal(),
			CumulativePnL: p.CumulativePnL.Decimal(),
			Return:        finite(p.Return),
		}
	}
	var lots []LotModel
	if in.Ledger != nil {
		for i, l := range in.Ledger.All() {
			lots = append(lots, LotModel{
				RunID:      run.ID,
				Seq:        i,
				Instrument: l.Instrument,
				Shares:     l.Shares.Decimal(),
				EntryDate:  l.EntryDate.String(),
				EntryPrice: l.EntryPrice.Decimal(),
				ExitDate:   l.ExitDate.String(),
				ExitPrice:  l.ExitPrice.Decimal(),
				Status:     l.Status.String(),
			})
		}
		run.Trades = len(lots)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return err
		}
		if len(points) > 0 {
			if err := tx.CreateInBatches(points, 500).Error; err != nil {
				return err
			}
		}
		if len(lots) > 0 {
			if err := tx.CreateInBatches(lots, 500).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("could not save run %q: %w", res.Name, err)
	}
	log.WithFields(log.Fields{"id": run.ID, "name": run.Name, "points": len(points), "lots": len(lots)}).Debug("run saved")
	return run.ID, nil
}

// Runs returns the saved runs, most recent first.
func (s *Store) Runs(ctx context.Context) ([]RunModel, error) {
	var runs []RunModel
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// Run returns one saved run.
func (s *Store) Run(ctx context.Context, id string) (RunModel, error) {
	var run RunModel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return run, fmt.Errorf("%w: %q", ErrUnknownRun, id)
	}
	return run, err
}

// Lots returns the lots of a run, in ledger order.
func (s *Store) Lots(ctx context.Context, id string) ([]backtester.Lot, error) {
	run, err := s.Run(ctx, id)
	if err != nil {
		return nil, err
	}
	var rows []LotModel
	if err := s.db.WithContext(ctx).Where("run_id = ?", id).Order("seq").Find(&rows).Error; err != nil {
		return nil, err
	}
	lots := make([]backtester.Lot, len(rows))
	for i, r := range rows {
		status, err := backtester.ParseLotStatus(r.Status)
		if err != nil {
			return nil, fmt.Errorf("lot %d of run %q: %w", r.Seq, id, err)
		}
		lot := backtester.Lot{
			Instrument: r.Instrument,
			Shares:     backtester.Q(r.Shares),
			EntryPrice: backtester.M(r.EntryPrice, run.Currency),
			Status:     status,
		}
		if lot.EntryDate, err = parseDate(r.EntryDate); err != nil {
			return nil, err
		}
		if status == backtester.Closed {
			lot.ExitPrice = backtester.M(r.ExitPrice, run.Currency)
			if lot.ExitDate, err = parseDate(r.ExitDate); err != nil {
				return nil, err
			}
		}
		lots[i] = lot
	}
	return lots, nil
}

// Evolution returns the period by period state of a run.
func (s *Store) Evolution(ctx context.Context, id string) (backtester.Evolution, error) {
	run, err := s.Run(ctx, id)
	if err != nil {
		return nil, err
	}
	var rows []PointModel
	if err := s.db.WithContext(ctx).Where("run_id = ?", id).Order("date").Find(&rows).Error; err != nil {
		return nil, err
	}
	evolution := make(backtester.Evolution, len(rows))
	for i, r := range rows {
		on, err := parseDate(r.Date)
		if err != nil {
			return nil, err
		}
		ret := math.NaN()
		if r.Return != nil {
			ret = *r.Return
		}
		evolution[i] = backtester.Point{
			Date:          on,
			Cash:          backtester.M(r.Cash, run.Currency),
			Equity:        backtester.M(r.Equity, run.Currency),
			Total:         backtester.M(r.Total, run.Currency),
			CumulativePnL: backtester.M(r.CumulativePnL, run.Currency),
			Return:        ret,
		}
	}
	return evolution, nil
}

func parseDate(s string) (date.Date, error) {
	if s == "" {
		return date.Date{}, nil
	}
	return date.Parse(s)
}
