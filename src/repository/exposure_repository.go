package repository

import (
	"context"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"firecontrol/src/database"
	"firecontrol/src/externalmodel"
	"firecontrol/src/intent"
)

// Exposure is the net open position a user holds on one instrument,
// derived from the agent's reporting table. It is never the source of
// truth itself.
type Exposure struct {
	Symbol    string
	NetLots   decimal.Decimal
	Direction string // buy, sell, or "" when flat
	Tickets   []uint
}

// Flat reports whether there is no open exposure.
func (e Exposure) Flat() bool {
	return e.NetLots.IsZero()
}

// ExposureRepository derives per-symbol net exposure from the execution
// agent's reporting database. Read-only.
type ExposureRepository struct {
	db *gorm.DB
}

// NewExposureRepository creates a repository instance over ReadOnlyDB.
func NewExposureRepository() *ExposureRepository {
	logger.WithField("component", "ExposureRepository").
		Info("Creating new ExposureRepository with ReadOnlyDB")

	return &ExposureRepository{
		db: database.ReadOnlyDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests.
func (r *ExposureRepository) WithDB(db *gorm.DB) *ExposureRepository {
	return &ExposureRepository{db: db}
}

// NetExposure computes the authoritative net position for a user on a
// symbol from the agent's filled records. Buys count positive, sells
// negative.
func (r *ExposureRepository) NetExposure(
	ctx context.Context,
	userID uint,
	symbol string,
) (Exposure, error) {

	var records []externalmodel.ExecutionStatusRecord

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND symbol = ? AND status = ?", userID, symbol, externalmodel.StatusFilled).
		Order("id ASC").
		Find(&records).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "ExposureRepository",
			"op":      "NetExposure",
			"user_id": userID,
			"symbol":  symbol,
		}).WithError(err).Error("Failed to fetch filled records")

		return Exposure{Symbol: symbol}, err
	}

	exposure := Exposure{Symbol: symbol, NetLots: decimal.Zero}
	for _, rec := range records {
		lots := decimal.NewFromFloat(rec.Lots)
		if rec.Direction == intent.DirectionSell {
			lots = lots.Neg()
		}
		exposure.NetLots = exposure.NetLots.Add(lots)
		exposure.Tickets = append(exposure.Tickets, rec.Ticket)
	}

	switch {
	case exposure.NetLots.IsPositive():
		exposure.Direction = intent.DirectionBuy
	case exposure.NetLots.IsNegative():
		exposure.Direction = intent.DirectionSell
		exposure.NetLots = exposure.NetLots.Abs()
	}

	return exposure, nil
}
