// Package types provides position accounting for the trading simulator.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// lot is one parcel of quantity acquired at a single price. Lots are
// consumed oldest-first when the position is reduced.
type lot struct {
	quantity decimal.Decimal
	price    decimal.Decimal
	date     time.Time
}

// Position tracks an open long position for one symbol using FIFO lot
// accounting. It is owned exclusively by a single simulation run and is
// not safe for concurrent use.
type Position struct {
	symbol        string
	lots          []lot
	quantity      decimal.Decimal
	avgEntryPrice decimal.Decimal
	currentPrice  decimal.Decimal
	entryDate     time.Time
	realizedPnL   decimal.Decimal
}

// NewPosition opens a position with an initial lot.
func NewPosition(symbol string, quantity, price decimal.Decimal, date time.Time) *Position {
	p := &Position{
		symbol:       symbol,
		currentPrice: price,
		entryDate:    date,
	}
	p.Add(quantity, price, date)
	return p
}

// Add appends a same-direction lot and recomputes the weighted average
// entry price.
func (p *Position) Add(quantity, price decimal.Decimal, date time.Time) {
	if quantity.Sign() <= 0 {
		return
	}
	p.lots = append(p.lots, lot{quantity: quantity, price: price, date: date})
	p.quantity = p.quantity.Add(quantity)
	p.currentPrice = price
	p.recomputeAverage()
}

// Reduce closes up to quantity against the oldest lots first and returns
// the realized profit or loss at the given price. Quantities beyond the
// open size are ignored.
func (p *Position) Reduce(quantity, price decimal.Decimal) decimal.Decimal {
	realized := decimal.Zero
	remaining := quantity
	if remaining.GreaterThan(p.quantity) {
		remaining = p.quantity
	}

	for remaining.Sign() > 0 && len(p.lots) > 0 {
		oldest := &p.lots[0]
		take := oldest.quantity
		if take.GreaterThan(remaining) {
			take = remaining
		}

		realized = realized.Add(price.Sub(oldest.price).Mul(take))
		oldest.quantity = oldest.quantity.Sub(take)
		p.quantity = p.quantity.Sub(take)
		remaining = remaining.Sub(take)

		if oldest.quantity.IsZero() {
			p.lots = p.lots[1:]
		}
	}

	p.currentPrice = price
	p.realizedPnL = p.realizedPnL.Add(realized)
	p.recomputeAverage()
	return realized
}

// MarkPrice updates the mark-to-market price.
func (p *Position) MarkPrice(price decimal.Decimal) {
	p.currentPrice = price
}

// Quantity returns the open quantity. Zero means no open lots remain.
func (p *Position) Quantity() decimal.Decimal { return p.quantity }

// AverageEntryPrice returns the weighted average entry price of the open lots.
func (p *Position) AverageEntryPrice() decimal.Decimal { return p.avgEntryPrice }

// CurrentPrice returns the last marked price.
func (p *Position) CurrentPrice() decimal.Decimal { return p.currentPrice }

// EntryDate returns the date the position was opened.
func (p *Position) EntryDate() time.Time { return p.entryDate }

// Symbol returns the instrument symbol.
func (p *Position) Symbol() string { return p.symbol }

// Lots returns the number of open lots.
func (p *Position) Lots() int { return len(p.lots) }

// MarketValue returns quantity times the current price.
func (p *Position) MarketValue() decimal.Decimal {
	return p.quantity.Mul(p.currentPrice)
}

// UnrealizedPnL returns quantity * (currentPrice - averageEntryPrice).
func (p *Position) UnrealizedPnL() decimal.Decimal {
	return p.quantity.Mul(p.currentPrice.Sub(p.avgEntryPrice))
}

// RealizedPnL returns the cumulative realized profit or loss.
func (p *Position) RealizedPnL() decimal.Decimal { return p.realizedPnL }

func (p *Position) recomputeAverage() {
	if p.quantity.IsZero() {
		p.avgEntryPrice = decimal.Zero
		return
	}
	cost := decimal.Zero
	for _, l := range p.lots {
		cost = cost.Add(l.quantity.Mul(l.price))
	}
	p.avgEntryPrice = cost.Div(p.quantity)
}
