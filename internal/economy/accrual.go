package economy

import (
	"time"

	"servertycoon/internal/catalog"
	"servertycoon/internal/models"
)

// rentalPercent of gross income is charged as rental cost.
const rentalPercent = 10

// AccrualResult reports what one accrual pass earned and charged.
type AccrualResult struct {
	Income int64 `json:"income"`
	Rental int64 `json:"rental"`
	Net    int64 `json:"net"`
}

// Accrue computes elapsed-time-prorated income and rental for the account's
// online servers and applies the net delta to the balance, clamped at zero.
//
// lastIncomeUpdate advances only when the net delta is nonzero: a call made
// before a whole currency unit has accumulated is a no-op and the elapsed
// time stays available for the next call. Both the request path and the
// background sweep must go through this one function.
func Accrue(acct *models.Account, cat *catalog.Catalog, now time.Time) AccrualResult {
	elapsedMs := now.Sub(acct.LastIncomeUpdate).Milliseconds()
	if elapsedMs <= 0 {
		return AccrualResult{}
	}

	// Weighted rate: sum of base income per minute x load percent across
	// online servers. Dividing by 100 only at the end keeps integer
	// precision.
	var weighted int64
	for i := range acct.Servers {
		srv := &acct.Servers[i]
		if !srv.Online {
			continue
		}
		product := cat.ProductByID(srv.ProductID)
		if product == nil {
			continue
		}
		weighted += product.IncomePerMinute * int64(srv.Load)
	}

	income := weighted * elapsedMs / (100 * 60000)
	rental := weighted * elapsedMs * rentalPercent / (100 * 100 * 60000)
	net := income - rental

	if net != 0 {
		acct.Balance += net
		if acct.Balance < 0 {
			acct.Balance = 0
		}
		acct.LastIncomeUpdate = now
	}

	return AccrualResult{Income: income, Rental: rental, Net: net}
}
