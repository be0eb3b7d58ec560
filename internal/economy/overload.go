package economy

import (
	"time"

	"servertycoon/internal/models"
)

const (
	overloadMinLoad    = 90
	overloadMinAge     = 10 * time.Minute
	overloadInterval   = 5 * time.Minute
	overloadHighProb   = 0.15 // load > 95
	overloadNormalProb = 0.05 // load > 90
	overloadDurability = 20
)

// CheckOverload runs the probabilistic forced-shutdown check for one server.
// The check only evaluates when load is at least 90, the server is at least
// ten minutes old, and five minutes have passed since the previous
// evaluation. lastOverloadCheck is updated on every evaluation, firing or
// not. The trial itself is memoryless: sustained high load does not
// guarantee an eventual shutdown.
//
// rnd must return a uniform value in [0,1). Returns true when the server was
// forced offline.
func CheckOverload(srv *models.Server, now time.Time, rnd func() float64) bool {
	if srv.Load < overloadMinLoad || !srv.Online {
		return false
	}
	if now.Sub(srv.CreatedAt) < overloadMinAge {
		return false
	}
	if !srv.LastOverloadCheck.IsZero() && now.Sub(srv.LastOverloadCheck) < overloadInterval {
		return false
	}
	srv.LastOverloadCheck = now

	var prob float64
	switch {
	case srv.Load > 95:
		prob = overloadHighProb
	case srv.Load > 90:
		prob = overloadNormalProb
	default:
		return false
	}

	if rnd() >= prob {
		return false
	}

	srv.Online = false
	srv.Durability -= overloadDurability
	if srv.Durability < 0 {
		srv.Durability = 0
	}
	return true
}
