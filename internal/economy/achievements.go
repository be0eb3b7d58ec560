package economy

import (
	"servertycoon/internal/catalog"
	"servertycoon/internal/models"
)

// Stats is the account snapshot achievement conditions are tested against.
type Stats struct {
	ServerCount      int
	Balance          int64
	JobsCompleted    int
	CoursesCompleted int
}

// StatsOf builds the snapshot from the current account state.
func StatsOf(acct *models.Account) Stats {
	return Stats{
		ServerCount:      len(acct.Servers),
		Balance:          acct.Balance,
		JobsCompleted:    acct.TotalJobs,
		CoursesCompleted: acct.CoursesCompleted,
	}
}

func conditionMet(def catalog.Achievement, stats Stats) bool {
	switch def.Kind {
	case catalog.CondServerCount:
		return int64(stats.ServerCount) >= def.Threshold
	case catalog.CondBalance:
		return stats.Balance >= def.Threshold
	case catalog.CondJobCount:
		return int64(stats.JobsCompleted) >= def.Threshold
	case catalog.CondCoursesCompleted:
		return int64(stats.CoursesCompleted) >= def.Threshold
	}
	return false
}

// EvaluateAchievements walks the catalog, skips ids already unlocked, and
// for every newly satisfied condition adds the id to the unlocked set and
// credits the reward. Each achievement fires at most once per account for
// its lifetime; re-evaluating with unchanged stats is a no-op.
func EvaluateAchievements(acct *models.Account, defs []catalog.Achievement, stats Stats) []catalog.Achievement {
	var unlocked []catalog.Achievement
	for _, def := range defs {
		if acct.HasAchievement(def.ID) {
			continue
		}
		if !conditionMet(def, stats) {
			continue
		}
		acct.Achievements = append(acct.Achievements, def.ID)
		acct.Balance += def.Reward
		unlocked = append(unlocked, def)
	}
	return unlocked
}
