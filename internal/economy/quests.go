package economy

import (
	"time"

	"servertycoon/internal/catalog"
	"servertycoon/internal/models"
)

// questResetWindow is a rolling 24-hour window, not calendar-day aligned.
const questResetWindow = 24 * time.Hour

// GenerateDailyQuests instantiates the full quest template catalog, tagged
// with the given day. newID supplies instance ids.
func GenerateDailyQuests(templates []catalog.QuestTemplate, day time.Time, newID func() string) []models.DailyQuest {
	quests := make([]models.DailyQuest, 0, len(templates))
	for _, tpl := range templates {
		quests = append(quests, models.DailyQuest{
			ID:         newID(),
			TemplateID: tpl.ID,
			Day:        day.UTC().Format("2006-01-02"),
			Title:      tpl.Title,
			Kind:       tpl.Kind,
			JobType:    tpl.JobType,
			Target:     tpl.Target,
			Reward:     tpl.Reward,
		})
	}
	return quests
}

// CheckQuestReset regenerates the account's quest set when the last reset is
// more than 24 hours old. Unclaimed progress is discarded. Reports whether a
// reset happened.
func CheckQuestReset(acct *models.Account, templates []catalog.QuestTemplate, now time.Time, newID func() string) bool {
	if !acct.QuestsResetAt.IsZero() && now.Sub(acct.QuestsResetAt) < questResetWindow {
		return false
	}
	acct.Quests = GenerateDailyQuests(templates, now, newID)
	acct.QuestsResetAt = now
	return true
}

// QuestEvent is one progress-relevant occurrence.
type QuestEvent struct {
	Kind    string // models.QuestKindJob or models.QuestKindIncome
	JobType string // set for job events
	Amount  int64  // earned income for income events, 1 for job events
}

// JobEvent builds the event emitted after a completed job.
func JobEvent(jobType string) QuestEvent {
	return QuestEvent{Kind: models.QuestKindJob, JobType: jobType, Amount: 1}
}

// IncomeEvent builds the event emitted after a positive income accrual.
func IncomeEvent(amount int64) QuestEvent {
	return QuestEvent{Kind: models.QuestKindIncome, Amount: amount}
}

// UpdateQuestProgress matches the event against each incomplete quest,
// increments progress clamped to the target and flags completion. It never
// credits rewards; claiming is a separate explicit operation.
func UpdateQuestProgress(acct *models.Account, ev QuestEvent) (changed bool) {
	for i := range acct.Quests {
		q := &acct.Quests[i]
		if q.Completed || q.Kind != ev.Kind {
			continue
		}
		if q.Kind == models.QuestKindJob && q.JobType != "" && q.JobType != ev.JobType {
			continue
		}
		q.Progress += ev.Amount
		if q.Progress >= q.Target {
			q.Progress = q.Target
			q.Completed = true
		}
		changed = true
	}
	return changed
}

// ClaimQuest marks a completed quest as claimed and returns its reward. The
// caller credits the balance. Claims on quests that are not completed or
// already claimed are rejected without mutation.
func ClaimQuest(acct *models.Account, questID string) (int64, error) {
	for i := range acct.Quests {
		q := &acct.Quests[i]
		if q.ID != questID {
			continue
		}
		if q.Claimed {
			return 0, ErrAlreadyClaimed
		}
		if !q.Completed {
			return 0, ErrNotCompleted
		}
		q.Claimed = true
		return q.Reward, nil
	}
	return 0, ErrNotFound
}
