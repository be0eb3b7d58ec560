package models

import "time"

// Account is the authoritative per-player economic record. The whole record
// is loaded, mutated and written back as one unit; owned collections
// (servers, quests, cooldowns, activity) are never shared between accounts.
type Account struct {
	ID           string `json:"id"`
	Nickname     string `json:"nickname"`
	PasswordHash string `json:"-"`
	Balance      int64  `json:"balance"`
	Experience   int64  `json:"experience"`
	ServerLimit  int    `json:"server_limit"`

	// Cooldowns maps a job type id to the expiry of its cooldown. Expired
	// entries are not swept; an expired entry simply permits a new start.
	Cooldowns map[string]time.Time `json:"cooldowns"`

	Learning *LearningSession `json:"learning,omitempty"`

	Quests        []DailyQuest `json:"quests"`
	QuestsResetAt time.Time    `json:"quests_reset_at"`

	Achievements []string `json:"achievements"`

	Activity []ActivityEntry `json:"activity"`

	Servers []Server `json:"servers"`

	TotalJobs        int `json:"total_jobs"`
	CoursesCompleted int `json:"courses_completed"`

	LastIncomeUpdate time.Time `json:"last_income_update"`

	Online bool `json:"online"`
	Muted  bool `json:"muted"`
	Banned bool `json:"banned"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasAchievement reports whether the achievement id is already unlocked.
func (a *Account) HasAchievement(id string) bool {
	for _, got := range a.Achievements {
		if got == id {
			return true
		}
	}
	return false
}

// FindServer returns the owned server with the given id, or nil.
func (a *Account) FindServer(serverID string) *Server {
	for i := range a.Servers {
		if a.Servers[i].ID == serverID {
			return &a.Servers[i]
		}
	}
	return nil
}

// MaxActivityEntries bounds the per-account history; it is player-visible
// flavor, not an audit log.
const MaxActivityEntries = 5

// AddActivity prepends a history entry, keeping only the newest entries.
func (a *Account) AddActivity(message string, at time.Time) {
	entries := append([]ActivityEntry{{Message: message, At: at}}, a.Activity...)
	if len(entries) > MaxActivityEntries {
		entries = entries[:MaxActivityEntries]
	}
	a.Activity = entries
}

// Server is one virtual machine owned by an account. The per-account slice
// is authoritative; the fleet index mirrors it for cross-account reads.
type Server struct {
	ID                string    `json:"id"`
	OwnerID           string    `json:"owner_id"`
	ProductID         string    `json:"product_id"`
	Online            bool      `json:"online"`
	Load              int       `json:"load"`
	Durability        int       `json:"durability"`
	CreatedAt         time.Time `json:"created_at"`
	LastOverloadCheck time.Time `json:"last_overload_check"`
}

// LearningSession is an in-progress course. At most one per account.
type LearningSession struct {
	CourseID  string    `json:"course_id"`
	StartedAt time.Time `json:"started_at"`
	EndsAt    time.Time `json:"ends_at"`
}

// Quest requirement kinds.
const (
	QuestKindJob    = "job"
	QuestKindIncome = "income"
)

// DailyQuest is one quest instance scoped to a rolling 24-hour window.
// Completion and claiming are separate steps: progress updates flag
// completion, only an explicit claim credits the reward.
type DailyQuest struct {
	ID         string `json:"id"`
	TemplateID string `json:"template_id"`
	Day        string `json:"day"`
	Title      string `json:"title"`
	Kind       string `json:"kind"`
	JobType    string `json:"job_type,omitempty"`
	Target     int64  `json:"target"`
	Progress   int64  `json:"progress"`
	Completed  bool   `json:"completed"`
	Claimed    bool   `json:"claimed"`
	Reward     int64  `json:"reward"`
}

// ActivityEntry is one human-readable history line.
type ActivityEntry struct {
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// FleetServer is one row of the shared cross-account index. It is a derived
// read cache rebuilt wholesale from the owner's account record after every
// fleet mutation, never a second source of truth.
type FleetServer struct {
	ServerID      string    `json:"server_id"`
	OwnerID       string    `json:"owner_id"`
	OwnerNickname string    `json:"owner_nickname"`
	ProductID     string    `json:"product_id"`
	Online        bool      `json:"online"`
	Load          int       `json:"load"`
	CreatedAt     time.Time `json:"created_at"`
}
