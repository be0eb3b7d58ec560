// Package catalog holds the process-wide read-only reference data: job
// types, server products, quest templates, achievements and courses. It is
// loaded once at startup and never mutated at runtime.
package catalog

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// JobType is one timed job a player can run for currency and experience.
type JobType struct {
	ID         string        `yaml:"id" json:"id"`
	Title      string        `yaml:"title" json:"title"`
	Reward     int64         `yaml:"reward" json:"reward"`
	Experience int64         `yaml:"experience" json:"experience"`
	Cooldown   time.Duration `yaml:"-" json:"-"`
}

// UnmarshalYAML decodes the cooldown from a duration string ("2m", "1h").
func (j *JobType) UnmarshalYAML(value *yaml.Node) error {
	type plain JobType
	var aux struct {
		plain    `yaml:",inline"`
		Cooldown string `yaml:"cooldown"`
	}
	if err := value.Decode(&aux); err != nil {
		return err
	}
	*j = JobType(aux.plain)
	if aux.Cooldown != "" {
		d, err := time.ParseDuration(aux.Cooldown)
		if err != nil {
			return fmt.Errorf("job %s: bad cooldown: %w", j.ID, err)
		}
		j.Cooldown = d
	}
	return nil
}

// Product is a purchasable server type. The type fixes the base income rate;
// rental cost is always 10% of gross income and is not listed here.
type Product struct {
	ID              string `yaml:"id" json:"id"`
	Name            string `yaml:"name" json:"name"`
	Price           int64  `yaml:"price" json:"price"`
	RequiredLevel   int    `yaml:"required_level" json:"required_level"`
	IncomePerMinute int64  `yaml:"income_per_minute" json:"income_per_minute"`
}

// QuestTemplate describes one daily quest. Kind is "job" or "income".
type QuestTemplate struct {
	ID      string `yaml:"id" json:"id"`
	Title   string `yaml:"title" json:"title"`
	Kind    string `yaml:"kind" json:"kind"`
	JobType string `yaml:"job_type" json:"job_type,omitempty"`
	Target  int64  `yaml:"target" json:"target"`
	Reward  int64  `yaml:"reward" json:"reward"`
}

// Achievement condition kinds.
const (
	CondServerCount      = "serverCount"
	CondBalance          = "balance"
	CondJobCount         = "jobCount"
	CondCoursesCompleted = "coursesCompleted"
)

// Achievement is one entry of the global achievement catalog. Conditions are
// evaluated against current account stats; each fires at most once per
// account for its lifetime.
type Achievement struct {
	ID        string `yaml:"id" json:"id"`
	Title     string `yaml:"title" json:"title"`
	Kind      string `yaml:"kind" json:"kind"`
	Threshold int64  `yaml:"threshold" json:"threshold"`
	Reward    int64  `yaml:"reward" json:"reward"`
}

// Course is a timed learning session granting experience on completion.
type Course struct {
	ID         string        `yaml:"id" json:"id"`
	Title      string        `yaml:"title" json:"title"`
	Price      int64         `yaml:"price" json:"price"`
	Duration   time.Duration `yaml:"-" json:"-"`
	Experience int64         `yaml:"experience" json:"experience"`
}

// UnmarshalYAML decodes the duration from a duration string ("30m", "2h").
func (c *Course) UnmarshalYAML(value *yaml.Node) error {
	type plain Course
	var aux struct {
		plain    `yaml:",inline"`
		Duration string `yaml:"duration"`
	}
	if err := value.Decode(&aux); err != nil {
		return err
	}
	*c = Course(aux.plain)
	if aux.Duration != "" {
		d, err := time.ParseDuration(aux.Duration)
		if err != nil {
			return fmt.Errorf("course %s: bad duration: %w", c.ID, err)
		}
		c.Duration = d
	}
	return nil
}

// Catalog bundles all reference data.
type Catalog struct {
	Jobs         []JobType       `yaml:"jobs"`
	Products     []Product       `yaml:"products"`
	Quests       []QuestTemplate `yaml:"quests"`
	Achievements []Achievement   `yaml:"achievements"`
	Courses      []Course        `yaml:"courses"`
}

// Job returns the job type with the given id, or nil.
func (c *Catalog) Job(id string) *JobType {
	for i := range c.Jobs {
		if c.Jobs[i].ID == id {
			return &c.Jobs[i]
		}
	}
	return nil
}

// Product returns the product with the given id, or nil.
func (c *Catalog) ProductByID(id string) *Product {
	for i := range c.Products {
		if c.Products[i].ID == id {
			return &c.Products[i]
		}
	}
	return nil
}

// Course returns the course with the given id, or nil.
func (c *Catalog) CourseByID(id string) *Course {
	for i := range c.Courses {
		if c.Courses[i].ID == id {
			return &c.Courses[i]
		}
	}
	return nil
}

// Load reads a catalog override file. Missing path falls back to defaults.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadOrDefault loads the override file or returns the built-in catalog when
// the file is absent.
func LoadOrDefault(path string) *Catalog {
	c, err := Load(path)
	if err != nil {
		return Default()
	}
	return c
}

func (c *Catalog) validate() error {
	for _, q := range c.Quests {
		if q.Kind != "job" && q.Kind != "income" {
			return fmt.Errorf("quest %s: unknown kind %q", q.ID, q.Kind)
		}
		if q.Target <= 0 {
			return fmt.Errorf("quest %s: target must be positive", q.ID)
		}
	}
	for _, a := range c.Achievements {
		switch a.Kind {
		case CondServerCount, CondBalance, CondJobCount, CondCoursesCompleted:
		default:
			return fmt.Errorf("achievement %s: unknown condition %q", a.ID, a.Kind)
		}
	}
	return nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return &Catalog{
		Jobs: []JobType{
			{ID: "cleanup", Title: "Clean server logs", Reward: 50, Experience: 10, Cooldown: 2 * time.Minute},
			{ID: "backup", Title: "Run a backup job", Reward: 120, Experience: 25, Cooldown: 5 * time.Minute},
			{ID: "ddos", Title: "Mitigate a DDoS wave", Reward: 300, Experience: 60, Cooldown: 15 * time.Minute},
			{ID: "migration", Title: "Migrate a client database", Reward: 800, Experience: 150, Cooldown: time.Hour},
		},
		Products: []Product{
			{ID: "basic-web", Name: "Basic Web Server", Price: 1500, RequiredLevel: 1, IncomePerMinute: 15},
			{ID: "db-server", Name: "Database Server", Price: 5000, RequiredLevel: 3, IncomePerMinute: 45},
			{ID: "game-node", Name: "Game Hosting Node", Price: 20000, RequiredLevel: 7, IncomePerMinute: 150},
			{ID: "gpu-rig", Name: "GPU Compute Rig", Price: 75000, RequiredLevel: 12, IncomePerMinute: 480},
			{ID: "quantum", Name: "Quantum Cluster", Price: 300000, RequiredLevel: 20, IncomePerMinute: 1600},
		},
		Quests: []QuestTemplate{
			{ID: "daily-cleanup", Title: "Clean logs 3 times", Kind: "job", JobType: "cleanup", Target: 3, Reward: 200},
			{ID: "daily-jobs", Title: "Complete 5 jobs of any kind", Kind: "job", Target: 5, Reward: 350},
			{ID: "daily-income", Title: "Earn 1000 from your servers", Kind: "income", Target: 1000, Reward: 500},
		},
		Achievements: []Achievement{
			{ID: "first-server", Title: "Your first server", Kind: CondServerCount, Threshold: 1, Reward: 250},
			{ID: "small-fleet", Title: "A small fleet", Kind: CondServerCount, Threshold: 5, Reward: 2000},
			{ID: "ten-k", Title: "Five figures", Kind: CondBalance, Threshold: 10000, Reward: 1000},
			{ID: "millionaire", Title: "Millionaire", Kind: CondBalance, Threshold: 1000000, Reward: 50000},
			{ID: "working-hands", Title: "Working hands", Kind: CondJobCount, Threshold: 25, Reward: 1500},
			{ID: "grinder", Title: "Grinder", Kind: CondJobCount, Threshold: 200, Reward: 10000},
			{ID: "student", Title: "Student", Kind: CondCoursesCompleted, Threshold: 1, Reward: 500},
			{ID: "graduate", Title: "Graduate", Kind: CondCoursesCompleted, Threshold: 5, Reward: 5000},
		},
		Courses: []Course{
			{ID: "linux-basics", Title: "Linux Basics", Price: 500, Duration: 10 * time.Minute, Experience: 120},
			{ID: "networking", Title: "Networking 101", Price: 2000, Duration: 30 * time.Minute, Experience: 400},
			{ID: "devops", Title: "DevOps Pipeline Design", Price: 8000, Duration: 2 * time.Hour, Experience: 1500},
		},
	}
}
