package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Storage keys. Every entity lives under one key as a JSON blob.
const (
	KeyBio         = "cms:bio"
	KeyProjects    = "cms:projects"
	KeyExperiences = "cms:experiences"
	KeyEducation   = "cms:education"
	KeySkills      = "cms:skills"
	KeySettings    = "cms:settings"
)

// AllKeys is the full CMS namespace, in the order the clear-all route walks it.
var AllKeys = []string{KeyBio, KeyProjects, KeyExperiences, KeyEducation, KeySkills, KeySettings}

// ErrMissingField is wrapped by every Validate failure.
var ErrMissingField = errors.New("missing required fields")

type Stat struct {
	Label       string `json:"label"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

type Language struct {
	Language string `json:"language"`
	Level    string `json:"level"`
}

type Bio struct {
	Name              string   `json:"name"`
	Title             string   `json:"title"`
	Intro             string   `json:"intro"`
	Email             string   `json:"email"`
	Phone             string   `json:"phone,omitempty"`
	Location          string   `json:"location,omitempty"`
	Website           string   `json:"website,omitempty"`
	Github            string   `json:"github"`
	Linkedin          string   `json:"linkedin"`
	Twitter           string   `json:"twitter,omitempty"`
	Photo             string   `json:"photo"`
	About             string   `json:"about"`
	TargetRoles       []string `json:"targetRoles,omitempty"`
	Availability      string   `json:"availability,omitempty"`
	YearsOfExperience int      `json:"yearsOfExperience,omitempty"`
	KeyAchievements   []string `json:"keyAchievements,omitempty"`

	// Skills is keyed by category. Values are either a flat list or a
	// proficiency map ({"expert": [...], "advanced": [...]}), so the raw
	// JSON is kept as-is.
	Skills    map[string]json.RawMessage `json:"skills,omitempty"`
	Stats     []Stat                     `json:"stats,omitempty"`
	Languages []Language                 `json:"languages,omitempty"`
}

func (b Bio) Validate() error {
	if b.Name == "" {
		return fmt.Errorf("%w: name", ErrMissingField)
	}
	return nil
}

type Socials struct {
	Github   string `json:"github"`
	Linkedin string `json:"linkedin"`
	Twitter  string `json:"twitter"`
}

type Settings struct {
	Theme           string  `json:"theme"`
	DefaultMode     string  `json:"defaultMode"`
	Socials         Socials `json:"socials"`
	ContactEmail    string  `json:"contactEmail"`
	SiteTitle       string  `json:"siteTitle"`
	SiteDescription string  `json:"siteDescription"`
}

func (s Settings) Validate() error { return nil }

type Project struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	LongDescription string   `json:"longDescription,omitempty"`
	KeyMetrics      []string `json:"keyMetrics,omitempty"`
	Technologies    []string `json:"technologies,omitempty"`
	Stack           []string `json:"stack,omitempty"`
	RoleAndImpact   string   `json:"roleAndImpact,omitempty"`
	Link            string   `json:"link"`
	Featured        bool     `json:"featured"`
	Status          string   `json:"status,omitempty"`
}

func (p Project) RecordID() string { return p.ID }

func (p Project) Validate() error {
	if p.ID == "" || p.Title == "" {
		return fmt.Errorf("%w: id, title", ErrMissingField)
	}
	return nil
}

// Tech returns the technology list, falling back to the older "stack" field.
func (p Project) Tech() []string {
	if len(p.Technologies) > 0 {
		return p.Technologies
	}
	return p.Stack
}

type Experience struct {
	ID           string   `json:"id"`
	Company      string   `json:"company"`
	Position     string   `json:"position"`
	StartDate    string   `json:"startDate"`
	EndDate      *string  `json:"endDate"`
	Current      bool     `json:"current,omitempty"`
	Location     string   `json:"location,omitempty"`
	Country      string   `json:"country,omitempty"`
	Description  string   `json:"description,omitempty"`
	Achievements []string `json:"achievements"`
	Technologies []string `json:"technologies"`
	Type         string   `json:"type,omitempty"`
}

func (e Experience) RecordID() string { return e.ID }

func (e Experience) Validate() error {
	if e.ID == "" || e.Company == "" {
		return fmt.Errorf("%w: id, company", ErrMissingField)
	}
	return nil
}

type Education struct {
	ID          string `json:"id"`
	Institution string `json:"institution"`
	// School is the legacy name of Institution and is accepted on input.
	School      string `json:"school,omitempty"`
	Degree      string `json:"degree"`
	Field       string `json:"field"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Location    string `json:"location,omitempty"`
	Country     string `json:"country,omitempty"`
	Description string `json:"description,omitempty"`
	Grade       string `json:"grade,omitempty"`
	EQFLevel    string `json:"eqfLevel,omitempty"`
	Credits     int    `json:"credits,omitempty"`
}

func (e Education) RecordID() string { return e.ID }

func (e Education) Validate() error {
	if e.ID == "" || e.InstitutionName() == "" {
		return fmt.Errorf("%w: id, institution", ErrMissingField)
	}
	return nil
}

func (e Education) InstitutionName() string {
	if e.Institution != "" {
		return e.Institution
	}
	return e.School
}

type Skill struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Category          string `json:"category,omitempty"`
	Proficiency       string `json:"proficiency,omitempty"`
	YearsOfExperience int    `json:"yearsOfExperience,omitempty"`
	Endorsements      int    `json:"endorsements,omitempty"`
}

func (s Skill) RecordID() string { return s.ID }

func (s Skill) Validate() error {
	if s.ID == "" || s.Name == "" {
		return fmt.Errorf("%w: id, name", ErrMissingField)
	}
	return nil
}

// KVEntry is the row backing the SQL key-value store.
type KVEntry struct {
	Key       string `gorm:"primaryKey;size:255"`
	Value     string `gorm:"type:text"`
	ExpiresAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (KVEntry) TableName() string { return "kv_entries" }
