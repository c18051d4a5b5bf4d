package types

import "time"

// Agent statuses. KilledInAction is terminal for messaging: the purge and
// broadcast cascade fires on the transition into it.
const (
	AgentAvailable      = "Available"
	AgentOnMission      = "OnMission"
	AgentRetired        = "Retired"
	AgentKilledInAction = "KilledInAction"
)

// Mission statuses. Success and Failure are terminal.
const (
	MissionInProgress = "InProgress"
	MissionSuccess    = "Success"
	MissionFailure    = "Failure"
)

// Danger levels, ordered Low < Medium < High < Critical.
const (
	DangerLow      = "Low"
	DangerMedium   = "Medium"
	DangerHigh     = "High"
	DangerCritical = "Critical"
)

// Roles on the flattened person record
const (
	RoleAgent   = "agent"
	RoleHandler = "handler"
)

var dangerRank = map[string]int{
	DangerLow:      0,
	DangerMedium:   1,
	DangerHigh:     2,
	DangerCritical: 3,
}

// DangerRank returns the position of a level in the total order. Unknown
// levels rank below Low.
func DangerRank(level string) int {
	r, ok := dangerRank[level]
	if !ok {
		return -1
	}
	return r
}

func ValidDanger(level string) bool {
	_, ok := dangerRank[level]
	return ok
}

func ValidAgentStatus(s string) bool {
	switch s {
	case AgentAvailable, AgentOnMission, AgentRetired, AgentKilledInAction:
		return true
	}
	return false
}

func ValidMissionStatus(s string) bool {
	switch s {
	case MissionInProgress, MissionSuccess, MissionFailure:
		return true
	}
	return false
}

// MissionTerminal reports whether a mission status is final.
func MissionTerminal(status string) bool {
	return status == MissionSuccess || status == MissionFailure
}

// Agents (flattened person record: role distinguishes field agents from
// handlers, credentials live on the same row)
type Agent struct {
	ID           string  `gorm:"primaryKey;size:36" json:"id"`
	CodeName     string  `gorm:"size:64;unique;not null" json:"codeName"`
	Status       string  `gorm:"size:32;not null;default:Available" json:"status"`
	Role         string  `gorm:"size:16;not null;default:agent" json:"role"`
	PasswordHash string  `gorm:"size:128" json:"-"`
	CountryID    *string `gorm:"size:36;index" json:"countryId"`
	MentorID     *string `gorm:"size:36" json:"mentorId"`

	Country  *Country  `gorm:"foreignKey:CountryID" json:"country,omitempty"`
	Mentor   *Agent    `gorm:"foreignKey:MentorID" json:"mentor,omitempty"`
	Missions []Mission `gorm:"many2many:mission_agents" json:"missions,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Countries. DangerLevel is derived from the active missions located there
// and is never set directly by normal operation.
type Country struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	Name        string `gorm:"size:64;unique;not null" json:"name"`
	DangerLevel string `gorm:"size:16;not null;default:Low" json:"dangerLevel"`

	Agents   []Agent   `gorm:"foreignKey:CountryID" json:"agents,omitempty"`
	Missions []Mission `gorm:"foreignKey:CountryID" json:"missions,omitempty"`
}

// Missions. CountryID is required and immutable once created; it anchors
// the membership invariant.
type Mission struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Name        string     `gorm:"size:128;not null" json:"name"`
	Description string     `gorm:"type:text" json:"description"`
	Objectives  string     `gorm:"type:text" json:"objectives"`
	Danger      string     `gorm:"size:16;not null" json:"danger"`
	Status      string     `gorm:"size:32;not null;default:InProgress" json:"status"`
	StartDate   time.Time  `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	CountryID   string     `gorm:"size:36;index;not null" json:"countryId"`

	Country *Country       `gorm:"foreignKey:CountryID" json:"country,omitempty"`
	Agents  []Agent        `gorm:"many2many:mission_agents" json:"agents,omitempty"`
	Result  *MissionResult `gorm:"foreignKey:MissionID" json:"result,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Mission results: at most one per mission, created on the first terminal
// status transition.
type MissionResult struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	MissionID string    `gorm:"size:36;uniqueIndex;not null" json:"missionId"`
	Status    string    `gorm:"size:32;not null" json:"status"`
	Summary   string    `gorm:"type:text" json:"summary"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Messages between agents. A nil AuthorID denotes a system-generated notice.
type Message struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Body        string    `gorm:"type:text;not null" json:"body"`
	RecipientID string    `gorm:"size:36;index;not null" json:"recipientId"`
	AuthorID    *string   `gorm:"size:36;index" json:"authorId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Settings
type Setting struct {
	ID    uint8  `gorm:"primaryKey"`
	Name  string `gorm:"size:32;not null"`
	Value string `gorm:"size:256;not null"`
}
