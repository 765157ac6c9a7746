package models

import "time"

// Column names are part of the published analytics schema and must not drift.

type Session struct {
	Session   string    `gorm:"column:Session;primaryKey;type:varchar(64)" json:"session"`
	Timestamp time.Time `gorm:"column:Timestamp;index" json:"timestamp"`
	Continent string    `gorm:"column:Continent;type:varchar(32)" json:"continent"`
	Country   string    `gorm:"column:Country;type:varchar(64)" json:"country"`
	City      string    `gorm:"column:City;type:varchar(64)" json:"city"`
	OS        string    `gorm:"column:OS;type:varchar(32)" json:"os"`
	Browser   string    `gorm:"column:Browser;type:varchar(32)" json:"browser"`
	IsMobile  bool      `gorm:"column:IsMobile" json:"is_mobile"`
	UserAgent string    `gorm:"column:UserAgent;type:varchar(512)" json:"-"`
	Language  string    `gorm:"column:Language;type:varchar(16)" json:"language"`
}

func (Session) TableName() string { return "Sessions" }

type Input struct {
	ID        uint64    `gorm:"column:ID;primaryKey;autoIncrement" json:"id"`
	Timestamp time.Time `gorm:"column:Timestamp;index" json:"timestamp"`
	Session   string    `gorm:"column:Session;type:varchar(64);index" json:"session"`
	SHA1      string    `gorm:"column:SHA1;type:varchar(40);index" json:"sha1"`
	CachePath string    `gorm:"column:CachePath;type:varchar(256)" json:"cache_path"`
	Face      bool      `gorm:"column:Face" json:"face"`
	Gender    int       `gorm:"column:Gender" json:"gender"`
	MinAge    int       `gorm:"column:MinAge" json:"min_age"`
	MaxAge    int       `gorm:"column:MaxAge" json:"max_age"`
	Token     int       `gorm:"column:Token" json:"token"`
}

func (Input) TableName() string { return "Input" }

type Generation struct {
	ID          uint64    `gorm:"column:Id;primaryKey;autoIncrement" json:"id"`
	Timestamp   time.Time `gorm:"column:Timestamp;index" json:"timestamp"`
	Session     string    `gorm:"column:Session;type:varchar(64);index" json:"session"`
	InputSHA1   string    `gorm:"column:Input_SHA1;type:varchar(40);index" json:"input_sha1"`
	Style       string    `gorm:"column:Style;type:varchar(64)" json:"style"`
	Userprompt  string    `gorm:"column:Userprompt;type:text" json:"userprompt"`
	Output      string    `gorm:"column:Output;type:varchar(256)" json:"output"`
	IsBlocked   bool      `gorm:"column:IsBlocked" json:"is_blocked"`
	BlockReason string    `gorm:"column:BlockReason;type:varchar(128)" json:"block_reason"`
}

func (Generation) TableName() string { return "Generations" }

// Gender codes as persisted in Input.Gender.
const (
	GenderUnknown = -1
	GenderMale    = 0
	GenderFemale  = 1
	GenderBoth    = 2
)

// GenderText renders a persisted gender code for dashboard views.
func GenderText(code int) string {
	switch code {
	case GenderMale:
		return "male"
	case GenderFemale:
		return "female"
	case GenderBoth:
		return "both"
	default:
		return "unknown"
	}
}
