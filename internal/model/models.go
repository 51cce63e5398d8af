package model

import (
	"time"

	"gorm.io/datatypes"
)

// Accounts

type User struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Phone     string `gorm:"unique;not null"`
	Nickname  string
	Avatar    string
	Status    string `gorm:"default:normal;not null"` // normal/banned
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Admin struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"unique;not null"`
	PasswordHash string `gorm:"not null"`
	DisplayName  string
	Status       string `gorm:"default:active;not null"` // active/disabled
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Wallet & Billing

type Wallet struct {
	UserID           int64 `gorm:"primaryKey"`
	BalanceTotal     int64
	BalanceAvailable int64
	TotalBuyIn       int64
	TotalWin         int64
	TotalLose        int64
	UpdatedAt        time.Time
}

type BillingLog struct {
	ID           int64 `gorm:"primaryKey;autoIncrement"`
	UserID       int64
	Type         string // buy_in/cash_out/win/lose/adjust
	Delta        int64
	BalanceAfter int64
	RoundID      *int64
	MetaJSON     datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt    time.Time
}

// Stakes, Rooms, Rounds

type StakesPreset struct {
	ID           int64 `gorm:"primaryKey;autoIncrement"`
	Name         string
	BaseBlind    int64
	InitialChips int64
	MinPlayers   int
	MaxPlayers   int
	TurnTimeout  int    // seconds
	Status       string `gorm:"default:enabled"` // enabled/disabled
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type RoomRecord struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Code        string `gorm:"unique;not null;size:16"`
	PresetID    int64
	HostUserID  int64
	Status      string         // open/playing/closed
	PlayersJSON datatypes.JSON `gorm:"type:jsonb"` // seat -> userId/name
	CreatedAt   time.Time
	ClosedAt    *time.Time
}

type RoundRecord struct {
	ID           int64 `gorm:"primaryKey;autoIncrement"`
	RoomID       int64
	RoundNo      int
	WinnerUserID int64
	Payout       int64
	Carryover    int64
	ByShowdown   bool
	ResultJSON   datatypes.JSON `gorm:"type:jsonb"` // per-player wagers & profits
	HandsJSON    datatypes.JSON `gorm:"type:jsonb"` // revealed hands & rankings
	CreatedAt    time.Time
}
