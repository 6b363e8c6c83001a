package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID           string `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"not null"`
	Status       string
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}

type ProfileModel struct {
	UserID      string    `gorm:"primaryKey"`
	DisplayName string    `gorm:"not null"`
	Major       string    `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time
}

type NoteModel struct {
	ID               string `gorm:"primaryKey"`
	Title            string `gorm:"not null"`
	Course           string `gorm:"not null;index"`
	AuthorID         string `gorm:"not null;index"`
	AuthorName       string `gorm:"not null"`
	Price            int64  `gorm:"not null"`
	Rating           float64
	OriginalFilename string `gorm:"not null"`
	StorageKey       string
	ThumbnailKey     string
	PageCount        int
	SizeBytes        int64     `gorm:"not null"`
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

type PurchaseModel struct {
	ID          string    `gorm:"primaryKey"`
	BuyerID     string    `gorm:"not null;uniqueIndex:idx_buyer_note"`
	NoteID      string    `gorm:"not null;uniqueIndex:idx_buyer_note;index"`
	NoteTitle   string    `gorm:"not null"`
	Price       int64     `gorm:"not null"`
	PurchasedAt time.Time `gorm:"not null;index"`
}

type ReviewModel struct {
	ID        string         `gorm:"primaryKey"`
	NoteID    string         `gorm:"not null;uniqueIndex:idx_reviewer_note;index"`
	UserID    string         `gorm:"not null;uniqueIndex:idx_reviewer_note"`
	UserName  string         `gorm:"not null"`
	Rating    int            `gorm:"not null"`
	Comment   string         `gorm:"type:text;not null"`
	Replies   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"not null;index"`
}
