package domain

import "time"

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type UserStatus string

const (
	StatusActive   UserStatus = "active"
	StatusDisabled UserStatus = "disabled"
)

type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         UserRole   `json:"role"`
	Status       UserStatus `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Profile is the student-facing identity created after first login.
// It is 1:1 with User and never deleted.
type Profile struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	Major       string    `json:"major"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Majors accepted on a profile.
var Majors = []string{
	"Accounting",
	"Architecture",
	"Business Creation",
	"Business Management",
	"Civil Engineering",
	"Computer Science",
	"Cyber Security",
	"Film",
	"Finance",
	"Food Technology",
	"Game Application and Technology",
	"Graphic Design",
	"Industrial Engineering",
	"Information Systems",
	"Interior Design",
	"International Business Management",
	"International Relations",
	"Marketing Communication",
	"Mass Communication",
	"Psychology",
	"Visual Communication Design",
	"Other",
}

// ValidMajor reports whether major is one of the accepted values.
func ValidMajor(major string) bool {
	for _, m := range Majors {
		if m == major {
			return true
		}
	}
	return false
}

// Note is a priced, author-owned PDF study document.
// Rating is derived from the note's reviews and is never edited directly.
type Note struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Course           string    `json:"course"`
	AuthorID         string    `json:"authorId"`
	AuthorName       string    `json:"author"`
	Price            int64     `json:"price"`
	Rating           float64   `json:"rating"`
	OriginalFilename string    `json:"originalFilename"`
	StorageKey       string    `json:"-"`
	ThumbnailKey     string    `json:"-"`
	PageCount        int       `json:"pageCount,omitempty"`
	SizeBytes        int64     `json:"sizeBytes"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Purchase grants a buyer access to a note's file and review eligibility.
// Title and price are denormalized so history survives note deletion.
type Purchase struct {
	ID          string    `json:"id"`
	BuyerID     string    `json:"buyerId"`
	NoteID      string    `json:"noteId"`
	NoteTitle   string    `json:"noteTitle"`
	Price       int64     `json:"price"`
	PurchasedAt time.Time `json:"purchasedAt"`
}

// Reply is embedded in a review's reply list. The ID gives each reply a
// stable identity even when two replies carry identical text and times.
type Reply struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type Review struct {
	ID        string    `json:"id"`
	NoteID    string    `json:"noteId"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	Replies   []Reply   `json:"replies"`
	CreatedAt time.Time `json:"createdAt"`
}
