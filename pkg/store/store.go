package store

import (
	"time"

	"noted/pkg/domain"
)

// Store defines persistence operations for users, profiles, notes,
// purchases, and reviews.
type Store interface {
	// users
	SaveUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)
	UserCount() (int, error)

	// profiles
	SaveProfile(domain.Profile) error
	GetProfile(userID string) (domain.Profile, bool, error)

	// notes
	SaveNote(domain.Note) error
	UpdateNoteDetails(id, title, course string, price int64) error
	SetNoteRating(id string, rating float64) error
	ListNotes() ([]domain.Note, error)
	ListNotesByAuthor(authorID string) ([]domain.Note, error)
	GetNote(id string) (domain.Note, bool, error)
	DeleteNote(id string) error

	// purchases
	SavePurchase(domain.Purchase) error
	HasPurchase(buyerID, noteID string) (bool, error)
	ListPurchasesByBuyer(buyerID string) ([]domain.Purchase, error)

	// reviews
	SaveReview(domain.Review) error
	GetReview(id string) (domain.Review, bool, error)
	ListReviewsByNote(noteID string) ([]domain.Review, error)
	HasReview(userID, noteID string) (bool, error)
	DeleteReview(id string) error

	// AppendReply and RemoveReply mutate a review's reply thread inside the
	// store, serialized against other thread writers. Concurrent replies to
	// the same review must all survive; RemoveReply reports whether the
	// reply was present.
	AppendReply(reviewID string, reply domain.Reply) error
	RemoveReply(reviewID, replyID string) (bool, error)

	// RecomputeNoteRating re-reads the note's review set and writes the
	// one-decimal-rounded average back onto the note, serialized against
	// concurrent recomputes. Returns the rating written (0 when the note
	// has no reviews).
	RecomputeNoteRating(noteID string) (float64, error)
}

// SessionStore persists session tokens.
type SessionStore interface {
	NewSession(userID string) (string, error)
	GetUserIDByToken(token string) (string, bool, error)
	DeleteSession(token string) error
}

// UserSessionRevoker is an optional capability that revokes all sessions
// issued for a user since a cutoff time.
type UserSessionRevoker interface {
	RevokeUserSessions(userID string, since time.Time) error
}

// UserRefreshTokenRevoker is an optional capability that revokes all refresh
// tokens for a user.
type UserRefreshTokenRevoker interface {
	RevokeUserRefreshTokens(userID string) error
}

// JWK represents a JSON Web Key entry used by JWKS endpoints.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	N   string `json:"n,omitempty"`
	E   string `json:"e,omitempty"`
}

// JWKSProvider is an optional capability exposed by session stores that can
// publish JSON Web Keys.
type JWKSProvider interface {
	JWKS() []JWK
}
