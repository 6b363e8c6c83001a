package app

import "errors"

var (
	ErrEmailAndPasswordRequired = errors.New("email and password are required")
	ErrEmailDomainNotAllowed    = errors.New("email domain not allowed")
	ErrEmailAlreadyExists       = errors.New("email already exists")
	ErrInvalidCredentials       = errors.New("invalid credentials")
	ErrUserDisabled             = errors.New("user disabled")
	ErrRefreshTokenRequired     = errors.New("refresh token is required")
	ErrInvalidRefreshToken      = errors.New("invalid refresh token")
	ErrCurrentPasswordRequired  = errors.New("current password is required")
	ErrNewPasswordRequired      = errors.New("new password is required")

	ErrProfileNotFound     = errors.New("profile not found")
	ErrDisplayNameRequired = errors.New("display name is required")
	ErrInvalidMajor        = errors.New("invalid major")

	ErrNoteNotFound     = errors.New("note not found")
	ErrNotNoteOwner     = errors.New("not the note owner")
	ErrTitleRequired    = errors.New("title is required")
	ErrCourseRequired   = errors.New("course is required")
	ErrInvalidPrice     = errors.New("price must not be negative")
	ErrNotPDF           = errors.New("file is not a pdf")
	ErrFileTooLarge     = errors.New("file exceeds upload size limit")
	ErrFilenameRequired = errors.New("filename is required")

	ErrOwnNote          = errors.New("cannot purchase own note")
	ErrAlreadyPurchased = errors.New("note already purchased")
	ErrNotPurchased     = errors.New("note not purchased")

	ErrReviewNotFound    = errors.New("review not found")
	ErrAlreadyReviewed   = errors.New("note already reviewed")
	ErrInvalidRating     = errors.New("rating must be between 1 and 5")
	ErrCommentRequired   = errors.New("comment is required")
	ErrNotReviewAuthor   = errors.New("not the review author")
	ErrReplyNotFound     = errors.New("reply not found")
	ErrNotReplyAuthor    = errors.New("not the reply author")
	ErrReplyTextRequired = errors.New("reply text is required")
)
