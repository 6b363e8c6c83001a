package app

import (
	"fmt"
	"strings"
	"time"

	"noted/internal/util"
	"noted/pkg/domain"
)

// SubmitReview records a buyer's review and recomputes the note rating.
// One review per buyer per note; sellers cannot review their own notes.
func (a *App) SubmitReview(reviewer domain.User, noteID string, rating int, comment string) (domain.Review, error) {
	if rating < 1 || rating > 5 {
		return domain.Review{}, ErrInvalidRating
	}
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return domain.Review{}, ErrCommentRequired
	}
	note, ok, err := a.store.GetNote(noteID)
	if err != nil {
		return domain.Review{}, fmt.Errorf("fetch note: %w", err)
	}
	if !ok {
		return domain.Review{}, ErrNoteNotFound
	}
	if note.AuthorID == reviewer.ID {
		return domain.Review{}, ErrOwnNote
	}
	purchased, err := a.store.HasPurchase(reviewer.ID, noteID)
	if err != nil {
		return domain.Review{}, fmt.Errorf("check purchase: %w", err)
	}
	if !purchased {
		return domain.Review{}, ErrNotPurchased
	}
	reviewed, err := a.store.HasReview(reviewer.ID, noteID)
	if err != nil {
		return domain.Review{}, fmt.Errorf("check review: %w", err)
	}
	if reviewed {
		return domain.Review{}, ErrAlreadyReviewed
	}
	review := domain.Review{
		ID:        util.NewID(),
		NoteID:    noteID,
		UserID:    reviewer.ID,
		UserName:  a.displayNameFor(reviewer),
		Rating:    rating,
		Comment:   comment,
		Replies:   []domain.Reply{},
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.SaveReview(review); err != nil {
		return domain.Review{}, fmt.Errorf("save review: %w", err)
	}
	if _, err := a.store.RecomputeNoteRating(noteID); err != nil {
		return domain.Review{}, fmt.Errorf("recompute rating: %w", err)
	}
	return review, nil
}

// ListReviews returns all reviews for a note, newest first.
func (a *App) ListReviews(noteID string) ([]domain.Review, error) {
	_, ok, err := a.store.GetNote(noteID)
	if err != nil {
		return nil, fmt.Errorf("fetch note: %w", err)
	}
	if !ok {
		return nil, ErrNoteNotFound
	}
	reviews, err := a.store.ListReviewsByNote(noteID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}

// DeleteReview removes a review and recomputes the note rating. Only the
// review author or an admin may delete.
func (a *App) DeleteReview(user domain.User, reviewID string) error {
	review, ok, err := a.store.GetReview(reviewID)
	if err != nil {
		return fmt.Errorf("fetch review: %w", err)
	}
	if !ok {
		return ErrReviewNotFound
	}
	if review.UserID != user.ID && user.Role != domain.RoleAdmin {
		return ErrNotReviewAuthor
	}
	if err := a.store.DeleteReview(reviewID); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if _, err := a.store.RecomputeNoteRating(review.NoteID); err != nil {
		return fmt.Errorf("recompute rating: %w", err)
	}
	return nil
}

// SubmitReply appends a reply with a server-generated ID to the review's
// reply thread.
func (a *App) SubmitReply(user domain.User, reviewID, text string) (domain.Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Reply{}, ErrReplyTextRequired
	}
	_, ok, err := a.store.GetReview(reviewID)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("fetch review: %w", err)
	}
	if !ok {
		return domain.Reply{}, ErrReviewNotFound
	}
	reply := domain.Reply{
		ID:        util.NewID(),
		UserID:    user.ID,
		UserName:  a.displayNameFor(user),
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	// The append happens inside the store so concurrent replies to the same
	// review all land instead of the last writer replacing the thread.
	if err := a.store.AppendReply(reviewID, reply); err != nil {
		return domain.Reply{}, fmt.Errorf("save reply: %w", err)
	}
	return reply, nil
}

// DeleteReply removes a reply by ID. Only the reply author or an admin
// may delete.
func (a *App) DeleteReply(user domain.User, reviewID, replyID string) error {
	review, ok, err := a.store.GetReview(reviewID)
	if err != nil {
		return fmt.Errorf("fetch review: %w", err)
	}
	if !ok {
		return ErrReviewNotFound
	}
	idx := -1
	for i, r := range review.Replies {
		if r.ID == replyID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrReplyNotFound
	}
	if review.Replies[idx].UserID != user.ID && user.Role != domain.RoleAdmin {
		return ErrNotReplyAuthor
	}
	removed, err := a.store.RemoveReply(reviewID, replyID)
	if err != nil {
		return fmt.Errorf("delete reply: %w", err)
	}
	if !removed {
		return ErrReplyNotFound
	}
	return nil
}
