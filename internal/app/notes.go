package app

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"noted/internal/util"
	"noted/pkg/domain"
)

// NoteFilter selects a catalog slice. Trending and top rated thresholds
// are fixed; everything else returns the full catalog.
type NoteFilter string

const (
	FilterAll      NoteFilter = ""
	FilterTrending NoteFilter = "trending"
	FilterTopRated NoteFilter = "toprated"
)

const (
	trendingMinRating = 4.8
	topRatedMinRating = 4.9
)

// NoteDetail is a note plus the viewer's relationship to it.
type NoteDetail struct {
	Note         domain.Note `json:"note"`
	IsOwner      bool        `json:"isOwner"`
	HasPurchased bool        `json:"hasPurchased"`
	CanReview    bool        `json:"canReview"`
}

// UploadNote validates and stores a new note PDF plus its metadata.
// The object write happens first; a failed metadata write deletes the
// object again so no orphan is left behind.
func (a *App) UploadNote(owner domain.User, title, course string, price int64, filename string, f NoteFile, size int64) (domain.Note, error) {
	title = strings.TrimSpace(title)
	course = strings.TrimSpace(course)
	if title == "" {
		return domain.Note{}, ErrTitleRequired
	}
	if course == "" {
		return domain.Note{}, ErrCourseRequired
	}
	if price < 0 {
		return domain.Note{}, ErrInvalidPrice
	}
	if strings.TrimSpace(filename) == "" {
		return domain.Note{}, ErrFilenameRequired
	}
	if a.maxUpload > 0 && size > a.maxUpload {
		return domain.Note{}, ErrFileTooLarge
	}

	pageCount, err := validatePDF(f, size)
	if err != nil {
		return domain.Note{}, err
	}

	id := util.NewID()
	storageKey := buildStorageKey(id, filename)
	now := time.Now().UTC()
	note := domain.Note{
		ID:               id,
		Title:            title,
		Course:           course,
		AuthorID:         owner.ID,
		AuthorName:       a.displayNameFor(owner),
		Price:            price,
		Rating:           0,
		OriginalFilename: filepath.Base(filename),
		StorageKey:       storageKey,
		PageCount:        pageCount,
		SizeBytes:        size,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := a.objects.Put(context.Background(), storageKey, f, size, "application/pdf"); err != nil {
		return domain.Note{}, fmt.Errorf("save file: %w", err)
	}
	if err := a.store.SaveNote(note); err != nil {
		_ = a.objects.Delete(context.Background(), storageKey)
		return domain.Note{}, fmt.Errorf("save note: %w", err)
	}
	return note, nil
}

// BrowseNotes returns the catalog with optional search and filter applied.
// Search matches title and course, case-insensitive.
func (a *App) BrowseNotes(query string, filter NoteFilter) ([]domain.Note, error) {
	notes, err := a.store.ListNotes()
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]domain.Note, 0, len(notes))
	for _, n := range notes {
		if query != "" &&
			!strings.Contains(strings.ToLower(n.Title), query) &&
			!strings.Contains(strings.ToLower(n.Course), query) {
			continue
		}
		switch filter {
		case FilterTrending:
			if n.Rating <= trendingMinRating {
				continue
			}
		case FilterTopRated:
			if n.Rating < topRatedMinRating {
				continue
			}
		}
		out = append(out, n)
	}
	return out, nil
}

// ListMyNotes returns the notes the user is selling.
func (a *App) ListMyNotes(user domain.User) ([]domain.Note, error) {
	return a.store.ListNotesByAuthor(user.ID)
}

// GetNoteDetail returns the note and the viewer's standing: ownership,
// purchase and review eligibility.
func (a *App) GetNoteDetail(viewer domain.User, noteID string) (NoteDetail, error) {
	note, ok, err := a.store.GetNote(noteID)
	if err != nil {
		return NoteDetail{}, fmt.Errorf("fetch note: %w", err)
	}
	if !ok {
		return NoteDetail{}, ErrNoteNotFound
	}
	detail := NoteDetail{Note: note, IsOwner: note.AuthorID == viewer.ID}
	if !detail.IsOwner {
		purchased, err := a.store.HasPurchase(viewer.ID, noteID)
		if err != nil {
			return NoteDetail{}, fmt.Errorf("check purchase: %w", err)
		}
		detail.HasPurchased = purchased
		if purchased {
			reviewed, err := a.store.HasReview(viewer.ID, noteID)
			if err != nil {
				return NoteDetail{}, fmt.Errorf("check review: %w", err)
			}
			detail.CanReview = !reviewed
		}
	}
	return detail, nil
}

// GetNoteFileURL returns a pre-signed download URL. Only the owner and
// buyers get one.
func (a *App) GetNoteFileURL(viewer domain.User, noteID string) (string, error) {
	note, ok, err := a.store.GetNote(noteID)
	if err != nil {
		return "", fmt.Errorf("fetch note: %w", err)
	}
	if !ok {
		return "", ErrNoteNotFound
	}
	if note.AuthorID != viewer.ID {
		purchased, err := a.store.HasPurchase(viewer.ID, noteID)
		if err != nil {
			return "", fmt.Errorf("check purchase: %w", err)
		}
		if !purchased {
			return "", ErrNotPurchased
		}
	}
	url, err := a.objects.PresignGet(context.Background(), note.StorageKey, note.OriginalFilename, a.presignExpiry)
	if err != nil {
		return "", fmt.Errorf("presign download: %w", err)
	}
	return url, nil
}

// EditNote updates title, course and price. Only the owner may edit,
// and the stored rating is never touched.
func (a *App) EditNote(user domain.User, noteID, title, course string, price int64) (domain.Note, error) {
	note, ok, err := a.store.GetNote(noteID)
	if err != nil {
		return domain.Note{}, fmt.Errorf("fetch note: %w", err)
	}
	if !ok {
		return domain.Note{}, ErrNoteNotFound
	}
	if note.AuthorID != user.ID {
		return domain.Note{}, ErrNotNoteOwner
	}
	title = strings.TrimSpace(title)
	course = strings.TrimSpace(course)
	if title == "" {
		return domain.Note{}, ErrTitleRequired
	}
	if course == "" {
		return domain.Note{}, ErrCourseRequired
	}
	if price < 0 {
		return domain.Note{}, ErrInvalidPrice
	}
	if err := a.store.UpdateNoteDetails(noteID, title, course, price); err != nil {
		return domain.Note{}, fmt.Errorf("update note: %w", err)
	}
	note.Title = title
	note.Course = course
	note.Price = price
	note.UpdatedAt = time.Now().UTC()
	return note, nil
}

// DeleteNote removes the note. The stored object goes first; when that
// fails the metadata stays so the note is still listed and retryable.
// Purchase records survive deletion, reviews do not.
func (a *App) DeleteNote(user domain.User, noteID string) error {
	note, ok, err := a.store.GetNote(noteID)
	if err != nil {
		return fmt.Errorf("fetch note: %w", err)
	}
	if !ok {
		return ErrNoteNotFound
	}
	if note.AuthorID != user.ID && user.Role != domain.RoleAdmin {
		return ErrNotNoteOwner
	}
	if err := a.objects.Delete(context.Background(), note.StorageKey); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	if err := a.store.DeleteNote(noteID); err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

func buildStorageKey(noteID, filename string) string {
	name := sanitizeFilename(filepath.Base(filename))
	if name == "" {
		name = "note.pdf"
	}
	return path.Join("notes", noteID, name)
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(name))
	lastUnderscore := false
	for _, r := range name {
		if r <= 0x7f {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
				b.WriteRune(r)
				lastUnderscore = false
				continue
			}
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}
