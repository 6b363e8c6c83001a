package app

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"noted/pkg/domain"
	"noted/pkg/store"
)

// failingNoteStore fails every metadata save.
type failingNoteStore struct {
	store.Store
}

func (failingNoteStore) SaveNote(domain.Note) error {
	return fmt.Errorf("database unavailable")
}

func TestUploadNoteStoresObjectAndMetadata(t *testing.T) {
	a := newTestApp(t, "")
	owner := signUpUser(t, a, "seller@binus.ac.id")

	f, size := pdfUpload()
	note, err := a.UploadNote(owner, "  Calculus I Midterm Notes ", "MATH6031", 25000, "calculus notes (final).pdf", f, size)
	if err != nil {
		t.Fatalf("upload note: %v", err)
	}
	if note.Title != "Calculus I Midterm Notes" || note.Course != "MATH6031" {
		t.Fatalf("title/course not trimmed: %+v", note)
	}
	if note.Rating != 0 {
		t.Fatalf("new note must start unrated, got %v", note.Rating)
	}
	if note.OriginalFilename != "calculus notes (final).pdf" {
		t.Fatalf("original filename lost: %q", note.OriginalFilename)
	}
	if !strings.HasPrefix(note.StorageKey, "notes/"+note.ID+"/") {
		t.Fatalf("unexpected storage key: %q", note.StorageKey)
	}
	if strings.ContainsAny(note.StorageKey, " ()") {
		t.Fatalf("storage key not sanitized: %q", note.StorageKey)
	}
	if len(a.objects.puts) != 1 || a.objects.puts[0] != note.StorageKey {
		t.Fatalf("object not written under storage key: %v", a.objects.puts)
	}

	stored, ok, err := a.store.GetNote(note.ID)
	if err != nil || !ok {
		t.Fatalf("note not persisted: ok=%v err=%v", ok, err)
	}
	if stored.AuthorID != owner.ID {
		t.Fatalf("author not recorded: %+v", stored)
	}
}

func TestUploadNoteUsesProfileDisplayName(t *testing.T) {
	a := newTestApp(t, "")
	owner := signUpUser(t, a, "seller@binus.ac.id")

	note := uploadTestNote(t, a, owner, "Notes A", "COMP6047", 10000)
	if note.AuthorName != "seller" {
		t.Fatalf("expected email local part without profile, got %q", note.AuthorName)
	}

	if _, err := a.SaveProfile(owner, "Sella", "Computer Science"); err != nil {
		t.Fatalf("save profile: %v", err)
	}
	note = uploadTestNote(t, a, owner, "Notes B", "COMP6047", 10000)
	if note.AuthorName != "Sella" {
		t.Fatalf("expected profile display name, got %q", note.AuthorName)
	}
}

func TestUploadNoteValidation(t *testing.T) {
	a := newTestApp(t, "")
	owner := signUpUser(t, a, "seller@binus.ac.id")

	f, size := pdfUpload()
	if _, err := a.UploadNote(owner, "", "COMP6047", 1000, "a.pdf", f, size); !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("expected title required, got: %v", err)
	}
	f, size = pdfUpload()
	if _, err := a.UploadNote(owner, "Notes", "", 1000, "a.pdf", f, size); !errors.Is(err, ErrCourseRequired) {
		t.Fatalf("expected course required, got: %v", err)
	}
	f, size = pdfUpload()
	if _, err := a.UploadNote(owner, "Notes", "COMP6047", -1, "a.pdf", f, size); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected invalid price, got: %v", err)
	}
	f, size = pdfUpload()
	if _, err := a.UploadNote(owner, "Notes", "COMP6047", 1000, "", f, size); !errors.Is(err, ErrFilenameRequired) {
		t.Fatalf("expected filename required, got: %v", err)
	}
}

func TestUploadNoteRejectsNonPDF(t *testing.T) {
	a := newTestApp(t, "")
	owner := signUpUser(t, a, "seller@binus.ac.id")

	data := []byte("PK\x03\x04 definitely a zip")
	f := bytes.NewReader(data)
	if _, err := a.UploadNote(owner, "Notes", "COMP6047", 1000, "a.pdf", f, int64(len(data))); !errors.Is(err, ErrNotPDF) {
		t.Fatalf("expected not-pdf rejection, got: %v", err)
	}
	if len(a.objects.puts) != 0 {
		t.Fatalf("rejected file must not reach object storage")
	}
}

func TestUploadNoteRejectsOversizedFile(t *testing.T) {
	memApp := newTestApp(t, "")
	owner := signUpUser(t, memApp, "seller@binus.ac.id")
	memApp.maxUpload = 16

	f, size := pdfUpload()
	if _, err := memApp.UploadNote(owner, "Notes", "COMP6047", 1000, "a.pdf", f, size); !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected file too large, got: %v", err)
	}
}

func TestUploadNoteCleansUpObjectWhenMetadataFails(t *testing.T) {
	a := newTestApp(t, "")
	owner := signUpUser(t, a, "seller@binus.ac.id")
	a.App.store = failingNoteStore{Store: a.store}

	f, size := pdfUpload()
	if _, err := a.App.UploadNote(owner, "Notes", "COMP6047", 1000, "a.pdf", f, size); err == nil {
		t.Fatalf("expected metadata save failure")
	}
	if len(a.objects.puts) != 1 || len(a.objects.deletes) != 1 {
		t.Fatalf("expected compensating delete, puts=%v deletes=%v", a.objects.puts, a.objects.deletes)
	}
	if a.objects.deletes[0] != a.objects.puts[0] {
		t.Fatalf("deleted wrong object: %s vs %s", a.objects.deletes[0], a.objects.puts[0])
	}
}

func TestBrowseNotesSearchAndFilters(t *testing.T) {
	a := newTestApp(t, "")
	seller := signUpUser(t, a, "seller@binus.ac.id")

	calc := uploadTestNote(t, a, seller, "Calculus I", "MATH6031", 25000)
	algo := uploadTestNote(t, a, seller, "Algorithm Design", "COMP6048", 30000)
	db := uploadTestNote(t, a, seller, "Database Systems", "COMP6049", 20000)
	if err := a.store.SetNoteRating(calc.ID, 4.9); err != nil {
		t.Fatalf("set rating: %v", err)
	}
	if err := a.store.SetNoteRating(algo.ID, 4.8); err != nil {
		t.Fatalf("set rating: %v", err)
	}
	if err := a.store.SetNoteRating(db.ID, 3.5); err != nil {
		t.Fatalf("set rating: %v", err)
	}

	all, err := a.BrowseNotes("", FilterAll)
	if err != nil {
		t.Fatalf("browse: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected full catalog, got %d", len(all))
	}

	byCourse, err := a.BrowseNotes("comp60", FilterAll)
	if err != nil {
		t.Fatalf("browse: %v", err)
	}
	if len(byCourse) != 2 {
		t.Fatalf("course search expected 2, got %d", len(byCourse))
	}

	byTitle, err := a.BrowseNotes("CALCULUS", FilterAll)
	if err != nil {
		t.Fatalf("browse: %v", err)
	}
	if len(byTitle) != 1 || byTitle[0].ID != calc.ID {
		t.Fatalf("title search failed: %+v", byTitle)
	}

	// Trending requires rating strictly above 4.8.
	trending, err := a.BrowseNotes("", FilterTrending)
	if err != nil {
		t.Fatalf("browse: %v", err)
	}
	if len(trending) != 1 || trending[0].ID != calc.ID {
		t.Fatalf("trending filter failed: %+v", trending)
	}

	top, err := a.BrowseNotes("", FilterTopRated)
	if err != nil {
		t.Fatalf("browse: %v", err)
	}
	if len(top) != 1 || top[0].ID != calc.ID {
		t.Fatalf("top rated filter failed: %+v", top)
	}
}

func TestGetNoteDetailViewerStanding(t *testing.T) {
	a := newTestApp(t, "")
	seller := signUpUser(t, a, "seller@binus.ac.id")
	buyer := signUpUser(t, a, "buyer@binus.ac.id")
	note := uploadTestNote(t, a, seller, "Notes", "COMP6047", 10000)

	detail, err := a.GetNoteDetail(seller, note.ID)
	if err != nil {
		t.Fatalf("owner detail: %v", err)
	}
	if !detail.IsOwner || detail.HasPurchased || detail.CanReview {
		t.Fatalf("owner standing wrong: %+v", detail)
	}

	detail, err = a.GetNoteDetail(buyer, note.ID)
	if err != nil {
		t.Fatalf("stranger detail: %v", err)
	}
	if detail.IsOwner || detail.HasPurchased || detail.CanReview {
		t.Fatalf("stranger standing wrong: %+v", detail)
	}

	if _, err := a.PurchaseNote(buyer, note.ID); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	detail, err = a.GetNoteDetail(buyer, note.ID)
	if err != nil {
		t.Fatalf("buyer detail: %v", err)
	}
	if !detail.HasPurchased || !detail.CanReview {
		t.Fatalf("buyer standing wrong: %+v", detail)
	}

	if _, err := a.SubmitReview(buyer, note.ID, 5, "great"); err != nil {
		t.Fatalf("review: %v", err)
	}
	detail, err = a.GetNoteDetail(buyer, note.ID)
	if err != nil {
		t.Fatalf("reviewer detail: %v", err)
	}
	if detail.CanReview {
		t.Fatalf("review eligibility must drop after reviewing: %+v", detail)
	}

	if _, err := a.GetNoteDetail(buyer, "missing"); !errors.Is(err, ErrNoteNotFound) {
		t.Fatalf("expected note not found, got: %v", err)
	}
}

func TestGetNoteFileURLAccess(t *testing.T) {
	a := newTestApp(t, "")
	seller := signUpUser(t, a, "seller@binus.ac.id")
	buyer := signUpUser(t, a, "buyer@binus.ac.id")
	note := uploadTestNote(t, a, seller, "Notes", "COMP6047", 10000)

	if _, err := a.GetNoteFileURL(buyer, note.ID); !errors.Is(err, ErrNotPurchased) {
		t.Fatalf("stranger must not get a URL, got: %v", err)
	}

	url, err := a.GetNoteFileURL(seller, note.ID)
	if err != nil {
		t.Fatalf("owner url: %v", err)
	}
	if !strings.Contains(url, note.StorageKey) {
		t.Fatalf("url does not reference the object: %q", url)
	}
	if !strings.Contains(url, note.OriginalFilename) {
		t.Fatalf("url missing download filename: %q", url)
	}

	if _, err := a.PurchaseNote(buyer, note.ID); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if _, err := a.GetNoteFileURL(buyer, note.ID); err != nil {
		t.Fatalf("buyer url: %v", err)
	}
}

func TestEditNoteOwnerOnlyAndRatingUntouched(t *testing.T) {
	a := newTestApp(t, "")
	seller := signUpUser(t, a, "seller@binus.ac.id")
	other := signUpUser(t, a, "other@binus.ac.id")
	note := uploadTestNote(t, a, seller, "Notes", "COMP6047", 10000)
	if err := a.store.SetNoteRating(note.ID, 4.2); err != nil {
		t.Fatalf("set rating: %v", err)
	}

	if _, err := a.EditNote(other, note.ID, "Hijacked", "COMP6047", 1); !errors.Is(err, ErrNotNoteOwner) {
		t.Fatalf("expected ownership check, got: %v", err)
	}

	updated, err := a.EditNote(seller, note.ID, "Notes v2", "COMP6048", 15000)
	if err != nil {
		t.Fatalf("edit note: %v", err)
	}
	if updated.Title != "Notes v2" || updated.Course != "COMP6048" || updated.Price != 15000 {
		t.Fatalf("edit not applied: %+v", updated)
	}

	stored, _, _ := a.store.GetNote(note.ID)
	if stored.Rating != 4.2 {
		t.Fatalf("edit changed the rating: %v", stored.Rating)
	}
}

func TestDeleteNoteRemovesObjectFirst(t *testing.T) {
	a := newTestApp(t, "")
	seller := signUpUser(t, a, "seller@binus.ac.id")
	other := signUpUser(t, a, "other@binus.ac.id")
	note := uploadTestNote(t, a, seller, "Notes", "COMP6047", 10000)

	if err := a.DeleteNote(other, note.ID); !errors.Is(err, ErrNotNoteOwner) {
		t.Fatalf("expected ownership check, got: %v", err)
	}

	if err := a.DeleteNote(seller, note.ID); err != nil {
		t.Fatalf("delete note: %v", err)
	}
	if len(a.objects.deletes) != 1 || a.objects.deletes[0] != note.StorageKey {
		t.Fatalf("object not deleted: %v", a.objects.deletes)
	}
	if _, ok, _ := a.store.GetNote(note.ID); ok {
		t.Fatalf("note metadata survived deletion")
	}
}

func TestDeleteNoteKeepsMetadataWhenObjectDeleteFails(t *testing.T) {
	a := newTestApp(t, "")
	seller := signUpUser(t, a, "seller@binus.ac.id")
	note := uploadTestNote(t, a, seller, "Notes", "COMP6047", 10000)

	a.objects.delErr = fmt.Errorf("storage unavailable")
	if err := a.DeleteNote(seller, note.ID); err == nil {
		t.Fatalf("expected delete failure")
	}
	if _, ok, _ := a.store.GetNote(note.ID); !ok {
		t.Fatalf("metadata must stay when the object delete fails")
	}
}

func TestDeleteNoteAdminOverride(t *testing.T) {
	a := newTestApp(t, "")
	admin := signUpUser(t, a, "admin@binus.ac.id")
	seller := signUpUser(t, a, "seller@binus.ac.id")
	note := uploadTestNote(t, a, seller, "Notes", "COMP6047", 10000)

	if err := a.DeleteNote(admin, note.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if _, ok, _ := a.store.GetNote(note.ID); ok {
		t.Fatalf("note survived admin deletion")
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"notes.pdf", "notes.pdf"},
		{"my notes (final).pdf", "my_notes_final_.pdf"},
		{"a/b\\c.pdf", "a_b_c.pdf"},
		{"catatan ujian.pdf", "catatan_ujian.pdf"},
		{"___", ""},
	}
	for _, tc := range cases {
		if got := sanitizeFilename(tc.in); got != tc.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
