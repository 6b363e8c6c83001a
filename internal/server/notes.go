package server

import (
	"net/http"
	"strconv"
	"strings"

	"noted/internal/app"
	"noted/pkg/domain"
)

func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		s.handleBrowseNotes(w, r, user)
	case http.MethodPost:
		s.handleUploadNote(w, r, user)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleBrowseNotes(w http.ResponseWriter, r *http.Request, user domain.User) {
	q := r.URL.Query()
	if parseBool(q.Get("mine")) {
		notes, err := s.app.ListMyNotes(user)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeNoteList(w, notes)
		return
	}
	notes, err := s.app.BrowseNotes(q.Get("q"), app.NoteFilter(strings.ToLower(q.Get("filter"))))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeNoteList(w, notes)
}

func (s *Server) handleUploadNote(w http.ResponseWriter, r *http.Request, user domain.User) {
	if !s.allowRate(w, r, s.uploadLimiter, "too many uploads") {
		s.audit(r, "notes.upload", "rate_limited", "user_id", user.ID)
		return
	}
	if max := s.app.MaxUploadBytes(); max > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, max)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required (field: file)")
		return
	}
	defer file.Close()

	price, err := parsePrice(r.FormValue("price"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid price")
		return
	}
	note, err := s.app.UploadNote(user, r.FormValue("title"), r.FormValue("course"), price, header.Filename, file, header.Size)
	if err != nil {
		s.audit(r, "notes.upload", "fail", "user_id", user.ID, "reason", err.Error())
		writeError(w, statusForError(err), err.Error())
		return
	}
	s.audit(r, "notes.upload", "success", "user_id", user.ID, "note_id", note.ID)
	writeJSON(w, http.StatusCreated, note)
}

// handleNoteSubtree dispatches /api/notes/{id}[/file|/purchase|/reviews].
func (s *Server) handleNoteSubtree(w http.ResponseWriter, r *http.Request, user domain.User) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/notes/")
	noteID, sub, _ := strings.Cut(rest, "/")
	if noteID == "" {
		http.NotFound(w, r)
		return
	}
	switch sub {
	case "":
		s.handleNoteByID(w, r, user, noteID)
	case "file":
		s.handleNoteFile(w, r, user, noteID)
	case "purchase":
		s.handlePurchase(w, r, user, noteID)
	case "reviews":
		s.handleNoteReviews(w, r, user, noteID)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleNoteByID(w http.ResponseWriter, r *http.Request, user domain.User, noteID string) {
	switch r.Method {
	case http.MethodGet:
		detail, err := s.app.GetNoteDetail(user, noteID)
		if err != nil {
			writeError(w, statusForError(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, detail)
	case http.MethodPatch:
		var req editNoteRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		note, err := s.app.EditNote(user, noteID, req.Title, req.Course, req.Price)
		if err != nil {
			writeError(w, statusForError(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, note)
	case http.MethodDelete:
		if err := s.app.DeleteNote(user, noteID); err != nil {
			s.audit(r, "notes.delete", "fail", "user_id", user.ID, "note_id", noteID, "reason", err.Error())
			writeError(w, statusForError(err), err.Error())
			return
		}
		s.audit(r, "notes.delete", "success", "user_id", user.ID, "note_id", noteID)
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleNoteFile(w http.ResponseWriter, r *http.Request, user domain.User, noteID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	url, err := s.app.GetNoteFileURL(user, noteID)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request, user domain.User, noteID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	purchase, err := s.app.PurchaseNote(user, noteID)
	if err != nil {
		s.audit(r, "notes.purchase", "fail", "user_id", user.ID, "note_id", noteID, "reason", err.Error())
		writeError(w, statusForError(err), err.Error())
		return
	}
	s.audit(r, "notes.purchase", "success", "user_id", user.ID, "note_id", noteID)
	writeJSON(w, http.StatusCreated, purchase)
}

func (s *Server) handleListPurchases(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	entries, err := s.app.ListPurchases(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": entries,
		"count": len(entries),
	})
}

func writeNoteList(w http.ResponseWriter, notes []domain.Note) {
	if notes == nil {
		notes = []domain.Note{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": notes,
		"count": len(notes),
	})
}

func parsePrice(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

func parseBool(raw string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && v
}

type editNoteRequest struct {
	Title  string `json:"title"`
	Course string `json:"course"`
	Price  int64  `json:"price"`
}
