package server

import (
	"net/http"
	"strings"

	"noted/pkg/domain"
)

func (s *Server) handleNoteReviews(w http.ResponseWriter, r *http.Request, user domain.User, noteID string) {
	switch r.Method {
	case http.MethodGet:
		reviews, err := s.app.ListReviews(noteID)
		if err != nil {
			writeError(w, statusForError(err), err.Error())
			return
		}
		if reviews == nil {
			reviews = []domain.Review{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"items": reviews,
			"count": len(reviews),
		})
	case http.MethodPost:
		var req reviewRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		review, err := s.app.SubmitReview(user, noteID, req.Rating, req.Comment)
		if err != nil {
			writeError(w, statusForError(err), err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, review)
	default:
		methodNotAllowed(w)
	}
}

// handleReviewSubtree dispatches /api/reviews/{id}[/replies[/{replyID}]].
func (s *Server) handleReviewSubtree(w http.ResponseWriter, r *http.Request, user domain.User) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/reviews/")
	reviewID, sub, _ := strings.Cut(rest, "/")
	if reviewID == "" {
		http.NotFound(w, r)
		return
	}
	switch {
	case sub == "":
		s.handleReviewByID(w, r, user, reviewID)
	case sub == "replies":
		s.handleCreateReply(w, r, user, reviewID)
	case strings.HasPrefix(sub, "replies/"):
		replyID := strings.TrimPrefix(sub, "replies/")
		if replyID == "" || strings.Contains(replyID, "/") {
			http.NotFound(w, r)
			return
		}
		s.handleDeleteReply(w, r, user, reviewID, replyID)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleReviewByID(w http.ResponseWriter, r *http.Request, user domain.User, reviewID string) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	if err := s.app.DeleteReview(user, reviewID); err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateReply(w http.ResponseWriter, r *http.Request, user domain.User, reviewID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req replyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	reply, err := s.app.SubmitReply(user, reviewID, req.Text)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, reply)
}

func (s *Server) handleDeleteReply(w http.ResponseWriter, r *http.Request, user domain.User, reviewID, replyID string) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	if err := s.app.DeleteReply(user, reviewID, replyID); err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type replyRequest struct {
	Text string `json:"text"`
}
