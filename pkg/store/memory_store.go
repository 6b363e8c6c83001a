package store

import (
	"crypto/rand"
	"encoding/hex"
	"math"
	"sort"
	"sync"

	"noted/pkg/domain"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]domain.User
	profiles  map[string]domain.Profile
	notes     map[string]domain.Note
	noteOrder []string
	purchases map[string]domain.Purchase
	purOrder  []string
	reviews   map[string]domain.Review
	revOrder  []string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]domain.User),
		profiles:  make(map[string]domain.Profile),
		notes:     make(map[string]domain.Note),
		purchases: make(map[string]domain.Purchase),
		reviews:   make(map[string]domain.Review),
	}
}

func (s *MemoryStore) SaveUser(u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	return nil
}

func (s *MemoryStore) HasUserEmail(email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, true, nil
		}
	}
	return domain.User{}, false, nil
}

func (s *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok, nil
}

func (s *MemoryStore) UserCount() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

func (s *MemoryStore) SaveProfile(p domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
	return nil
}

func (s *MemoryStore) GetProfile(userID string) (domain.Profile, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	return p, ok, nil
}

func (s *MemoryStore) SaveNote(n domain.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.notes[n.ID]; !exists {
		s.noteOrder = append(s.noteOrder, n.ID)
	}
	s.notes[n.ID] = n
	return nil
}

func (s *MemoryStore) UpdateNoteDetails(id, title, course string, price int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[id]
	if !ok {
		return nil
	}
	n.Title = title
	n.Course = course
	n.Price = price
	s.notes[id] = n
	return nil
}

func (s *MemoryStore) SetNoteRating(id string, rating float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[id]
	if !ok {
		return nil
	}
	n.Rating = rating
	s.notes[id] = n
	return nil
}

func (s *MemoryStore) ListNotes() ([]domain.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]domain.Note, 0, len(s.noteOrder))
	for _, id := range s.noteOrder {
		if n, ok := s.notes[id]; ok {
			res = append(res, n)
		}
	}
	return res, nil
}

func (s *MemoryStore) ListNotesByAuthor(authorID string) ([]domain.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []domain.Note
	for _, id := range s.noteOrder {
		if n, ok := s.notes[id]; ok && n.AuthorID == authorID {
			res = append(res, n)
		}
	}
	return res, nil
}

func (s *MemoryStore) GetNote(id string) (domain.Note, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[id]
	return n, ok, nil
}

func (s *MemoryStore) DeleteNote(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.notes, id)
	for i, nid := range s.noteOrder {
		if nid == id {
			s.noteOrder = append(s.noteOrder[:i], s.noteOrder[i+1:]...)
			break
		}
	}
	for rid, r := range s.reviews {
		if r.NoteID == id {
			delete(s.reviews, rid)
		}
	}
	return nil
}

func (s *MemoryStore) SavePurchase(p domain.Purchase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.purchases[p.ID]; !exists {
		s.purOrder = append(s.purOrder, p.ID)
	}
	s.purchases[p.ID] = p
	return nil
}

func (s *MemoryStore) HasPurchase(buyerID, noteID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.purchases {
		if p.BuyerID == buyerID && p.NoteID == noteID {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) ListPurchasesByBuyer(buyerID string) ([]domain.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []domain.Purchase
	for _, id := range s.purOrder {
		if p, ok := s.purchases[id]; ok && p.BuyerID == buyerID {
			res = append(res, p)
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].PurchasedAt.After(res[j].PurchasedAt)
	})
	return res, nil
}

func (s *MemoryStore) SaveReview(r domain.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.Replies == nil {
		r.Replies = []domain.Reply{}
	}
	if _, exists := s.reviews[r.ID]; !exists {
		s.revOrder = append(s.revOrder, r.ID)
	}
	s.reviews[r.ID] = r
	return nil
}

func (s *MemoryStore) GetReview(id string) (domain.Review, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reviews[id]
	return r, ok, nil
}

func (s *MemoryStore) ListReviewsByNote(noteID string) ([]domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []domain.Review
	for i := len(s.revOrder) - 1; i >= 0; i-- {
		if r, ok := s.reviews[s.revOrder[i]]; ok && r.NoteID == noteID {
			res = append(res, r)
		}
	}
	return res, nil
}

func (s *MemoryStore) HasReview(userID, noteID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.reviews {
		if r.UserID == userID && r.NoteID == noteID {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) DeleteReview(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reviews, id)
	for i, rid := range s.revOrder {
		if rid == id {
			s.revOrder = append(s.revOrder[:i], s.revOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) AppendReply(reviewID string, reply domain.Reply) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[reviewID]
	if !ok {
		return nil
	}
	// Full-slice expression forces a fresh backing array so callers holding
	// earlier snapshots never see the append.
	r.Replies = append(r.Replies[:len(r.Replies):len(r.Replies)], reply)
	s.reviews[reviewID] = r
	return nil
}

func (s *MemoryStore) RemoveReply(reviewID, replyID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[reviewID]
	if !ok {
		return false, nil
	}
	for i, rep := range r.Replies {
		if rep.ID == replyID {
			r.Replies = append(r.Replies[:i:i], r.Replies[i+1:]...)
			s.reviews[reviewID] = r
			return true, nil
		}
	}
	return false, nil
}

// RecomputeNoteRating recomputes the note's rating under the store lock,
// so concurrent writers see each other's reviews.
func (s *MemoryStore) RecomputeNoteRating(noteID string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[noteID]
	if !ok {
		return 0, nil
	}
	var sum, count float64
	for _, r := range s.reviews {
		if r.NoteID == noteID {
			sum += float64(r.Rating)
			count++
		}
	}
	rating := 0.0
	if count > 0 {
		rating = math.Round(sum/count*10) / 10
	}
	n.Rating = rating
	s.notes[noteID] = n
	return rating, nil
}

// MemorySessionStore is an in-memory SessionStore for tests.
type MemorySessionStore struct {
	mu   sync.Mutex
	sess map[string]string
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sess: make(map[string]string)}
}

func (s *MemorySessionStore) NewSession(userID string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess[token] = userID
	return token, nil
}

func (s *MemorySessionStore) GetUserIDByToken(token string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.sess[token]
	return id, ok, nil
}

func (s *MemorySessionStore) DeleteSession(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sess, token)
	return nil
}
