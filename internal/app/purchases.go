package app

import (
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"noted/internal/util"
	"noted/pkg/domain"
)

// PurchaseEntry is a purchase joined with the current state of its note.
// Available is false when the seller has since deleted the note; the
// denormalized title and price in the purchase still describe what was
// bought.
type PurchaseEntry struct {
	Purchase  domain.Purchase `json:"purchase"`
	Available bool            `json:"available"`
	Rating    float64         `json:"rating"`
}

// PurchaseNote records a purchase of the note by the buyer. Sellers
// cannot buy their own notes and double purchases are rejected.
func (a *App) PurchaseNote(buyer domain.User, noteID string) (domain.Purchase, error) {
	note, ok, err := a.store.GetNote(noteID)
	if err != nil {
		return domain.Purchase{}, fmt.Errorf("fetch note: %w", err)
	}
	if !ok {
		return domain.Purchase{}, ErrNoteNotFound
	}
	if note.AuthorID == buyer.ID {
		return domain.Purchase{}, ErrOwnNote
	}
	purchased, err := a.store.HasPurchase(buyer.ID, noteID)
	if err != nil {
		return domain.Purchase{}, fmt.Errorf("check purchase: %w", err)
	}
	if purchased {
		return domain.Purchase{}, ErrAlreadyPurchased
	}
	purchase := domain.Purchase{
		ID:          util.NewID(),
		BuyerID:     buyer.ID,
		NoteID:      noteID,
		NoteTitle:   note.Title,
		Price:       note.Price,
		PurchasedAt: time.Now().UTC(),
	}
	if err := a.store.SavePurchase(purchase); err != nil {
		return domain.Purchase{}, fmt.Errorf("save purchase: %w", err)
	}
	return purchase, nil
}

// ListPurchases returns the buyer's purchase history joined with the
// current note state. Note lookups run concurrently.
func (a *App) ListPurchases(buyer domain.User) ([]PurchaseEntry, error) {
	purchases, err := a.store.ListPurchasesByBuyer(buyer.ID)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	entries := make([]PurchaseEntry, len(purchases))
	var g errgroup.Group
	g.SetLimit(8)
	for i, p := range purchases {
		g.Go(func() error {
			note, ok, err := a.store.GetNote(p.NoteID)
			if err != nil {
				return fmt.Errorf("fetch note %s: %w", p.NoteID, err)
			}
			entry := PurchaseEntry{Purchase: p, Available: ok}
			if ok {
				entry.Rating = note.Rating
			}
			entries[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}
