package app

import (
	"errors"
	"testing"
)

func TestPurchaseNoteGuards(t *testing.T) {
	a := newTestApp(t, "")
	seller := signUpUser(t, a, "seller@binus.ac.id")
	buyer := signUpUser(t, a, "buyer@binus.ac.id")
	note := uploadTestNote(t, a, seller, "Notes", "COMP6047", 25000)

	if _, err := a.PurchaseNote(seller, note.ID); !errors.Is(err, ErrOwnNote) {
		t.Fatalf("seller must not buy own note, got: %v", err)
	}
	if _, err := a.PurchaseNote(buyer, "missing"); !errors.Is(err, ErrNoteNotFound) {
		t.Fatalf("expected note not found, got: %v", err)
	}

	purchase, err := a.PurchaseNote(buyer, note.ID)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if purchase.NoteTitle != "Notes" || purchase.Price != 25000 {
		t.Fatalf("purchase must denormalize title and price: %+v", purchase)
	}

	if _, err := a.PurchaseNote(buyer, note.ID); !errors.Is(err, ErrAlreadyPurchased) {
		t.Fatalf("expected double purchase rejection, got: %v", err)
	}
}

func TestPurchasePriceFixedAtPurchaseTime(t *testing.T) {
	a := newTestApp(t, "")
	seller := signUpUser(t, a, "seller@binus.ac.id")
	buyer := signUpUser(t, a, "buyer@binus.ac.id")
	note := uploadTestNote(t, a, seller, "Notes", "COMP6047", 25000)

	purchase, err := a.PurchaseNote(buyer, note.ID)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if _, err := a.EditNote(seller, note.ID, "Notes", "COMP6047", 99000); err != nil {
		t.Fatalf("edit note: %v", err)
	}

	entries, err := a.ListPurchases(buyer)
	if err != nil {
		t.Fatalf("list purchases: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one purchase, got %d", len(entries))
	}
	if entries[0].Purchase.ID != purchase.ID || entries[0].Purchase.Price != 25000 {
		t.Fatalf("price raise leaked into purchase history: %+v", entries[0])
	}
}

func TestListPurchasesJoinsCurrentNoteState(t *testing.T) {
	a := newTestApp(t, "")
	seller := signUpUser(t, a, "seller@binus.ac.id")
	buyer := signUpUser(t, a, "buyer@binus.ac.id")

	kept := uploadTestNote(t, a, seller, "Kept", "COMP6047", 10000)
	doomed := uploadTestNote(t, a, seller, "Doomed", "COMP6048", 20000)
	for _, id := range []string{kept.ID, doomed.ID} {
		if _, err := a.PurchaseNote(buyer, id); err != nil {
			t.Fatalf("purchase %s: %v", id, err)
		}
	}
	if _, err := a.SubmitReview(buyer, kept.ID, 4, "solid"); err != nil {
		t.Fatalf("review: %v", err)
	}
	if err := a.DeleteNote(seller, doomed.ID); err != nil {
		t.Fatalf("delete note: %v", err)
	}

	entries, err := a.ListPurchases(buyer)
	if err != nil {
		t.Fatalf("list purchases: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 purchases, got %d", len(entries))
	}
	byTitle := make(map[string]PurchaseEntry, len(entries))
	for _, e := range entries {
		byTitle[e.Purchase.NoteTitle] = e
	}
	keptEntry, ok := byTitle["Kept"]
	if !ok || !keptEntry.Available || keptEntry.Rating != 4.0 {
		t.Fatalf("kept note entry wrong: %+v", keptEntry)
	}
	doomedEntry, ok := byTitle["Doomed"]
	if !ok || doomedEntry.Available || doomedEntry.Rating != 0 {
		t.Fatalf("deleted note entry wrong: %+v", doomedEntry)
	}
}
