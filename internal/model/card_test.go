package model

import "testing"

func ptr[T any](v T) *T { return &v }

func TestCardPatchApply_OnlyChangesSetFields(t *testing.T) {
	card := CreditCard{
		ID:              "c1",
		Bank:            "BBVA",
		CardName:        "Azul",
		Balance:         1000,
		CreditLimit:     5000,
		NextPaymentDate: "2025-01-15",
		MinimumPayment:  50,
		InterestRate:    3.5,
	}

	got := CardPatch{Balance: ptr(2000.0)}.Apply(card)

	if got.Balance != 2000 {
		t.Fatalf("Balance = %.2f, want 2000", got.Balance)
	}
	want := card
	want.Balance = 2000
	if got.ID != want.ID || got.Bank != want.Bank || got.CardName != want.CardName ||
		got.CreditLimit != want.CreditLimit || got.NextPaymentDate != want.NextPaymentDate ||
		got.MinimumPayment != want.MinimumPayment || got.InterestRate != want.InterestRate {
		t.Fatalf("Apply changed untouched fields: got %+v, want %+v", got, want)
	}
}

func TestCardPatchApply_CopiesTransactions(t *testing.T) {
	txs := []Transaction{{ID: "t1", Amount: 10}}
	got := CardPatch{Transactions: &txs}.Apply(CreditCard{ID: "c1"})

	txs[0].Amount = 99
	if got.Transactions[0].Amount != 10 {
		t.Fatalf("patched card shares transaction storage with the patch")
	}
}

func TestCardPatchRemote_DropsTransactions(t *testing.T) {
	txs := []Transaction{{ID: "t1"}}
	p := CardPatch{CardName: ptr("Oro"), Transactions: &txs}.Remote()
	if p.Transactions != nil {
		t.Fatal("Remote() kept transactions")
	}
	if p.CardName == nil || *p.CardName != "Oro" {
		t.Fatal("Remote() dropped card name")
	}
}

func TestCardPatchIsEmpty(t *testing.T) {
	if !(CardPatch{}).IsEmpty() {
		t.Fatal("zero patch should be empty")
	}
	if (CardPatch{InterestRate: ptr(2.0)}).IsEmpty() {
		t.Fatal("patch with interest rate reported empty")
	}
}

func TestCloneDoesNotShareTransactions(t *testing.T) {
	orig := CreditCard{ID: "c1", Transactions: []Transaction{{ID: "t1", Category: "Comida"}}}
	cp := orig.Clone()
	cp.Transactions[0].Category = "Otros"
	if orig.Transactions[0].Category != "Comida" {
		t.Fatalf("Clone shares storage: original category = %q", orig.Transactions[0].Category)
	}
}
