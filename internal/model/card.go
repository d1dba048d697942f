// Package model defines domain types for smartpay profiles, cards and analyses.
package model

// Banks lists the issuers offered by the add-card prompts. Bank stays a free string on
// CreditCard so cards from other issuers still round-trip.
var Banks = []string{"BBVA", "Klar", "Banorte", "CitiBanamex", "HSBC", "Santander", "ScotiaBank"}

// DateLayout is the layout of NextPaymentDate and Transaction.Date.
const DateLayout = "2006-01-02"

// Transaction is a single movement on a card. It has no lifecycle of its own.
type Transaction struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount" validate:"finite"` // positive = charge, negative = payment/refund
	Category    string  `json:"category"`
	Date        string  `json:"date" validate:"required,isodate"`
}

// CreditCard is one card tracked in the session.
type CreditCard struct {
	ID              string        `json:"id"`
	Bank            string        `json:"bank"`
	CardName        string        `json:"cardName"`
	Balance         float64       `json:"balance"`
	CreditLimit     float64       `json:"creditLimit"`
	NextPaymentDate string        `json:"nextPaymentDate"`
	MinimumPayment  float64       `json:"minimumPayment"`
	InterestRate    float64       `json:"interestRate"` // monthly, percent
	Transactions    []Transaction `json:"transactions"`
}

// Clone returns a copy that shares no slice storage with c.
func (c CreditCard) Clone() CreditCard {
	if c.Transactions != nil {
		txs := make([]Transaction, len(c.Transactions))
		copy(txs, c.Transactions)
		c.Transactions = txs
	}
	return c
}

// Fields returns the card without its id and transactions, the shape mirrored remotely.
func (c CreditCard) Fields() CardFields {
	return CardFields{
		Bank:            c.Bank,
		CardName:        c.CardName,
		Balance:         c.Balance,
		CreditLimit:     c.CreditLimit,
		NextPaymentDate: c.NextPaymentDate,
		MinimumPayment:  c.MinimumPayment,
		InterestRate:    c.InterestRate,
	}
}

// CardFields is the remote representation of a card.
type CardFields struct {
	Bank            string  `json:"bank" validate:"required,notblank"`
	CardName        string  `json:"cardName" validate:"required,notblank"`
	Balance         float64 `json:"balance" validate:"finite,gte=0"`
	CreditLimit     float64 `json:"creditLimit" validate:"finite,gt=0"`
	NextPaymentDate string  `json:"nextPaymentDate" validate:"required,isodate"`
	MinimumPayment  float64 `json:"minimumPayment" validate:"finite,gte=0"`
	InterestRate    float64 `json:"interestRate" validate:"finite,gte=0"`
}

// CardPatch is a partial card update. Nil fields are left untouched.
type CardPatch struct {
	Bank            *string        `json:"bank,omitempty" validate:"omitnil,notblank"`
	CardName        *string        `json:"cardName,omitempty" validate:"omitnil,notblank"`
	Balance         *float64       `json:"balance,omitempty" validate:"omitnil,finite,gte=0"`
	CreditLimit     *float64       `json:"creditLimit,omitempty" validate:"omitnil,finite,gt=0"`
	NextPaymentDate *string        `json:"nextPaymentDate,omitempty" validate:"omitnil,isodate"`
	MinimumPayment  *float64       `json:"minimumPayment,omitempty" validate:"omitnil,finite,gte=0"`
	InterestRate    *float64       `json:"interestRate,omitempty" validate:"omitnil,finite,gte=0"`
	Transactions    *[]Transaction `json:"transactions,omitempty"`
}

// Apply merges the non-nil fields of p into c and returns the result.
func (p CardPatch) Apply(c CreditCard) CreditCard {
	if p.Bank != nil {
		c.Bank = *p.Bank
	}
	if p.CardName != nil {
		c.CardName = *p.CardName
	}
	if p.Balance != nil {
		c.Balance = *p.Balance
	}
	if p.CreditLimit != nil {
		c.CreditLimit = *p.CreditLimit
	}
	if p.NextPaymentDate != nil {
		c.NextPaymentDate = *p.NextPaymentDate
	}
	if p.MinimumPayment != nil {
		c.MinimumPayment = *p.MinimumPayment
	}
	if p.InterestRate != nil {
		c.InterestRate = *p.InterestRate
	}
	if p.Transactions != nil {
		txs := make([]Transaction, len(*p.Transactions))
		copy(txs, *p.Transactions)
		c.Transactions = txs
	}
	return c
}

// Remote drops the fields that are never mirrored to the remote service.
func (p CardPatch) Remote() CardPatch {
	p.Transactions = nil
	return p
}

// IsEmpty reports whether the patch changes nothing.
func (p CardPatch) IsEmpty() bool {
	return p.Bank == nil && p.CardName == nil && p.Balance == nil && p.CreditLimit == nil &&
		p.NextPaymentDate == nil && p.MinimumPayment == nil && p.InterestRate == nil &&
		p.Transactions == nil
}
