package domain

import "fmt"

// AccountKind discriminates the two account variants. Buyers and sellers
// share an identifier scheme but are distinct kinds, not subtypes.
type AccountKind string

const (
	KindBuyer  AccountKind = "buyer"
	KindSeller AccountKind = "seller"
)

// Valid reports whether k is a known account kind.
func (k AccountKind) Valid() bool {
	return k == KindBuyer || k == KindSeller
}

// Account identifies an authenticated caller.
type Account struct {
	ID       int64       `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Kind     AccountKind `json:"role"`
}

// Key returns the shared identifier scheme used across stores,
// "user_<id>" for buyers and "seller_<id>" for sellers.
func (a Account) Key() string {
	if a.Kind == KindSeller {
		return fmt.Sprintf("seller_%d", a.ID)
	}
	return fmt.Sprintf("user_%d", a.ID)
}

// HasCart reports whether this account kind owns a shopping cart.
// Sellers never do; merge-on-auth is skipped for them.
func (a Account) HasCart() bool {
	return a.Kind == KindBuyer
}
