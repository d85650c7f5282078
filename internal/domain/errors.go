package domain

import "errors"

var (
	// ErrProductNotFound means a referenced product does not exist in the
	// catalog. Adds are rejected with it; totals and views skip the line.
	ErrProductNotFound = errors.New("product not found")

	// ErrInvalidQuantity means a non-positive quantity was supplied where a
	// positive one is required.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")

	// ErrLineNotFound means the cart holds no line for the given product.
	ErrLineNotFound = errors.New("product not in cart")

	// ErrCartMergeFailed means the merge-on-auth could not complete
	// atomically. The anonymous cart is left intact for a retried login.
	ErrCartMergeFailed = errors.New("cart merge failed")

	// ErrStorageUnavailable means the durable store or session store could
	// not be reached. Never masked as a successful operation.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrUnauthenticated means the operation required a login context that
	// is absent or expired.
	ErrUnauthenticated = errors.New("unauthenticated")
)
