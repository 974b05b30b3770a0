package domain

// WishlistEntry is a product snapshot saved for later.
type WishlistEntry struct {
	Product
}

// Wishlist is a user's set of saved products, unique by product id, kept in
// insertion order. Like Cart it is a value and mutations return a new one.
type Wishlist struct {
	UserID  string          `json:"user_id"`
	Entries []WishlistEntry `json:"entries"`
}

// NewWishlist returns an empty wishlist for the user.
func NewWishlist(userID string) Wishlist {
	return Wishlist{UserID: userID, Entries: []WishlistEntry{}}
}

func (w Wishlist) index(productID int64) int {
	for i, e := range w.Entries {
		if e.ID == productID {
			return i
		}
	}
	return -1
}

// Len is the number of saved products.
func (w Wishlist) Len() int {
	return len(w.Entries)
}

// Contains reports whether productID is saved.
func (w Wishlist) Contains(productID int64) bool {
	return w.index(productID) >= 0
}

// Entry returns the saved snapshot for productID.
func (w Wishlist) Entry(productID int64) (WishlistEntry, bool) {
	i := w.index(productID)
	if i < 0 {
		return WishlistEntry{}, false
	}
	return w.Entries[i], true
}

// Add saves p. Adding a product that is already saved is a no-op.
func (w Wishlist) Add(p Product) Wishlist {
	if w.Contains(p.ID) {
		return w
	}
	entries := make([]WishlistEntry, len(w.Entries), len(w.Entries)+1)
	copy(entries, w.Entries)
	entries = append(entries, WishlistEntry{Product: p})
	return Wishlist{UserID: w.UserID, Entries: entries}
}

// Remove drops productID if present.
func (w Wishlist) Remove(productID int64) Wishlist {
	i := w.index(productID)
	if i < 0 {
		return w
	}
	entries := make([]WishlistEntry, 0, len(w.Entries)-1)
	entries = append(entries, w.Entries[:i]...)
	entries = append(entries, w.Entries[i+1:]...)
	return Wishlist{UserID: w.UserID, Entries: entries}
}

// Toggle removes p when saved and adds it otherwise. The returned bool is
// true when p ends up saved.
func (w Wishlist) Toggle(p Product) (Wishlist, bool) {
	if w.Contains(p.ID) {
		return w.Remove(p.ID), false
	}
	return w.Add(p), true
}

// Clear empties the wishlist.
func (w Wishlist) Clear() Wishlist {
	return NewWishlist(w.UserID)
}

// MoveToCart adds the saved product to the cart and, only if that succeeds,
// drops it from the wishlist. On any error both inputs are returned unchanged.
func MoveToCart(w Wishlist, c Cart, productID int64) (Wishlist, Cart, error) {
	entry, ok := w.Entry(productID)
	if !ok {
		return w, c, ErrNotFound
	}
	next, err := c.AddOrIncrement(entry.Product)
	if err != nil {
		return w, c, err
	}
	return w.Remove(productID), next, nil
}

// Skipped names a wishlist entry that AddAllToCart could not add.
type Skipped struct {
	ProductID int64
	Err       error
}

// AddAllToCart adds one unit of every in-stock entry to the cart. Entries
// rejected for stock are reported and skipped; the wishlist is not modified.
func AddAllToCart(w Wishlist, c Cart) (Cart, int, []Skipped) {
	added := 0
	var skipped []Skipped
	for _, e := range w.Entries {
		next, err := c.AddOrIncrement(e.Product)
		if err != nil {
			skipped = append(skipped, Skipped{ProductID: e.ID, Err: err})
			continue
		}
		c = next
		added++
	}
	return c, added, skipped
}
