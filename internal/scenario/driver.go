package scenario

import "context"

// Driver is a live browser session. Every method blocks until the browser
// reports the expected condition or ctx is done. Lookups must resolve to
// exactly one element; drivers wrap ErrElementNotFound, ErrAmbiguous,
// ErrNotInteractable and ErrNavigation so failures can be classified.
type Driver interface {
	// Name identifies the automation library, e.g. "playwright".
	Name() string
	Navigate(ctx context.Context, url string) error
	Type(ctx context.Context, selector, text string) error
	Value(ctx context.Context, selector string) (string, error)
	Submit(ctx context.Context, selector string) error
	Click(ctx context.Context, selector string) error
	WaitPresent(ctx context.Context, selector string) error
	WaitAbsent(ctx context.Context, selector string) error
	Screenshot(ctx context.Context, path string) error
	Close() error
}

// Backend answers whether the application's API still lists an item.
type Backend interface {
	HasTitle(ctx context.Context, title string) (bool, error)
}
