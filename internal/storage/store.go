package storage

import "context"

// Well-known keys. The names match the browser localStorage entries of the
// original front-end so a dump of either store reads the same.
const (
	KeyAuthToken       = "authToken"
	KeyTokenExpiration = "tokenExpiration"
	KeyApplicationID   = "applicationId"
)

// Store is the process-wide key-value storage holding the credential and a
// handful of preference flags. All values are strings, like localStorage.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error

	// SetPair writes both keys in one synchronous operation so no reader can
	// observe one updated and the other stale. An empty value removes the key
	// instead of storing it.
	SetPair(ctx context.Context, key1, value1, key2, value2 string) error

	// DeletePair removes both keys in one synchronous operation.
	DeletePair(ctx context.Context, key1, key2 string) error
}
