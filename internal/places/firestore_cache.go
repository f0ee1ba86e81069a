package places

import (
	"context"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	pfirestore "github.com/lijid/lijid-dotcom/internal/platform/firestore"
)

// DefaultCacheCollection holds site state documents.
const DefaultCacheCollection = "siteState"

// FirestoreIDCache shares the identifier across instances through one document.
type FirestoreIDCache struct {
	provider   *pfirestore.Provider
	collection string
	clock      func() time.Time
}

var _ IDCache = (*FirestoreIDCache)(nil)

type placeIDDocument struct {
	PlaceID   string    `firestore:"placeId"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// NewFirestoreIDCache stores the identifier at collection/CacheKey.
func NewFirestoreIDCache(provider *pfirestore.Provider, collection string) *FirestoreIDCache {
	if strings.TrimSpace(collection) == "" {
		collection = DefaultCacheCollection
	}
	return &FirestoreIDCache{
		provider:   provider,
		collection: collection,
		clock:      func() time.Time { return time.Now().UTC() },
	}
}

func (c *FirestoreIDCache) doc(ctx context.Context) (*firestore.DocumentRef, error) {
	return c.provider.Doc(ctx, c.collection, CacheKey)
}

// Get implements IDCache. A missing document reads as "".
func (c *FirestoreIDCache) Get(ctx context.Context) (string, error) {
	ref, err := c.doc(ctx)
	if err != nil {
		return "", err
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		if pfirestore.IsNotFound(err) {
			return "", nil
		}
		return "", pfirestore.WrapError("places.cache.get", err)
	}
	var doc placeIDDocument
	if err := snap.DataTo(&doc); err != nil {
		return "", pfirestore.WrapError("places.cache.decode", err)
	}
	return strings.TrimSpace(doc.PlaceID), nil
}

// Set implements IDCache.
func (c *FirestoreIDCache) Set(ctx context.Context, id string) error {
	ref, err := c.doc(ctx)
	if err != nil {
		return err
	}
	_, err = ref.Set(ctx, placeIDDocument{PlaceID: id, UpdatedAt: c.clock()})
	return pfirestore.WrapError("places.cache.set", err)
}

// Clear implements IDCache.
func (c *FirestoreIDCache) Clear(ctx context.Context) error {
	ref, err := c.doc(ctx)
	if err != nil {
		return err
	}
	_, err = ref.Delete(ctx)
	return pfirestore.WrapError("places.cache.clear", err)
}
