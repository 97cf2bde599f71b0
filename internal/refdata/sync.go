package refdata

import (
	"context"
	"fmt"
	"time"

	"finsync/internal"
	"finsync/internal/config"
	"finsync/internal/erp"
	"finsync/internal/storage"
)

var allKinds = []internal.RefKind{
	internal.KindVendor,
	internal.KindAccount,
	internal.KindDepartment,
	internal.KindLocation,
	internal.KindCurrency,
	internal.KindItem,
}

type SyncService struct {
	db     *storage.DB
	client *erp.Client
	cfg    config.Config
}

func NewSyncService(db *storage.DB, cfg config.Config) *SyncService {
	return &SyncService{db: db, client: erp.NewClient(cfg), cfg: cfg}
}

// Refresh pulls master records for the given kinds (all when empty) into the
// local cache. The reconciler only ever reads the cache, never the ERP.
func (s *SyncService) Refresh(ctx context.Context, kinds []internal.RefKind) (int, error) {
	if len(kinds) == 0 {
		kinds = allKinds
	}

	total := 0
	for _, kind := range kinds {
		entities, err := s.client.FetchReferences(ctx, kind)
		if err != nil {
			return total, fmt.Errorf("fetch %s: %w", kind, err)
		}
		if err := s.db.UpsertReferences(entities); err != nil {
			return total, fmt.Errorf("store %s: %w", kind, err)
		}
		total += len(entities)
		_ = s.db.SetMetadata("refdata.last_sync."+string(kind), time.Now().UTC().Format(time.RFC3339))
	}
	return total, nil
}

// LoadResolver builds a resolver over the cached entities for one scope.
func LoadResolver(db *storage.DB, sandbox bool) (*Resolver, error) {
	entities, err := db.ListAllReferences(sandbox)
	if err != nil {
		return nil, err
	}
	return NewResolver(BuildIndex(entities)), nil
}
