package catalog

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository keeps the catalog in maps behind one RWMutex so that the
// store/item reference check and the cascade happen atomically.
type MemoryRepository struct {
	mu          sync.RWMutex
	nextStoreID int64
	nextItemID  int64
	stores      map[int64]Store
	storeNames  map[string]int64
	items       map[int64]Item
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		stores:     make(map[int64]Store),
		storeNames: make(map[string]int64),
		items:      make(map[int64]Item),
	}
}

func (r *MemoryRepository) ListStores(ctx context.Context) ([]Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Store, 0, len(r.stores))
	for _, s := range r.stores {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepository) GetStore(ctx context.Context, id int64) (Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.stores[id]
	if !ok {
		return Store{}, ErrNotFound
	}
	return s, nil
}

// CreateStore ignores s.ID and assigns the next free one.
func (r *MemoryRepository) CreateStore(ctx context.Context, s Store) (Store, error) {
	if err := ValidateStore(s); err != nil {
		return Store{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.storeNames[s.Name]; taken {
		return Store{}, ErrDuplicateName
	}
	r.nextStoreID++
	s.ID = r.nextStoreID
	r.putStoreLocked(s)
	return s, nil
}

func (r *MemoryRepository) PutStore(ctx context.Context, s Store) (Store, error) {
	if err := validateID(s.ID); err != nil {
		return Store{}, err
	}
	if err := ValidateStore(s); err != nil {
		return Store{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, taken := r.storeNames[s.Name]; taken && owner != s.ID {
		return Store{}, ErrDuplicateName
	}
	if prev, ok := r.stores[s.ID]; ok {
		delete(r.storeNames, prev.Name)
	}
	if s.ID > r.nextStoreID {
		r.nextStoreID = s.ID
	}
	r.putStoreLocked(s)
	return s, nil
}

func (r *MemoryRepository) putStoreLocked(s Store) {
	r.stores[s.ID] = s
	r.storeNames[s.Name] = s.ID
}

// DeleteStore removes the store and every item that references it.
func (r *MemoryRepository) DeleteStore(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.stores[id]
	if !ok {
		return ErrNotFound
	}
	for itemID, it := range r.items {
		if it.StoreID == id {
			delete(r.items, itemID)
		}
	}
	delete(r.stores, id)
	delete(r.storeNames, s.Name)
	return nil
}

// ListItems returns every item when storeID is 0, otherwise only the items
// of that store.
func (r *MemoryRepository) ListItems(ctx context.Context, storeID int64) ([]Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Item, 0, len(r.items))
	for _, it := range r.items {
		if storeID == 0 || it.StoreID == storeID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepository) GetItem(ctx context.Context, id int64) (Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	it, ok := r.items[id]
	if !ok {
		return Item{}, ErrNotFound
	}
	return it, nil
}

func (r *MemoryRepository) CreateItem(ctx context.Context, it Item) (Item, error) {
	if err := ValidateItem(it); err != nil {
		return Item{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.stores[it.StoreID]; !ok {
		return Item{}, invalid("store_id", "references an unknown store")
	}
	r.nextItemID++
	it.ID = r.nextItemID
	r.items[it.ID] = it
	return it, nil
}

func (r *MemoryRepository) PutItem(ctx context.Context, it Item) (Item, error) {
	if err := validateID(it.ID); err != nil {
		return Item{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.items[it.ID]; ok {
		it.StoreID = prev.StoreID
		if err := ValidateItem(it); err != nil {
			return Item{}, err
		}
		r.items[it.ID] = it
		return it, nil
	}

	if err := ValidateItem(it); err != nil {
		return Item{}, err
	}
	if _, ok := r.stores[it.StoreID]; !ok {
		return Item{}, invalid("store_id", "references an unknown store")
	}
	if it.ID > r.nextItemID {
		r.nextItemID = it.ID
	}
	r.items[it.ID] = it
	return it, nil
}

func (r *MemoryRepository) DeleteItem(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return ErrNotFound
	}
	delete(r.items, id)
	return nil
}
