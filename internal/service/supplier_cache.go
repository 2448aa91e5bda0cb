package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrowbid-backend/internal/models"
)

// SupplierDirectory возвращает контакты поставщика.
type SupplierDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
}

type supplierInvalidator interface {
	Invalidate(id uuid.UUID)
}

type supplierEntry struct {
	supplier  models.Supplier
	expiresAt time.Time
}

// SupplierCache кэширует контакты поставщиков для рассылки писем.
// Справочник поставщиков ведётся вне сервиса и меняется редко.
type SupplierCache struct {
	mu      sync.RWMutex
	next    SupplierDirectory
	ttl     time.Duration
	entries map[uuid.UUID]supplierEntry
	now     Clock
}

// NewSupplierCache создаёт кэш поверх справочника.
func NewSupplierCache(next SupplierDirectory, ttl time.Duration) *SupplierCache {
	return &SupplierCache{
		next:    next,
		ttl:     ttl,
		entries: make(map[uuid.UUID]supplierEntry),
		now:     systemClock,
	}
}

// GetByID возвращает поставщика из кэша или из справочника.
func (c *SupplierCache) GetByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	c.mu.RLock()
	entry, ok := c.entries[id]
	c.mu.RUnlock()

	if ok && c.now().Before(entry.expiresAt) {
		s := entry.supplier
		return &s, nil
	}

	supplier, err := c.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[id] = supplierEntry{supplier: *supplier, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()

	return supplier, nil
}

// Invalidate удаляет поставщика из кэша. Dispatcher вызывает его после неудачной отправки письма.
func (c *SupplierCache) Invalidate(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// RunCleanup периодически удаляет устаревшие записи до отмены контекста.
func (c *SupplierCache) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

func (c *SupplierCache) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for id, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, id)
		}
	}
}
