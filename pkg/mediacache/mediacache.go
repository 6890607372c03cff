// Package mediacache хранит сгенерированные медиа-байты между
// запросом генерации и последующей выдачей по ссылке.
//
// Кэш процессный и эфемерный: рестарт сервера обнуляет его, ссылки
// после рестарта отдают 404. Это осознанный компромисс — байты
// живут ровно столько, сколько нужно браузеру чтобы их забрать.
package mediacache

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL — время жизни записи по умолчанию.
const DefaultTTL = time.Hour

// Entry — закэшированные байты с их content type.
type Entry struct {
	Data        []byte
	ContentType string
	storedAt    time.Time
}

// Cache — expiring map под одним мьютексом.
//
// Eviction ленивый и происходит на записи: каждый Put выбрасывает
// все записи старше TTL. Фонового тикера нет — при простое память
// держится до следующей записи, что для короткоживущих медиа
// приемлемо.
type Cache struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[string]Entry

	// now подменяется в тестах
	now func() time.Time
}

// New создает кэш с заданным TTL. ttl <= 0 заменяется DefaultTTL.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl: ttl,
		m:   make(map[string]Entry),
		now: time.Now,
	}
}

// Put сохраняет байты и возвращает новый идентификатор записи.
func (c *Cache) Put(data []byte, contentType string) string {
	id := uuid.NewString()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictLocked()
	c.m[id] = Entry{
		Data:        data,
		ContentType: contentType,
		storedAt:    c.now(),
	}

	return id
}

// Get возвращает запись по идентификатору.
// Просроченная запись считается отсутствующей.
func (c *Cache) Get(id string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.m[id]
	if !ok {
		return Entry{}, false
	}
	if c.now().Sub(entry.storedAt) > c.ttl {
		delete(c.m, id)
		return Entry{}, false
	}

	return entry, true
}

// Len возвращает число записей, включая ещё не вычищенные просроченные.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

func (c *Cache) evictLocked() {
	cutoff := c.now().Add(-c.ttl)
	for id, entry := range c.m {
		if entry.storedAt.Before(cutoff) {
			delete(c.m, id)
		}
	}
}
