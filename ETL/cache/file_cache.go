// Package cache хранит уже прочитанные входные файлы. Запись действительна,
// пока у файла не изменились время модификации и размер.
package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/LilVoxy/wash_dashboard/ETL/metrics"
	"github.com/LilVoxy/wash_dashboard/ETL/models"
	lru "github.com/hashicorp/golang-lru/v2"
)

// LoadFunc читает файл по пути в сырую таблицу
type LoadFunc func(path string) (models.RawTable, error)

type entry struct {
	modTime time.Time
	size    int64
	table   models.RawTable
}

// FileCache - кэш сырых таблиц с ключом по пути и проверкой mtime/размера.
// Возвращаемые таблицы общие для всех вызывающих и не должны изменяться.
// Кэш также помнит файлы, которых не было при чтении, чтобы заметить их появление.
type FileCache struct {
	entries *lru.Cache[string, entry]

	mu      sync.Mutex
	missing map[string]bool
}

// NewFileCache создает кэш на size файлов
func NewFileCache(size int) (*FileCache, error) {
	entries, err := lru.New[string, entry](size)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания кэша файлов: %w", err)
	}
	return &FileCache{entries: entries, missing: make(map[string]bool)}, nil
}

// Load возвращает таблицу из кэша, если файл не менялся, иначе читает его через load
func (c *FileCache) Load(path string, load LoadFunc) (models.RawTable, error) {
	info, err := os.Stat(path)
	if err != nil {
		c.entries.Remove(path)
		if errors.Is(err, fs.ErrNotExist) {
			c.setMissing(path, true)
		}
		return models.RawTable{}, err
	}
	c.setMissing(path, false)

	if cached, ok := c.entries.Get(path); ok && sameFile(cached, info) {
		metrics.IncCacheHit()
		return cached.table, nil
	}

	metrics.IncCacheMiss()
	table, err := load(path)
	if err != nil {
		c.entries.Remove(path)
		return models.RawTable{}, err
	}

	c.entries.Add(path, entry{modTime: info.ModTime(), size: info.Size(), table: table})
	return table, nil
}

// Invalidate удаляет запись о файле
func (c *FileCache) Invalidate(path string) {
	c.entries.Remove(path)
	c.setMissing(path, false)
}

// Purge очищает кэш полностью
func (c *FileCache) Purge() {
	c.entries.Purge()

	c.mu.Lock()
	c.missing = make(map[string]bool)
	c.mu.Unlock()
}

// Missing возвращает отсортированный список файлов, которых не было при последнем чтении
func (c *FileCache) Missing() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	paths := make([]string, 0, len(c.missing))
	for path := range c.missing {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

func (c *FileCache) setMissing(path string, missing bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if missing {
		c.missing[path] = true
	} else {
		delete(c.missing, path)
	}
}

// Len возвращает число файлов в кэше
func (c *FileCache) Len() int {
	return c.entries.Len()
}

// Stale возвращает отсортированный список закэшированных файлов,
// которые изменились или исчезли с момента чтения, и отсутствовавших файлов,
// которые появились
func (c *FileCache) Stale() []string {
	var stale []string
	for _, path := range c.entries.Keys() {
		cached, ok := c.entries.Peek(path)
		if !ok {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || !sameFile(cached, info) {
			stale = append(stale, path)
		}
	}
	for _, path := range c.Missing() {
		if _, err := os.Stat(path); err == nil {
			stale = append(stale, path)
		}
	}
	sort.Strings(stale)
	return stale
}

func sameFile(e entry, info os.FileInfo) bool {
	return e.size == info.Size() && e.modTime.Equal(info.ModTime())
}
