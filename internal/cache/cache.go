// Package cache keeps OAuth2 tokens between sends.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
)

const tokenFile = "tokens.json"

// Cache stores tokens in memory and, when persistence is enabled, on disk.
type Cache struct {
	dir     string
	file    string
	persist bool
	entries map[string]*Entry
	mu      sync.RWMutex
}

// Entry is a cached token for one provider account
type Entry struct {
	Key      string        `json:"key"`
	Provider string        `json:"provider"`
	Account  string        `json:"account,omitempty"`
	Token    *oauth2.Token `json:"token"`
	SavedAt  time.Time     `json:"saved_at"`
}

// Usable reports whether the entry can yield an access token without a new login.
func (e *Entry) Usable() bool {
	if e == nil || e.Token == nil {
		return false
	}
	return e.Token.Valid() || e.Token.RefreshToken != ""
}

// Options configures cache behavior
type Options struct {
	Dir     string
	Persist bool
}

// DefaultOptions returns a memory-only cache rooted in the user cache dir
func DefaultOptions() Options {
	homeDir, _ := os.UserHomeDir()
	return Options{
		Dir:     filepath.Join(homeDir, ".cache", "mailform"),
		Persist: false,
	}
}

// New creates a token cache. Persisted caches load existing tokens.
func New(opts Options) (*Cache, error) {
	c := &Cache{
		dir:     opts.Dir,
		file:    filepath.Join(opts.Dir, tokenFile),
		persist: opts.Persist,
		entries: make(map[string]*Entry),
	}
	if !c.persist {
		return c, nil
	}

	if err := os.MkdirAll(opts.Dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	c.load()
	return c, nil
}

// Key generates a cache key from inputs
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Persistent reports whether tokens are written to disk
func (c *Cache) Persistent() bool {
	return c.persist
}

func (c *Cache) load() {
	data, err := os.ReadFile(c.file)
	if err != nil {
		return
	}
	entries := make(map[string]*Entry)
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Warn("Ignoring unreadable token cache", "path", c.file, "error", err)
		return
	}
	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
}

func (c *Cache) saveLocked() error {
	if !c.persist {
		return nil
	}
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.file, data, 0600)
}

// Get retrieves a cached token entry
func (c *Cache) Get(key string) (*Entry, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	log.Debug("Token cache hit", "key", key, "provider", entry.Provider)
	return entry, true
}

// Put stores a token
func (c *Cache) Put(key, provider, account string, token *oauth2.Token) error {
	entry := &Entry{
		Key:      key,
		Provider: provider,
		Account:  account,
		Token:    token,
		SavedAt:  time.Now(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry
	if err := c.saveLocked(); err != nil {
		return fmt.Errorf("failed to save token cache: %w", err)
	}

	log.Debug("Token cached", "key", key, "provider", provider, "persisted", c.persist)
	return nil
}

// Delete removes a token
func (c *Cache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		return nil
	}
	delete(c.entries, key)
	return c.saveLocked()
}

// Clear removes all tokens
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Entry)
	if !c.persist {
		return nil
	}
	if err := os.Remove(c.file); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Prune removes entries that can no longer produce an access token
func (c *Cache) Prune() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if !entry.Usable() {
			delete(c.entries, key)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, c.saveLocked()
}

// List returns the entries sorted by provider and account
func (c *Cache) List() []Entry {
	c.mu.RLock()
	list := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		list = append(list, *e)
	}
	c.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		if list[i].Provider != list[j].Provider {
			return list[i].Provider < list[j].Provider
		}
		return list[i].Account < list[j].Account
	})
	return list
}

// Stats returns cache statistics
func (c *Cache) Stats() map[string]interface{} {
	var stale int
	c.mu.RLock()
	for _, entry := range c.entries {
		if !entry.Usable() {
			stale++
		}
	}
	total := len(c.entries)
	c.mu.RUnlock()

	return map[string]interface{}{
		"entries":   total,
		"stale":     stale,
		"persisted": c.persist,
		"cache_dir": c.dir,
	}
}
