// Package soundbank indexes reaction audio assets by category and resolves
// reaction modes to concrete assets. The catalog is scanned once at
// startup and is read-only afterwards; there is no hot-reload.
package soundbank

import (
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-audio/wav"
	gocache "github.com/patrickmn/go-cache"

	"github.com/treeguard/woodpecker-go/internal/errors"
	"github.com/treeguard/woodpecker-go/internal/logging"
)

// Sentinel errors surfaced to callers.
var (
	// ErrEmptyCategory means a category (or a whole mode group) holds no
	// assets. Reaction is skipped; detection statistics are unaffected.
	ErrEmptyCategory = errors.NewStd("sound category has no assets")
	// ErrNotFound means a requested category or asset does not exist.
	ErrNotFound = errors.NewStd("sound asset not found")
	// ErrSilentMode means resolve was called for the silent mode; callers
	// are expected to short-circuit before resolving.
	ErrSilentMode = errors.NewStd("silent mode resolves no category")
)

// assetCacheTTL bounds how long served asset bytes stay in memory.
const assetCacheTTL = 10 * time.Minute

// Asset is one playable file inside a category.
type Asset struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration,omitempty"` // probed for wav files, 0 when unknown
}

// Catalog is the read-only index of reaction sounds. Pick and Resolve
// share an injected random source guarded by a mutex, so a single catalog
// serves all sessions.
type Catalog struct {
	root       string
	categories map[string][]Asset
	names      []string // sorted category names
	total      int

	rng   *rand.Rand
	rngMu sync.Mutex

	cache  *gocache.Cache // asset bytes for HTTP serving
	logger *slog.Logger
}

// New scans the asset root and builds the catalog. An unreadable root or a
// catalog without a single asset is a fatal startup error: serving
// reactions from an empty catalog would silently do nothing.
func New(root string, seed uint64) (*Catalog, error) {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	c := &Catalog{
		root:       root,
		categories: make(map[string][]Asset),
		rng:        rand.New(rand.NewPCG(seed, seed>>1|1)),
		cache:      gocache.New(assetCacheTTL, assetCacheTTL*2),
		logger:     logging.ForService("soundbank"),
	}

	if err := c.scan(); err != nil {
		return nil, err
	}
	if c.total == 0 {
		return nil, errors.Newf("no sound assets found under %s", root).
			Component("soundbank").
			Category(errors.CategoryResource).
			Build()
	}

	if c.logger != nil {
		c.logger.Info("sound catalog scanned",
			"root", root,
			"categories", len(c.names),
			"assets", c.total)
	}
	return c, nil
}

// scan walks <root>/<category>/<asset>. Only directories become
// categories; only regular audio files become assets.
func (c *Catalog) scan() error {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		return errors.New(err).
			Component("soundbank").
			Category(errors.CategoryFileIO).
			Context("root", c.root).
			Build()
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		category := entry.Name()
		files, err := os.ReadDir(filepath.Join(c.root, category))
		if err != nil {
			return errors.New(err).
				Component("soundbank").
				Category(errors.CategoryFileIO).
				Context("category", category).
				Build()
		}

		var assets []Asset
		for _, f := range files {
			if f.IsDir() || !isAudioFile(f.Name()) {
				continue
			}
			assets = append(assets, Asset{
				Name:     f.Name(),
				Duration: c.probeDuration(category, f.Name()),
			})
		}
		sort.Slice(assets, func(i, j int) bool { return assets[i].Name < assets[j].Name })

		// Empty directories still register as categories so listings show
		// them, but they are never eligible for selection.
		c.categories[category] = assets
		c.names = append(c.names, category)
		c.total += len(assets)
	}
	sort.Strings(c.names)
	return nil
}

func isAudioFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp3", ".wav":
		return true
	default:
		return false
	}
}

// probeDuration reads the duration of wav assets for catalog listings.
// Other formats report zero; a broken file is not fatal, only unprobed.
func (c *Catalog) probeDuration(category, name string) time.Duration {
	if strings.ToLower(filepath.Ext(name)) != ".wav" {
		return 0
	}
	f, err := os.Open(filepath.Join(c.root, category, name))
	if err != nil {
		return 0
	}
	defer f.Close()

	d, err := wav.NewDecoder(f).Duration()
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("failed to probe wav duration", "category", category, "asset", name, "error", err)
		}
		return 0
	}
	return d
}

// Categories returns all category names in sorted order.
func (c *Catalog) Categories() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Assets returns the assets of a category, or ErrNotFound.
func (c *Catalog) Assets(category string) ([]Asset, error) {
	assets, ok := c.categories[category]
	if !ok {
		return nil, errors.New(ErrNotFound).
			Component("soundbank").
			Category(errors.CategoryNotFound).
			Context("category", category).
			Build()
	}
	out := make([]Asset, len(assets))
	copy(out, assets)
	return out, nil
}

// Listing returns the full category to asset mapping.
func (c *Catalog) Listing() map[string][]Asset {
	out := make(map[string][]Asset, len(c.categories))
	for name, assets := range c.categories {
		cp := make([]Asset, len(assets))
		copy(cp, assets)
		out[name] = cp
	}
	return out
}

// TotalAssets returns the number of assets across all categories.
func (c *Catalog) TotalAssets() int {
	return c.total
}

// Pick selects one asset uniformly at random from the category. An
// unknown category is ErrNotFound; a known but empty one is
// ErrEmptyCategory.
func (c *Catalog) Pick(category string) (string, error) {
	assets, ok := c.categories[category]
	if !ok {
		return "", errors.New(ErrNotFound).
			Component("soundbank").
			Category(errors.CategoryNotFound).
			Context("category", category).
			Build()
	}
	if len(assets) == 0 {
		return "", errors.New(ErrEmptyCategory).
			Component("soundbank").
			Category(errors.CategoryResource).
			Context("category", category).
			Build()
	}
	c.rngMu.Lock()
	idx := c.rng.IntN(len(assets))
	c.rngMu.Unlock()
	return assets[idx].Name, nil
}

// Resolve maps a reaction mode to a category chosen uniformly from the
// mode's pool. Categories without assets are never eligible, so mixed
// mode cannot land on an empty category. ErrEmptyCategory is returned
// only when the whole pool is empty.
func (c *Catalog) Resolve(mode Mode) (string, error) {
	if mode == ModeSilent {
		return "", errors.New(ErrSilentMode).
			Component("soundbank").
			Category(errors.CategoryValidation).
			Build()
	}

	var eligible []string
	for _, name := range c.names {
		if mode.inGroup(name) && len(c.categories[name]) > 0 {
			eligible = append(eligible, name)
		}
	}
	if len(eligible) == 0 {
		return "", errors.New(ErrEmptyCategory).
			Component("soundbank").
			Category(errors.CategoryResource).
			Context("mode", string(mode)).
			Build()
	}

	c.rngMu.Lock()
	idx := c.rng.IntN(len(eligible))
	c.rngMu.Unlock()
	return eligible[idx], nil
}

// Open returns the raw bytes and media type of one asset for HTTP
// serving. Bytes are cached with a TTL so repeated reactions do not
// reread the file.
func (c *Catalog) Open(category, name string) ([]byte, string, error) {
	assets, ok := c.categories[category]
	if !ok {
		return nil, "", errors.New(ErrNotFound).
			Component("soundbank").
			Category(errors.CategoryNotFound).
			Context("category", category).
			Build()
	}
	found := false
	for _, a := range assets {
		if a.Name == name {
			found = true
			break
		}
	}
	if !found {
		return nil, "", errors.New(ErrNotFound).
			Component("soundbank").
			Category(errors.CategoryNotFound).
			Context("category", category).
			Context("asset", name).
			Build()
	}

	mediaType := mediaTypeFor(name)
	key := category + "/" + name
	if data, ok := c.cache.Get(key); ok {
		return data.([]byte), mediaType, nil
	}

	data, err := os.ReadFile(filepath.Join(c.root, category, name))
	if err != nil {
		return nil, "", errors.New(err).
			Component("soundbank").
			Category(errors.CategoryFileIO).
			Context("category", category).
			Context("asset", name).
			Build()
	}
	c.cache.Set(key, data, gocache.DefaultExpiration)
	return data, mediaType, nil
}

func mediaTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".wav":
		return "audio/wav"
	default:
		return "audio/mpeg"
	}
}
