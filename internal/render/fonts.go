package render

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"invoicer/internal/logger"
)

// Unicode font files looked up in the font directory.
const (
	RegularFontFile = "DejaVuSans.ttf"
	BoldFontFile    = "DejaVuSans-Bold.ttf"
)

type fontSet struct {
	regular []byte
	bold    []byte
	err     error
}

// FontCache loads the Unicode font files once per directory and remembers
// failures for the lifetime of the process. It is safe for concurrent use.
type FontCache struct {
	mu    sync.Mutex
	fonts map[string]*fontSet
}

// NewFontCache creates an empty font cache.
func NewFontCache() *FontCache {
	return &FontCache{fonts: make(map[string]*fontSet)}
}

// sharedFonts backs engines created with NewEngine.
var sharedFonts = NewFontCache()

// Load returns the regular and bold font bytes found in dir.
func (c *FontCache) Load(dir string) (regular, bold []byte, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if set, ok := c.fonts[dir]; ok {
		return set.regular, set.bold, set.err
	}

	set := &fontSet{}
	set.regular, set.err = os.ReadFile(filepath.Join(dir, RegularFontFile))
	if set.err == nil {
		set.bold, set.err = os.ReadFile(filepath.Join(dir, BoldFontFile))
	}
	if set.err != nil {
		set.regular, set.bold = nil, nil
		set.err = fmt.Errorf("%w: %v", ErrFontUnavailable, set.err)
		c.warn(dir, set.err)
	}
	c.fonts[dir] = set

	return set.regular, set.bold, set.err
}

// MarkUnavailable records that the fonts in dir were read but rejected by the
// PDF library, so later renders go straight to the fallback.
func (c *FontCache) MarkUnavailable(dir string, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if set, ok := c.fonts[dir]; ok && set.err != nil {
		return
	}
	err := fmt.Errorf("%w: %v", ErrFontUnavailable, cause)
	c.fonts[dir] = &fontSet{err: err}
	c.warn(dir, err)
}

func (c *FontCache) warn(dir string, err error) {
	// The shared cache outlives logger setup, so look the logger up here
	log := logger.WithComponent("render")
	log.Warn().
		Err(err).
		Str("font_dir", dir).
		Msg("Unicode font unavailable, falling back to Helvetica with EUR label")
}
