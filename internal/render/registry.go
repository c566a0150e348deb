package render

import (
	"bytes"
	"sync"

	"govarnam/internal/token"
)

// Context is the state a custom renderer sees for one token.
type Context struct {
	Virama   *token.Token
	Previous *token.Token
}

// Func renders one token into the output buffer. Returning
// result.ErrPartialRendering hands the token back to the default
// rules; any other error aborts the render.
type Func func(ctx *Context, cur *token.Token, out *bytes.Buffer) error

// Renderer is a forward/reverse pair for one scheme.
type Renderer struct {
	Forward Func
	Reverse Func
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*Renderer)
)

// Register installs a custom renderer for a scheme id, replacing any
// earlier registration.
func Register(schemeID string, r Renderer) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[schemeID] = &r
}

func lookup(schemeID string) *Renderer {
	if schemeID == "" {
		return nil
	}
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry[schemeID]
}
