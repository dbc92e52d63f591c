package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/order_console/internal/utils"
)

type editorKey struct {
	token   string
	orderID int
}

type registryEntry struct {
	editor      *OrderEditor
	unsubscribe func()
}

// EditorRegistry keeps the open order editors of every session. An editor
// is dropped as soon as it navigates away.
type EditorRegistry struct {
	orders OrderStore

	mu      sync.Mutex
	editors map[editorKey]*registryEntry
}

// NewEditorRegistry constructs an empty EditorRegistry.
func NewEditorRegistry(orders OrderStore) *EditorRegistry {
	return &EditorRegistry{
		orders:  orders,
		editors: make(map[editorKey]*registryEntry),
	}
}

// Open returns the session's editor for orderID, loading a new one when
// none is open.
func (r *EditorRegistry) Open(ctx context.Context, token string, orderID int) (*OrderEditor, error) {
	key := editorKey{token: token, orderID: orderID}
	if ed, err := r.Get(token, orderID); err == nil {
		return ed, nil
	}

	ed := NewOrderEditor(r.orders, orderID)
	if err := ed.Load(ctx); err != nil {
		return nil, err
	}

	entry := &registryEntry{editor: ed}
	entry.unsubscribe = ed.State().Subscribe(func(s EditorState, _ uint64) {
		if s.Phase == PhaseNavigated {
			r.evict(key, ed)
		}
	})

	r.mu.Lock()
	if cur, ok := r.editors[key]; ok && cur.editor.State().Get().Phase != PhaseNavigated {
		r.mu.Unlock()
		entry.unsubscribe()
		ed.Close()
		return cur.editor, nil
	}
	r.editors[key] = entry
	r.mu.Unlock()

	if ed.State().Get().Phase == PhaseNavigated {
		r.evict(key, ed)
		return nil, fmt.Errorf("open order %d: %w", orderID, utils.ErrEditorClosed)
	}

	log.Debug().Int("order_id", orderID).Msg("Order editor opened")
	return ed, nil
}

// Get returns the open editor for orderID or ErrEditorNotOpen.
func (r *EditorRegistry) Get(token string, orderID int) (*OrderEditor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.editors[editorKey{token: token, orderID: orderID}]
	if !ok || entry.editor.State().Get().Phase == PhaseNavigated {
		return nil, fmt.Errorf("order %d: %w", orderID, utils.ErrEditorNotOpen)
	}
	return entry.editor, nil
}

// CloseSession closes every editor opened with token.
func (r *EditorRegistry) CloseSession(token string) int {
	r.mu.Lock()
	var editors []*OrderEditor
	for key, entry := range r.editors {
		if key.token == token {
			editors = append(editors, entry.editor)
		}
	}
	r.mu.Unlock()

	for _, ed := range editors {
		ed.Close()
	}
	return len(editors)
}

// CloseInactive closes the editors of every session for which active
// reports false. Sessions that expire in the store never sign out, so their
// editors are only released here.
func (r *EditorRegistry) CloseInactive(ctx context.Context, active func(ctx context.Context, token string) bool) int {
	r.mu.Lock()
	tokens := make(map[string]struct{})
	for key := range r.editors {
		tokens[key.token] = struct{}{}
	}
	r.mu.Unlock()

	closed := 0
	for token := range tokens {
		if ctx.Err() != nil {
			break
		}
		if !active(ctx, token) {
			closed += r.CloseSession(token)
		}
	}
	return closed
}

// Len returns the number of open editors.
func (r *EditorRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.editors)
}

func (r *EditorRegistry) evict(key editorKey, ed *OrderEditor) {
	r.mu.Lock()
	entry, ok := r.editors[key]
	if ok && entry.editor == ed {
		delete(r.editors, key)
	}
	r.mu.Unlock()

	if ok && entry.editor == ed && entry.unsubscribe != nil {
		entry.unsubscribe()
	}
}
