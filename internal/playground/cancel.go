// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package playground

import (
	"context"
	"sync"

	"github.com/jeranaias/aihub-tui/internal/conversation"
)

// cancelManager holds the cancel function of the live request. It is
// touched from the caller and from the request goroutine.
type cancelManager struct {
	mu     sync.Mutex
	token  conversation.Token
	cancel context.CancelFunc
}

func newCancelManager() *cancelManager {
	return &cancelManager{}
}

// set replaces the stored function, cancelling any previous one.
func (cm *cancelManager) set(tok conversation.Token, fn context.CancelFunc) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancel != nil {
		cm.cancel()
	}
	cm.token = tok
	cm.cancel = fn
}

// cancelAll cancels the stored request, if any.
func (cm *cancelManager) cancelAll() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancel != nil {
		cm.cancel()
		cm.cancel = nil
		cm.token = 0
	}
}

// release cancels and forgets the function stored for tok. A newer
// request's function is left alone.
func (cm *cancelManager) release(tok conversation.Token) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancel != nil && cm.token == tok {
		cm.cancel()
		cm.cancel = nil
		cm.token = 0
	}
}
