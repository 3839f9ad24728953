package tui

import (
	"fmt"

	"github.com/chronicle-labs/chronicle/internal/actions"
)

// confirmRequest crosses from an actioner goroutine into the Update loop:
// the worker blocks on resp while the overlay is shown.
type confirmRequest struct {
	prompt string
	resp   chan bool
}

// chanConfirmer implements actions.Confirmer for background actioners by
// round-tripping the question through the program as messages.
type chanConfirmer struct {
	requests chan confirmRequest
}

func newChanConfirmer() *chanConfirmer {
	return &chanConfirmer{requests: make(chan confirmRequest)}
}

func (c *chanConfirmer) Confirm(prompt string) bool {
	req := confirmRequest{prompt: prompt, resp: make(chan bool, 1)}
	c.requests <- req
	return <-req.resp
}

// chanNotifier implements actions.Notifier by feeding the status bar.
type chanNotifier struct {
	notices chan noticeMsg
}

func newChanNotifier() *chanNotifier {
	return &chanNotifier{notices: make(chan noticeMsg, 16)}
}

func (n *chanNotifier) Info(msg string)  { n.push(levelInfo, msg) }
func (n *chanNotifier) Warn(msg string)  { n.push(levelWarn, msg) }
func (n *chanNotifier) Error(msg string) { n.push(levelError, msg) }

func (n *chanNotifier) push(level levelKind, text string) {
	select {
	case n.notices <- noticeMsg{level: level, text: text}:
	default:
		// A full queue drops the oldest notice.
		select {
		case <-n.notices:
		default:
		}
		n.notices <- noticeMsg{level: level, text: text}
	}
}

// actionContext builds the capability context handed to actioners invoked
// from the TUI.
func (a *App) actionContext() actions.Context {
	actx := actions.Context{
		actions.KeyClipboard: actions.SystemClipboard(),
		actions.KeyConfirmer: actions.Confirmer(a.confirmer),
		actions.KeyNotifier:  actions.Notifier(a.notifier),
		actions.KeyOnDeleted: func(ids []string) { a.deleted <- ids },
	}
	if a.store != nil {
		actx[actions.KeyStore] = a.store
	}
	if a.saveDir != "" {
		actx[actions.KeySaveDir] = a.saveDir
	}
	return actx
}

// invokeItem runs a menu item on the executor so a confirming actioner can
// block without freezing the interface.
func (a *App) invokeItem(item actions.MenuItem) {
	actx := a.actionContext()
	a.exec.Submit(func() (any, error) {
		item.Invoke(actx)
		return nil, nil
	}, fmt.Sprintf("Running %s...", item.Label), false)
}
