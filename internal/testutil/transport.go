package testutil

import (
	"context"
	"errors"
	"sync"

	"tg-gate-bot/internal/domain"
)

// ErrSendFailed возвращается FakeTransport для чатов из FailChats.
var ErrSendFailed = errors.New("fake transport: send failed")

// Sent — записанная отправка.
type Sent struct {
	Chat domain.ChatRef
	Msg  domain.Outgoing
	Ref  domain.MessageRef
}

// Edit — записанное изменение сообщения.
type Edit struct {
	Ref      domain.MessageRef
	Text     string
	Controls domain.Keyboard
}

// FakeTransport запоминает все вызовы и отвечает статусами из Statuses.
type FakeTransport struct {
	mu sync.Mutex

	Statuses   map[string]domain.MemberStatus
	FailChecks map[string]bool
	FailChats  map[int64]bool
	FailEdits  bool

	Sent      []Sent
	Edits     []Edit
	Callbacks []string
	nextID    int
}

// NewFakeTransport создаёт пустой фейк.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{
		Statuses:   map[string]domain.MemberStatus{},
		FailChecks: map[string]bool{},
		FailChats:  map[int64]bool{},
	}
}

func (f *FakeTransport) Membership(_ context.Context, ch domain.Channel, _ int64) (domain.MemberStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailChecks[ch.String()] {
		return "", domain.ErrTransport
	}
	status, ok := f.Statuses[ch.String()]
	if !ok {
		return domain.MemberStatusLeft, nil
	}
	return status, nil
}

func (f *FakeTransport) Send(_ context.Context, chat domain.ChatRef, msg domain.Outgoing) (domain.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailChats[chat.ID] {
		return domain.MessageRef{}, ErrSendFailed
	}
	f.nextID++
	ref := domain.MessageRef{ChatID: chat.ID, MessageID: f.nextID}
	f.Sent = append(f.Sent, Sent{Chat: chat, Msg: msg, Ref: ref})
	return ref, nil
}

func (f *FakeTransport) EditControls(_ context.Context, ref domain.MessageRef, controls domain.Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailEdits {
		return domain.ErrTransport
	}
	f.Edits = append(f.Edits, Edit{Ref: ref, Controls: controls})
	return nil
}

func (f *FakeTransport) EditText(_ context.Context, ref domain.MessageRef, text string, controls domain.Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailEdits {
		return domain.ErrTransport
	}
	f.Edits = append(f.Edits, Edit{Ref: ref, Text: text, Controls: controls})
	return nil
}

func (f *FakeTransport) AnswerCallback(_ context.Context, callbackID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Callbacks = append(f.Callbacks, callbackID)
	return nil
}

// LastSent возвращает последнюю отправку.
func (f *FakeTransport) LastSent() (Sent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Sent) == 0 {
		return Sent{}, false
	}
	return f.Sent[len(f.Sent)-1], true
}

// SentTo возвращает отправки в указанный чат.
func (f *FakeTransport) SentTo(chatID int64) []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Sent
	for _, s := range f.Sent {
		if s.Chat.ID == chatID {
			out = append(out, s)
		}
	}
	return out
}

// Reset забывает записанные вызовы.
func (f *FakeTransport) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sent = nil
	f.Edits = nil
	f.Callbacks = nil
}
