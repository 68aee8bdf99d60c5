package domain

import (
	"context"
	"unicode/utf16"
)

// MemberStatus описывает статус пользователя в канале.
type MemberStatus string

const (
	MemberStatusMember        MemberStatus = "member"
	MemberStatusAdministrator MemberStatus = "administrator"
	MemberStatusOwner         MemberStatus = "owner"
	MemberStatusRestricted    MemberStatus = "restricted"
	MemberStatusLeft          MemberStatus = "left"
	MemberStatusKicked        MemberStatus = "kicked"
)

// Subscribed сообщает, считается ли статус подпиской.
func (s MemberStatus) Subscribed() bool {
	switch s {
	case MemberStatusMember, MemberStatusAdministrator, MemberStatusOwner:
		return true
	default:
		return false
	}
}

// MessageKind задаёт тип исходящего сообщения.
type MessageKind string

const (
	KindText  MessageKind = "text"
	KindPhoto MessageKind = "photo"
	KindVideo MessageKind = "video"
)

// ParseMessageKind разбирает тип сообщения.
func ParseMessageKind(value string) (MessageKind, bool) {
	switch kind := MessageKind(value); kind {
	case KindText, KindPhoto, KindVideo:
		return kind, true
	default:
		return "", false
	}
}

// ChatRef адресует чат по идентификатору или по публичному алиасу.
type ChatRef struct {
	ID       int64
	Username string
}

// MessageRef указывает на отправленное сообщение.
type MessageRef struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int   `json:"message_id"`
}

// IsZero сообщает, что ссылка не задана.
func (r MessageRef) IsZero() bool {
	return r.MessageID == 0
}

// Лимиты Telegram в UTF-16 символах.
const (
	TextLimit    = 4096
	CaptionLimit = 1024
)

// TextLength считает длину так же, как Telegram: в кодовых единицах UTF-16.
func TextLength(text string) int {
	n := 0
	for _, r := range text {
		n += len(utf16.Encode([]rune{r}))
	}
	return n
}

// FitsCaption сообщает, поместится ли текст в подпись к фото или видео.
func FitsCaption(text string) bool {
	return TextLength(text) <= CaptionLimit
}

// Outgoing описывает исходящее сообщение. Для фото и видео Text используется как подпись.
type Outgoing struct {
	Kind     MessageKind
	Text     string
	Media    string
	Controls Keyboard
}

// Transport — контракт мессенджера, которым пользуется ядро.
type Transport interface {
	Membership(ctx context.Context, channel Channel, userID int64) (MemberStatus, error)
	Send(ctx context.Context, chat ChatRef, msg Outgoing) (MessageRef, error)
	EditControls(ctx context.Context, ref MessageRef, controls Keyboard) error
	EditText(ctx context.Context, ref MessageRef, text string, controls Keyboard) error
}

// DocumentStore хранит коллекции целиком: без частичных обновлений и транзакций между коллекциями.
// Отсутствующая коллекция читается как пустая.
type DocumentStore interface {
	LoadUsers(ctx context.Context) (Users, error)
	SaveUsers(ctx context.Context, users Users) error
	LoadChannels(ctx context.Context) ([]Channel, error)
	SaveChannels(ctx context.Context, channels []Channel) error
	LoadCatalog(ctx context.Context) (Catalog, error)
	SaveCatalog(ctx context.Context, catalog Catalog) error
}

// SessionStore — таблица сессий пользователей.
type SessionStore interface {
	Get(ctx context.Context, userID int64) (Session, bool, error)
	Put(ctx context.Context, session Session) error
	Delete(ctx context.Context, userID int64) error
}

// BroadcastQueue описывает очередь задач рассылки.
type BroadcastQueue interface {
	Enqueue(ctx context.Context, job BroadcastJob) error
	Pop(ctx context.Context) (BroadcastJob, error)
}
