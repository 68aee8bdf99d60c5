package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// User описывает пользователя Telegram, хотя бы раз отправившего /start.
type User struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	Username  string    `json:"username,omitempty"`
	JoinedAt  Timestamp `json:"joined_date"`
}

// Timestamp читает время как в RFC3339, так и в формате «2006-01-02 15:04:05-07:00»,
// которым записаны старые выгрузки users.json.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05.999999-07:00",
	"2006-01-02 15:04:05",
}

// UnmarshalJSON реализует json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*t = Timestamp{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("неизвестный формат времени %q", raw)
}

// Users хранит пользователей по строковому представлению идентификатора.
type Users map[string]User

// Key возвращает ключ пользователя в коллекции.
func (u User) Key() string {
	return strconv.FormatInt(u.ID, 10)
}

// ProfileURL возвращает ссылку на профиль пользователя.
func (u User) ProfileURL() string {
	if u.Username != "" {
		return "https://t.me/" + u.Username
	}
	return fmt.Sprintf("tg://user?id=%d", u.ID)
}

// ChannelMarker отмечает публичный канал.
const ChannelMarker = "@"

// Channel описывает канал, подписка на который обязательна.
// Публичный канал задаётся алиасом с @, приватный — отрицательным идентификатором.
type Channel struct {
	Handle string
	ID     int64
}

// PublicChannel создаёт публичный канал.
func PublicChannel(handle string) Channel {
	return Channel{Handle: handle}
}

// PrivateChannel создаёт приватный канал.
func PrivateChannel(id int64) Channel {
	return Channel{ID: id}
}

// IsPublic сообщает, задан ли канал алиасом.
func (c Channel) IsPublic() bool {
	return c.Handle != ""
}

// String возвращает значение канала в том виде, в каком его вводит админ.
func (c Channel) String() string {
	if c.IsPublic() {
		return c.Handle
	}
	return strconv.FormatInt(c.ID, 10)
}

// Chat возвращает адрес канала для отправки сообщений.
func (c Channel) Chat() ChatRef {
	if c.IsPublic() {
		return ChatRef{Username: c.Handle}
	}
	return ChatRef{ID: c.ID}
}

// JoinURL возвращает ссылку для подписки.
func (c Channel) JoinURL() string {
	if c.IsPublic() {
		return "https://t.me/" + strings.TrimPrefix(c.Handle, ChannelMarker)
	}
	return fmt.Sprintf("https://t.me/+%d", c.ID)
}

// ParseChannelValue восстанавливает канал из строкового значения без проверки формы.
func ParseChannelValue(value string) (Channel, error) {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, ChannelMarker) {
		return PublicChannel(value), nil
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return Channel{}, fmt.Errorf("канал %q: %w", value, ErrValidation)
	}
	return PrivateChannel(id), nil
}

// MarshalJSON сохраняет публичный канал строкой, приватный — числом.
func (c Channel) MarshalJSON() ([]byte, error) {
	if c.IsPublic() {
		return json.Marshal(c.Handle)
	}
	return json.Marshal(c.ID)
}

// UnmarshalJSON принимает строку или число.
func (c *Channel) UnmarshalJSON(data []byte) error {
	var handle string
	if err := json.Unmarshal(data, &handle); err == nil {
		parsed, err := ParseChannelValue(handle)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	}
	var id int64
	if err := json.Unmarshal(data, &id); err != nil {
		return fmt.Errorf("канал: ожидали строку или число: %w", err)
	}
	*c = PrivateChannel(id)
	return nil
}

// Part описывает одну серию многосерийного тайтла.
type Part struct {
	Name string `json:"part_name"`
	URL  string `json:"part_url"`
}

// Item описывает тайтл каталога: либо простой (одно видео), либо многосерийный.
type Item struct {
	Number   string `json:"-"`
	Title    string `json:"title"`
	VideoURL string `json:"video_url,omitempty"`
	Parts    int    `json:"parts,omitempty"`
	PartData []Part `json:"part_data,omitempty"`
	Views    int    `json:"views"`
}

// IsPaginated сообщает, состоит ли тайтл из серий.
func (i Item) IsPaginated() bool {
	return i.Parts > 0 || len(i.PartData) > 0
}

// Clone возвращает копию без общих срезов.
func (i Item) Clone() Item {
	if i.PartData != nil {
		i.PartData = append([]Part(nil), i.PartData...)
	}
	return i
}

// Validate проверяет, что тайтл готов к выдаче.
func (i Item) Validate() error {
	if strings.TrimSpace(i.Number) == "" {
		return fmt.Errorf("пустой номер: %w", ErrValidation)
	}
	if strings.TrimSpace(i.Title) == "" {
		return fmt.Errorf("пустое название: %w", ErrValidation)
	}
	if !i.IsPaginated() {
		if i.VideoURL == "" {
			return fmt.Errorf("нет видео: %w", ErrValidation)
		}
		return nil
	}
	if len(i.PartData) > i.Parts {
		return fmt.Errorf("серий %d при заявленных %d: %w", len(i.PartData), i.Parts, ErrValidation)
	}
	for idx, part := range i.PartData {
		if part.URL == "" {
			return fmt.Errorf("серия %d без видео: %w", idx, ErrValidation)
		}
	}
	return nil
}

// Catalog хранит тайтлы по внешнему номеру.
type Catalog map[string]Item
