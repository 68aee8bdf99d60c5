package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// AdminSet — статический список администраторов.
type AdminSet map[int64]struct{}

// NewAdminSet создаёт список администраторов.
func NewAdminSet(ids ...int64) AdminSet {
	set := make(AdminSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// ParseAdminIDs разбирает идентификаторы через запятую.
func ParseAdminIDs(raw string) (AdminSet, error) {
	set := make(AdminSet)
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		id, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("некорректный id администратора %q: %w", field, err)
		}
		set[id] = struct{}{}
	}
	return set, nil
}

// Contains сообщает, является ли пользователь администратором.
func (s AdminSet) Contains(userID int64) bool {
	_, ok := s[userID]
	return ok
}
