package domain

import (
	"strconv"
	"strings"
)

// Control — кнопка под сообщением: либо действие, либо ссылка.
type Control struct {
	Label  string
	Action string
	URL    string
}

// Keyboard — набор кнопок по рядам.
type Keyboard [][]Control

// Row собирает ряд кнопок.
func Row(controls ...Control) []Control {
	return controls
}

// ActionControl создаёт кнопку с действием.
func ActionControl(label, action string) Control {
	return Control{Label: label, Action: action}
}

// LinkControl создаёт кнопку-ссылку.
func LinkControl(label, url string) Control {
	return Control{Label: label, URL: url}
}

// Empty сообщает, что кнопок нет.
func (k Keyboard) Empty() bool {
	for _, row := range k {
		if len(row) > 0 {
			return false
		}
	}
	return true
}

// Actions возвращает действия всех кнопок по порядку.
func (k Keyboard) Actions() []string {
	var actions []string
	for _, row := range k {
		for _, c := range row {
			if c.Action != "" {
				actions = append(actions, c.Action)
			}
		}
	}
	return actions
}

// Теги действий. Параметры идут после двоеточия; номер тайтла всегда последний,
// поэтому он может содержать двоеточия.
const (
	ActionCheckSubscription = "check_sub"
	ActionUserCount         = "user_count"
	ActionPart              = "part"
	ActionPage              = "page"
	ActionPick              = "pick"
	ActionKind              = "kind"
	ActionConfirm           = "confirm"
)

// Direction задаёт направление листания страниц.
type Direction int

const (
	DirectionBackward Direction = -1
	DirectionForward  Direction = 1
)

// PartAction кодирует выбор серии.
func PartAction(number string, index int) string {
	return ActionPart + ":" + strconv.Itoa(index) + ":" + number
}

// ParsePartAction разбирает выбор серии.
func ParsePartAction(data string) (number string, index int, ok bool) {
	fields := strings.SplitN(data, ":", 3)
	if len(fields) != 3 || fields[0] != ActionPart || fields[2] == "" {
		return "", 0, false
	}
	index, err := strconv.Atoi(fields[1])
	if err != nil || index < 0 {
		return "", 0, false
	}
	return fields[2], index, true
}

// PageAction кодирует переход по страницам.
func PageAction(number string, dir Direction) string {
	tag := "next"
	if dir == DirectionBackward {
		tag = "prev"
	}
	return ActionPage + ":" + tag + ":" + number
}

// ParsePageAction разбирает переход по страницам.
func ParsePageAction(data string) (number string, dir Direction, ok bool) {
	fields := strings.SplitN(data, ":", 3)
	if len(fields) != 3 || fields[0] != ActionPage || fields[2] == "" {
		return "", 0, false
	}
	switch fields[1] {
	case "next":
		return fields[2], DirectionForward, true
	case "prev":
		return fields[2], DirectionBackward, true
	default:
		return "", 0, false
	}
}

// ParamAction кодирует действие внутри сценария, например pick:@channel.
func ParamAction(tag, value string) string {
	return tag + ":" + value
}

// ParseParamAction разбирает действие внутри сценария.
func ParseParamAction(data string) (tag, value string, ok bool) {
	tag, value, ok = strings.Cut(data, ":")
	if !ok || tag == "" {
		return "", "", false
	}
	return tag, value, true
}
