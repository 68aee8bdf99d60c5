package telegram

import (
	"strings"
	"unicode/utf8"

	"tg-gate-bot/internal/domain"
)

// SplitMessage режет текст на сообщения не длиннее domain.TextLimit.
// Резать старается по переводам строк, чтобы абзацы не рвались.
func SplitMessage(text string) []string {
	rest := strings.TrimSpace(text)
	if rest == "" {
		return nil
	}

	var chunks []string
	for rest != "" {
		head, tail := cutAt(rest, domain.TextLimit)
		if head = strings.Trim(head, "\n"); head != "" {
			chunks = append(chunks, head)
		}
		rest = strings.TrimLeft(tail, "\n")
	}
	return chunks
}

// TrimCaption обрезает подпись к медиа до domain.CaptionLimit и помечает обрезку многоточием.
func TrimCaption(caption string) string {
	if domain.FitsCaption(caption) {
		return caption
	}
	head, _ := cutAt(caption, domain.CaptionLimit-1)
	return strings.TrimRight(head, "\n ") + "…"
}

// cutAt отделяет от text начало длиной не больше limit единиц UTF-16.
// Если в этом начале есть перевод строки, режем по последнему из них.
func cutAt(text string, limit int) (head, tail string) {
	if domain.TextLength(text) <= limit {
		return text, ""
	}
	end, size := 0, 0
	for i, r := range text {
		n := domain.TextLength(string(r))
		if size+n > limit {
			end = i
			break
		}
		size += n
	}
	if end == 0 {
		// Первый же символ не влезает: отдаём его целиком, чтобы не зациклиться.
		_, first := utf8.DecodeRuneInString(text)
		return text[:first], text[first:]
	}
	if nl := strings.LastIndexByte(text[:end], '\n'); nl > 0 {
		return text[:nl], text[nl:]
	}
	return text[:end], text[end:]
}
