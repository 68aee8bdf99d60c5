package workflow

import "tg-gate-bot/internal/domain"

var flowLabels = map[domain.Flow]string{
	domain.FlowAddPaginated:      "📚 Добавить многосерийный тайтл",
	domain.FlowAddPaginatedNamed: "🏷 Многосерийный с названиями серий",
	domain.FlowAddSimple:         "🎬 Добавить тайтл",
	domain.FlowAddChannel:        "➕ Добавить канал",
	domain.FlowRemoveChannel:     "➖ Удалить канал",
	domain.FlowDeleteItem:        "🗑 Удалить тайтл",
	domain.FlowAddPart:           "📥 Добавить серию",
	domain.FlowChannelPost:       "📢 Пост в канал",
	domain.FlowBroadcast:         "📨 Рассылка",
}

// MenuText — заголовок админ-меню.
const MenuText = "👑 Админ-панель. Выберите действие:"

// Menu возвращает кнопки админ-меню: по точке входа в ряд и счётчик пользователей.
func Menu() domain.Keyboard {
	kb := make(domain.Keyboard, 0, len(domain.Flows)+1)
	for _, flow := range domain.Flows {
		kb = append(kb, domain.Row(domain.ActionControl(flowLabels[flow], string(flow))))
	}
	kb = append(kb, domain.Row(domain.ActionControl("👥 Пользователи", domain.ActionUserCount)))
	return kb
}
