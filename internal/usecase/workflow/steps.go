package workflow

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"tg-gate-bot/internal/domain"
	"tg-gate-bot/internal/usecase/broadcast"
	"tg-gate-bot/internal/usecase/channels"
)

const (
	fieldTitle    = "title"
	fieldCount    = "count"
	fieldPartName = "part_name"
	fieldVideo    = "video"
	fieldNumber   = "number"
	fieldKind     = "kind"
	fieldChannel  = "channel"
	fieldText     = "text"
	fieldMedia    = "media"
	fieldLabel    = "label"

	kindPublic  = "public"
	kindPrivate = "private"
)

var entrySteps = map[domain.Flow]domain.Step{
	domain.FlowAddPaginated:      domain.StepPaginatedTitle,
	domain.FlowAddPaginatedNamed: domain.StepPaginatedTitle,
	domain.FlowAddSimple:         domain.StepSimpleTitle,
	domain.FlowAddPart:           domain.StepNewPartSelect,
	domain.FlowDeleteItem:        domain.StepDeleteSelect,
	domain.FlowAddChannel:        domain.StepChannelKind,
	domain.FlowRemoveChannel:     domain.StepChannelRemoveSelect,
	domain.FlowBroadcast:         domain.StepBroadcastText,
	domain.FlowChannelPost:       domain.StepPostChannel,
}

func stepTable() map[domain.Step]step {
	return map[domain.Step]step{
		domain.StepPaginatedTitle:    {expects: expectText, prompt: text("Введите название многосерийного тайтла:"), handle: collectTitle(domain.StepPaginatedCount)},
		domain.StepPaginatedCount:    {expects: expectText, prompt: text("Сколько серий в тайтле? Введите число, например 7:"), handle: handlePartCount},
		domain.StepPaginatedPartName: {expects: expectText, prompt: promptPartName, handle: handlePartName},
		domain.StepPaginatedPartURL:  {expects: expectText | expectMedia, prompt: promptPartURL, handle: handlePartURL},
		domain.StepPaginatedNumber:   {expects: expectText, prompt: text("Введите номер тайтла:"), handle: handleNumber},

		domain.StepSimpleTitle:  {expects: expectText, prompt: text("Введите название тайтла:"), handle: collectTitle(domain.StepSimpleURL)},
		domain.StepSimpleURL:    {expects: expectText | expectMedia, prompt: text("Отправьте ссылку на видео или само видео:"), handle: handleSimpleURL},
		domain.StepSimpleNumber: {expects: expectText, prompt: text("Введите номер тайтла:"), handle: handleNumber},

		domain.StepNewPartSelect: {expects: expectAction, prompt: promptPaginatedItems, handle: handleNewPartSelect},
		domain.StepNewPartName:   {expects: expectText, prompt: text("Введите название новой серии:"), handle: handleNewPartName},
		domain.StepNewPartURL:    {expects: expectText | expectMedia, prompt: text("Отправьте ссылку на видео новой серии или само видео:"), handle: handleNewPartURL},

		domain.StepDeleteSelect: {expects: expectAction, prompt: promptAllItems, handle: handleDelete},

		domain.StepChannelKind:  {expects: expectAction, prompt: promptChannelKind, handle: handleChannelKind},
		domain.StepChannelValue: {expects: expectText, prompt: promptChannelValue, handle: handleChannelValue},

		domain.StepChannelRemoveSelect:  {expects: expectAction, prompt: promptChannels("Выберите канал для удаления:"), handle: handleRemoveSelect},
		domain.StepChannelRemoveConfirm: {expects: expectAction, prompt: promptRemoveConfirm, handle: handleRemoveConfirm},

		domain.StepBroadcastText: {expects: expectText, prompt: text("Введите текст рассылки для всех пользователей:"), handle: handleBroadcast},

		domain.StepPostChannel:     {expects: expectAction, prompt: promptChannels("Выберите канал для публикации:"), handle: handlePostChannel},
		domain.StepPostKind:        {expects: expectAction, prompt: promptPostKind, handle: handlePostKind},
		domain.StepPostText:        {expects: expectText, prompt: text("Введите текст поста:"), handle: handlePostText},
		domain.StepPostMedia:       {expects: expectMedia, prompt: promptPostMedia, handle: handlePostMedia},
		domain.StepPostButtonLabel: {expects: expectText, prompt: text("Введите текст кнопки:"), handle: handlePostLabel},
		domain.StepPostButtonURL:   {expects: expectText, prompt: text("Введите ссылку для кнопки (https://...):"), handle: handlePostURL},
	}
}

func text(prompt string) func(*Engine, *domain.Workflow) (domain.Outgoing, error) {
	return func(*Engine, *domain.Workflow) (domain.Outgoing, error) {
		return domain.Outgoing{Kind: domain.KindText, Text: prompt}, nil
	}
}

func choice(prompt string, controls domain.Keyboard) domain.Outgoing {
	return domain.Outgoing{Kind: domain.KindText, Text: prompt, Controls: controls}
}

// pick разбирает нажатие кнопки вида tag:value.
func pick(in Input, tag string) (string, error) {
	got, value, ok := domain.ParseParamAction(in.Action)
	if !ok || got != tag || value == "" {
		return "", domain.Invalid("Выберите вариант кнопкой ниже.")
	}
	return value, nil
}

// locator возвращает ссылку на видео из текста или file_id присланного видео.
func locator(in Input) (string, error) {
	if in.Media != nil {
		if in.Media.Kind != domain.KindVideo {
			return "", domain.Invalid("Нужна ссылка или видео, а не фото.")
		}
		return in.Media.FileID, nil
	}
	if in.Text == "" {
		return "", domain.Invalid("Ссылка не может быть пустой.")
	}
	return in.Text, nil
}

func collectTitle(next domain.Step) func(context.Context, *Engine, Actor, *domain.Workflow, Input) (string, error) {
	return func(_ context.Context, _ *Engine, _ Actor, wf *domain.Workflow, in Input) (string, error) {
		wf.Fields[fieldTitle] = in.Text
		wf.Step = next
		return "", nil
	}
}

func handlePartCount(_ context.Context, _ *Engine, _ Actor, wf *domain.Workflow, in Input) (string, error) {
	count, err := strconv.Atoi(in.Text)
	if err != nil || count <= 0 {
		return "", domain.Invalid("Количество серий должно быть положительным числом.")
	}
	wf.Fields[fieldCount] = strconv.Itoa(count)
	wf.Parts = make([]domain.Part, 0, count)
	wf.Step = nextPartStep(wf)
	return "", nil
}

func nextPartStep(wf *domain.Workflow) domain.Step {
	if wf.Flow == domain.FlowAddPaginatedNamed {
		return domain.StepPaginatedPartName
	}
	return domain.StepPaginatedPartURL
}

func promptPartName(_ *Engine, wf *domain.Workflow) (domain.Outgoing, error) {
	return domain.Outgoing{Kind: domain.KindText, Text: fmt.Sprintf("Введите название %d-й серии:", len(wf.Parts)+1)}, nil
}

func handlePartName(_ context.Context, _ *Engine, _ Actor, wf *domain.Workflow, in Input) (string, error) {
	wf.Fields[fieldPartName] = in.Text
	wf.Step = domain.StepPaginatedPartURL
	return "", nil
}

func promptPartURL(_ *Engine, wf *domain.Workflow) (domain.Outgoing, error) {
	return domain.Outgoing{Kind: domain.KindText, Text: fmt.Sprintf("Отправьте ссылку на %d-ю серию или само видео:", len(wf.Parts)+1)}, nil
}

func handlePartURL(_ context.Context, _ *Engine, _ Actor, wf *domain.Workflow, in Input) (string, error) {
	loc, err := locator(in)
	if err != nil {
		return "", err
	}
	count, _ := strconv.Atoi(wf.Fields[fieldCount])
	if len(wf.Parts) >= count {
		return "", errors.New("серий больше, чем заявлено")
	}
	name := wf.Fields[fieldPartName]
	if name == "" {
		name = fmt.Sprintf("%d-part", len(wf.Parts)+1)
	}
	delete(wf.Fields, fieldPartName)
	wf.Parts = append(wf.Parts, domain.Part{Name: name, URL: loc})
	if len(wf.Parts) < count {
		wf.Step = nextPartStep(wf)
		return "", nil
	}
	wf.Step = domain.StepPaginatedNumber
	return "", nil
}

func handleSimpleURL(_ context.Context, _ *Engine, _ Actor, wf *domain.Workflow, in Input) (string, error) {
	loc, err := locator(in)
	if err != nil {
		return "", err
	}
	wf.Fields[fieldVideo] = loc
	wf.Step = domain.StepSimpleNumber
	return "", nil
}

// handleNumber завершает оба сценария добавления тайтла.
func handleNumber(ctx context.Context, e *Engine, _ Actor, wf *domain.Workflow, in Input) (string, error) {
	number := in.Text
	if e.catalog.Exists(number) {
		return "", domain.Invalid(fmt.Sprintf("Номер %s уже занят, введите другой.", number))
	}
	item := domain.Item{Number: number, Title: wf.Fields[fieldTitle]}
	if wf.Step == domain.StepSimpleNumber {
		item.VideoURL = wf.Fields[fieldVideo]
	} else {
		item.Parts, _ = strconv.Atoi(wf.Fields[fieldCount])
		item.PartData = wf.Parts
	}

	err := e.catalog.Add(ctx, item)
	switch {
	case errors.Is(err, domain.ErrDuplicate):
		return "", domain.Invalid(fmt.Sprintf("Номер %s уже занят, введите другой.", number))
	case errors.Is(err, domain.ErrValidation):
		return "", domain.Failed(domain.ErrValidation, "❌ Тайтл не сохранён: данные неполные.")
	case err != nil:
		return "", err
	}
	wf.Step = domain.StepDone
	if item.IsPaginated() {
		return fmt.Sprintf("✅ Многосерийный тайтл «%s» (%d серий) добавлен под номером %s.", item.Title, item.Parts, number), nil
	}
	return fmt.Sprintf("✅ Тайтл «%s» добавлен под номером %s.", item.Title, number), nil
}

func itemsKeyboard(items []domain.Item) domain.Keyboard {
	kb := make(domain.Keyboard, 0, len(items))
	for _, item := range items {
		kb = append(kb, domain.Row(domain.ActionControl(item.Number+" — "+item.Title, domain.ParamAction(domain.ActionPick, item.Number))))
	}
	return kb
}

func promptPaginatedItems(e *Engine, _ *domain.Workflow) (domain.Outgoing, error) {
	items := e.catalog.ListPaginated()
	if len(items) == 0 {
		return domain.Outgoing{}, domain.Missing("Нет многосерийных тайтлов.")
	}
	return choice("Выберите тайтл, к которому добавить серию:", itemsKeyboard(items)), nil
}

func handleNewPartSelect(_ context.Context, e *Engine, _ Actor, wf *domain.Workflow, in Input) (string, error) {
	number, err := pick(in, domain.ActionPick)
	if err != nil {
		return "", err
	}
	item, err := e.catalog.Resolve(number)
	if err != nil || !item.IsPaginated() {
		return "", domain.Missing(fmt.Sprintf("❌ Многосерийный тайтл %s не найден.", number))
	}
	wf.Fields[fieldNumber] = number
	wf.Step = domain.StepNewPartName
	return "", nil
}

func handleNewPartName(_ context.Context, _ *Engine, _ Actor, wf *domain.Workflow, in Input) (string, error) {
	wf.Fields[fieldPartName] = in.Text
	wf.Step = domain.StepNewPartURL
	return "", nil
}

func handleNewPartURL(ctx context.Context, e *Engine, _ Actor, wf *domain.Workflow, in Input) (string, error) {
	loc, err := locator(in)
	if err != nil {
		return "", err
	}
	number, name := wf.Fields[fieldNumber], wf.Fields[fieldPartName]
	item, err := e.catalog.AppendPart(ctx, number, domain.Part{Name: name, URL: loc})
	if errors.Is(err, domain.ErrNotFound) {
		return "", domain.Missing(fmt.Sprintf("❌ Тайтл %s не найден.", number))
	}
	if err != nil {
		return "", err
	}
	wf.Step = domain.StepDone
	return fmt.Sprintf("✅ Серия «%s» добавлена к тайтлу %s. Всего серий: %d.", name, number, len(item.PartData)), nil
}

func promptAllItems(e *Engine, _ *domain.Workflow) (domain.Outgoing, error) {
	items := e.catalog.List()
	if len(items) == 0 {
		return domain.Outgoing{}, domain.Missing("Каталог пуст, удалять нечего.")
	}
	return choice("Выберите тайтл для удаления:", itemsKeyboard(items)), nil
}

func handleDelete(ctx context.Context, e *Engine, _ Actor, wf *domain.Workflow, in Input) (string, error) {
	number, err := pick(in, domain.ActionPick)
	if err != nil {
		return "", err
	}
	item, err := e.catalog.Delete(ctx, number)
	if errors.Is(err, domain.ErrNotFound) {
		return "", domain.Missing(fmt.Sprintf("❌ Тайтл %s не найден.", number))
	}
	if err != nil {
		return "", err
	}
	wf.Step = domain.StepDone
	return fmt.Sprintf("🗑 Тайтл «%s» (%s) удалён.", item.Title, number), nil
}

func promptChannelKind(*Engine, *domain.Workflow) (domain.Outgoing, error) {
	return choice("Какой канал добавить?", domain.Keyboard{
		domain.Row(domain.ActionControl("🌐 Публичный (@алиас)", domain.ParamAction(domain.ActionKind, kindPublic))),
		domain.Row(domain.ActionControl("🔒 Приватный (id)", domain.ParamAction(domain.ActionKind, kindPrivate))),
	}), nil
}

func handleChannelKind(_ context.Context, _ *Engine, _ Actor, wf *domain.Workflow, in Input) (string, error) {
	kind, err := pick(in, domain.ActionKind)
	if err != nil {
		return "", err
	}
	if kind != kindPublic && kind != kindPrivate {
		return "", domain.Invalid("Выберите тип канала кнопкой ниже.")
	}
	wf.Fields[fieldKind] = kind
	wf.Step = domain.StepChannelValue
	return "", nil
}

func promptChannelValue(_ *Engine, wf *domain.Workflow) (domain.Outgoing, error) {
	if wf.Fields[fieldKind] == kindPrivate {
		return domain.Outgoing{Kind: domain.KindText, Text: "Отправьте id приватного канала (отрицательное число, например -1001234567890):"}, nil
	}
	return domain.Outgoing{Kind: domain.KindText, Text: "Отправьте алиас канала, начиная с @:"}, nil
}

func handleChannelValue(ctx context.Context, e *Engine, _ Actor, wf *domain.Workflow, in Input) (string, error) {
	parse := channels.ParsePublic
	if wf.Fields[fieldKind] == kindPrivate {
		parse = channels.ParsePrivate
	}
	ch, err := parse(in.Text)
	if err != nil {
		return "", domain.Invalid("Неверный формат: " + err.Error() + ".")
	}
	if err := e.channels.Add(ctx, ch); errors.Is(err, domain.ErrDuplicate) {
		return "", domain.Conflict(fmt.Sprintf("ℹ️ Канал %s уже есть в списке.", ch))
	} else if err != nil {
		return "", err
	}
	wf.Step = domain.StepDone
	return fmt.Sprintf("✅ Канал %s добавлен.", ch), nil
}

func promptChannels(prompt string) func(*Engine, *domain.Workflow) (domain.Outgoing, error) {
	return func(e *Engine, _ *domain.Workflow) (domain.Outgoing, error) {
		list := e.channels.List()
		if len(list) == 0 {
			return domain.Outgoing{}, domain.Missing("Список каналов пуст.")
		}
		kb := make(domain.Keyboard, 0, len(list))
		for _, ch := range list {
			kb = append(kb, domain.Row(domain.ActionControl(ch.String(), domain.ParamAction(domain.ActionPick, ch.String()))))
		}
		return choice(prompt, kb), nil
	}
}

func pickChannel(e *Engine, in Input) (domain.Channel, error) {
	value, err := pick(in, domain.ActionPick)
	if err != nil {
		return domain.Channel{}, err
	}
	ch, err := domain.ParseChannelValue(value)
	if err != nil || !e.channels.Contains(ch) {
		return domain.Channel{}, domain.Missing(fmt.Sprintf("❌ Канал %s не найден.", value))
	}
	return ch, nil
}

func handleRemoveSelect(_ context.Context, e *Engine, _ Actor, wf *domain.Workflow, in Input) (string, error) {
	ch, err := pickChannel(e, in)
	if err != nil {
		return "", err
	}
	wf.Fields[fieldChannel] = ch.String()
	wf.Step = domain.StepChannelRemoveConfirm
	return "", nil
}

func promptRemoveConfirm(_ *Engine, wf *domain.Workflow) (domain.Outgoing, error) {
	return choice(fmt.Sprintf("Удалить канал %s?", wf.Fields[fieldChannel]), domain.Keyboard{
		domain.Row(
			domain.ActionControl("✅ Да", domain.ParamAction(domain.ActionConfirm, "yes")),
			domain.ActionControl("❌ Нет", domain.ParamAction(domain.ActionConfirm, "no")),
		),
	}), nil
}

func handleRemoveConfirm(ctx context.Context, e *Engine, _ Actor, wf *domain.Workflow, in Input) (string, error) {
	answer, err := pick(in, domain.ActionConfirm)
	if err != nil {
		return "", err
	}
	value := wf.Fields[fieldChannel]
	switch answer {
	case "no":
		wf.Step = domain.StepDone
		return "Удаление канала отменено.", nil
	case "yes":
	default:
		return "", domain.Invalid("Ответьте «Да» или «Нет».")
	}
	ch, err := domain.ParseChannelValue(value)
	if err != nil {
		return "", err
	}
	if err := e.channels.Remove(ctx, ch); errors.Is(err, domain.ErrNotFound) {
		return "", domain.Missing(fmt.Sprintf("❌ Канал %s не найден.", value))
	} else if err != nil {
		return "", err
	}
	wf.Step = domain.StepDone
	return fmt.Sprintf("✅ Канал %s удалён.", value), nil
}

func handleBroadcast(ctx context.Context, e *Engine, a Actor, wf *domain.Workflow, in Input) (string, error) {
	job := broadcast.NewJob(a.UserID, a.ChatID, in.Text)
	if err := e.queue.Enqueue(ctx, job); err != nil {
		e.log.Error().Err(err).Str("job_id", job.ID).Msg("workflow: не удалось поставить рассылку")
		return "", domain.Failed(domain.ErrTransport, "❌ Не удалось запустить рассылку, попробуйте позже.")
	}
	wf.Step = domain.StepDone
	return "📨 Рассылка запущена. Отчёт придёт, когда она завершится.", nil
}

func handlePostChannel(_ context.Context, e *Engine, _ Actor, wf *domain.Workflow, in Input) (string, error) {
	ch, err := pickChannel(e, in)
	if err != nil {
		return "", err
	}
	wf.Fields[fieldChannel] = ch.String()
	wf.Step = domain.StepPostKind
	return "", nil
}

func promptPostKind(*Engine, *domain.Workflow) (domain.Outgoing, error) {
	return choice("Какой пост отправить?", domain.Keyboard{
		domain.Row(domain.ActionControl("📝 Только текст", domain.ParamAction(domain.ActionKind, string(domain.KindText)))),
		domain.Row(domain.ActionControl("🖼 С фото", domain.ParamAction(domain.ActionKind, string(domain.KindPhoto)))),
		domain.Row(domain.ActionControl("🎥 С видео", domain.ParamAction(domain.ActionKind, string(domain.KindVideo)))),
	}), nil
}

func handlePostKind(_ context.Context, _ *Engine, _ Actor, wf *domain.Workflow, in Input) (string, error) {
	value, err := pick(in, domain.ActionKind)
	if err != nil {
		return "", err
	}
	kind, ok := domain.ParseMessageKind(value)
	if !ok {
		return "", domain.Invalid("Выберите тип поста кнопкой ниже.")
	}
	wf.Fields[fieldKind] = string(kind)
	wf.Step = domain.StepPostText
	return "", nil
}

func handlePostText(_ context.Context, _ *Engine, _ Actor, wf *domain.Workflow, in Input) (string, error) {
	if domain.MessageKind(wf.Fields[fieldKind]) == domain.KindText {
		wf.Fields[fieldText] = in.Text
		wf.Step = domain.StepPostButtonLabel
		return "", nil
	}
	if !domain.FitsCaption(in.Text) {
		return "", domain.Invalid(fmt.Sprintf("Подпись к фото или видео не длиннее %d символов, сейчас %d. Сократите текст.",
			domain.CaptionLimit, domain.TextLength(in.Text)))
	}
	wf.Fields[fieldText] = in.Text
	wf.Step = domain.StepPostMedia
	return "", nil
}

func promptPostMedia(_ *Engine, wf *domain.Workflow) (domain.Outgoing, error) {
	if domain.MessageKind(wf.Fields[fieldKind]) == domain.KindPhoto {
		return domain.Outgoing{Kind: domain.KindText, Text: "Отправьте фото для поста:"}, nil
	}
	return domain.Outgoing{Kind: domain.KindText, Text: "Отправьте видео для поста:"}, nil
}

func handlePostMedia(_ context.Context, _ *Engine, _ Actor, wf *domain.Workflow, in Input) (string, error) {
	want := domain.MessageKind(wf.Fields[fieldKind])
	if in.Media.Kind != want {
		if want == domain.KindPhoto {
			return "", domain.Invalid("Нужно именно фото.")
		}
		return "", domain.Invalid("Нужно именно видео.")
	}
	wf.Fields[fieldMedia] = in.Media.FileID
	wf.Step = domain.StepPostButtonLabel
	return "", nil
}

func handlePostLabel(_ context.Context, _ *Engine, _ Actor, wf *domain.Workflow, in Input) (string, error) {
	wf.Fields[fieldLabel] = in.Text
	wf.Step = domain.StepPostButtonURL
	return "", nil
}

func handlePostURL(ctx context.Context, e *Engine, _ Actor, wf *domain.Workflow, in Input) (string, error) {
	link, err := url.Parse(in.Text)
	if err != nil || (link.Scheme != "http" && link.Scheme != "https" && link.Scheme != "tg") || (link.Host == "" && link.Scheme != "tg") {
		return "", domain.Invalid("Ссылка должна начинаться с https://")
	}
	ch, err := domain.ParseChannelValue(wf.Fields[fieldChannel])
	if err != nil {
		return "", err
	}
	post := domain.Outgoing{
		Kind:     domain.MessageKind(wf.Fields[fieldKind]),
		Text:     wf.Fields[fieldText],
		Media:    wf.Fields[fieldMedia],
		Controls: domain.Keyboard{domain.Row(domain.LinkControl("✨"+wf.Fields[fieldLabel]+"✨", link.String()))},
	}
	if _, err := e.transport.Send(ctx, ch.Chat(), post); err != nil {
		e.log.Error().Err(err).Str("channel", ch.String()).Msg("workflow: пост не отправлен")
		return "", domain.Failed(domain.ErrTransport, fmt.Sprintf("❌ Не удалось отправить пост в %s. Проверьте, что бот — администратор канала.", ch))
	}
	wf.Step = domain.StepDone
	return fmt.Sprintf("✅ Пост опубликован в %s.", ch), nil
}
