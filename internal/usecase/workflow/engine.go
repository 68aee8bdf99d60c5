package workflow

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tg-gate-bot/internal/domain"
	"tg-gate-bot/internal/infra/metrics"
	"tg-gate-bot/internal/usecase/catalog"
	"tg-gate-bot/internal/usecase/channels"
)

// Actor — администратор, ведущий сценарий, и чат, куда отвечать.
type Actor struct {
	UserID int64
	ChatID int64
}

func (a Actor) chat() domain.ChatRef {
	return domain.ChatRef{ID: a.ChatID}
}

// Media — вложение входящего сообщения.
type Media struct {
	Kind   domain.MessageKind
	FileID string
}

// Input — входящее событие: текст, нажатие кнопки или медиа.
type Input struct {
	Text   string
	Action string
	Media  *Media
}

type inputKind uint8

const (
	expectText inputKind = 1 << iota
	expectAction
	expectMedia
)

func (in Input) kind() inputKind {
	switch {
	case in.Action != "":
		return expectAction
	case in.Media != nil:
		return expectMedia
	case strings.TrimSpace(in.Text) != "":
		return expectText
	default:
		return 0
	}
}

// step описывает один шаг: какой ввод он принимает, как спрашивать и как обработать ответ.
// handle переводит wf.Step дальше; при wf.Step == StepDone возвращённый текст отправляется как итог.
type step struct {
	expects inputKind
	prompt  func(e *Engine, wf *domain.Workflow) (domain.Outgoing, error)
	handle  func(ctx context.Context, e *Engine, a Actor, wf *domain.Workflow, in Input) (string, error)
}

const (
	msgDenied   = "⛔ Эта команда доступна только администраторам."
	msgInternal = "⚠️ Что-то пошло не так, попробуйте ещё раз."
	msgCanceled = "❎ Действие отменено."
)

// Engine ведёт пошаговые сценарии администраторов. На пользователя приходится не больше
// одного активного сценария; новый вход заменяет незавершённый.
type Engine struct {
	catalog   *catalog.Service
	channels  *channels.Registry
	queue     domain.BroadcastQueue
	sessions  domain.SessionStore
	transport domain.Transport
	admins    domain.AdminSet
	log       zerolog.Logger
	steps     map[domain.Step]step
}

// NewEngine создаёт движок сценариев.
func NewEngine(
	cat *catalog.Service,
	registry *channels.Registry,
	queue domain.BroadcastQueue,
	sessions domain.SessionStore,
	transport domain.Transport,
	admins domain.AdminSet,
	log zerolog.Logger,
) *Engine {
	return &Engine{
		catalog:   cat,
		channels:  registry,
		queue:     queue,
		sessions:  sessions,
		transport: transport,
		admins:    admins,
		log:       log,
		steps:     stepTable(),
	}
}

// Start открывает сценарий flow, отбрасывая незавершённый.
func (e *Engine) Start(ctx context.Context, a Actor, flow domain.Flow) error {
	log := e.log.With().Int64("user", a.UserID).Str("flow", string(flow)).Logger()
	if !e.admins.Contains(a.UserID) {
		metrics.IncWorkflowStep(string(flow), "denied")
		log.Warn().Msg("workflow: попытка входа без прав")
		return e.say(ctx, a, domain.Outgoing{Kind: domain.KindText, Text: msgDenied})
	}
	entry, ok := entrySteps[flow]
	if !ok {
		return domain.Invalid("неизвестный сценарий " + string(flow))
	}

	wf := &domain.Workflow{Flow: flow, Step: entry, Fields: map[string]string{}}
	prompt, err := e.steps[entry].prompt(e, wf)
	if err != nil {
		e.saveWorkflow(ctx, a.UserID, nil)
		return e.fail(ctx, a, wf, err, log)
	}
	e.saveWorkflow(ctx, a.UserID, wf)
	metrics.IncWorkflowStep(string(flow), "started")
	log.Debug().Str("step", string(entry)).Msg("workflow: сценарий начат")
	return e.say(ctx, a, prompt)
}

// Handle передаёт ввод активному сценарию. Возвращает false, если сценария нет.
func (e *Engine) Handle(ctx context.Context, a Actor, in Input) (bool, error) {
	sess, ok, err := e.sessions.Get(ctx, a.UserID)
	if err != nil {
		e.log.Error().Err(err).Int64("user", a.UserID).Msg("workflow: не удалось прочитать сессию")
		return false, err
	}
	if !ok || sess.Workflow == nil {
		return false, nil
	}
	wf := sess.Workflow
	if wf.Fields == nil {
		wf.Fields = map[string]string{}
	}
	log := e.log.With().Int64("user", a.UserID).Str("flow", string(wf.Flow)).Str("step", string(wf.Step)).Logger()

	st, ok := e.steps[wf.Step]
	if !ok {
		log.Warn().Msg("workflow: неизвестный шаг, сценарий сброшен")
		e.saveWorkflow(ctx, a.UserID, nil)
		return false, nil
	}
	if !e.admins.Contains(a.UserID) {
		return true, e.fail(ctx, a, wf, domain.Denied(msgDenied), log)
	}
	if in.kind()&st.expects == 0 {
		return true, e.reprompt(ctx, a, wf, st, expectedHint(st.expects), log)
	}

	in.Text = strings.TrimSpace(in.Text)
	result, err := st.handle(ctx, e, a, wf, in)
	if err != nil {
		var uerr *domain.UserError
		if errors.As(err, &uerr) && errors.Is(err, domain.ErrValidation) {
			return true, e.reprompt(ctx, a, wf, st, uerr.Message, log)
		}
		e.saveWorkflow(ctx, a.UserID, nil)
		return true, e.fail(ctx, a, wf, err, log)
	}

	if wf.Step == domain.StepDone {
		e.saveWorkflow(ctx, a.UserID, nil)
		metrics.IncWorkflowStep(string(wf.Flow), "completed")
		log.Info().Msg("workflow: сценарий завершён")
		return true, e.say(ctx, a, domain.Outgoing{Kind: domain.KindText, Text: result})
	}

	next, ok := e.steps[wf.Step]
	if !ok {
		e.saveWorkflow(ctx, a.UserID, nil)
		return true, e.fail(ctx, a, wf, errors.New("переход на неизвестный шаг "+string(wf.Step)), log)
	}
	prompt, err := next.prompt(e, wf)
	if err != nil {
		e.saveWorkflow(ctx, a.UserID, nil)
		return true, e.fail(ctx, a, wf, err, log)
	}
	e.saveWorkflow(ctx, a.UserID, wf)
	metrics.IncWorkflowStep(string(wf.Flow), "advanced")
	return true, e.say(ctx, a, prompt)
}

// Cancel сбрасывает сессию пользователя целиком.
func (e *Engine) Cancel(ctx context.Context, a Actor) error {
	if err := e.sessions.Delete(ctx, a.UserID); err != nil {
		e.log.Warn().Err(err).Int64("user", a.UserID).Msg("workflow: не удалось удалить сессию")
	}
	return e.say(ctx, a, domain.Outgoing{Kind: domain.KindText, Text: msgCanceled})
}

// Active сообщает, ведёт ли пользователь сценарий.
func (e *Engine) Active(ctx context.Context, userID int64) bool {
	sess, ok, err := e.sessions.Get(ctx, userID)
	return err == nil && ok && sess.Workflow != nil
}

func (e *Engine) reprompt(ctx context.Context, a Actor, wf *domain.Workflow, st step, hint string, log zerolog.Logger) error {
	metrics.IncWorkflowStep(string(wf.Flow), "invalid")
	log.Debug().Str("hint", hint).Msg("workflow: некорректный ввод")
	prompt, err := st.prompt(e, wf)
	if err != nil {
		e.saveWorkflow(ctx, a.UserID, nil)
		return e.fail(ctx, a, wf, err, log)
	}
	prompt.Text = "⚠️ " + hint + "\n\n" + prompt.Text
	return e.say(ctx, a, prompt)
}

// fail сообщает об ошибке и завершает сценарий. Сессию к этому моменту уже сбросил вызывающий,
// кроме отказа в правах, при котором сессия тоже сбрасывается здесь.
func (e *Engine) fail(ctx context.Context, a Actor, wf *domain.Workflow, err error, log zerolog.Logger) error {
	var uerr *domain.UserError
	if !errors.As(err, &uerr) {
		metrics.IncWorkflowStep(string(wf.Flow), "failed")
		log.Error().Err(err).Msg("workflow: внутренняя ошибка")
		return e.say(ctx, a, domain.Outgoing{Kind: domain.KindText, Text: msgInternal})
	}
	if errors.Is(err, domain.ErrPermission) {
		e.saveWorkflow(ctx, a.UserID, nil)
		metrics.IncWorkflowStep(string(wf.Flow), "denied")
		log.Warn().Msg("workflow: отказ в правах")
	} else {
		metrics.IncWorkflowStep(string(wf.Flow), "aborted")
		log.Info().Str("reason", uerr.Message).Msg("workflow: сценарий прерван")
	}
	return e.say(ctx, a, domain.Outgoing{Kind: domain.KindText, Text: uerr.Message})
}

func (e *Engine) say(ctx context.Context, a Actor, msg domain.Outgoing) error {
	if _, err := e.transport.Send(ctx, a.chat(), msg); err != nil {
		metrics.BotSendErrors.Inc()
		e.log.Error().Err(err).Int64("user", a.UserID).Msg("workflow: не удалось отправить сообщение")
		return err
	}
	return nil
}

// saveWorkflow заменяет сценарий в сессии, не трогая состояние выдачи серий. wf == nil сбрасывает сценарий.
func (e *Engine) saveWorkflow(ctx context.Context, userID int64, wf *domain.Workflow) {
	sess, _, err := e.sessions.Get(ctx, userID)
	if err != nil {
		e.log.Warn().Err(err).Int64("user", userID).Msg("workflow: не удалось прочитать сессию")
	}
	sess.UserID = userID
	sess.Workflow = wf
	sess.UpdatedAt = time.Now().UTC()
	if err := e.sessions.Put(ctx, sess); err != nil {
		e.log.Error().Err(err).Int64("user", userID).Msg("workflow: не удалось сохранить сессию")
	}
}

func expectedHint(kind inputKind) string {
	switch {
	case kind&expectAction != 0 && kind&expectText == 0:
		return "Выберите вариант кнопкой ниже."
	case kind&expectMedia != 0 && kind&expectText == 0:
		return "Отправьте фото или видео."
	default:
		return "Отправьте ответ текстом."
	}
}
