package bot

import (
	"context"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-gate-bot/internal/adapters/session"
	"tg-gate-bot/internal/adapters/store"
	"tg-gate-bot/internal/domain"
	"tg-gate-bot/internal/infra/queue"
	"tg-gate-bot/internal/testutil"
	"tg-gate-bot/internal/usecase/catalog"
	"tg-gate-bot/internal/usecase/channels"
	"tg-gate-bot/internal/usecase/delivery"
	"tg-gate-bot/internal/usecase/gate"
	"tg-gate-bot/internal/usecase/users"
	"tg-gate-bot/internal/usecase/workflow"
)

const (
	adminID  = int64(1)
	notifyID = int64(-900)
)

type fixture struct {
	handler   *Handler
	transport *testutil.FakeTransport
	catalog   *catalog.Service
	users     *users.Service
}

func newFixture(t *testing.T, required ...domain.Channel) fixture {
	t.Helper()
	ctx := context.Background()
	log := zerolog.Nop()
	docs := store.New(store.NewMemoryBackend(), "memory")
	require.NoError(t, docs.SaveChannels(ctx, required))

	registry, err := channels.NewRegistry(ctx, docs, log)
	require.NoError(t, err)
	cat, err := catalog.NewService(ctx, docs, log)
	require.NoError(t, err)
	usersUC, err := users.NewService(ctx, docs, log)
	require.NoError(t, err)

	transport := testutil.NewFakeTransport()
	sessions := session.NewMemoryStore(0)
	admins := domain.NewAdminSet(adminID)
	gateUC := gate.NewService(transport, registry, admins, log)
	deliveryUC := delivery.NewService(gateUC, cat, sessions, transport, catalog.DefaultPageSize, log)
	engine := workflow.NewEngine(cat, registry, queue.NewMemoryBroadcastQueue(4), sessions, transport, admins, log)

	return fixture{
		handler:   NewHandler(transport, log, gateUC, usersUC, deliveryUC, engine, notifyID),
		transport: transport,
		catalog:   cat,
		users:     usersUC,
	}
}

func message(userID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 10,
		From:      &tgbotapi.User{ID: userID, FirstName: "Ann", UserName: "ann"},
		Chat:      &tgbotapi.Chat{ID: userID},
		Text:      text,
		Date:      1714557600,
	}}
}

func callback(userID int64, data string, messageID int) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-" + data,
		From:    &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{MessageID: messageID, Chat: &tgbotapi.Chat{ID: userID}},
		Data:    data,
	}}
}

func TestStartRegistersAndPromptsSubscription(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.PublicChannel("@news"))

	f.handler.HandleUpdate(ctx, message(50, "/start"))
	f.handler.HandleUpdate(ctx, message(50, "/start"))

	assert.Equal(t, 1, f.users.Count())
	notices := f.transport.SentTo(notifyID)
	require.Len(t, notices, 1)
	assert.Contains(t, notices[0].Msg.Text, "ID: 50")

	replies := f.transport.SentTo(50)
	require.Len(t, replies, 2)
	assert.Equal(t, gate.SubscribePrompt, replies[0].Msg.Text)
	assert.Contains(t, replies[0].Msg.Controls.Actions(), domain.ActionCheckSubscription)
}

func TestAdminStartShowsMenu(t *testing.T) {
	f := newFixture(t, domain.PublicChannel("@news"))
	f.handler.HandleUpdate(context.Background(), message(adminID, "/start"))

	replies := f.transport.SentTo(adminID)
	require.Len(t, replies, 1)
	assert.Equal(t, workflow.MenuText, replies[0].Msg.Text)
	assert.Equal(t, workflow.Menu().Actions(), replies[0].Msg.Controls.Actions())
}

func TestNumberRequestDeliversVideo(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.catalog.Add(ctx, domain.Item{Number: "5", Title: "Film", VideoURL: "L"}))

	f.handler.HandleUpdate(ctx, message(50, "5"))
	last, ok := f.transport.LastSent()
	require.True(t, ok)
	assert.Equal(t, domain.KindVideo, last.Msg.Kind)
	assert.Equal(t, "L", last.Msg.Media)

	f.handler.HandleUpdate(ctx, message(50, "five"))
	last, _ = f.transport.LastSent()
	assert.Equal(t, msgAskNumber, last.Msg.Text)
}

func TestAdminAddsItemThroughButtons(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.handler.HandleUpdate(ctx, callback(adminID, string(domain.FlowAddSimple), 3))
	assert.Contains(t, f.transport.Callbacks, "cb-"+string(domain.FlowAddSimple))

	f.handler.HandleUpdate(ctx, message(adminID, "Movie"))
	f.handler.HandleUpdate(ctx, message(adminID, "https://example.com/m.mp4"))
	f.handler.HandleUpdate(ctx, message(adminID, "42"))

	item, err := f.catalog.Resolve("42")
	require.NoError(t, err)
	assert.Equal(t, "Movie", item.Title)
	assert.Zero(t, item.Views)
}

func TestPartAndPageCallbacks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	parts := make([]domain.Part, 7)
	for i := range parts {
		parts[i] = domain.Part{Name: "p", URL: "file"}
	}
	require.NoError(t, f.catalog.Add(ctx, domain.Item{Number: "7", Title: "S", Parts: 7, PartData: parts}))

	f.handler.HandleUpdate(ctx, message(50, "7"))
	first, _ := f.transport.LastSent()

	f.handler.HandleUpdate(ctx, callback(50, domain.PageAction("7", domain.DirectionForward), first.Ref.MessageID))
	require.Len(t, f.transport.Edits, 1)

	f.handler.HandleUpdate(ctx, callback(50, domain.PartAction("7", 6), first.Ref.MessageID))
	item, _ := f.catalog.Resolve("7")
	assert.Equal(t, 2, item.Views)
	assert.Len(t, f.transport.Callbacks, 2)
}

func TestCheckSubscription(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.PublicChannel("@news"))

	f.handler.HandleUpdate(ctx, callback(50, domain.ActionCheckSubscription, 4))
	assert.Empty(t, f.transport.Edits)

	f.transport.Statuses["@news"] = domain.MemberStatusMember
	f.handler.HandleUpdate(ctx, callback(50, domain.ActionCheckSubscription, 4))
	require.Len(t, f.transport.Edits, 1)
	assert.Equal(t, msgSubscribed, f.transport.Edits[0].Text)
	assert.Equal(t, domain.MessageRef{ChatID: 50, MessageID: 4}, f.transport.Edits[0].Ref)
}

func TestUserCountIsAdminOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.handler.HandleUpdate(ctx, message(50, "/start"))
	f.transport.Reset()

	f.handler.HandleUpdate(ctx, callback(50, domain.ActionUserCount, 1))
	assert.Empty(t, f.transport.SentTo(50))

	f.handler.HandleUpdate(ctx, callback(adminID, domain.ActionUserCount, 1))
	replies := f.transport.SentTo(adminID)
	require.Len(t, replies, 1)
	assert.True(t, strings.HasSuffix(replies[0].Msg.Text, ": 1"))
}

func TestChannelPostRepliesWithID(t *testing.T) {
	f := newFixture(t)
	f.handler.HandleUpdate(context.Background(), tgbotapi.Update{ChannelPost: &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: -1001234, Type: "channel", Title: "Anime"},
		Text: "hello",
	}})
	replies := f.transport.SentTo(-1001234)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Msg.Text, "-1001234")
}

func TestCancelCommand(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.handler.HandleUpdate(ctx, callback(adminID, string(domain.FlowAddSimple), 3))
	f.handler.HandleUpdate(ctx, message(adminID, "/cancel"))
	f.handler.HandleUpdate(ctx, message(adminID, "Movie"))

	last, _ := f.transport.LastSent()
	assert.Equal(t, workflow.MenuText, last.Msg.Text)
}
