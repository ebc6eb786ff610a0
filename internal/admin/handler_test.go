package admin

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/harmonikprz/malibu-bot/internal/event"
	"github.com/harmonikprz/malibu-bot/internal/metrics"
	"github.com/harmonikprz/malibu-bot/internal/sheets"
	"github.com/harmonikprz/malibu-bot/internal/status"
	"github.com/harmonikprz/malibu-bot/internal/store"
	"github.com/harmonikprz/malibu-bot/internal/telegram"
)

const testAdminID int64 = 999

type editCall struct {
	chatID    int64
	messageID int
	text      string
}

type fakeMessenger struct {
	mu      sync.Mutex
	sent    []telegram.SendMessageParams
	edits   []editCall
	acks    []string
	sendErr map[int64]error
	nextID  int
}

func (f *fakeMessenger) SendMessage(_ context.Context, p telegram.SendMessageParams) (*telegram.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.sendErr[p.ChatID]; err != nil {
		return nil, err
	}
	f.sent = append(f.sent, p)
	f.nextID++
	return &telegram.Message{MessageID: f.nextID}, nil
}

func (f *fakeMessenger) EditMessageText(_ context.Context, chatID int64, messageID int, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, editCall{chatID: chatID, messageID: messageID, text: text})
	return nil
}

func (f *fakeMessenger) AnswerCallbackQuery(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks = append(f.acks, id)
	return nil
}

func (f *fakeMessenger) sentTo(chatID int64) []telegram.SendMessageParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []telegram.SendMessageParams
	for _, p := range f.sent {
		if p.ChatID == chatID {
			out = append(out, p)
		}
	}
	return out
}

type fakeFetcher struct {
	users []sheets.ExpiredUser
	err   error
}

func (f *fakeFetcher) FetchExpired(context.Context) ([]sheets.ExpiredUser, error) {
	return f.users, f.err
}

func newTestHandler(t *testing.T, tg *fakeMessenger, ledger ExpiryFetcher) (*Handler, *store.MemoryStore, *status.Status) {
	t.Helper()
	pending := store.NewMemoryStore()
	st := status.New()
	h := New(tg, pending, ledger, st, metrics.New(), Config{
		AdminID:    testAdminID,
		WebsiteURL: "https://malibuprz.netlify.app",
	}, zerolog.Nop())
	h.pacing = rate.NewLimiter(rate.Inf, 1)
	return h, pending, st
}

func decisionEvent(action event.Action, target int64) event.Inbound {
	return event.Inbound{
		Kind:       event.KindAdminDecision,
		UserID:     testAdminID,
		ChatID:     testAdminID,
		MessageID:  42,
		CallbackID: "cb-1",
		Decision:   &event.Decision{Action: action, TargetID: target},
	}
}

func seedRequest(t *testing.T, pending store.Pending, userID int64) store.Request {
	t.Helper()
	req := store.Request{
		ID:           fmt.Sprintf("req-%d", userID),
		TelegramID:   fmt.Sprintf("%d", userID),
		TelegramName: "Ali",
		TradingView:  "ali_tv",
		Plan:         "3 Aylık",
		Status:       store.StatusPending,
	}
	require.NoError(t, pending.Put(userID, req))
	return req
}

func TestHandleDecision_Approve(t *testing.T) {
	tg := &fakeMessenger{}
	h, pending, _ := newTestHandler(t, tg, nil)
	seedRequest(t, pending, 100)

	require.NoError(t, h.HandleDecision(context.Background(), decisionEvent(event.ActionApprove, 100)))

	assert.Equal(t, []string{"cb-1"}, tg.acks)

	require.Len(t, tg.edits, 1)
	assert.Equal(t, testAdminID, tg.edits[0].chatID)
	assert.Equal(t, 42, tg.edits[0].messageID)
	assert.Contains(t, tg.edits[0].text, "Onaylandı")
	assert.Contains(t, tg.edits[0].text, "Ali")
	assert.Contains(t, tg.edits[0].text, "ali_tv")

	notices := tg.sentTo(100)
	require.Len(t, notices, 1)
	assert.Contains(t, notices[0].Text, "aktifleştirildi")

	n, err := pending.Count()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestHandleDecision_Reject(t *testing.T) {
	tg := &fakeMessenger{}
	h, pending, _ := newTestHandler(t, tg, nil)
	seedRequest(t, pending, 100)

	require.NoError(t, h.HandleDecision(context.Background(), decisionEvent(event.ActionReject, 100)))

	require.Len(t, tg.edits, 1)
	assert.Contains(t, tg.edits[0].text, "Reddedildi")

	notices := tg.sentTo(100)
	require.Len(t, notices, 1)
	assert.Contains(t, notices[0].Text, "reddedildi")
}

func TestHandleDecision_RepeatedApproveNotifiesOnce(t *testing.T) {
	tg := &fakeMessenger{}
	h, pending, _ := newTestHandler(t, tg, nil)
	seedRequest(t, pending, 100)

	ev := decisionEvent(event.ActionApprove, 100)
	require.NoError(t, h.HandleDecision(context.Background(), ev))
	require.NoError(t, h.HandleDecision(context.Background(), ev))

	// The prompt is rewritten both times but the user hears about it once.
	assert.Len(t, tg.edits, 2)
	assert.Len(t, tg.sentTo(100), 1)
}

func TestHandleDecision_NonAdminIgnored(t *testing.T) {
	tg := &fakeMessenger{}
	h, pending, _ := newTestHandler(t, tg, nil)
	seedRequest(t, pending, 100)

	ev := decisionEvent(event.ActionApprove, 100)
	ev.UserID = 123

	require.NoError(t, h.HandleDecision(context.Background(), ev))

	assert.Empty(t, tg.sent)
	assert.Empty(t, tg.edits)
	assert.Empty(t, tg.acks)
	n, err := pending.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestHandleDecision_BlockedUserDoesNotFail(t *testing.T) {
	tg := &fakeMessenger{sendErr: map[int64]error{100: assert.AnError}}
	h, pending, _ := newTestHandler(t, tg, nil)
	seedRequest(t, pending, 100)

	require.NoError(t, h.HandleDecision(context.Background(), decisionEvent(event.ActionApprove, 100)))
	assert.Len(t, tg.edits, 1)
}

func TestHandleCommand_Pending(t *testing.T) {
	tg := &fakeMessenger{}
	h, pending, _ := newTestHandler(t, tg, nil)
	seedRequest(t, pending, 100)
	seedRequest(t, pending, 200)

	ev := event.Inbound{Kind: event.KindCommand, UserID: testAdminID, ChatID: testAdminID, Command: "pending"}
	require.NoError(t, h.HandleCommand(context.Background(), ev))

	replies := tg.sentTo(testAdminID)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Text, "Bekleyen talep: 2")
}

func TestHandleCommand_Status(t *testing.T) {
	tg := &fakeMessenger{}
	h, _, st := newTestHandler(t, tg, nil)
	st.SetRunning(true)
	st.IncRestarts()
	st.IncErrors()
	st.IncErrors()

	ev := event.Inbound{Kind: event.KindCommand, UserID: testAdminID, ChatID: testAdminID, Command: "status"}
	require.NoError(t, h.HandleCommand(context.Background(), ev))

	replies := tg.sentTo(testAdminID)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Text, "Bot Durumu")
	assert.Contains(t, replies[0].Text, "Çalışıyor")
	assert.Contains(t, replies[0].Text, "Restart: 1")
	assert.Contains(t, replies[0].Text, "Hata: 2")
}

func TestHandleCommand_NonAdminSilent(t *testing.T) {
	tg := &fakeMessenger{}
	h, _, _ := newTestHandler(t, tg, nil)

	for _, cmd := range []string{"pending", "status", "notify_expired", "scan", "sync", "repair_sheets"} {
		ev := event.Inbound{Kind: event.KindCommand, UserID: 123, ChatID: 123, Command: cmd}
		require.NoError(t, h.HandleCommand(context.Background(), ev))
	}
	assert.Empty(t, tg.sent)
}

func TestHandleCommand_HelpForEveryone(t *testing.T) {
	tg := &fakeMessenger{}
	h, _, _ := newTestHandler(t, tg, nil)

	ev := event.Inbound{Kind: event.KindCommand, UserID: 123, ChatID: 123, Command: "help"}
	require.NoError(t, h.HandleCommand(context.Background(), ev))

	replies := tg.sentTo(123)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Text, "/start")
	assert.NotContains(t, replies[0].Text, "Admin Komutları")

	ev = event.Inbound{Kind: event.KindCommand, UserID: testAdminID, ChatID: testAdminID, Command: "help"}
	require.NoError(t, h.HandleCommand(context.Background(), ev))

	replies = tg.sentTo(testAdminID)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Text, "Admin Komutları")
}

func TestNotifyExpired_ReportsSentCount(t *testing.T) {
	tg := &fakeMessenger{}
	ledger := &fakeFetcher{users: []sheets.ExpiredUser{
		{TelegramID: "111", TradingView: "a"},
		{TelegramID: "222", TradingView: "b"},
		{TelegramID: " 333 ", TradingView: "c"},
		{TelegramID: "not-a-number", TradingView: "d"},
	}}
	h, _, _ := newTestHandler(t, tg, ledger)

	ev := event.Inbound{Kind: event.KindCommand, UserID: testAdminID, ChatID: testAdminID, Command: "notify_expired"}
	require.NoError(t, h.HandleCommand(context.Background(), ev))

	assert.Len(t, tg.sentTo(111), 1)
	assert.Len(t, tg.sentTo(222), 1)
	assert.Len(t, tg.sentTo(333), 1)

	replies := tg.sentTo(testAdminID)
	require.Len(t, replies, 2)
	assert.Contains(t, replies[1].Text, "3/4 kişiye")
}

func TestNotifyExpired_NoExpiredUsers(t *testing.T) {
	tg := &fakeMessenger{}
	h, _, _ := newTestHandler(t, tg, &fakeFetcher{})

	ev := event.Inbound{Kind: event.KindCommand, UserID: testAdminID, ChatID: testAdminID, Command: "notify_expired"}
	require.NoError(t, h.HandleCommand(context.Background(), ev))

	replies := tg.sentTo(testAdminID)
	require.Len(t, replies, 2)
	assert.Contains(t, replies[1].Text, "Süresi dolan kullanıcı yok")
}

func TestNotifyExpired_WithoutLedger(t *testing.T) {
	tg := &fakeMessenger{}
	h, _, _ := newTestHandler(t, tg, nil)

	ev := event.Inbound{Kind: event.KindCommand, UserID: testAdminID, ChatID: testAdminID, Command: "notify_expired"}
	require.NoError(t, h.HandleCommand(context.Background(), ev))

	replies := tg.sentTo(testAdminID)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Text, "yapılandırılmamış")
}

func TestScan_BreaksDownOutcomes(t *testing.T) {
	tg := &fakeMessenger{sendErr: map[int64]error{222: assert.AnError}}
	ledger := &fakeFetcher{users: []sheets.ExpiredUser{
		{TelegramID: "111"},
		{TelegramID: "222"},
		{TelegramID: ""},
		{TelegramID: "abc"},
	}}
	h, _, _ := newTestHandler(t, tg, ledger)

	ev := event.Inbound{Kind: event.KindCommand, UserID: testAdminID, ChatID: testAdminID, Command: "scan"}
	require.NoError(t, h.HandleCommand(context.Background(), ev))

	require.Len(t, tg.edits, 1)
	result := tg.edits[0].text
	assert.Contains(t, result, "Toplam: 4")
	assert.Contains(t, result, "Gönderildi: 1")
	assert.Contains(t, result, "Atlandı: 2")
	assert.Contains(t, result, "Hata: 1")
}

func TestScan_SheetErrorShowsHeaders(t *testing.T) {
	tg := &fakeMessenger{}
	ledger := &fakeFetcher{err: &sheets.SheetError{
		Message:      "kolonlar bulunamadı",
		HeadersFound: []string{"tarih", "plan"},
	}}
	h, _, _ := newTestHandler(t, tg, ledger)

	ev := event.Inbound{Kind: event.KindCommand, UserID: testAdminID, ChatID: testAdminID, Command: "scan"}
	require.NoError(t, h.HandleCommand(context.Background(), ev))

	require.Len(t, tg.edits, 1)
	assert.Contains(t, tg.edits[0].text, "kolonlar bulunamadı")
	assert.Contains(t, tg.edits[0].text, "tarih, plan")
}

func TestSweep_SkipsInvalidIDs(t *testing.T) {
	tg := &fakeMessenger{}
	h, _, _ := newTestHandler(t, tg, nil)

	report := h.sweep(context.Background(), []sheets.ExpiredUser{
		{TelegramID: "111"},
		{TelegramID: "0"},
		{TelegramID: "-5"},
		{TelegramID: "  "},
	})

	assert.Equal(t, SweepReport{Total: 4, Sent: 1, SkippedInvalid: 3}, report)
	require.Len(t, tg.sentTo(111), 1)
	assert.Contains(t, tg.sentTo(111)[0].Text, "sona erdi")
	assert.Contains(t, tg.sentTo(111)[0].Text, "https://malibuprz.netlify.app/")
}
