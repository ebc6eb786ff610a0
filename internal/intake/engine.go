// Package intake implements the conversation engine: a per-user state machine
// that collects a plan choice, a TradingView handle and (for paid plans) a
// payment reference, then hands the completed record to the pending ledger.
package intake

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/harmonikprz/malibu-bot/internal/event"
	"github.com/harmonikprz/malibu-bot/internal/metrics"
	"github.com/harmonikprz/malibu-bot/internal/plan"
	"github.com/harmonikprz/malibu-bot/internal/store"
	"github.com/harmonikprz/malibu-bot/internal/telegram"
)

// Sender is the outbound messaging surface the engine needs.
type Sender interface {
	SendMessage(ctx context.Context, p telegram.SendMessageParams) (*telegram.Message, error)
	AnswerCallbackQuery(ctx context.Context, callbackID string) error
}

// Ledger is the best-effort external record sink.
type Ledger interface {
	Submit(ctx context.Context, payload any) error
}

// Config holds the engine's fixed parameters.
type Config struct {
	AdminID        int64
	PaymentAddress string
}

// Engine drives intake conversations. One instance serves all users; per-user
// ordering is the dispatcher's responsibility.
type Engine struct {
	tg       Sender
	pending  store.Pending
	ledger   Ledger // nil when the webhook is not configured
	sessions *Sessions
	catalog  plan.Catalog
	cfg      Config
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	wg       sync.WaitGroup
}

// New creates an Engine.
func New(tg Sender, pending store.Pending, ledger Ledger, sessions *Sessions, catalog plan.Catalog, cfg Config, m *metrics.Metrics, logger zerolog.Logger) *Engine {
	return &Engine{
		tg:       tg,
		pending:  pending,
		ledger:   ledger,
		sessions: sessions,
		catalog:  catalog,
		cfg:      cfg,
		metrics:  m,
		logger:   logger.With().Str("component", "intake").Logger(),
		now:      time.Now,
	}
}

// Wait blocks until in-flight ledger submissions have finished. Called on
// shutdown.
func (e *Engine) Wait() { e.wg.Wait() }

// HandleStart processes /start, with or without a deep-link plan id. A known
// plan id skips the menu; otherwise the menu is shown and any existing
// session is discarded.
func (e *Engine) HandleStart(ctx context.Context, ev event.Inbound) error {
	e.logger.Info().Int64("user_id", ev.UserID).Str("plan_id", ev.PlanID).Msg("start")

	if p, ok := e.catalog.ByID(ev.PlanID); ok {
		e.beginCollecting(ev, p)
		_, err := e.tg.SendMessage(ctx, telegram.SendMessageParams{
			ChatID: ev.ChatID,
			Text:   deepLinkSelectedText(p),
		})
		return err
	}

	e.sessions.Delete(ev.UserID)
	_, err := e.tg.SendMessage(ctx, telegram.SendMessageParams{
		ChatID:      ev.ChatID,
		Text:        welcomeText(ev.FirstName),
		ReplyMarkup: planMenu(e.catalog),
	})
	return err
}

// HandlePlanChosen processes a plan button press.
func (e *Engine) HandlePlanChosen(ctx context.Context, ev event.Inbound) error {
	if ev.CallbackID != "" {
		if err := e.tg.AnswerCallbackQuery(ctx, ev.CallbackID); err != nil {
			e.logger.Warn().Err(err).Msg("answer callback failed")
		}
	}

	p, ok := e.catalog.ByID(ev.PlanID)
	if !ok {
		return nil
	}

	e.beginCollecting(ev, p)
	_, err := e.tg.SendMessage(ctx, telegram.SendMessageParams{
		ChatID: ev.ChatID,
		Text:   planSelectedText(p),
	})
	return err
}

// HandleText processes free text from a user. Outside a session it is
// ignored; inside, it advances the state machine.
func (e *Engine) HandleText(ctx context.Context, ev event.Inbound) error {
	sess := e.sessions.Get(ev.UserID)
	if sess == nil {
		return nil
	}

	switch sess.State {
	case StateCollectingHandle:
		sess.Handle = ev.Text
		if sess.Plan.Trial {
			e.finalize(ctx, sess, TrialTxID)
			_, err := e.tg.SendMessage(ctx, telegram.SendMessageParams{
				ChatID: ev.ChatID,
				Text:   trialReceivedText(sess.Handle, sess.Plan),
			})
			return err
		}

		sess.State = StateCollectingPaymentRef
		e.sessions.Touch(ev.UserID)
		_, err := e.tg.SendMessage(ctx, telegram.SendMessageParams{
			ChatID: ev.ChatID,
			Text:   paymentInstructionsText(sess.Handle, e.cfg.PaymentAddress, sess.Plan),
		})
		return err

	case StateCollectingPaymentRef:
		// The reference is recorded verbatim; validating it is a non-goal.
		txid := ev.Text
		e.finalize(ctx, sess, txid)
		_, err := e.tg.SendMessage(ctx, telegram.SendMessageParams{
			ChatID: ev.ChatID,
			Text:   paymentReceivedText(txid, sess.Plan),
		})
		return err
	}
	return nil
}

// HandleCancel discards an active session. Without one it is a no-op.
func (e *Engine) HandleCancel(ctx context.Context, ev event.Inbound) error {
	if !e.sessions.Delete(ev.UserID) {
		return nil
	}
	_, err := e.tg.SendMessage(ctx, telegram.SendMessageParams{
		ChatID: ev.ChatID,
		Text:   cancelledText,
	})
	return err
}

func (e *Engine) beginCollecting(ev event.Inbound, p plan.Plan) {
	e.sessions.Put(&Session{
		UserID:    ev.UserID,
		ChatID:    ev.ChatID,
		Username:  ev.Username,
		FirstName: ev.FirstName,
		State:     StateCollectingHandle,
		Plan:      p,
	})
}

// finalize produces the intake record, stores it in the pending ledger,
// mirrors it to the external ledger (fire-and-forget) and notifies the admin.
// The session is destroyed.
func (e *Engine) finalize(ctx context.Context, sess *Session, txid string) {
	now := e.now().UTC()
	req := store.Request{
		ID:               uuid.NewString(),
		Date:             store.FormatTimestamp(now),
		TelegramID:       strconv.FormatInt(sess.UserID, 10),
		TelegramUsername: usernameOr(sess.Username, "Yok"),
		TelegramName:     sess.FirstName,
		TxID:             txid,
		Plan:             sess.Plan.Name,
		TradingView:      sess.Handle,
		StartDate:        store.FormatDate(now),
		EndDate:          store.FormatDate(sess.Plan.EndDate(now)),
		Status:           store.StatusPending,
	}

	e.sessions.Delete(sess.UserID)

	if err := e.pending.Put(sess.UserID, req); err != nil {
		e.logger.Error().Err(err).Str("request_id", req.ID).Msg("pending store put failed")
	}
	if n, err := e.pending.Count(); err == nil {
		e.metrics.SetPending(float64(n))
	}

	e.submitAsync(req)
	e.notifyAdmin(ctx, sess, txid)

	e.logger.Info().
		Str("request_id", req.ID).
		Int64("user_id", sess.UserID).
		Str("plan", sess.Plan.ID).
		Str("tradingview", sess.Handle).
		Msg("intake completed")
}

// submitAsync mirrors the record to the external ledger without blocking the
// user-visible completion path. Failures are logged and dropped.
func (e *Engine) submitAsync(req store.Request) {
	if e.ledger == nil {
		e.logger.Warn().Msg("ledger webhook not configured, record not mirrored")
		return
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := e.ledger.Submit(ctx, req); err != nil {
			e.metrics.RecordError("sheets", "submit")
			e.logger.Error().Err(err).Str("request_id", req.ID).Msg("ledger submit failed")
			return
		}
		e.logger.Info().Str("request_id", req.ID).Str("tradingview", req.TradingView).Msg("ledger record saved")
	}()
}

func (e *Engine) notifyAdmin(ctx context.Context, sess *Session, txid string) {
	if e.cfg.AdminID == 0 {
		return
	}
	_, err := e.tg.SendMessage(ctx, telegram.SendMessageParams{
		ChatID:      e.cfg.AdminID,
		Text:        adminRequestText(sess, txid),
		ReplyMarkup: adminDecisionKeyboard(sess.UserID),
	})
	if err != nil {
		e.logger.Error().Err(err).Int64("user_id", sess.UserID).Msg("admin notification failed")
	}
}

func usernameOr(username, fallback string) string {
	if username == "" {
		return fallback
	}
	return username
}
