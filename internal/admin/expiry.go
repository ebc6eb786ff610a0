package admin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/harmonikprz/malibu-bot/internal/event"
	"github.com/harmonikprz/malibu-bot/internal/sheets"
	"github.com/harmonikprz/malibu-bot/internal/telegram"
)

// sweepPacing spaces out bulk notification sends to stay under Telegram's
// per-bot message rate.
const sweepPacing = 150 * time.Millisecond

// SweepReport summarizes one expiry notification pass.
type SweepReport struct {
	Total          int
	Sent           int
	SkippedInvalid int
	Errors         int
}

// cmdNotifyExpired fetches expired subscriptions and messages each user,
// then reports the sent count back to the admin.
func (h *Handler) cmdNotifyExpired(ctx context.Context, ev event.Inbound) error {
	if h.ledger == nil {
		h.send(ctx, ev.ChatID, "❌ Sheets webhook yapılandırılmamış.")
		return nil
	}
	h.send(ctx, ev.ChatID, "🔄 Süresi dolan abonelikler kontrol ediliyor...")

	users, err := h.ledger.FetchExpired(ctx)
	if err != nil {
		h.metrics.RecordError("admin", "fetch_expired")
		h.send(ctx, ev.ChatID, fetchErrorText(err))
		return nil
	}
	if len(users) == 0 {
		h.send(ctx, ev.ChatID, "✅ Süresi dolan kullanıcı yok.")
		return nil
	}

	report := h.sweep(ctx, users)
	h.send(ctx, ev.ChatID, fmt.Sprintf("📨 %d/%d kişiye bildirim gönderildi.", report.Sent, report.Total))
	return nil
}

// cmdScan runs the same sweep but posts a progress message first and edits
// it into a full per-outcome breakdown when done.
func (h *Handler) cmdScan(ctx context.Context, ev event.Inbound) error {
	if h.ledger == nil {
		h.send(ctx, ev.ChatID, "❌ Sheets webhook yapılandırılmamış.")
		return nil
	}

	progress, err := h.tg.SendMessage(ctx, telegram.SendMessageParams{
		ChatID: ev.ChatID,
		Text:   "🔍 Gelişmiş tarama başlatılıyor... Lütfen bekleyin.",
	})
	if err != nil {
		return fmt.Errorf("sending scan progress message: %w", err)
	}

	finish := func(text string) {
		if progress == nil {
			h.send(ctx, ev.ChatID, text)
			return
		}
		if err := h.tg.EditMessageText(ctx, ev.ChatID, progress.MessageID, text); err != nil {
			h.logger.Warn().Err(err).Msg("scan result edit failed")
		}
	}

	users, err := h.ledger.FetchExpired(ctx)
	if err != nil {
		h.metrics.RecordError("admin", "fetch_expired")
		finish(fetchErrorText(err))
		return nil
	}
	if len(users) == 0 {
		finish("✅ Süresi dolan veya bildirim bekleyen kullanıcı bulunamadı.")
		return nil
	}

	report := h.sweep(ctx, users)
	finish(fmt.Sprintf(
		"🔍 *Tarama Sonucu*\n\n"+
			"👥 Toplam: %d\n"+
			"📨 Gönderildi: %d\n"+
			"⏭️ Atlandı: %d\n"+
			"❌ Hata: %d",
		report.Total, report.Sent, report.SkippedInvalid, report.Errors,
	))
	return nil
}

// sweep notifies every expired user with a valid numeric telegram id. Rows
// with blank or malformed ids come from hand edits to the sheet and are
// skipped, not errored. Send failures are counted and passed over.
func (h *Handler) sweep(ctx context.Context, users []sheets.ExpiredUser) SweepReport {
	report := SweepReport{Total: len(users)}
	notice := expiredNoticeText(h.cfg.WebsiteURL)

	for _, u := range users {
		raw := strings.TrimSpace(u.TelegramID)
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			report.SkippedInvalid++
			h.metrics.RecordSweepSend("skipped")
			h.logger.Warn().Str("telegram_id", raw).Str("tradingview", u.TradingView).Msg("skipping row with invalid id")
			continue
		}

		if err := h.pacing.Wait(ctx); err != nil {
			report.Errors += report.Total - report.Sent - report.SkippedInvalid
			break
		}

		if _, err := h.tg.SendMessage(ctx, telegram.SendMessageParams{ChatID: id, Text: notice}); err != nil {
			report.Errors++
			h.metrics.RecordSweepSend("error")
			h.logger.Warn().Err(err).Int64("target", id).Msg("expiry notice failed")
			continue
		}
		report.Sent++
		h.metrics.RecordSweepSend("ok")
	}

	h.logger.Info().
		Int("total", report.Total).
		Int("sent", report.Sent).
		Int("skipped", report.SkippedInvalid).
		Int("errors", report.Errors).
		Msg("expiry sweep finished")
	return report
}

func fetchErrorText(err error) string {
	var sheetErr *sheets.SheetError
	if errors.As(err, &sheetErr) {
		if len(sheetErr.HeadersFound) > 0 {
			return fmt.Sprintf("❌ Sheets hatası: %s\n\nBulunan başlıklar: %s",
				sheetErr.Message, strings.Join(sheetErr.HeadersFound, ", "))
		}
		return "❌ Sheets hatası: " + sheetErr.Message
	}
	return "❌ Sheets sorgusu başarısız: " + err.Error()
}
