package admin

import (
	"fmt"
	"strings"

	"github.com/harmonikprz/malibu-bot/internal/event"
	"github.com/harmonikprz/malibu-bot/internal/status"
	"github.com/harmonikprz/malibu-bot/internal/store"
)

// decisionText rewrites the admin prompt after a decision. When the request
// was already cleared the target id stands in for the missing details.
func decisionText(dec event.Decision, req store.Request, found bool) string {
	name := req.TelegramName
	handle := req.TradingView
	if !found {
		name = fmt.Sprintf("%d", dec.TargetID)
		handle = "?"
	}
	if dec.Action == event.ActionApprove {
		return fmt.Sprintf("✅ *Onaylandı*\n\n👤 %s\n📺 %s", name, handle)
	}
	return fmt.Sprintf("❌ *Reddedildi*\n\n👤 %s\n📺 %s", name, handle)
}

func userDecisionText(action event.Action) string {
	if action == event.ActionApprove {
		return "🎉 *Erişiminiz aktifleştirildi!*\n\n" +
			"TradingView'da indikatör erişiminiz açıldı.\n" +
			"İyi işlemler! 🌴"
	}
	return "❌ Talebiniz reddedildi.\n\n" +
		"Sorularınız için destek ile iletişime geçebilirsiniz."
}

func statusText(snap status.Snapshot) string {
	state := "✅ Çalışıyor"
	if !snap.Running {
		state = "⛔ Duruyor"
	}
	h := snap.UptimeSeconds / 3600
	m := (snap.UptimeSeconds % 3600) / 60
	return fmt.Sprintf(
		"📊 *Bot Durumu*\n\n"+
			"%s\n"+
			"⏱️ Uptime: %ds %ddk\n"+
			"🔄 Restart: %d\n"+
			"❌ Hata: %d",
		state, h, m, snap.Restarts, snap.Errors,
	)
}

func helpText(admin bool) string {
	var b strings.Builder
	b.WriteString("📚 *Komutlar*\n\n")
	b.WriteString("/start - Abonelik talebi başlat\n")
	b.WriteString("/cancel - Aktif işlemi iptal et\n")
	b.WriteString("/help - Bu mesaj")
	if admin {
		b.WriteString("\n\n*Admin Komutları:*\n")
		b.WriteString("/pending - Bekleyen talep sayısı\n")
		b.WriteString("/status - Bot durumu\n")
		b.WriteString("/notify\\_expired - Süresi dolanlara bildirim\n")
		b.WriteString("/scan - Gelişmiş tarama\n")
		b.WriteString("/sync - Sheets senkronizasyonu\n")
		b.WriteString("/repair\\_sheets - Tablo onarımı")
	}
	return b.String()
}

func expiredNoticeText(websiteURL string) string {
	return fmt.Sprintf(
		"⚠️ *Malibu PRZ Suite erişiminiz sona erdi.*\n\n"+
			"Yenilemek için: %s/",
		websiteURL,
	)
}
