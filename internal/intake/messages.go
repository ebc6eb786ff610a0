package intake

import (
	"fmt"
	"strings"

	"github.com/harmonikprz/malibu-bot/internal/plan"
	"github.com/harmonikprz/malibu-bot/internal/telegram"
)

// TrialTxID is the sentinel payment reference recorded for trial requests.
const TrialTxID = "DENEME"

func welcomeText(firstName string) string {
	return fmt.Sprintf(
		"Merhaba %s! 👋\n\n"+
			"🌴 *Malibu PRZ Suite'e* hoş geldiniz!\n\n"+
			"Harmonik PRZ + SMC Malibu hibrit sistemi ile\n"+
			"kurumsal düzeyde teknik analiz yapın.\n\n"+
			"📊 Bir plan seçin:",
		firstName,
	)
}

func planMenu(catalog plan.Catalog) *telegram.InlineKeyboardMarkup {
	rows := make([][]telegram.InlineKeyboardButton, 0, catalog.Len())
	for _, p := range catalog.Menu() {
		label := fmt.Sprintf("💳 %s - %s", p.Name, p.Price)
		if p.Trial {
			label = "🆓 " + p.Name
		}
		rows = append(rows, []telegram.InlineKeyboardButton{
			{Text: label, CallbackData: p.ID},
		})
	}
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// deepLinkSelectedText omits the price for the trial plan, matching the
// deep-link flow; button selection always shows it.
func deepLinkSelectedText(p plan.Plan) string {
	selected := fmt.Sprintf("*%s (%s)*", p.Name, p.Price)
	if p.Trial {
		selected = fmt.Sprintf("*%s*", p.Name)
	}
	return fmt.Sprintf(
		"🌴 *Malibu PRZ Suite*\n\n"+
			"✅ %s seçildi!\n\n"+
			"📝 Lütfen TradingView kullanıcı adınızı yazın:",
		selected,
	)
}

func planSelectedText(p plan.Plan) string {
	return fmt.Sprintf(
		"✅ *%s (%s)* seçildi!\n\n"+
			"📝 Lütfen TradingView kullanıcı adınızı yazın:",
		p.Name, p.Price,
	)
}

func paymentInstructionsText(handle, address string, p plan.Plan) string {
	return fmt.Sprintf(
		"📺 TradingView: `%s`\n\n"+
			"💰 *Ödeme Bilgileri:*\n\n"+
			"Adres (TRC20 USDT):\n"+
			"`%s`\n\n"+
			"Tutar: *%s*\n\n"+
			"⚠️ Ödeme yaptıktan sonra *TXID* (işlem numarası) gönderin:",
		handle, address, p.Price,
	)
}

func trialReceivedText(handle string, p plan.Plan) string {
	return fmt.Sprintf(
		"✅ *Deneme talebiniz alındı!*\n\n"+
			"📺 TradingView: `%s`\n"+
			"⏱️ Süre: %d gün\n\n"+
			"24 saat içinde erişiminiz aktifleştirilecektir.\n"+
			"Teşekkürler! 🙏",
		handle, p.Days,
	)
}

func paymentReceivedText(txid string, p plan.Plan) string {
	return fmt.Sprintf(
		"✅ *Ödeme talebiniz alındı!*\n\n"+
			"📋 TXID: `%s`\n"+
			"📊 Plan: %s (%s)\n\n"+
			"İşleminiz 24 saat içinde kontrol edilecektir.\n"+
			"Onaylandığında bilgilendirileceksiniz. 🙏",
		txid, p.Name, p.Price,
	)
}

const cancelledText = "İşlem iptal edildi.\n\nYeniden başlamak için /start yazın."

func adminRequestText(s *Session, txid string) string {
	header := "💰 ÖDEME"
	if txid == TrialTxID {
		header = "🆓 DENEME"
	}
	username := s.Username
	if username == "" {
		username = "yok"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s *Yeni Talep*\n\n", header)
	fmt.Fprintf(&b, "👤 %s (@%s)\n", s.FirstName, username)
	fmt.Fprintf(&b, "🆔 `%d`\n", s.UserID)
	fmt.Fprintf(&b, "📊 %s (%s)\n", s.Plan.Name, s.Plan.Price)
	fmt.Fprintf(&b, "📺 TradingView: `%s`\n", s.Handle)
	fmt.Fprintf(&b, "📋 TXID: `%s`", txid)
	return b.String()
}

func adminDecisionKeyboard(userID int64) *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{{
		{Text: "✅ Onayla", CallbackData: fmt.Sprintf("approve_%d", userID)},
		{Text: "❌ Reddet", CallbackData: fmt.Sprintf("reject_%d", userID)},
	}}}
}
