package store

import "time"

// StatusPending is the ledger status written for every new intake record.
const StatusPending = "Beklemede 🟡"

// DateFormat is the day format used in ledger rows.
const DateFormat = "02.01.2006"

// TimestampFormat is the submission-time format used in ledger rows.
const TimestampFormat = "02.01.2006 15:04"

// Request is the immutable snapshot produced when an intake conversation
// completes. The JSON tags are the ledger webhook's column contract.
type Request struct {
	ID               string `json:"-"` // correlation id, not part of the ledger row
	Date             string `json:"tarih"`
	TelegramID       string `json:"telegram_id"`
	TelegramUsername string `json:"telegram_username"`
	TelegramName     string `json:"telegram_name"`
	TxID             string `json:"txid"`
	Plan             string `json:"plan"`
	TradingView      string `json:"tradingview"`
	StartDate        string `json:"baslangic_tarihi"`
	EndDate          string `json:"bitis_tarihi"`
	Status           string `json:"durum"`
}

// FormatDate renders t in the ledger day format (UTC).
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateFormat)
}

// FormatTimestamp renders t in the ledger timestamp format (UTC).
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}
