// Package event defines the closed set of inbound event variants. Every
// Telegram update is classified exactly once at ingestion; downstream handlers
// switch on Kind and never look at the raw update again.
package event

import (
	"strconv"
	"strings"

	"github.com/harmonikprz/malibu-bot/internal/telegram"
)

// Kind discriminates the inbound variants.
type Kind string

const (
	KindStart         Kind = "start"           // /start, optionally with a deep-link plan id
	KindPlanChosen    Kind = "plan_chosen"     // plan button pressed
	KindText          Kind = "text"            // free text inside a conversation
	KindCancel        Kind = "cancel"          // /cancel
	KindCommand       Kind = "command"         // any other slash command
	KindAdminDecision Kind = "admin_decision"  // approve/reject button pressed
	KindIgnore        Kind = "ignore"          // anything the bot does not react to
)

// Action is an admin decision action.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// Decision is the payload of a KindAdminDecision event.
type Decision struct {
	Action   Action
	TargetID int64
}

// Inbound is one classified update.
type Inbound struct {
	Kind     Kind
	UpdateID int

	// Originating user and chat.
	UserID    int64
	ChatID    int64
	Username  string
	FirstName string

	// KindStart (deep link) and KindPlanChosen.
	PlanID string

	// KindText.
	Text string

	// KindCommand.
	Command string
	Args    []string

	// KindAdminDecision.
	Decision *Decision

	// Callback bookkeeping: set for button presses so handlers can ack the
	// press and rewrite the prompting message.
	CallbackID string
	MessageID  int
}

// Classify maps a raw update onto the closed variant set. Plan ids are not
// validated here; the conversation engine checks them against the catalog.
func Classify(upd telegram.Update) Inbound {
	switch {
	case upd.CallbackQuery != nil:
		return classifyCallback(upd)
	case upd.Message != nil && upd.Message.From != nil:
		return classifyMessage(upd)
	default:
		return Inbound{Kind: KindIgnore, UpdateID: upd.UpdateID}
	}
}

func classifyMessage(upd telegram.Update) Inbound {
	msg := upd.Message
	ev := Inbound{
		UpdateID:  upd.UpdateID,
		UserID:    msg.From.ID,
		ChatID:    msg.Chat.ID,
		Username:  msg.From.Username,
		FirstName: msg.From.FirstName,
		MessageID: msg.MessageID,
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		ev.Kind = KindIgnore
		return ev
	}

	if !strings.HasPrefix(text, "/") {
		ev.Kind = KindText
		ev.Text = text
		return ev
	}

	fields := strings.Fields(text)
	cmd := strings.TrimPrefix(fields[0], "/")
	// Strip the @botname suffix used in group chats.
	if i := strings.Index(cmd, "@"); i >= 0 {
		cmd = cmd[:i]
	}
	args := fields[1:]

	switch cmd {
	case "start":
		ev.Kind = KindStart
		if len(args) > 0 {
			ev.PlanID = args[0]
		}
	case "cancel":
		ev.Kind = KindCancel
	default:
		ev.Kind = KindCommand
		ev.Command = cmd
		ev.Args = args
	}
	return ev
}

func classifyCallback(upd telegram.Update) Inbound {
	cb := upd.CallbackQuery
	ev := Inbound{
		UpdateID:   upd.UpdateID,
		UserID:     cb.From.ID,
		Username:   cb.From.Username,
		FirstName:  cb.From.FirstName,
		CallbackID: cb.ID,
	}
	if cb.Message != nil {
		ev.ChatID = cb.Message.Chat.ID
		ev.MessageID = cb.Message.MessageID
	}

	if action, rest, ok := splitDecision(cb.Data); ok {
		target, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			ev.Kind = KindIgnore
			return ev
		}
		ev.Kind = KindAdminDecision
		ev.Decision = &Decision{Action: action, TargetID: target}
		return ev
	}

	if cb.Data == "" {
		ev.Kind = KindIgnore
		return ev
	}

	ev.Kind = KindPlanChosen
	ev.PlanID = cb.Data
	return ev
}

func splitDecision(data string) (Action, string, bool) {
	if rest, ok := strings.CutPrefix(data, "approve_"); ok {
		return ActionApprove, rest, true
	}
	if rest, ok := strings.CutPrefix(data, "reject_"); ok {
		return ActionReject, rest, true
	}
	return "", "", false
}
