package supervisor

import (
	"context"

	"github.com/harmonikprz/malibu-bot/internal/event"
	"github.com/harmonikprz/malibu-bot/internal/metrics"
)

// IntakeHandler is the conversation engine surface the router dispatches to.
type IntakeHandler interface {
	HandleStart(ctx context.Context, ev event.Inbound) error
	HandlePlanChosen(ctx context.Context, ev event.Inbound) error
	HandleText(ctx context.Context, ev event.Inbound) error
	HandleCancel(ctx context.Context, ev event.Inbound) error
}

// AdminHandler is the admin surface the router dispatches to.
type AdminHandler interface {
	HandleDecision(ctx context.Context, ev event.Inbound) error
	HandleCommand(ctx context.Context, ev event.Inbound) error
}

// Router maps classified events onto their handlers.
type Router struct {
	intake  IntakeHandler
	admin   AdminHandler
	metrics *metrics.Metrics
}

// NewRouter creates a Router.
func NewRouter(intake IntakeHandler, admin AdminHandler, m *metrics.Metrics) *Router {
	return &Router{intake: intake, admin: admin, metrics: m}
}

// Route dispatches one event. Unknown kinds are dropped.
func (r *Router) Route(ctx context.Context, ev event.Inbound) error {
	r.metrics.RecordEvent(string(ev.Kind))

	switch ev.Kind {
	case event.KindStart:
		return r.intake.HandleStart(ctx, ev)
	case event.KindPlanChosen:
		return r.intake.HandlePlanChosen(ctx, ev)
	case event.KindText:
		return r.intake.HandleText(ctx, ev)
	case event.KindCancel:
		return r.intake.HandleCancel(ctx, ev)
	case event.KindAdminDecision:
		return r.admin.HandleDecision(ctx, ev)
	case event.KindCommand:
		return r.admin.HandleCommand(ctx, ev)
	default:
		return nil
	}
}
