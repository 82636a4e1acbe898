// Package routing drives inbound customer messages through the ordering
// conversation: gate, conversation-state lookup, intent classification, and
// dispatch to the confirmation, clarification, reply, or finalization flow.
package routing

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pedezap/pedezap/internal/convstate"
	"github.com/pedezap/pedezap/internal/domain"
	"github.com/pedezap/pedezap/internal/intent"
	"github.com/pedezap/pedezap/internal/logging"
)

// TenantConfigStore reads per-tenant settings.
type TenantConfigStore interface {
	TenantConfig(ctx context.Context, tenantID string) (*domain.TenantConfig, error)
}

// CatalogStore reads a tenant's product list.
type CatalogStore interface {
	Catalog(ctx context.Context, tenantID string) ([]domain.CatalogItem, error)
}

// OrderStore persists finalized orders and serves the personalization read.
type OrderStore interface {
	CreateOrder(ctx context.Context, order domain.FinalizedOrder) error
	LastOrder(ctx context.Context, tenantID, sender string) (*domain.FinalizedOrder, error)
}

// Classifier interprets one message; nil means the AI was unavailable.
type Classifier interface {
	Classify(ctx context.Context, in intent.Input) *intent.Intent
}

// OutboundSender delivers replies through a tenant's active connection.
type OutboundSender interface {
	Send(ctx context.Context, tenantID string, msg domain.OutboundMessage) error
}

// Customer-facing texts.
const (
	msgAIUnavailable  = "Nosso atendimento automático está temporariamente indisponível. Um atendente humano vai te responder em breve."
	msgOrderFailed    = "Desculpe, não consegui registrar seu pedido agora. Pode tentar novamente em instantes?"
	msgGenericError   = "Desculpe, algo deu errado por aqui. Pode repetir sua mensagem?"
	msgUnknownIntent  = "Desculpe, não entendi. Pode reformular sua mensagem?"
)

// affirmations are the trimmed, lowercased bodies that confirm a pending
// order without a model call. The "yes" turn is the highest-frequency one;
// short-circuiting it keeps the loop deterministic and cheap.
var affirmations = map[string]struct{}{
	"sim":            {},
	"s":              {},
	"isso":           {},
	"correto":        {},
	"pode confirmar": {},
}

func isAffirmation(body string) bool {
	_, ok := affirmations[strings.ToLower(strings.TrimSpace(body))]
	return ok
}

// Router is the per-message orchestrator.
type Router struct {
	sender     OutboundSender
	tenants    TenantConfigStore
	catalog    CatalogStore
	orders     OrderStore
	classifier Classifier
	states     *convstate.Store
	log        *logging.Logger

	// senders already told the AI is down; reset only on process restart
	notifiedMu sync.Mutex
	notified   map[string]struct{}
}

// NewRouter creates a message router.
func NewRouter(
	sender OutboundSender,
	tenants TenantConfigStore,
	catalog CatalogStore,
	orders OrderStore,
	classifier Classifier,
	states *convstate.Store,
	log *logging.Logger,
) *Router {
	return &Router{
		sender:     sender,
		tenants:    tenants,
		catalog:    catalog,
		orders:     orders,
		classifier: classifier,
		states:     states,
		log:        log.Sub("router"),
		notified:   make(map[string]struct{}),
	}
}

// HandleInbound processes one inbound message end to end. It never panics
// out: unexpected failures produce one generic apology and no partial state.
func (r *Router) HandleInbound(ctx context.Context, msg domain.InboundMessage) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().
				Any("panic", rec).
				Str("tenant", msg.TenantID).
				Str("sender", msg.Sender).
				Msg("message pipeline panicked")
			r.reply(ctx, msg, msgGenericError)
		}
	}()

	// Gate: never respond for self-echoes, non-text payloads, or tenants
	// that are missing or switched off.
	if msg.FromSelf || msg.Kind != domain.MessageText || strings.TrimSpace(msg.Body) == "" {
		return
	}
	cfg, err := r.tenants.TenantConfig(ctx, msg.TenantID)
	if err != nil {
		r.log.Error().Err(err).Str("tenant", msg.TenantID).Msg("loading tenant config failed")
		return
	}
	if cfg == nil || !cfg.IsActive {
		r.log.Debug().Str("tenant", msg.TenantID).Msg("tenant inactive, dropping message")
		return
	}

	now := time.Now()
	prior, hasPrior := r.states.Get(msg.TenantID, msg.Sender)
	if hasPrior && prior.Expired(now) {
		r.states.Delete(msg.TenantID, msg.Sender)
		hasPrior = false
	}

	// Fast-path confirmation: a plain "sim" on a pending order skips the
	// model entirely and goes straight to finalization.
	if hasPrior && prior.Status == convstate.AwaitingConfirmation && isAffirmation(msg.Body) {
		r.finalize(ctx, msg, prior.PendingOrder)
		r.states.Delete(msg.TenantID, msg.Sender)
		return
	}

	// A pending clarification feeds the question back as context and is
	// consumed regardless of what the classifier decides. A pending
	// confirmation that wasn't affirmed is left in place: the classifier
	// treats the message as a modification and a fresh order intent will
	// overwrite it.
	var priorQuestion string
	if hasPrior && prior.Status == convstate.AwaitingClarification {
		priorQuestion = prior.LastBotMessage
		r.states.Delete(msg.TenantID, msg.Sender)
	}

	catalog, err := r.catalog.Catalog(ctx, msg.TenantID)
	if err != nil {
		r.log.Error().Err(err).Str("tenant", msg.TenantID).Msg("loading catalog failed")
	}
	lastOrder, err := r.orders.LastOrder(ctx, msg.TenantID, msg.Sender)
	if err != nil {
		r.log.Error().Err(err).Str("tenant", msg.TenantID).Msg("loading last order failed")
	}

	classified := r.classifier.Classify(ctx, intent.Input{
		Message:       msg.Body,
		Tenant:        *cfg,
		Catalog:       catalog,
		LastOrder:     lastOrder,
		PriorQuestion: priorQuestion,
	})
	if classified == nil {
		r.notifyAIUnavailable(ctx, msg)
		return
	}

	switch classified.Kind {
	case intent.KindOrder:
		pending := enrichOrder(classified.Order, catalog)
		r.states.Set(msg.TenantID, msg.Sender, convstate.State{
			Status:       convstate.AwaitingConfirmation,
			PendingOrder: pending,
			CreatedAt:    now,
		})
		r.reply(ctx, msg, confirmationSummary(pending))

	case intent.KindClarification:
		r.states.Set(msg.TenantID, msg.Sender, convstate.State{
			Status:         convstate.AwaitingClarification,
			LastBotMessage: classified.Text,
			CreatedAt:      now,
		})
		r.reply(ctx, msg, classified.Text)

	case intent.KindReply:
		r.reply(ctx, msg, classified.Text)

	default:
		r.reply(ctx, msg, msgUnknownIntent)
	}
}

// notifyAIUnavailable tells a sender once that the AI is down. Repeat
// failures for the same sender are suppressed until the process restarts.
func (r *Router) notifyAIUnavailable(ctx context.Context, msg domain.InboundMessage) {
	key := msg.TenantID + "\x00" + msg.Sender

	r.notifiedMu.Lock()
	_, already := r.notified[key]
	if !already {
		r.notified[key] = struct{}{}
	}
	r.notifiedMu.Unlock()

	if already {
		r.log.Debug().Str("sender", msg.Sender).Msg("AI outage notice already sent")
		return
	}
	r.reply(ctx, msg, msgAIUnavailable)
}

// enrichOrder prices a draft order against the catalog. Unmatched items get
// price 0 and do not contribute to the total.
func enrichOrder(order *domain.PendingOrder, catalog []domain.CatalogItem) *domain.PendingOrder {
	enriched := *order
	enriched.Items = make([]domain.OrderItem, len(order.Items))
	enriched.Total = 0

	for i, item := range order.Items {
		item.UnitPrice = 0
		for _, c := range catalog {
			if strings.EqualFold(strings.TrimSpace(c.Name), item.Name) {
				item.UnitPrice = c.Price
				break
			}
		}
		item.Total = item.UnitPrice * float64(item.Quantity)
		enriched.Items[i] = item
		enriched.Total += item.Total
	}
	return &enriched
}

// reply sends outbound text to the message's sender, logging send failures.
func (r *Router) reply(ctx context.Context, msg domain.InboundMessage, body string) {
	err := r.sender.Send(ctx, msg.TenantID, domain.OutboundMessage{To: msg.Sender, Body: body})
	if err != nil {
		r.log.Error().Err(err).
			Str("tenant", msg.TenantID).
			Str("to", msg.Sender).
			Msg("failed to send reply")
	}
}
