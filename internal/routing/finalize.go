package routing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pedezap/pedezap/internal/domain"
)

// finalize persists a confirmed order and reports its tracking code. On a
// failed write the customer gets an apology and no code is promised.
func (r *Router) finalize(ctx context.Context, msg domain.InboundMessage, pending *domain.PendingOrder) {
	if pending == nil || len(pending.Items) == 0 {
		r.log.Warn().Str("sender", msg.Sender).Msg("confirmation with no pending order")
		r.reply(ctx, msg, msgGenericError)
		return
	}

	now := time.Now()
	order := domain.FinalizedOrder{
		TrackingCode:  NewTrackingCode(),
		TenantID:      msg.TenantID,
		CustomerName:  pending.CustomerName,
		Phone:         msg.Sender,
		Address:       pending.Address,
		Items:         pending.Items,
		Total:         pending.Total,
		Status:        domain.OrderStatusNew,
		PaymentMethod: pending.PaymentMethod,
		Source:        domain.OrderSourceBot,
		Sender:        msg.Sender,
		Delivery:      pending.Address != "",
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := r.orders.CreateOrder(ctx, order); err != nil {
		r.log.Error().Err(err).
			Str("tenant", msg.TenantID).
			Str("trackingCode", order.TrackingCode).
			Msg("persisting order failed")
		r.reply(ctx, msg, msgOrderFailed)
		return
	}

	r.log.Info().
		Str("tenant", msg.TenantID).
		Str("trackingCode", order.TrackingCode).
		Float64("total", order.Total).
		Msg("order finalized")
	r.reply(ctx, msg, finalizedSummary(order))
}

// confirmationSummary renders the draft order and asks for an explicit
// "sim" so the fast-path in HandleInbound can catch the answer.
func confirmationSummary(order *domain.PendingOrder) string {
	var b strings.Builder
	b.WriteString("*Resumo do seu pedido*\n\n")
	writeItems(&b, order.Items)
	fmt.Fprintf(&b, "\nTotal: R$ %.2f\n", order.Total)
	if order.Address != "" {
		fmt.Fprintf(&b, "Entrega: %s\n", order.Address)
	}
	if order.PaymentMethod != "" {
		fmt.Fprintf(&b, "Pagamento: %s\n", order.PaymentMethod)
	}
	b.WriteString("\nEstá tudo certo? Responda *sim* para confirmar.")
	return b.String()
}

// finalizedSummary renders the confirmed order with its tracking code.
func finalizedSummary(order domain.FinalizedOrder) string {
	var b strings.Builder
	b.WriteString("Pedido confirmado! ✅\n\n")
	fmt.Fprintf(&b, "Código de acompanhamento: *%s*\n\n", order.TrackingCode)
	writeItems(&b, order.Items)
	fmt.Fprintf(&b, "\nTotal: R$ %.2f\n", order.Total)
	if order.Address != "" {
		fmt.Fprintf(&b, "Entrega: %s\n", order.Address)
	}
	if order.PaymentMethod != "" {
		fmt.Fprintf(&b, "Pagamento: %s\n", order.PaymentMethod)
	}
	b.WriteString("\nObrigado pela preferência!")
	return b.String()
}

func writeItems(b *strings.Builder, items []domain.OrderItem) {
	for _, item := range items {
		if item.Size != "" {
			fmt.Fprintf(b, "%dx %s (%s) — R$ %.2f\n", item.Quantity, item.Name, item.Size, item.Total)
		} else {
			fmt.Fprintf(b, "%dx %s — R$ %.2f\n", item.Quantity, item.Name, item.Total)
		}
	}
}
