package intent

import (
	"fmt"
	"strings"

	"github.com/pedezap/pedezap/internal/domain"
)

// Input is everything the classifier embeds in one prompt.
type Input struct {
	Message       string
	Tenant        domain.TenantConfig
	Catalog       []domain.CatalogItem
	LastOrder     *domain.FinalizedOrder
	PriorQuestion string // the clarification question the bot last asked, if any
}

// buildPrompt assembles the single classification prompt. The output
// contract is deliberately strict: one JSON object, nothing else, one of
// three shapes.
func buildPrompt(in Input) string {
	var b strings.Builder

	b.WriteString("Você é o atendente virtual de um restaurante que recebe pedidos pelo WhatsApp.\n\n")

	t := in.Tenant
	b.WriteString("## Estabelecimento\n")
	if t.BusinessName != "" {
		fmt.Fprintf(&b, "Nome: %s\n", t.BusinessName)
	}
	if t.Greeting != "" {
		fmt.Fprintf(&b, "Saudação padrão: %s\n", t.Greeting)
	}
	if t.Hours != "" {
		fmt.Fprintf(&b, "Horário: %s\n", t.Hours)
	}
	if t.Address != "" {
		fmt.Fprintf(&b, "Endereço: %s\n", t.Address)
	}
	if t.Phone != "" {
		fmt.Fprintf(&b, "Telefone: %s\n", t.Phone)
	}
	if t.MenuURL != "" {
		fmt.Fprintf(&b, "Cardápio completo: %s\n", t.MenuURL)
	}

	if len(in.Catalog) > 0 {
		b.WriteString("\n## Itens disponíveis\n")
		for _, item := range in.Catalog {
			fmt.Fprintf(&b, "- %s\n", item.Name)
		}
	}

	if in.LastOrder != nil && len(in.LastOrder.Items) > 0 {
		b.WriteString("\n## Último pedido deste cliente\n")
		for _, item := range in.LastOrder.Items {
			fmt.Fprintf(&b, "- %dx %s\n", item.Quantity, item.Name)
		}
	}

	if in.PriorQuestion != "" {
		b.WriteString("\n## Pergunta que você fez ao cliente\n")
		b.WriteString(in.PriorQuestion)
		b.WriteString("\n")
	}

	b.WriteString("\n## Mensagem do cliente\n")
	b.WriteString(in.Message)
	b.WriteString("\n")

	b.WriteString(`
## Instruções de resposta
Responda com UM ÚNICO objeto JSON e absolutamente nada mais. Sem texto antes
ou depois, sem markdown. O objeto deve ter os campos "type" e "data":

1. Pedido identificado:
{"type":"order","data":{"customerName":"...","address":"...","paymentMethod":"...","items":[{"name":"...","quantity":1,"size":"..."}]}}
Use em "name" exatamente o nome do item como aparece na lista de itens
disponíveis. Não invente preços.

2. Falta informação para montar o pedido:
{"type":"clarification","data":"sua pergunta ao cliente"}

3. Conversa que não é pedido (saudação, dúvida, horário):
{"type":"reply","data":"sua resposta ao cliente"}
`)

	return b.String()
}
