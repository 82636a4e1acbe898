package intent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pedezap/pedezap/internal/domain"
)

var errNoJSON = errors.New("no JSON object in model output")

// extractJSONObject returns the first balanced {...} block in raw. Models
// sometimes wrap their answer in prose or markdown fences despite the
// formatting instructions, so everything around the object is ignored.
func extractJSONObject(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return raw[start : i+1], true
				}
			}
		}
	}
	return "", false
}

// envelope is the wire shape the prompt demands: {"type": ..., "data": ...}.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// rawItem is an order line as the model reports it. Prices are deliberately
// absent: they are enriched from the catalog, never trusted from the model.
type rawItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Size     string `json:"size"`
}

type rawOrder struct {
	CustomerName  string    `json:"customerName"`
	Address       string    `json:"address"`
	Items         []rawItem `json:"items"`
	PaymentMethod string    `json:"paymentMethod"`
}

// Parse validates raw model output against the three accepted intent shapes.
// Anything else is an error: unknown tags, missing data, orders without
// items. The caller decides how to surface failures.
func Parse(raw string) (*Intent, error) {
	block, ok := extractJSONObject(raw)
	if !ok {
		return nil, errNoJSON
	}

	var env envelope
	if err := json.Unmarshal([]byte(block), &env); err != nil {
		return nil, fmt.Errorf("parsing intent envelope: %w", err)
	}

	switch Kind(env.Type) {
	case KindOrder:
		var ro rawOrder
		if err := json.Unmarshal(env.Data, &ro); err != nil {
			return nil, fmt.Errorf("parsing order payload: %w", err)
		}
		order := &domain.PendingOrder{
			CustomerName:  strings.TrimSpace(ro.CustomerName),
			Address:       strings.TrimSpace(ro.Address),
			PaymentMethod: strings.TrimSpace(ro.PaymentMethod),
		}
		for _, it := range ro.Items {
			name := strings.TrimSpace(it.Name)
			if name == "" {
				continue
			}
			qty := it.Quantity
			if qty <= 0 {
				qty = 1
			}
			order.Items = append(order.Items, domain.OrderItem{
				Name:     name,
				Quantity: qty,
				Size:     strings.TrimSpace(it.Size),
			})
		}
		if len(order.Items) == 0 {
			return nil, errors.New("order intent has no items")
		}
		return &Intent{Kind: KindOrder, Order: order}, nil

	case KindReply, KindClarification:
		var text string
		if err := json.Unmarshal(env.Data, &text); err != nil {
			return nil, fmt.Errorf("parsing %s payload: %w", env.Type, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, fmt.Errorf("%s intent has empty text", env.Type)
		}
		return &Intent{Kind: Kind(env.Type), Text: text}, nil

	default:
		return nil, fmt.Errorf("unknown intent type %q", env.Type)
	}
}
