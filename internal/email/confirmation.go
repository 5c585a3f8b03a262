package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/calliehq/bramble/internal/domain"
)

// confirmationTemplate renders the order confirmation body. Kept
// deliberately plain; storefront page templating lives elsewhere.
const confirmationTemplate = `<h1>Thanks for your order, {{.Order.FullName}}!</h1>
<p>Your order <strong>{{.Order.OrderNumber}}</strong> has been confirmed.</p>
<h2>Order summary</h2>
<div>
{{range .Items}}<p>{{.Quantity}} &times; {{.Name}} ({{.SKU}}) &mdash; &pound;{{.LineTotal}}</p>
{{end}}</div>
<p>Subtotal: &pound;{{.Order.Subtotal}}<br>
Delivery: {{if .Order.DeliveryFee.IsZero}}Free{{else}}&pound;{{.Order.DeliveryFee}}{{end}}<br>
<strong>Total: &pound;{{.Order.GrandTotal}}</strong></p>
<h2>Delivery address</h2>
<p>{{.Order.FullName}}<br>
{{.Order.Address1}}<br>
{{if .Order.Address2}}{{.Order.Address2}}<br>{{end}}{{.Order.City}}<br>
{{if .Order.County}}{{.Order.County}}<br>{{end}}{{.Order.Postcode}}<br>
{{.Order.Country}}</p>
`

// ConfirmationMailer composes and sends order confirmation emails.
type ConfirmationMailer struct {
	sender   Sender
	from     string
	fromName string
	tmpl     *template.Template
}

// NewConfirmationMailer creates a confirmation mailer.
func NewConfirmationMailer(sender Sender, from, fromName string) *ConfirmationMailer {
	return &ConfirmationMailer{
		sender:   sender,
		from:     from,
		fromName: fromName,
		tmpl:     template.Must(template.New("order_confirmation").Parse(confirmationTemplate)),
	}
}

// SendOrderConfirmation emails the shopper their settled order.
func (m *ConfirmationMailer) SendOrderConfirmation(ctx context.Context, order *domain.Order, items []domain.OrderLineItem) error {
	if order.Email == "" {
		return fmt.Errorf("order %s has no customer email", order.OrderNumber)
	}

	var htmlBuf bytes.Buffer
	err := m.tmpl.Execute(&htmlBuf, struct {
		Order *domain.Order
		Items []domain.OrderLineItem
	}{Order: order, Items: items})
	if err != nil {
		return fmt.Errorf("failed to render order confirmation: %w", err)
	}
	htmlBody := htmlBuf.String()

	msg := &Email{
		To:       []string{order.Email},
		From:     fmt.Sprintf("%s <%s>", m.fromName, m.from),
		Subject:  "Order Confirmation - " + order.OrderNumber,
		HTMLBody: htmlBody,
		TextBody: generatePlainText(htmlBody),
	}

	if _, err := m.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send order confirmation: %w", err)
	}
	return nil
}

// generatePlainText creates a simple plain text version from HTML.
func generatePlainText(html string) string {
	text := html

	text = strings.ReplaceAll(text, "<br>", "\n")
	text = strings.ReplaceAll(text, "<br/>", "\n")
	text = strings.ReplaceAll(text, "<br />", "\n")
	text = strings.ReplaceAll(text, "</p>", "\n\n")
	text = strings.ReplaceAll(text, "</div>", "\n")
	text = strings.ReplaceAll(text, "</h1>", "\n\n")
	text = strings.ReplaceAll(text, "</h2>", "\n\n")
	text = strings.ReplaceAll(text, "</h3>", "\n\n")

	for strings.Contains(text, "<") && strings.Contains(text, ">") {
		start := strings.Index(text, "<")
		end := strings.Index(text, ">")
		if start >= 0 && end > start {
			text = text[:start] + text[end+1:]
		} else {
			break
		}
	}

	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = strings.ReplaceAll(text, "&quot;", "\"")
	text = strings.ReplaceAll(text, "&times;", "x")
	text = strings.ReplaceAll(text, "&mdash;", "-")
	text = strings.ReplaceAll(text, "&pound;", "£")

	lines := strings.Split(text, "\n")
	var cleaned []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}

	return strings.Join(cleaned, "\n")
}
