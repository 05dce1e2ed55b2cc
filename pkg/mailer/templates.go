package mailer

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"net/url"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/example/storefront/pkg/models"
	"github.com/shopspring/decimal"
)

// CartLine is one cart entry as shown in the reminder e-mail.
type CartLine struct {
	Name     string
	Size     string
	Quantity int
	Price    float64
}

// Composer renders the transactional e-mails.
type Composer struct {
	storefrontURL string
	currency      string
}

func NewComposer(storefrontURL, currency string) *Composer {
	return &Composer{
		storefrontURL: strings.TrimRight(storefrontURL, "/"),
		currency:      currency,
	}
}

var funcs = map[string]any{
	"money": func(currency string, v float64) string {
		return currency + " " + decimal.NewFromFloat(v).StringFixed(2)
	},
	"lineTotal": func(price float64, qty int) float64 {
		return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(qty))).InexactFloat64()
	},
}

type template struct {
	subject string
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

func mustTemplate(name, subject, text, html string) *template {
	return &template{
		subject: subject,
		text:    texttemplate.Must(texttemplate.New(name).Funcs(funcs).Parse(text)),
		html:    htmltemplate.Must(htmltemplate.New(name).Funcs(funcs).Parse(html)),
	}
}

func (t *template) render(to string, data any) (Message, error) {
	var text, html bytes.Buffer
	if err := t.text.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("render %s text: %w", t.text.Name(), err)
	}
	if err := t.html.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("render %s html: %w", t.html.Name(), err)
	}
	return Message{To: to, Subject: t.subject, Text: text.String(), HTML: html.String()}, nil
}

var welcomeTmpl = mustTemplate("welcome", "Welcome to the store",
	`Hi {{.Name}},

Your account is ready. Start shopping at {{.URL}}.
`,
	`<p>Hi {{.Name}},</p>
<p>Your account is ready. <a href="{{.URL}}">Start shopping</a>.</p>
`)

var orderTmpl = mustTemplate("order_confirmation", "We received your order",
	`Hi {{.Order.Address.FirstName}},

Thanks for your order {{.Order.ID}}.
{{range .Order.Items}}
- {{.Name}} ({{.Size}}) x{{.Quantity}}  {{money $.Currency (lineTotal .Price .Quantity)}}{{end}}

Total: {{money .Currency .Order.Amount}}
Payment: {{.Order.PaymentMethod}}

Track it at {{.URL}}
`,
	`<p>Hi {{.Order.Address.FirstName}},</p>
<p>Thanks for your order <strong>{{.Order.ID}}</strong>.</p>
<table>
{{range .Order.Items}}<tr><td>{{.Name}}</td><td>{{.Size}}</td><td>{{.Quantity}}</td><td>{{money $.Currency (lineTotal .Price .Quantity)}}</td></tr>
{{end}}</table>
<p>Total: <strong>{{money .Currency .Order.Amount}}</strong><br>Payment: {{.Order.PaymentMethod}}</p>
<p><a href="{{.URL}}">Track your order</a></p>
`)

var reminderTmpl = mustTemplate("cart_reminder", "You left something in your cart",
	`Hi {{.Name}},

You still have {{.Items}} item(s) waiting in your cart.
{{range .Lines}}
- {{.Name}} ({{.Size}}) x{{.Quantity}}{{end}}

Finish checking out at {{.URL}}
`,
	`<p>Hi {{.Name}},</p>
<p>You still have {{.Items}} item(s) waiting in your cart.</p>
<ul>
{{range .Lines}}<li>{{.Name}} ({{.Size}}) x{{.Quantity}}</li>
{{end}}</ul>
<p><a href="{{.URL}}">Finish checking out</a></p>
`)

var resetTmpl = mustTemplate("password_reset", "Reset your password",
	`Someone asked to reset the password for this account.

Use this link within {{.TTL}}: {{.URL}}

If it was not you, ignore this e-mail.
`,
	`<p>Someone asked to reset the password for this account.</p>
<p><a href="{{.URL}}">Reset your password</a> within {{.TTL}}.</p>
<p>If it was not you, ignore this e-mail.</p>
`)

func (c *Composer) Welcome(account *models.Account) (Message, error) {
	return welcomeTmpl.render(account.Email, map[string]any{
		"Name": account.Name,
		"URL":  c.storefrontURL,
	})
}

func (c *Composer) OrderConfirmation(to string, order *models.Order) (Message, error) {
	return orderTmpl.render(to, map[string]any{
		"Order":    order,
		"Currency": c.currency,
		"URL":      c.storefrontURL + "/orders",
	})
}

// CartReminder lists lines when they are known; the item count comes from
// the cart itself.
func (c *Composer) CartReminder(account *models.Account, lines []CartLine) (Message, error) {
	return reminderTmpl.render(account.Email, map[string]any{
		"Name":  account.Name,
		"Items": account.CartData.Items(),
		"Lines": lines,
		"URL":   c.storefrontURL + "/cart",
	})
}

func (c *Composer) PasswordReset(to, token string, ttl time.Duration) (Message, error) {
	return resetTmpl.render(to, map[string]any{
		"URL": c.storefrontURL + "/reset-password?token=" + url.QueryEscape(token),
		"TTL": ttl.String(),
	})
}
