package email

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

const (
	TemplateVerifyEmail       = "verifyEmail"
	TemplatePasswordReset     = "passwordReset"
	TemplateOrderConfirmation = "orderConfirmation"
	TemplateOrderStatusUpdate = "orderStatusUpdate"
)

// OrderSummary es el payload de los correos de pedidos.
type OrderSummary struct {
	ID               string
	AmountPaid       float64
	ExpectedDelivery time.Time
	Status           string
}

type mailTemplate struct {
	subject string
	body    *template.Template
}

type templateData struct {
	BaseURL string
	Data    any
}

var templates = map[string]mailTemplate{
	TemplateVerifyEmail: {
		subject: "Verify Your Email",
		body: template.Must(template.New(TemplateVerifyEmail).Parse(`
<h1>Welcome to Our Platform!</h1>
<p>Please click the link below to verify your email address:</p>
<a href="{{.BaseURL}}/verify-email/{{.Data}}">Verify Email</a>
<p>This link will expire in 24 hours.</p>
`)),
	},
	TemplatePasswordReset: {
		subject: "Password Reset Request",
		body: template.Must(template.New(TemplatePasswordReset).Parse(`
<h1>Password Reset Request</h1>
<p>Click the link below to reset your password:</p>
<a href="{{.BaseURL}}/reset-password/{{.Data}}">Reset Password</a>
<p>This link will expire in 1 hour.</p>
<p>If you didn't request this, please ignore this email.</p>
`)),
	},
	TemplateOrderConfirmation: {
		subject: "Order Confirmation",
		body: template.Must(template.New(TemplateOrderConfirmation).Parse(`
<h1>Thank You for Your Order!</h1>
<p>Your order has been confirmed.</p>
<h2>Order Details:</h2>
<p>Order ID: {{.Data.ID}}</p>
<p>Total Amount: ${{printf "%.2f" .Data.AmountPaid}}</p>
<p>Expected Delivery: {{.Data.ExpectedDelivery.Format "2006-01-02"}}</p>
`)),
	},
	TemplateOrderStatusUpdate: {
		subject: "Order Status Update",
		body: template.Must(template.New(TemplateOrderStatusUpdate).Parse(`
<h1>Order Status Update</h1>
<p>Your order status has been updated to: {{.Data.Status}}</p>
<h2>Order Details:</h2>
<p>Order ID: {{.Data.ID}}</p>
<p>Updated Status: {{.Data.Status}}</p>
{{if eq .Data.Status "Delivered"}}<p>Your order has been delivered!</p>{{end}}
`)),
	},
}

// Render produce el asunto y el cuerpo HTML de una plantilla.
func Render(name, baseURL string, payload any) (string, string, error) {
	tmpl, ok := templates[name]
	if !ok {
		return "", "", fmt.Errorf("unknown email template %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.body.Execute(&buf, templateData{BaseURL: baseURL, Data: payload}); err != nil {
		return "", "", fmt.Errorf("render %s: %w", name, err)
	}
	return tmpl.subject, buf.String(), nil
}
