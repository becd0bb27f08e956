package services

import (
	"context"
	"fmt"
	"html"
	"time"

	brevo "github.com/getbrevo/brevo-go/lib"

	"rank-api/internal/models"
)

// AlertNotifier e-mails the operator when a rank could not be granted.
type AlertNotifier struct {
	fromEmail string
	fromName  string
	to        string
	send      func(ctx context.Context, email brevo.SendSmtpEmail) error
}

// NewAlertNotifier creates a Brevo backed notifier
func NewAlertNotifier(apiKey, fromEmail, fromName, to string) *AlertNotifier {
	cfg := brevo.NewConfiguration()
	cfg.AddDefaultHeader("api-key", apiKey)
	client := brevo.NewAPIClient(cfg)

	return &AlertNotifier{
		fromEmail: fromEmail,
		fromName:  fromName,
		to:        to,
		send: func(ctx context.Context, email brevo.SendSmtpEmail) error {
			_, resp, err := client.TransactionalEmailsApi.SendTransacEmail(ctx, email)
			if err != nil {
				return fmt.Errorf("brevo send failed: %w", err)
			}
			if resp != nil && resp.Body != nil {
				resp.Body.Close()
			}
			return nil
		},
	}
}

// NotifyFailure sends one alert per failed purchase.
func (n *AlertNotifier) NotifyFailure(ctx context.Context, purchase models.Purchase, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return n.send(ctx, n.buildEmail(purchase, reason))
}

func (n *AlertNotifier) buildEmail(purchase models.Purchase, reason string) brevo.SendSmtpEmail {
	subject := fmt.Sprintf("Rank grant failed: %s for %s (order %s)", purchase.Entitlement, purchase.Identity, purchase.OrderID)

	text := fmt.Sprintf(
		"Rank provisioning failed and needs manual action.\n\nOrder: %s\nNick: %s\nRank: %s\nError: %s\n",
		purchase.OrderID, purchase.Identity, purchase.Entitlement, reason)

	htmlContent := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
	<h2>Rank provisioning failed</h2>
	<p>The rank could not be granted and needs manual action.</p>
	<table>
		<tr><td><b>Order</b></td><td>%s</td></tr>
		<tr><td><b>Nick</b></td><td>%s</td></tr>
		<tr><td><b>Rank</b></td><td>%s</td></tr>
		<tr><td><b>Error</b></td><td>%s</td></tr>
	</table>
</body>
</html>`,
		html.EscapeString(purchase.OrderID), html.EscapeString(purchase.Identity),
		html.EscapeString(purchase.Entitlement), html.EscapeString(reason))

	return brevo.SendSmtpEmail{
		Sender: &brevo.SendSmtpEmailSender{
			Name:  n.fromName,
			Email: n.fromEmail,
		},
		To: []brevo.SendSmtpEmailTo{
			{Email: n.to},
		},
		Subject:     subject,
		HtmlContent: htmlContent,
		TextContent: text,
	}
}
