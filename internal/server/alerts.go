package server

import (
	"context"
	"fmt"
	"html"
	"strconv"

	"github.com/Jansyler/Rigradar/internal/client"
	"github.com/Jansyler/Rigradar/internal/misc"
	"github.com/Jansyler/Rigradar/internal/model"
)

// AlertMailer delivers price drop alerts through the Resend API.
type AlertMailer struct {
	Client  client.Client
	From    string
	SiteURL string
	Logger  logger
}

func (m AlertMailer) SendPriceAlert(ctx context.Context, id string, w model.Watch, deal model.PriceObservation, price float64) error {
	priceStr := strconv.FormatFloat(price, 'f', -1, 64)
	subject := fmt.Sprintf("🚨 Price Drop: %s is now $%s!", w.Query, priceStr)
	body := fmt.Sprintf(alertEmailHTML,
		strconv.FormatFloat(w.TargetPrice, 'f', -1, 64),
		html.EscapeString(deal.Title),
		priceStr,
		html.EscapeString(deal.Store),
		m.SiteURL, deal.ID,
		m.SiteURL, id,
	)

	resp, err := m.Client.ResendSendEmail(ctx, client.ResendSendRequest{
		From:    m.From,
		To:      []string{w.Email},
		Subject: subject,
		HTML:    body,
	})
	if err != nil {
		return err
	}
	m.Logger.Infof("SendPriceAlert: Sent alert for Watch with ID: %s to: %s, deal: %s, Resend ID: %s",
		id, w.Email, misc.StringLimit(deal.Title, 45), resp.ID)
	return nil
}

const alertEmailHTML = `
<div style="font-family: Arial, sans-serif; background: #050505; color: white; padding: 30px; border-radius: 10px;">
    <h2 style="color: #3b82f6;">RigRadar Watchdog Triggered! 🐕</h2>
    <p>Your target hardware dropped below your target price of $%s.</p>
    <div style="background: #111; padding: 20px; border-radius: 10px; border: 1px solid #222; margin: 20px 0;">
        <h3 style="margin: 0 0 10px 0;">%s</h3>
        <p style="font-size: 24px; color: #10b981; font-weight: bold; margin: 0;">$%s</p>
        <p style="color: #888; font-size: 12px; text-transform: uppercase;">Store: %s</p>
    </div>
    <a href="%s/?dealId=%s" style="background: #3b82f6; color: white; padding: 12px 24px; text-decoration: none; border-radius: 5px; font-weight: bold; display: inline-block;">Grab the Deal ↗</a>
    <br><br>
    <a href="%s/api/watchdog/unsubscribe?id=%s" style="color: #888; font-size: 10px;">Turn off this alert</a>
</div>`

func unsubscribePage(siteURL string) string {
	return fmt.Sprintf(`
<body style="background:#050505; color:white; font-family:sans-serif; text-align:center; padding-top:10vh;">
    <h1 style="color:#3b82f6; letter-spacing: 2px;">🛰️ RigRadar AI</h1>
    <h2 style="color:#10b981;">Watchdog Deactivated</h2>
    <p style="color:#9ca3af;">You will no longer receive alerts for this target.</p>
    <a href="%s" style="color:#3b82f6; text-decoration:none; margin-top:20px; display:inline-block;">Return to Radar</a>
</body>`, siteURL)
}
