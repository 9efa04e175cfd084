package usecase

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/piresc/trackwash/internal/pkg/models"
	"github.com/piresc/trackwash/services/notification"
)

const signature = `<p>Best regards,<br>The TrackWash Team</p>`

type messageTemplate struct {
	subject string
	html    string
	text    string
}

var messageTemplates = map[models.NotificationType]messageTemplate{
	models.NotificationBookingCreated: {
		subject: "Booking Created - TrackWash",
		html: `<h1>Your TrackWash Booking is Created!</h1>
<p>Hi {{.customerName}},</p>
<p>Your booking <strong>{{.bookingCode}}</strong> has been created.</p>
<ul>
<li><strong>Service:</strong> {{.packageName}}</li>
<li><strong>Date:</strong> {{.scheduledDate}}</li>
<li><strong>Time:</strong> {{.scheduledTime}}</li>
{{if .location}}<li><strong>Location:</strong> {{.location}}</li>{{end}}
</ul>
<p>Please complete payment to confirm your booking.</p>`,
		text: `Hi {{.customerName}}, your TrackWash booking {{.bookingCode}} for {{.packageName}} on {{.scheduledDate}} at {{.scheduledTime}} is created. Complete payment to confirm it.`,
	},
	models.NotificationPaymentConfirmed: {
		subject: "Payment Received - TrackWash",
		html: `<h1>Payment Successful!</h1>
<p>Hi {{.customerName}},</p>
<p>We've received your payment of <strong>{{.currency}} {{.amount}}</strong> for booking <strong>{{.bookingCode}}</strong>.</p>
{{if .receipt}}<p>M-Pesa Receipt: <strong>{{.receipt}}</strong></p>{{end}}
{{if .txHash}}<p>Transaction Hash: <strong>{{.txHash}}</strong></p>{{end}}
<p>Your booking is now confirmed. We'll assign a detailer shortly.</p>`,
		text: `Hi {{.customerName}}, we received {{.currency}} {{.amount}} for TrackWash booking {{.bookingCode}}.{{if .receipt}} Receipt: {{.receipt}}.{{end}} We'll assign a detailer shortly.`,
	},
	models.NotificationPaymentFailed: {
		subject: "Payment Not Completed - TrackWash",
		html: `<h1>Payment Not Completed</h1>
<p>Hi {{.customerName}},</p>
<p>Your payment for booking <strong>{{.bookingCode}}</strong> did not go through{{if .resultDesc}}: {{.resultDesc}}{{end}}.</p>
<p>You can try again with M-Pesa or pay with crypto from your booking page.</p>
{{if .bookingURL}}<p><a href="{{.bookingURL}}">View your booking</a></p>{{end}}`,
		text: `Hi {{.customerName}}, your payment for TrackWash booking {{.bookingCode}} did not go through. You can retry with M-Pesa or pay with crypto.`,
	},
	models.NotificationJobAssigned: {
		subject: "Detailer Assigned - TrackWash",
		html: `<h1>Your Detailer is Assigned!</h1>
<p>Hi {{.customerName}},</p>
<p><strong>{{.detailerName}}</strong> will be handling your car wash on {{.scheduledDate}} at {{.scheduledTime}}.</p>
<p>They will contact you when they're on their way.</p>`,
		text: `Hi {{.customerName}}, {{.detailerName}} will handle your TrackWash booking {{.bookingCode}} on {{.scheduledDate}} at {{.scheduledTime}}.`,
	},
	models.NotificationJobStarted: {
		subject: "Service In Progress - TrackWash",
		html: `<h1>Your Car is Being Detailed!</h1>
<p>Hi {{.customerName}},</p>
<p>{{.detailerName}} has started working on {{.vehiclePlate}}.</p>
<p>We'll notify you when it's ready.</p>`,
		text: `Hi {{.customerName}}, {{.detailerName}} has started working on {{.vehiclePlate}}.`,
	},
	models.NotificationJobCompleted: {
		subject: "Car Ready for Pickup - TrackWash",
		html: `<h1>Your Car is Sparkling Clean!</h1>
<p>Hi {{.customerName}},</p>
<p>Great news! {{.vehiclePlate}} is ready.</p>
<p>Don't forget to rate your experience!</p>
{{if .bookingURL}}<p><a href="{{.bookingURL}}">View your booking</a></p>{{end}}`,
		text: `Hi {{.customerName}}, {{.vehiclePlate}} is ready. Don't forget to rate your experience!`,
	},
	models.NotificationCarReady: {
		subject: "Your Car is Ready! - TrackWash",
		html: `<h1>Your Car Awaits!</h1>
<p>Hi {{.customerName}},</p>
<p>{{.vehiclePlate}} is ready for pickup!</p>
<p>Thank you for choosing TrackWash. We hope to see you again!</p>`,
		text: `Hi {{.customerName}}, {{.vehiclePlate}} is ready for pickup. Thank you for choosing TrackWash!`,
	},
	models.NotificationBookingCancelled: {
		subject: "Booking Cancelled - TrackWash",
		html: `<h1>Booking Cancelled</h1>
<p>Hi {{.customerName}},</p>
<p>Your booking <strong>{{.bookingCode}}</strong> has been cancelled.</p>
{{if .note}}<p>{{.note}}</p>{{end}}`,
		text: `Hi {{.customerName}}, your TrackWash booking {{.bookingCode}} has been cancelled.`,
	},
}

// renderer holds the parsed templates
type renderer struct {
	html map[models.NotificationType]*htmltemplate.Template
	text map[models.NotificationType]*texttemplate.Template
}

func newRenderer() (*renderer, error) {
	r := &renderer{
		html: make(map[models.NotificationType]*htmltemplate.Template, len(messageTemplates)),
		text: make(map[models.NotificationType]*texttemplate.Template, len(messageTemplates)),
	}
	for t, tmpl := range messageTemplates {
		h, err := htmltemplate.New(string(t)).Option("missingkey=zero").Parse(tmpl.html + "\n" + signature)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s html template: %w", t, err)
		}
		x, err := texttemplate.New(string(t)).Option("missingkey=zero").Parse(tmpl.text)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s text template: %w", t, err)
		}
		r.html[t] = h
		r.text[t] = x
	}
	return r, nil
}

func (r *renderer) render(t models.NotificationType, data map[string]interface{}) (models.Message, error) {
	h, ok := r.html[t]
	if !ok {
		return models.Message{}, fmt.Errorf("%w: %s", notification.ErrUnknownTemplate, t)
	}

	var html, text bytes.Buffer
	if err := h.Execute(&html, data); err != nil {
		return models.Message{}, fmt.Errorf("failed to render %s: %w", t, err)
	}
	if err := r.text[t].Execute(&text, data); err != nil {
		return models.Message{}, fmt.Errorf("failed to render %s: %w", t, err)
	}

	return models.Message{
		Subject: messageTemplates[t].subject,
		HTML:    strings.TrimSpace(html.String()),
		Text:    strings.TrimSpace(text.String()),
	}, nil
}

// templateData merges booking details with the event payload. Event keys win.
func templateData(r *models.BookingRecipient, extra map[string]interface{}) map[string]interface{} {
	data := map[string]interface{}{
		"customerName":  orDefault(r.CustomerName, "Valued Customer"),
		"bookingCode":   r.BookingCode,
		"packageName":   orDefault(r.ServiceName, "Car Wash"),
		"scheduledTime": r.ScheduledTime,
		"location":      r.LocationAddress,
		"amount":        formatAmount(r.TotalAmount),
		"currency":      orDefault(r.Currency, "KES"),
		"detailerName":  orDefault(r.DetailerName, "Your detailer"),
		"vehiclePlate":  "Your vehicle",
	}
	if r.ScheduledDate != nil {
		data["scheduledDate"] = r.ScheduledDate.Format("Mon, 2 Jan 2006")
	} else {
		data["scheduledDate"] = "as soon as possible"
	}
	if r.ScheduledTime == "" || r.ScheduledTime == models.ScheduleASAP {
		data["scheduledTime"] = "the earliest slot"
	}

	for k, v := range extra {
		if k == "amount" {
			if f, ok := v.(float64); ok {
				v = formatAmount(f)
			}
		}
		data[k] = v
	}
	return data
}

func formatAmount(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
