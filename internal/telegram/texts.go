package telegram

import (
	"fmt"
	"strings"

	tgmodels "github.com/go-telegram/bot/models"

	"github.com/magabrotheeeer/content-delivery-bot/internal/models"
)

// Данные callback-кнопок
const (
	cbRequestContent = "request_content"
	cbProceedPayment = "proceed_payment"
	cbSupport        = "support"
	cbShowHelp       = "show_help"
)

const (
	timeLayout = "2006-01-02 15:04"
	// maxMessageLen запас до лимита Telegram в 4096 символов
	maxMessageLen = 4000
	myStatusLimit = 5
)

const (
	textHelp = `🎬 Bot commands

Main commands:
/start - Start interacting with the bot
/help - Show this help message
/support - Contact support

Content commands:
/request - Request content (also available via button)
/mystatus - Check your recent requests

Admin commands:
/addcontent <title> <locator> [video|document|other] - Add content to the library
/deliver <payment_id> <content_id> - Deliver content to a user
/resend <payment_id> - Send delivered content again
/checkpayment [payment_id] - Check payment details
/pending - List paid payments awaiting delivery
/getpayments - List recent payments
/contents - List the content library
/stats - View bot statistics
/token - Issue an API token
/admin - Admin control panel`

	textNotAdmin        = "🚫 You are not authorized to use this command."
	textUnknownCommand  = "Unknown command. Use /help to see what I can do."
	textUnexpectedText  = "I only understand commands. Use /help to see them."
	textInternalError   = "⚠️ Something went wrong. Please try again later."
	textServiceDown     = "⚠️ The payment service is temporarily unavailable. Please try again later."
	textInvoiceFailed   = "⚠️ Could not send the invoice. Please try /request again later."
	textNoRequests      = "You haven't made any requests yet. Use /start to begin!"
	textAskPaymentID    = "Please enter the Payment ID to check:"
	textNoPending       = "✅ No payments awaiting delivery - all caught up!"
	textNoPayments      = "No payments found."
	textNoContents      = "The content library is empty. Use /addcontent to add files."
	textAdminRecognized = "✅ You are recognized as admin!"
	textAdminPanel      = "Admin panel:"
	textUsageDeliver    = "Usage: /deliver <payment_id> <content_id>"
	textUsageResend     = "Usage: /resend <payment_id>"
	textUsageAddContent = `Usage: /addcontent <title> <locator> [video|document|other]
Example: /addcontent "Advanced Phishing Techniques" 1aB2c3D4e5F6g7H8i9J0 document`
)

func welcomeText(firstName string) string {
	name := firstName
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf(`Hello %s! 👋

Welcome! I can help you access exclusive content.

Use the buttons below or commands to get started:
• /request - To request new content.
• /support - For support inquiries.`, name)
}

func supportText(contact string) string {
	if contact == "" {
		return "Content requests are non-refundable. If you have any questions, please contact the administrator."
	}
	return fmt.Sprintf("Content requests are non-refundable. If you have any questions, please visit %s for assistance.", contact)
}

func joinChannelText(inviteLink string) string {
	if inviteLink == "" {
		return "🚨 To request content, you must first join our channel."
	}
	return "🚨 To request content, you must first join our channel: " + inviteLink
}

func priceText(amount int64, currency string) string {
	return fmt.Sprintf("To request exclusive content, a payment of %s is required.\n\nClick 'Proceed to Payment' to continue.",
		models.FormatAmount(amount, currency))
}

func startKeyboard() *tgmodels.InlineKeyboardMarkup {
	return &tgmodels.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgmodels.InlineKeyboardButton{
			{{Text: "Request Content", CallbackData: cbRequestContent}},
			{{Text: "Support", CallbackData: cbSupport}},
			{{Text: "Help", CallbackData: cbShowHelp}},
		},
	}
}

func proceedKeyboard() *tgmodels.InlineKeyboardMarkup {
	return &tgmodels.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgmodels.InlineKeyboardButton{
			{{Text: "Proceed to Payment", CallbackData: cbProceedPayment}},
		},
	}
}

func adminKeyboard() *tgmodels.ReplyKeyboardMarkup {
	return &tgmodels.ReplyKeyboardMarkup{
		Keyboard: [][]tgmodels.KeyboardButton{
			{{Text: "/addcontent"}, {Text: "/deliver"}},
			{{Text: "/stats"}, {Text: "/pending"}},
			{{Text: "/checkpayment"}, {Text: "/getpayments"}},
			{{Text: "/contents"}, {Text: "/token"}},
		},
		ResizeKeyboard: true,
	}
}

func statusEmoji(status models.PaymentStatus) string {
	switch status {
	case models.StatusCompleted:
		return "💰"
	case models.StatusDelivered:
		return "✅"
	case models.StatusExpired:
		return "⌛"
	}
	return "⏳"
}

func myStatusText(payments []*models.Payment) string {
	if len(payments) == 0 {
		return textNoRequests
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Your Last %d Requests:\n\n", len(payments))
	for _, p := range payments {
		fmt.Fprintf(&b, "%s %s - %s - %s\n", statusEmoji(p.Status), p.PaymentID, p.Status, p.RequestTimestamp.UTC().Format(timeLayout))
	}
	b.WriteString("\nUse /support if you have questions.")
	return b.String()
}

func paymentListText(title string, payments []*models.Payment) string {
	var b strings.Builder
	b.WriteString(title + "\n\n")
	for _, p := range payments {
		fmt.Fprintf(&b, "%s %s - %s - %s\n", statusEmoji(p.Status), p.PaymentID, p.Status,
			models.FormatAmount(p.Amount, p.Currency))
	}
	return b.String()
}

func pendingText(payments []*models.Payment) string {
	var b strings.Builder
	b.WriteString("📋 Paid payments awaiting delivery:\n\n")
	for _, p := range payments {
		fmt.Fprintf(&b, "🆔 Payment ID: %s\n👤 User: %d\n💰 Amount: %s\n⏰ Requested: %s\n🔗 To process: /deliver %s <content_id>\n\n",
			p.PaymentID, p.UserID, models.FormatAmount(p.Amount, p.Currency),
			p.RequestTimestamp.UTC().Format(timeLayout), p.PaymentID)
	}
	return b.String()
}

func paymentDetailsText(d *models.PaymentDetails) string {
	p := d.Payment
	user := "unknown"
	if d.User != nil {
		if name := d.User.DisplayName(); name != "" {
			user = name
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 Payment Details:\n\n🆔 Payment ID: %s\n👤 User: %s (%d)\n💰 Amount: %s\n📊 Status: %s %s\n⏰ Requested: %s\n⌛ Expires: %s\n",
		p.PaymentID, user, p.UserID, models.FormatAmount(p.Amount, p.Currency),
		statusEmoji(p.Status), p.Status,
		p.RequestTimestamp.UTC().Format(timeLayout), p.ExpiryTimestamp.UTC().Format(timeLayout))
	if p.CompletionTimestamp != nil {
		fmt.Fprintf(&b, "✅ Completed: %s\n", p.CompletionTimestamp.UTC().Format(timeLayout))
	}
	if p.ProviderChargeID != nil {
		fmt.Fprintf(&b, "🧾 Charge ID: %s\n", *p.ProviderChargeID)
	}

	switch {
	case d.Content != nil:
		fmt.Fprintf(&b, "\n🎬 Content Info:\n📁 Title: %s\n🆔 Content ID: %s\n", d.Content.Title, d.Content.ContentID)
	case p.Status == models.StatusCompleted:
		fmt.Fprintf(&b, "\n⚠️ No content linked yet\n🔗 To link: /deliver %s <content_id>", p.PaymentID)
	}
	return b.String()
}

func statsText(s *models.Stats, currency string) string {
	return fmt.Sprintf(`📊 Bot Statistics

• Total Users: %d
• Active Users (last 30 days): %d
• Total Payments: %d
• Pending Payments: %d
• Awaiting Delivery: %d
• Delivered: %d
• Expired: %d
• Revenue (paid): %s
• Revenue (pending): %s`,
		s.TotalUsers, s.ActiveUsers, s.TotalPayments, s.PendingPayments,
		s.AwaitingDelivery, s.DeliveredPayments, s.ExpiredPayments,
		models.FormatAmount(s.RevenueCompleted, currency), models.FormatAmount(s.RevenuePending, currency))
}

func contentsText(contents []*models.Content) string {
	if len(contents) == 0 {
		return textNoContents
	}
	var b strings.Builder
	b.WriteString("🎬 Content library:\n\n")
	for _, c := range contents {
		fmt.Fprintf(&b, "• %s [%s]\n  🆔 %s\n", c.Title, c.FileType, c.ContentID)
	}
	return b.String()
}

func contentAddedText(c *models.Content) string {
	return fmt.Sprintf("✅ Content '%s' added to the library.\n🆔 Content ID: %s\n📁 Locator: %s\n📄 Type: %s",
		c.Title, c.ContentID, c.FilePath, c.FileType)
}

func deliveredText(paymentID string, userID int64, title string) string {
	return fmt.Sprintf("✅ Content '%s' delivered for payment %s to user %d.", title, paymentID, userID)
}

func partialDeliveryText(paymentID string) string {
	return fmt.Sprintf("⚠️ Payment %s is marked delivered, but the file could not be sent. Use /resend %s to try again.", paymentID, paymentID)
}

// splitMessage режет длинный текст по строкам, чтобы не превысить лимит Telegram.
func splitMessage(text string) []string {
	if len(text) <= maxMessageLen {
		return []string{text}
	}
	var (
		parts   []string
		current strings.Builder
	)
	for _, line := range strings.SplitAfter(text, "\n") {
		if current.Len()+len(line) > maxMessageLen && current.Len() > 0 {
			parts = append(parts, current.String())
			current.Reset()
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}
