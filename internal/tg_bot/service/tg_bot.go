// Package service provides the chat logic of the Peak Pacer bot.
// It drives the device link, the chart renderer and the email dispatcher from
// Telegram commands and inline button presses.
package service

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf16"

	"github.com/DenisKhanov/PeakPacer/internal/tg_bot/constant"
	"github.com/DenisKhanov/PeakPacer/internal/tg_bot/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// maxMessageLength is the Telegram limit for a text message, in UTF-16 code units.
const maxMessageLength = 4096

// DeviceLink defines the serial channel to the Peak Pacer board.
type DeviceLink interface {
	Send(text string) error       // Writes raw text to the device.
	Poll() (line string, ok bool) // Returns one buffered line without blocking.
}

// SummaryTracker provides the completion counters reported by the device.
type SummaryTracker interface {
	Snapshot() models.SummaryCounters
}

// ChartRenderer builds and rasterizes progress charts.
type ChartRenderer interface {
	BuildURL(selection models.Selection) string
	Render(chartURL string) (image.Image, error)
}

// Mailer sends the templated summary email.
type Mailer interface {
	SendSummaryEmail(templateID, recipient string, counters models.SummaryCounters) error
}

// SummaryPlotter draws the counters as a PNG image.
type SummaryPlotter interface {
	Render(counters models.SummaryCounters) ([]byte, error)
}

// SessionRepository defines per-chat conversation state storage.
type SessionRepository interface {
	GetSession(chatID int64) models.Session
	StoreSession(session models.Session)
	ResetSession(chatID int64)
}

// BotSender is the part of *tgbotapi.BotAPI used by the service.
type BotSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// EmailSettings selects the template and recipient of the summary email.
type EmailSettings struct {
	TemplateID string
	Recipient  string
}

// TgBotServices is the main service struct for the Telegram bot, integrating all dependencies.
type TgBotServices struct {
	Device   DeviceLink        // Serial link to the board.
	Summary  SummaryTracker    // Completion counters.
	Charts   ChartRenderer     // ThingSpeak chart renderer.
	Mailer   Mailer            // Email dispatcher.
	Plotter  SummaryPlotter    // Local summary chart.
	Sessions SessionRepository // Per-chat conversation state.
	Bot      BotSender         // Telegram Bot API instance.
	ChatID   int64             // Current chat ID.

	email        EmailSettings
	confirmDelay time.Duration // Wait between sending a new custom time and reading the answer

	// Device-wide state, shared by every chat.
	customTime    int
	serialLog     []string
	sendEmailFlag bool
	mu            *sync.RWMutex // Protects customTime
}

// NewTgBot creates a new TgBotServices instance with the specified dependencies.
// Arguments:
//   - device: serial link to the board.
//   - summary: completion counters.
//   - charts: chart renderer.
//   - mailer: email dispatcher.
//   - plotter: summary chart renderer.
//   - sessions: per-chat state repository.
//   - bot: Telegram Bot API instance.
//   - email: summary email template and recipient.
//   - customTime: initial custom time in seconds.
//   - confirmDelay: pause before reading the device answer to a custom time change.
//
// Returns a pointer to a TgBotServices.
func NewTgBot(device DeviceLink, summary SummaryTracker, charts ChartRenderer, mailer Mailer, plotter SummaryPlotter,
	sessions SessionRepository, bot BotSender, email EmailSettings, customTime int, confirmDelay time.Duration) *TgBotServices {
	return &TgBotServices{
		Device:       device,
		Summary:      summary,
		Charts:       charts,
		Mailer:       mailer,
		Plotter:      plotter,
		Sessions:     sessions,
		Bot:          bot,
		email:        email,
		confirmDelay: confirmDelay,
		customTime:   customTime,
		mu:           &sync.RWMutex{},
	}
}

// CustomTime returns the last custom time confirmed by the device.
func (b *TgBotServices) CustomTime() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.customTime
}

// sendMessage sends a message to the specified chat with optional reply and markup.
// Arguments:
//   - chatID: the ID of the chat to send the message to.
//   - text: the text content of the message.
//   - replyToID: the ID of the message to reply to (0 if no reply).
//   - markup: an optional keyboard or inline markup (nil if none).
//
// Returns an error if the message fails to send.
func (b *TgBotServices) sendMessage(chatID int64, text string, replyToID int, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if replyToID != 0 {
		msg.ReplyToMessageID = replyToID
	}
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	_, err := b.Bot.Send(msg)
	if err != nil {
		logrus.WithError(err).Errorf("Failed to send message to chat %d: %s", chatID, text)
	}
	return err
}

// editMessage replaces the text and, when markup is not nil, the inline keyboard of a sent message.
func (b *TgBotServices) editMessage(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	var edit tgbotapi.Chattable
	if markup != nil {
		edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, *markup)
	} else {
		edit = tgbotapi.NewEditMessageText(chatID, messageID, text)
	}
	if _, err := b.Bot.Send(edit); err != nil {
		logrus.WithError(err).Errorf("Failed to edit message %d in chat %d", messageID, chatID)
		return err
	}
	return nil
}

// sendSorryMsg answers input the bot does not understand.
func (b *TgBotServices) sendSorryMsg(message *tgbotapi.Message) error {
	return b.sendMessage(b.ChatID, constant.TEXT_SORRY, message.MessageID, nil)
}

// sendAbout sends the static help text.
func (b *TgBotServices) sendAbout() error {
	return b.sendMessage(b.ChatID, constant.TEXT_ABOUT, 0, nil)
}

func chartTypeKeyboard() tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	for _, chartType := range models.ChartTypes {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(chartType.Label, chartType.CallbackData()))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func chartModeKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 0; i < len(models.ChartModes); i += 2 {
		var row []tgbotapi.InlineKeyboardButton
		for _, mode := range models.ChartModes[i:min(i+2, len(models.ChartModes))] {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(mode.Label, mode.CallbackData()))
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// showChartTypes starts the track progress flow.
func (b *TgBotServices) showChartTypes() error {
	b.Sessions.StoreSession(models.Session{ChatID: b.ChatID, Step: models.StepAwaitingSelectionStep1})
	return b.sendMessage(b.ChatID, constant.TEXT_CHOOSE_OPTION, 0, chartTypeKeyboard())
}

// chooseChartType records the first tap and replaces the keyboard with the mode choices.
func (b *TgBotServices) chooseChartType(query *tgbotapi.CallbackQuery, chartType models.ChartType) error {
	b.Sessions.StoreSession(models.Session{
		ChatID:      b.ChatID,
		Step:        models.StepAwaitingSelectionStep2,
		PendingType: &chartType,
	})
	markup := chartModeKeyboard()
	if query.Message == nil {
		return b.sendMessage(b.ChatID, constant.TEXT_CHOOSE_MODE, 0, markup)
	}
	return b.editMessage(b.ChatID, query.Message.MessageID, constant.TEXT_CHOOSE_MODE, &markup)
}

// chooseChartMode completes the selection, renders the chart and sends it as a photo.
// The selection is cleared whatever the outcome.
func (b *TgBotServices) chooseChartMode(query *tgbotapi.CallbackQuery, chartType models.ChartType, mode models.ChartMode) error {
	defer b.Sessions.ResetSession(b.ChatID)

	selection := models.Selection{Type: chartType, Mode: mode}
	chartURL := b.Charts.BuildURL(selection)
	logrus.WithField("chart", selection.ChartNumber()).Infof("Rendering chart %s", selection)

	text := fmt.Sprintf(constant.TEXT_SELECTED, selection)
	photo, err := b.renderChart(chartURL)
	if err != nil {
		logrus.WithError(err).Errorf("Chart %s could not be rendered", selection)
		text = fmt.Sprintf(constant.TEXT_CHART_FAILED, selection)
	} else {
		msg := tgbotapi.NewPhoto(b.ChatID, tgbotapi.FileBytes{Name: "chart.png", Bytes: photo})
		msg.Caption = selection.String()
		if _, err = b.Bot.Send(msg); err != nil {
			logrus.WithError(err).Error("Failed to send chart photo")
		}
	}

	if query.Message == nil {
		return b.sendMessage(b.ChatID, text, 0, nil)
	}
	if editErr := b.editMessage(b.ChatID, query.Message.MessageID, text, nil); editErr != nil {
		return editErr
	}
	return err
}

func (b *TgBotServices) renderChart(chartURL string) ([]byte, error) {
	img, err := b.Charts.Render(chartURL)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err = png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode chart: %w", err)
	}
	return buf.Bytes(), nil
}

// askCustomTime prompts for a new custom time in seconds.
func (b *TgBotServices) askCustomTime() error {
	b.Sessions.StoreSession(models.Session{ChatID: b.ChatID, Step: models.StepAwaitingCustomTimeNumber})
	return b.sendMessage(b.ChatID, fmt.Sprintf(constant.TEXT_CUSTOM_TIME_PROMPT, b.CustomTime()), 0, nil)
}

// parseSeconds accepts a non-empty string of ASCII digits.
func parseSeconds(text string) (int, bool) {
	if text == "" {
		return 0, false
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, false
	}
	return n, true
}

// changeCustomTime sends the new value to the device and commits it only when the
// device confirms. Non-numeric input keeps the chat waiting for a number.
func (b *TgBotServices) changeCustomTime(message *tgbotapi.Message) error {
	seconds, ok := parseSeconds(strings.TrimSpace(message.Text))
	if !ok {
		return b.sendMessage(b.ChatID, constant.TEXT_CUSTOM_TIME_INVALID, message.MessageID, nil)
	}
	b.Sessions.ResetSession(b.ChatID)

	if err := b.Device.Send(fmt.Sprintf(constant.DEVICE_NEW_CUSTOM_TIME, seconds)); err != nil {
		logrus.WithError(err).Warn("New custom time was not delivered to the device")
	}
	time.Sleep(b.confirmDelay)

	if !b.awaitConfirmation() {
		logrus.Warnf("Device did not confirm custom time %d", seconds)
		return b.sendMessage(b.ChatID, constant.TEXT_CUSTOM_TIME_FAILED, message.MessageID, nil)
	}

	b.mu.Lock()
	b.customTime = seconds
	b.mu.Unlock()
	logrus.Infof("Custom time set to %d seconds", seconds)
	return b.sendMessage(b.ChatID, fmt.Sprintf(constant.TEXT_CUSTOM_TIME_SET, seconds), message.MessageID, nil)
}

// awaitConfirmation drains the device until the confirmation line or until nothing is left.
func (b *TgBotServices) awaitConfirmation() bool {
	for {
		line, ok := b.Device.Poll()
		if !ok {
			return false
		}
		if line == constant.DEVICE_CUSTOM_TIME_CONFIRM {
			return true
		}
	}
}

// showSerialMonitor drains the device into the serial log and sends the log.
// The log is kept for one more drain after an email summary was requested.
func (b *TgBotServices) showSerialMonitor() error {
	if !b.sendEmailFlag {
		b.serialLog = nil
	}
	for {
		line, ok := b.Device.Poll()
		if !ok {
			break
		}
		b.serialLog = append(b.serialLog, constant.TEXT_SERIAL_LINE_PREFIX+line)
	}
	b.sendEmailFlag = false
	return b.sendMessage(b.ChatID, formatSerialLog(b.serialLog), 0, nil)
}

// formatSerialLog joins the log under the monitor header, dropping the oldest
// lines when the text would not fit in one message.
func formatSerialLog(lines []string) string {
	for {
		text := constant.TEXT_SERIAL_MONITOR + strings.Join(lines, "\n")
		if utf16Len(text) <= maxMessageLength || len(lines) == 0 {
			return text
		}
		lines = lines[1:]
	}
}

// utf16Len counts text the way Telegram measures message length.
func utf16Len(text string) int {
	return len(utf16.Encode([]rune(text)))
}

// emailSummary mails the current counters.
func (b *TgBotServices) emailSummary() error {
	b.sendEmailFlag = true
	counters := b.Summary.Snapshot()
	if err := b.Mailer.SendSummaryEmail(b.email.TemplateID, b.email.Recipient, counters); err != nil {
		logrus.WithError(err).Error("Summary email failed")
		return b.sendMessage(b.ChatID, constant.TEXT_EMAIL_FAILED, 0, nil)
	}
	return b.sendMessage(b.ChatID, constant.TEXT_EMAIL_SENT, 0, nil)
}

// sendSummary sends the counters as text followed by a bar chart.
func (b *TgBotServices) sendSummary() error {
	counters := b.Summary.Snapshot()
	var text strings.Builder
	text.WriteString(constant.TEXT_SUMMARY_HEADER)
	for _, category := range models.SummaryCategories {
		fmt.Fprintf(&text, "%s: %d\n", category, counters[category])
	}
	if err := b.sendMessage(b.ChatID, text.String(), 0, nil); err != nil {
		return err
	}

	picture, err := b.Plotter.Render(counters)
	if err != nil {
		logrus.WithError(err).Error("Summary chart failed")
		return nil
	}
	_, err = b.Bot.Send(tgbotapi.NewPhoto(b.ChatID, tgbotapi.FileBytes{Name: "summary.png", Bytes: picture}))
	return err
}

// handleCallback drives the two-step chart selection.
func (b *TgBotServices) handleCallback(query *tgbotapi.CallbackQuery) error {
	if query.Message != nil {
		b.ChatID = query.Message.Chat.ID
	} else {
		b.ChatID = query.From.ID
	}
	if _, err := b.Bot.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		logrus.WithError(err).Warn("Failed to answer callback query")
	}
	logrus.WithField("chatID", b.ChatID).Infof("Button %q", query.Data)

	session := b.Sessions.GetSession(b.ChatID)
	if chartType, ok := models.LookupChartType(query.Data); ok {
		return b.chooseChartType(query, chartType)
	}
	if mode, ok := models.LookupChartMode(query.Data); ok {
		if session.Step != models.StepAwaitingSelectionStep2 || session.PendingType == nil {
			return b.sendMessage(b.ChatID, constant.TEXT_SELECTION_EXPIRED, 0, nil)
		}
		return b.chooseChartMode(query, *session.PendingType, mode)
	}
	logrus.Warnf("Unknown callback data %q", query.Data)
	return nil
}

// handleMessage dispatches commands and free text.
func (b *TgBotServices) handleMessage(message *tgbotapi.Message) error {
	b.ChatID = message.Chat.ID
	if message.IsCommand() {
		logrus.Infof("Command [%s] from %s (chat %d)", message.Text, userName(message), b.ChatID)
		switch message.Command() {
		case constant.COMMAND_START, constant.COMMAND_ABOUT:
			return b.sendAbout()
		case constant.COMMAND_TRACK_PROGRESS:
			return b.showChartTypes()
		case constant.COMMAND_SET_CUSTOM_TIME:
			return b.askCustomTime()
		case constant.COMMAND_SHOW_SERIAL_MONITOR:
			return b.showSerialMonitor()
		case constant.COMMAND_EMAIL_SUMMARY:
			return b.emailSummary()
		case constant.COMMAND_SUMMARY:
			return b.sendSummary()
		default:
			return b.sendSorryMsg(message)
		}
	}

	switch b.Sessions.GetSession(b.ChatID).Step {
	case models.StepAwaitingCustomTimeNumber:
		return b.changeCustomTime(message)
	case models.StepAwaitingSelectionStep1, models.StepAwaitingSelectionStep2:
		logrus.Debugf("Ignoring text while waiting for a button: %q", message.Text)
		return nil
	default:
		return b.sendSorryMsg(message)
	}
}

func userName(message *tgbotapi.Message) string {
	if message.From == nil {
		return ""
	}
	return message.From.UserName
}

// UpdateProcessing handles incoming Telegram updates (messages and callback queries).
// A panic while handling one update is logged and does not stop the bot.
func (b *TgBotServices) UpdateProcessing(update *tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("update", update.UpdateID).Errorf("Recovered from panic: %v", r)
		}
	}()

	var err error
	switch {
	case update.CallbackQuery != nil:
		err = b.handleCallback(update.CallbackQuery)
	case update.Message != nil && update.Message.Text != "":
		err = b.handleMessage(update.Message)
	}
	if err != nil {
		logrus.WithError(err).WithField("update", update.UpdateID).Error("Update processing failed")
	}
}
