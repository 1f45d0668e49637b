package service

import (
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/DenisKhanov/PeakPacer/internal/tg_bot/constant"
	"github.com/DenisKhanov/PeakPacer/internal/tg_bot/models"
	"github.com/DenisKhanov/PeakPacer/internal/tg_bot/repository"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChatID int64 = 42

type fakeSender struct {
	sent      []tgbotapi.Chattable
	callbacks []tgbotapi.CallbackConfig
}

func (s *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.sent = append(s.sent, c)
	return tgbotapi.Message{MessageID: len(s.sent)}, nil
}

func (s *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if cb, ok := c.(tgbotapi.CallbackConfig); ok {
		s.callbacks = append(s.callbacks, cb)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

// texts returns the text of every plain message and edit, in order.
func (s *fakeSender) texts() []string {
	var out []string
	for _, c := range s.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, m.Text)
		}
	}
	return out
}

func (s *fakeSender) photos() []tgbotapi.PhotoConfig {
	var out []tgbotapi.PhotoConfig
	for _, c := range s.sent {
		if p, ok := c.(tgbotapi.PhotoConfig); ok {
			out = append(out, p)
		}
	}
	return out
}

func (s *fakeSender) lastText() string {
	texts := s.texts()
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

type fakeDevice struct {
	lines []string
	sent  []string
	// reply is queued after a Send, the way the board answers a command.
	reply []string
}

func (d *fakeDevice) Send(text string) error {
	d.sent = append(d.sent, text)
	d.lines = append(d.lines, d.reply...)
	return nil
}

func (d *fakeDevice) Poll() (string, bool) {
	if len(d.lines) == 0 {
		return "", false
	}
	line := d.lines[0]
	d.lines = d.lines[1:]
	return line, true
}

type fakeCharts struct {
	built    []models.Selection
	rendered []string
	err      error
	panics   bool
}

func (c *fakeCharts) BuildURL(selection models.Selection) string {
	c.built = append(c.built, selection)
	return "https://charts.test/" + selection.Type.Label
}

func (c *fakeCharts) Render(chartURL string) (image.Image, error) {
	if c.panics {
		panic("renderer crashed")
	}
	c.rendered = append(c.rendered, chartURL)
	if c.err != nil {
		return nil, c.err
	}
	return image.NewRGBA(image.Rect(0, 0, 2, 2)), nil
}

type mailCall struct {
	templateID string
	recipient  string
	counters   models.SummaryCounters
}

type fakeMailer struct {
	calls []mailCall
	err   error
}

func (m *fakeMailer) SendSummaryEmail(templateID, recipient string, counters models.SummaryCounters) error {
	m.calls = append(m.calls, mailCall{templateID: templateID, recipient: recipient, counters: counters})
	return m.err
}

type fakePlotter struct{}

func (fakePlotter) Render(models.SummaryCounters) ([]byte, error) {
	return []byte("png"), nil
}

type fixture struct {
	bot      *TgBotServices
	sender   *fakeSender
	device   *fakeDevice
	charts   *fakeCharts
	mailer   *fakeMailer
	summary  *repository.Summary
	sessions *repository.Sessions
}

func newFixture() *fixture {
	f := &fixture{
		sender:   &fakeSender{},
		device:   &fakeDevice{},
		charts:   &fakeCharts{},
		mailer:   &fakeMailer{},
		summary:  repository.NewSummary(),
		sessions: repository.NewSessions(),
	}
	f.bot = NewTgBot(f.device, f.summary, f.charts, f.mailer, fakePlotter{}, f.sessions, f.sender,
		EmailSettings{TemplateID: "wptemplate_1", Recipient: "coach@example.com"}, 10, 0)
	return f
}

func command(name string) *tgbotapi.Update {
	text := "/" + name
	return &tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		Chat:      &tgbotapi.Chat{ID: testChatID},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
	}}
}

func text(body string) *tgbotapi.Update {
	return &tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 2,
		Chat:      &tgbotapi.Chat{ID: testChatID},
		Text:      body,
	}}
}

func press(data string) *tgbotapi.Update {
	return &tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		Data:    data,
		Message: &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: testChatID}},
	}}
}

func TestAboutIsIdempotent(t *testing.T) {
	f := newFixture()

	f.bot.UpdateProcessing(command(constant.COMMAND_ABOUT))
	f.bot.UpdateProcessing(command(constant.COMMAND_ABOUT))
	f.bot.UpdateProcessing(command(constant.COMMAND_START))

	assert.Equal(t, []string{constant.TEXT_ABOUT, constant.TEXT_ABOUT, constant.TEXT_ABOUT}, f.sender.texts())
	assert.Equal(t, models.StepIdle, f.sessions.GetSession(testChatID).Step)
}

func TestUnknownCommand(t *testing.T) {
	f := newFixture()

	f.bot.UpdateProcessing(command("dance"))
	f.bot.UpdateProcessing(text("hello"))

	assert.Equal(t, []string{constant.TEXT_SORRY, constant.TEXT_SORRY}, f.sender.texts())
}

func TestTrackProgress(t *testing.T) {
	f := newFixture()

	f.bot.UpdateProcessing(command(constant.COMMAND_TRACK_PROGRESS))
	require.Len(t, f.sender.sent, 1)
	first, ok := f.sender.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, constant.TEXT_CHOOSE_OPTION, first.Text)
	keyboard, ok := first.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, keyboard.InlineKeyboard, 1)
	require.Len(t, keyboard.InlineKeyboard[0], 2)
	assert.Equal(t, "Time Taken_0", *keyboard.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "Count_4", *keyboard.InlineKeyboard[0][1].CallbackData)
	assert.Equal(t, models.StepAwaitingSelectionStep1, f.sessions.GetSession(testChatID).Step)

	f.bot.UpdateProcessing(press("Count_4"))
	edit, ok := f.sender.sent[1].(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	assert.Equal(t, constant.TEXT_CHOOSE_MODE, edit.Text)
	assert.Equal(t, 7, edit.MessageID)
	require.NotNil(t, edit.ReplyMarkup)
	assert.Len(t, edit.ReplyMarkup.InlineKeyboard, 2)
	assert.Equal(t, models.StepAwaitingSelectionStep2, f.sessions.GetSession(testChatID).Step)
	assert.Empty(t, f.charts.built)

	f.bot.UpdateProcessing(press("Hard_3"))
	require.Len(t, f.charts.built, 1)
	assert.Equal(t, models.Selection{Type: models.TypeCount, Mode: models.ModeHard}, f.charts.built[0])
	assert.Equal(t, 7, f.charts.built[0].ChartNumber())
	assert.Equal(t, []string{"https://charts.test/Count"}, f.charts.rendered)

	photos := f.sender.photos()
	require.Len(t, photos, 1)
	assert.Equal(t, testChatID, photos[0].ChatID)
	assert.Equal(t, "Selected: [Count - Hard]", f.sender.lastText())
	assert.Len(t, f.sender.callbacks, 2)

	session := f.sessions.GetSession(testChatID)
	assert.Equal(t, models.StepIdle, session.Step)
	assert.Nil(t, session.PendingType)
}

func TestModeWithoutTypeExpires(t *testing.T) {
	f := newFixture()

	f.bot.UpdateProcessing(press("Easy_1"))

	assert.Empty(t, f.charts.built)
	assert.Equal(t, constant.TEXT_SELECTION_EXPIRED, f.sender.lastText())
}

func TestChartRenderFailure(t *testing.T) {
	f := newFixture()
	f.charts.err = errors.New("browser not found")

	f.bot.UpdateProcessing(press("Time Taken_0"))
	f.bot.UpdateProcessing(press("Custom_4"))

	assert.Empty(t, f.sender.photos())
	assert.True(t, strings.HasPrefix(f.sender.lastText(), constant.EMOJI_CROSS_MARK))
	assert.Contains(t, f.sender.lastText(), "[Time Taken - Custom]")
	assert.Equal(t, models.StepIdle, f.sessions.GetSession(testChatID).Step)
}

func TestPanicIsRecovered(t *testing.T) {
	f := newFixture()
	f.charts.panics = true

	f.bot.UpdateProcessing(press("Count_4"))
	assert.NotPanics(t, func() { f.bot.UpdateProcessing(press("Easy_1")) })

	f.bot.UpdateProcessing(command(constant.COMMAND_ABOUT))
	assert.Equal(t, constant.TEXT_ABOUT, f.sender.lastText())
}

func TestSetCustomTime(t *testing.T) {
	f := newFixture()
	f.device.reply = []string{"Waiting", constant.DEVICE_CUSTOM_TIME_CONFIRM}

	f.bot.UpdateProcessing(command(constant.COMMAND_SET_CUSTOM_TIME))
	assert.Contains(t, f.sender.lastText(), "(10sec)")
	assert.Equal(t, models.StepAwaitingCustomTimeNumber, f.sessions.GetSession(testChatID).Step)

	f.bot.UpdateProcessing(text("45"))

	assert.Equal(t, []string{"NewCustomTime_45"}, f.device.sent)
	assert.Equal(t, 45, f.bot.CustomTime())
	assert.Contains(t, f.sender.lastText(), "Set Custom Time to 45 seconds!")
	assert.Equal(t, models.StepIdle, f.sessions.GetSession(testChatID).Step)
}

func TestSetCustomTimeRejectsNonNumeric(t *testing.T) {
	f := newFixture()

	f.bot.UpdateProcessing(command(constant.COMMAND_SET_CUSTOM_TIME))
	for _, input := range []string{"abc", "-5", "4.5"} {
		f.bot.UpdateProcessing(text(input))
		assert.Equal(t, constant.TEXT_CUSTOM_TIME_INVALID, f.sender.lastText(), input)
	}

	assert.Empty(t, f.device.sent)
	assert.Equal(t, 10, f.bot.CustomTime())
	assert.Equal(t, models.StepAwaitingCustomTimeNumber, f.sessions.GetSession(testChatID).Step)
}

func TestSetCustomTimeWithoutConfirmation(t *testing.T) {
	f := newFixture()
	f.device.reply = []string{"Summary (Green|3)"}

	f.bot.UpdateProcessing(command(constant.COMMAND_SET_CUSTOM_TIME))
	f.bot.UpdateProcessing(text("30"))

	assert.Equal(t, []string{"NewCustomTime_30"}, f.device.sent)
	assert.Equal(t, 10, f.bot.CustomTime())
	assert.Equal(t, constant.TEXT_CUSTOM_TIME_FAILED, f.sender.lastText())
	assert.Equal(t, models.StepIdle, f.sessions.GetSession(testChatID).Step)
}

func TestShowSerialMonitor(t *testing.T) {
	f := newFixture()
	f.device.lines = []string{"A", "B", "C"}

	f.bot.UpdateProcessing(command(constant.COMMAND_SHOW_SERIAL_MONITOR))
	assert.Equal(t, constant.TEXT_SERIAL_MONITOR+" >> A\n >> B\n >> C", f.sender.lastText())

	f.device.lines = []string{"D"}
	f.bot.UpdateProcessing(command(constant.COMMAND_SHOW_SERIAL_MONITOR))
	assert.Equal(t, constant.TEXT_SERIAL_MONITOR+" >> D", f.sender.lastText())
}

func TestEmailSummary(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.summary.Increment(models.CategoryGreen))
	require.NoError(t, f.summary.Increment(models.CategoryGreen))
	require.NoError(t, f.summary.Increment(models.CategoryRed))

	f.bot.UpdateProcessing(command(constant.COMMAND_EMAIL_SUMMARY))

	require.Len(t, f.mailer.calls, 1)
	assert.Equal(t, mailCall{
		templateID: "wptemplate_1",
		recipient:  "coach@example.com",
		counters: models.SummaryCounters{
			models.CategoryGreen:  2,
			models.CategoryYellow: 0,
			models.CategoryRed:    1,
			models.CategoryCustom: 0,
		},
	}, f.mailer.calls[0])
	assert.Equal(t, constant.TEXT_EMAIL_SENT, f.sender.lastText())
}

func TestEmailSummaryFailure(t *testing.T) {
	f := newFixture()
	f.mailer.err = errors.New("status 401")

	f.bot.UpdateProcessing(command(constant.COMMAND_EMAIL_SUMMARY))

	assert.Len(t, f.mailer.calls, 1)
	assert.Equal(t, constant.TEXT_EMAIL_FAILED, f.sender.lastText())
}

func TestSerialLogSurvivesEmailSummary(t *testing.T) {
	f := newFixture()
	f.device.lines = []string{"A"}
	f.bot.UpdateProcessing(command(constant.COMMAND_SHOW_SERIAL_MONITOR))

	f.bot.UpdateProcessing(command(constant.COMMAND_EMAIL_SUMMARY))
	f.device.lines = []string{"B"}
	f.bot.UpdateProcessing(command(constant.COMMAND_SHOW_SERIAL_MONITOR))
	assert.Equal(t, constant.TEXT_SERIAL_MONITOR+" >> A\n >> B", f.sender.lastText())

	f.bot.UpdateProcessing(command(constant.COMMAND_SHOW_SERIAL_MONITOR))
	assert.Equal(t, constant.TEXT_SERIAL_MONITOR, f.sender.lastText())
}

func TestSummaryCommand(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.summary.Increment(models.CategoryYellow))

	f.bot.UpdateProcessing(command(constant.COMMAND_SUMMARY))

	assert.Equal(t, constant.TEXT_SUMMARY_HEADER+"Green: 0\nYellow: 1\nRed: 0\nCustom: 0\n", f.sender.texts()[0])
	assert.Len(t, f.sender.photos(), 1)
}

func TestFormatSerialLogDropsOldestLines(t *testing.T) {
	line := strings.Repeat("x", 1000)
	lines := []string{"first" + line, "second" + line, "third" + line, "fourth" + line, "fifth" + line}

	got := formatSerialLog(lines)

	assert.LessOrEqual(t, len(got), maxMessageLength)
	assert.NotContains(t, got, "first")
	assert.True(t, strings.HasSuffix(got, "fifth"+line))
}

func TestFormatSerialLogCountsUTF16(t *testing.T) {
	// every emoji outside the BMP takes two UTF-16 code units
	line := strings.Repeat("\U0001F3C3", 700)
	lines := []string{"old" + line, "mid" + line, "new" + line, "last" + line}

	got := formatSerialLog(lines)

	assert.LessOrEqual(t, utf16Len(got), maxMessageLength)
	assert.NotContains(t, got, "old")
	assert.NotContains(t, got, "mid")
	assert.Contains(t, got, "new")
	assert.Contains(t, got, "last")
	assert.Equal(t, 2, utf16Len("\U0001F3C3"))
	assert.Equal(t, 1, utf16Len("Ж"))
}

func TestParseSeconds(t *testing.T) {
	tests := []struct {
		input string
		want  int
		ok    bool
	}{
		{"45", 45, true},
		{"0", 0, true},
		{"", 0, false},
		{"abc", 0, false},
		{"+5", 0, false},
		{"99999999999999999999", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := parseSeconds(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
