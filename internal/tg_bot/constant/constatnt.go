package constant

const (
	EMOJI_CHART        = "\U0001F4C8"           //📈
	EMOJI_CHECK_MARK   = "\U00002714\U0000FE0F" //✔️
	EMOJI_CROSS_MARK   = "\U0000274C"           //❌
	EMOJI_ENVELOPE     = "\U0001F4E7"           //📧
	EMOJI_STOPWATCH    = "\U000023F1\U0000FE0F" //⏱️
	EMOJI_RUNNER       = "\U0001F3C3"           //🏃
	EMOJI_CRYING_FACE  = "\U0001F622"           //😢
	EMOJI_BUTTON_START = "\U000025B6  "         // ▶
	EMOJI_BUTTON_END   = "  \U000025C0"         // ◀
)

// Chat commands without the leading slash.
const (
	COMMAND_START               = "start"
	COMMAND_ABOUT               = "about"
	COMMAND_TRACK_PROGRESS      = "track_progress"
	COMMAND_SET_CUSTOM_TIME     = "set_custom_time"
	COMMAND_SHOW_SERIAL_MONITOR = "show_serial_monitor"
	COMMAND_EMAIL_SUMMARY       = "email_summary"
	COMMAND_SUMMARY             = "summary"
)

// Device wire format.
const (
	DEVICE_NEW_CUSTOM_TIME     = "NewCustomTime_%d"
	DEVICE_CUSTOM_TIME_CONFIRM = "Changing Custom Time"
	DEVICE_SUMMARY_MARKER      = "Summary"
)

const (
	TEXT_ABOUT = "Welcome to your Peak Pacer!!!\n" +
		"You can Track your progress & Set your own custom time.\n\n" +
		"Commands:\n" +
		"- /track_progress\n" +
		"- /set_custom_time\n" +
		"- /show_serial_monitor\n" +
		"- /email_summary\n" +
		"- /summary\n"

	TEXT_CHOOSE_OPTION       = "Choose an option:"
	TEXT_CHOOSE_MODE         = "Choose a mode:"
	TEXT_SELECTED            = "Selected: %s"
	TEXT_CHART_FAILED        = EMOJI_CROSS_MARK + " Could not render chart %s, try again later"
	TEXT_SELECTION_EXPIRED   = "This keyboard has expired, send /track_progress to start again"
	TEXT_CUSTOM_TIME_PROMPT  = EMOJI_STOPWATCH + " CustomTime Currently (%dsec)\nEnter number of seconds: (reply to me)"
	TEXT_CUSTOM_TIME_SET     = EMOJI_CHECK_MARK + " Set Custom Time to %d seconds!"
	TEXT_CUSTOM_TIME_FAILED  = "Arduino NOT in Changing Custom Time Mode!!"
	TEXT_CUSTOM_TIME_INVALID = "Invalid input! E.g. (15, 30, 45, 60)"
	TEXT_SERIAL_MONITOR      = "Displaying Serial Monitor in Terminal...\n\n"
	TEXT_SERIAL_LINE_PREFIX  = " >> "
	TEXT_EMAIL_SENT          = EMOJI_ENVELOPE + " Sending Email Summary..."
	TEXT_EMAIL_FAILED        = EMOJI_CROSS_MARK + " Email Summary could not be delivered"
	TEXT_SUMMARY_HEADER      = EMOJI_RUNNER + " Peak Pacer summary:\n"
	TEXT_SORRY               = "Sorry, I don't know that one yet. Send /about for the list of commands " + EMOJI_CRYING_FACE
	TEXT_STARTING_BOT        = "Starting Bot..."
)
