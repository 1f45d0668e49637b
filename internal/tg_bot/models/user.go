package models

// ChatStep is the conversation state of a single chat.
type ChatStep int

const (
	StepIdle                     ChatStep = iota // No structured input expected
	StepAwaitingSelectionStep1                   // Waiting for a chart type button
	StepAwaitingSelectionStep2                   // Waiting for a chart mode button
	StepAwaitingCustomTimeNumber                 // Waiting for a number of seconds
)

func (s ChatStep) String() string {
	switch s {
	case StepIdle:
		return "idle"
	case StepAwaitingSelectionStep1:
		return "awaiting_selection_type"
	case StepAwaitingSelectionStep2:
		return "awaiting_selection_mode"
	case StepAwaitingCustomTimeNumber:
		return "awaiting_custom_time"
	default:
		return "unknown"
	}
}

// Session holds the conversation state of one chat.
type Session struct {
	ChatID      int64      `json:"chatID"`      // Идентификатор чата
	Step        ChatStep   `json:"step"`        // Текущий этап диалога с пользователем
	PendingType *ChartType `json:"pendingType"` // Chart type chosen on the first tap, nil until then
}
