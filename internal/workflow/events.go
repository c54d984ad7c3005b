package workflow

// Event is a presentation-agnostic command emitted by the engine. The caller
// (a UI layer, a CLI, a test) decides how to render each one.
type Event interface {
	isEvent()
}

// NoticeLevel classifies a Notice for presentation.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice asks the presentation layer to show a human-readable message.
type Notice struct {
	Level   NoticeLevel
	Message string
}

func (Notice) isEvent() {}

// StageAdvanced signals that the displayed stage moved from one stage to the
// next, so the presentation layer should navigate.
type StageAdvanced struct {
	From Stage
	To   Stage
}

func (StageAdvanced) isEvent() {}

// WorkflowCompleted signals that the final stage finished and the encounter
// can be closed out.
type WorkflowCompleted struct {
	VisitID string
}

func (WorkflowCompleted) isEvent() {}

func info(msg string) Notice    { return Notice{Level: NoticeInfo, Message: msg} }
func success(msg string) Notice { return Notice{Level: NoticeSuccess, Message: msg} }
func warning(msg string) Notice { return Notice{Level: NoticeWarning, Message: msg} }
func errNotice(msg string) Notice {
	return Notice{Level: NoticeError, Message: msg}
}
