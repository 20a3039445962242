package dataset

// Feedback receives side-effecting notifications about load and submit
// outcomes. Implementations have no return-value contract and are safe to
// no-op.
type Feedback interface {
	LoadSuccess(result map[string]any)
	LoadFailed(err error)
	SubmitSuccess(result map[string]any)
	SubmitFailed(err error)
}

type noopFeedback struct{}

func (noopFeedback) LoadSuccess(map[string]any)   {}
func (noopFeedback) LoadFailed(error)             {}
func (noopFeedback) SubmitSuccess(map[string]any) {}
func (noopFeedback) SubmitFailed(error)           {}

// NoopFeedback returns a Feedback that ignores every notification.
func NoopFeedback() Feedback {
	return noopFeedback{}
}

// FeedbackFuncs adapts plain functions to the Feedback interface. Nil
// functions are skipped.
type FeedbackFuncs struct {
	OnLoadSuccess   func(result map[string]any)
	OnLoadFailed    func(err error)
	OnSubmitSuccess func(result map[string]any)
	OnSubmitFailed  func(err error)
}

// LoadSuccess implements Feedback.
func (f FeedbackFuncs) LoadSuccess(result map[string]any) {
	if f.OnLoadSuccess != nil {
		f.OnLoadSuccess(result)
	}
}

// LoadFailed implements Feedback.
func (f FeedbackFuncs) LoadFailed(err error) {
	if f.OnLoadFailed != nil {
		f.OnLoadFailed(err)
	}
}

// SubmitSuccess implements Feedback.
func (f FeedbackFuncs) SubmitSuccess(result map[string]any) {
	if f.OnSubmitSuccess != nil {
		f.OnSubmitSuccess(result)
	}
}

// SubmitFailed implements Feedback.
func (f FeedbackFuncs) SubmitFailed(err error) {
	if f.OnSubmitFailed != nil {
		f.OnSubmitFailed(err)
	}
}
