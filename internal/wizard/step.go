package wizard

import "fmt"

// Step is one screen of the authoring flow, in order.
type Step int

const (
	// StepUpload collects the meeting recording.
	StepUpload Step = iota + 1
	// StepConfiguration collects the speaker roster, meeting metadata and
	// processing options.
	StepConfiguration
	// StepProcessing runs transcription; it completes or rewinds on its own.
	StepProcessing
	// StepVerification shows the transcription for review.
	StepVerification
	// StepTemplate selects the document template.
	StepTemplate
	// StepGenerating runs section generation; it completes or rewinds on
	// its own.
	StepGenerating
	// StepEditor edits the generated sections before saving.
	StepEditor
)

var stepNames = map[Step]string{
	StepUpload:        "upload",
	StepConfiguration: "configuration",
	StepProcessing:    "processing",
	StepVerification:  "verification",
	StepTemplate:      "template",
	StepGenerating:    "generating",
	StepEditor:        "editor",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// backTarget returns the step a backward navigation lands on. Processing and
// generating are transient, so going back from the step after either skips
// over it.
func backTarget(s Step) (Step, bool) {
	switch s {
	case StepConfiguration:
		return StepUpload, true
	case StepVerification:
		return StepConfiguration, true
	case StepTemplate:
		return StepVerification, true
	case StepEditor:
		return StepTemplate, true
	default:
		return s, false
	}
}
