package generation

import "github.com/wolfman30/gemini-studio/internal/upstream"

// imageStage is a state of the image fallback machine.
type imageStage int

const (
	// stagePrimary calls the requested model for image-only output.
	stagePrimary imageStage = iota
	// stageExperimental calls the experimental model for text+image output.
	stageExperimental
	// stageModalityStripped retries the experimental model with no config.
	stageModalityStripped
)

func (s imageStage) String() string {
	switch s {
	case stagePrimary:
		return "primary"
	case stageExperimental:
		return "experimental"
	case stageModalityStripped:
		return "modality_stripped"
	default:
		return "unknown"
	}
}

// imageAttempt is the model call a stage makes.
type imageAttempt struct {
	Model  string
	Config *GenerateConfig
}

func attemptFor(stage imageStage, req ImageRequest) imageAttempt {
	switch stage {
	case stageExperimental:
		return imageAttempt{
			Model:  ExperimentalImageModel,
			Config: &GenerateConfig{ResponseModalities: []string{ModalityText, ModalityImage}},
		}
	case stageModalityStripped:
		return imageAttempt{Model: ExperimentalImageModel}
	default:
		return imageAttempt{
			Model:  req.Model,
			Config: &GenerateConfig{ResponseModalities: []string{ModalityImage}},
		}
	}
}

// nextImageStage is the only transition function of the machine. It returns
// false when err must be surfaced to the caller.
func nextImageStage(stage imageStage, requestedModel string, err error) (imageStage, bool) {
	if err == nil {
		return stage, false
	}
	raw := err.Error()
	switch stage {
	case stagePrimary:
		if requestedModel == DefaultImageModel && upstream.Classify(raw).IsQuotaExhausted() {
			return stageExperimental, true
		}
	case stageExperimental:
		if upstream.IsModalityRejection(raw) {
			return stageModalityStripped, true
		}
	}
	return stage, false
}
