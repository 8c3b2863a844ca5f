package progress

import "strings"

// Kind identifies which operation family currently owns the shared slot.
type Kind int

const (
	KindUnknown Kind = iota
	KindGeneration
	KindInstall
	KindSeparation
	KindMIDI
	KindVoiceClone
	KindTraining
)

func (k Kind) String() string {
	switch k {
	case KindGeneration:
		return "generation"
	case KindInstall:
		return "install"
	case KindSeparation:
		return "separation"
	case KindMIDI:
		return "midi"
	case KindVoiceClone:
		return "voice_clone"
	case KindTraining:
		return "training"
	default:
		return "unknown"
	}
}

// StageTable maps the backend's stage labels to operation kinds. Labels may
// carry a detail suffix after a colon (e.g. "install:stems"); resolution
// matches the bare label.
type StageTable map[string]Kind

// DefaultStages returns the stage labels the studio backend emits.
func DefaultStages() StageTable {
	return StageTable{
		"generate": KindGeneration,
		"render":   KindGeneration,
		"install":  KindInstall,
		"download": KindInstall,
		"separate": KindSeparation,
		"midi":     KindMIDI,
		"voice":    KindVoiceClone,
		"train":    KindTraining,
	}
}

// Resolve returns the kind owning the stage label and the detail suffix, if
// any. Unrecognized labels resolve to KindUnknown.
func (t StageTable) Resolve(stage string) (Kind, string) {
	label, detail := stage, ""
	if idx := strings.IndexByte(stage, ':'); idx >= 0 {
		label, detail = stage[:idx], stage[idx+1:]
	}
	kind, ok := t[label]
	if !ok {
		return KindUnknown, detail
	}
	return kind, detail
}
