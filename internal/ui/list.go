package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/ashgrove/chorus/internal/features"
	"github.com/ashgrove/chorus/internal/shared"
	"github.com/ashgrove/chorus/internal/transport"
)

var (
	_ list.Item = artifactItem{}
	_ list.Item = featureItem{}
)

// artifactItem wraps [transport.Artifact] to implement [list.Item].
type artifactItem struct {
	artifact transport.Artifact
	current  bool
}

func (i artifactItem) FilterValue() string { return i.artifact.Title }
func (i artifactItem) Title() string {
	if i.current {
		return styles.current.Render(i.artifact.Title)
	}
	return i.artifact.Title
}
func (i artifactItem) Description() string {
	desc := fmt.Sprintf("%s • %s", i.artifact.Kind, shared.FormatDuration(i.artifact.DurationSecs))
	if i.current {
		desc += " • current"
	}
	return desc
}

// featureItem wraps [features.Feature] to implement [list.Item].
type featureItem struct {
	feature  features.Feature
	decision features.Decision
}

func (i featureItem) FilterValue() string { return string(i.feature.ID) }
func (i featureItem) Title() string       { return string(i.feature.ID) }
func (i featureItem) Description() string {
	desc := i.decision.Label
	switch i.feature.Effective() {
	case transport.FeatureReady:
		desc = styles.ok.Render(desc)
	case transport.FeatureError:
		desc = styles.err.Render(desc)
		if i.feature.Message != "" {
			desc += " • " + i.feature.Message
		}
	case transport.FeatureDownloading:
		desc = styles.warn.Render(desc)
	}
	return desc
}
