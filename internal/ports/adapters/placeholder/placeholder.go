// Package placeholder holds the capabilities that have a configured model
// but no inference wiring yet. Each call reports apperr.KindNotImplemented.
package placeholder

import (
	"context"
	"fmt"

	"github.com/forPelevin/vidscope/internal/apperr"
	"github.com/forPelevin/vidscope/internal/types"
)

type ObjectDetector struct {
	ModelPath string
}

func (d ObjectDetector) DetectObjects(ctx context.Context, frames []types.Frame) ([]types.Detection, error) {
	return nil, notImplemented("placeholder.DetectObjects", "object detection", "YOLO", d.ModelPath)
}

type SceneDescriber struct {
	ModelPath string
}

func (d SceneDescriber) DescribeScenes(ctx context.Context, frames []types.Frame) ([]types.SceneCaption, error) {
	return nil, notImplemented("placeholder.DescribeScenes", "scene description", "BLIP", d.ModelPath)
}

type AudioEventDetector struct {
	ModelPath string
}

func (d AudioEventDetector) DetectAudioEvents(ctx context.Context, wavPath string) ([]types.AudioEvent, error) {
	return nil, notImplemented("placeholder.DetectAudioEvents", "audio event detection", "PANNs", d.ModelPath)
}

func notImplemented(op, what, family, modelPath string) error {
	msg := fmt.Sprintf("%s is not implemented yet (%s", what, family)
	if modelPath != "" {
		msg += ", model " + modelPath
	}
	return apperr.NotImplemented(op, msg+")")
}
