package placeholder

import (
	"context"
	"strings"
	"testing"

	"github.com/forPelevin/vidscope/internal/apperr"
	"github.com/forPelevin/vidscope/internal/types"
)

func TestPlaceholders_ReportNotImplemented(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	frames := []types.Frame{{Index: 1, AtSec: 0, Path: "f.jpg"}}

	_, objErr := ObjectDetector{ModelPath: "yolo11x.pt"}.DetectObjects(ctx, frames)
	_, sceneErr := SceneDescriber{}.DescribeScenes(ctx, frames)
	_, audioErr := AudioEventDetector{ModelPath: "models/cnn14.pth"}.DetectAudioEvents(ctx, "a.wav")

	tests := map[string]struct {
		err  error
		want string
	}{
		"objects": {objErr, "object detection is not implemented yet (YOLO, model yolo11x.pt)"},
		"scenes":  {sceneErr, "scene description is not implemented yet (BLIP)"},
		"audio":   {audioErr, "audio event detection is not implemented yet (PANNs, model models/cnn14.pth)"},
	}
	for name, tt := range tests {
		if !apperr.Is(tt.err, apperr.KindNotImplemented) {
			t.Fatalf("%s: expected not implemented, got %v", name, tt.err)
		}
		if !strings.Contains(tt.err.Error(), tt.want) {
			t.Fatalf("%s: unexpected message %q", name, tt.err.Error())
		}
	}
}
