package usecase

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/forPelevin/vidscope/internal/apperr"
	"github.com/forPelevin/vidscope/internal/domain/moments"
	"github.com/forPelevin/vidscope/internal/ports"
	"github.com/forPelevin/vidscope/internal/types"
)

// Deps are the collaborators of one analysis. Cache, Summarizer and the
// detectors are optional.
type Deps struct {
	Video       ports.VideoTool
	ASR         ports.ASR
	Cache       ports.TranscriptCache
	Summarizer  ports.Summarizer
	Objects     ports.ObjectDetector
	Scenes      ports.SceneDescriber
	AudioEvents ports.AudioEventDetector
	Log         logrus.FieldLogger
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase {
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	return Usecase{d: d}
}

type Input struct {
	InputPath string
	Language  string
	Diarize   bool
	// CacheKey enables the transcript cache when non-empty.
	CacheKey      string
	Summarize     bool
	Capabilities  []types.Capability
	FrameInterval time.Duration
	// WorkDir holds intermediate audio and frames.
	WorkDir string
}

type Result struct {
	Report types.Report
}

func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	log := u.d.Log.WithField("input", in.InputPath)
	rep := types.Report{
		Input:    in.InputPath,
		Engine:   u.d.ASR.Engine(),
		Model:    u.d.ASR.Model(),
		Language: in.Language,
		Diarized: in.Diarize,
	}

	if d, err := u.d.Video.ProbeDuration(ctx, in.InputPath); err != nil {
		log.WithError(err).Warn("Could not probe duration")
	} else {
		rep.DurationSec = d.Seconds()
	}

	wav := filepath.Join(in.WorkDir, "audio.wav")
	log.Info("Extracting audio")
	if err := u.d.Video.ExtractAudioMono16k(ctx, in.InputPath, wav); err != nil {
		return Result{}, err
	}

	tr, status, err := u.transcribe(ctx, log, wav, in)
	if err != nil {
		return Result{}, err
	}
	if tr.Language == "" {
		tr.Language = in.Language
	}
	rep.Language = tr.Language
	rep.Transcript = tr
	rep.Text = tr.Text()
	rep.SpeakerTurns = tr.SpeakerTurns()
	rep.Capabilities = append(rep.Capabilities, types.CapabilityStatus{Name: types.CapabilityTranscription, Status: status})
	if rep.Text == "" {
		log.Warn("Transcription is empty")
	}

	rep.Moments = moments.Key(tr, moments.DefaultCount)

	sumStatus := types.CapabilityStatus{Name: types.CapabilitySummary, Status: types.StatusSkipped}
	if in.Summarize {
		if u.d.Summarizer == nil {
			return Result{}, apperr.Config("usecase.Run", nil, "summary requested but no summary provider is configured")
		}
		log.Info("Summarizing transcript")
		s, err := u.d.Summarizer.Summarize(ctx, tr, rep.Moments)
		if err != nil {
			return Result{}, err
		}
		rep.Summary = &s
		sumStatus.Status = types.StatusOK
	}
	rep.Capabilities = append(rep.Capabilities, sumStatus)

	statuses, err := u.runOptional(ctx, log, &rep, wav, in)
	if err != nil {
		return Result{}, err
	}
	rep.Capabilities = append(rep.Capabilities, statuses...)
	return Result{Report: rep}, nil
}

func (u Usecase) transcribe(ctx context.Context, log logrus.FieldLogger, wav string, in Input) (types.Transcript, types.Status, error) {
	opts := types.ASROptions{Language: in.Language, Diarize: in.Diarize}

	if u.d.Cache != nil && in.CacheKey != "" {
		tr, ok, err := u.d.Cache.Get(ctx, in.CacheKey)
		switch {
		case err != nil:
			log.WithError(err).Warn("Transcript cache read failed")
		case ok:
			log.Info("Using cached transcript")
			return tr, types.StatusCached, nil
		}
	}

	log.WithFields(logrus.Fields{
		"engine":   u.d.ASR.Engine(),
		"model":    u.d.ASR.Model(),
		"language": in.Language,
		"diarize":  in.Diarize,
	}).Info("Transcribing")
	tr, err := u.d.ASR.Transcribe(ctx, wav, in.WorkDir, opts)
	if err != nil {
		return types.Transcript{}, "", err
	}

	if u.d.Cache != nil && in.CacheKey != "" {
		if err := u.d.Cache.Put(ctx, in.CacheKey, tr); err != nil {
			log.WithError(err).Warn("Transcript cache write failed")
		}
	}
	return tr, types.StatusOK, nil
}

// runOptional runs the requested detectors. A detector failure is recorded in
// its status and does not fail the run.
func (u Usecase) runOptional(ctx context.Context, log logrus.FieldLogger, rep *types.Report, wav string, in Input) ([]types.CapabilityStatus, error) {
	requested := map[types.Capability]bool{}
	for _, c := range in.Capabilities {
		requested[c] = true
	}

	var frames []types.Frame
	if requested[types.CapabilityObjects] || requested[types.CapabilityScenes] {
		framesDir := filepath.Join(in.WorkDir, "frames")
		if err := os.MkdirAll(framesDir, 0o755); err != nil {
			return nil, err
		}
		log.WithField("every", in.FrameInterval).Info("Sampling frames")
		var err error
		frames, err = u.d.Video.ExtractFrames(ctx, in.InputPath, framesDir, in.FrameInterval)
		if err != nil {
			return nil, err
		}
	}

	out := make([]types.CapabilityStatus, 0, len(types.OptionalCapabilities))
	for _, c := range types.OptionalCapabilities {
		if !requested[c] {
			out = append(out, types.CapabilityStatus{Name: c, Status: types.StatusSkipped})
			continue
		}

		var err error
		switch c {
		case types.CapabilityObjects:
			if u.d.Objects == nil {
				err = apperr.NotImplemented("usecase.objects", "object detection is not available")
				break
			}
			rep.Objects, err = u.d.Objects.DetectObjects(ctx, frames)
		case types.CapabilityScenes:
			if u.d.Scenes == nil {
				err = apperr.NotImplemented("usecase.scenes", "scene description is not available")
				break
			}
			rep.Scenes, err = u.d.Scenes.DescribeScenes(ctx, frames)
		case types.CapabilityAudioEvents:
			if u.d.AudioEvents == nil {
				err = apperr.NotImplemented("usecase.audio-events", "audio event detection is not available")
				break
			}
			rep.AudioEvents, err = u.d.AudioEvents.DetectAudioEvents(ctx, wav)
		}
		out = append(out, capabilityStatus(log, c, err))
	}
	return out, nil
}

func capabilityStatus(log logrus.FieldLogger, c types.Capability, err error) types.CapabilityStatus {
	st := types.CapabilityStatus{Name: c, Status: types.StatusOK}
	switch {
	case err == nil:
	case apperr.Is(err, apperr.KindNotImplemented):
		st.Status = types.StatusNotImplemented
		st.Detail = err.Error()
		log.WithField("capability", c).Warn(err.Error())
	default:
		st.Status = types.StatusFailed
		st.Detail = err.Error()
		log.WithError(err).WithField("capability", c).Error("Capability failed")
	}
	return st
}
