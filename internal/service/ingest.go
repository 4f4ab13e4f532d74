package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/vidtalk/internal/index"
	"github.com/raphaelgruber/vidtalk/internal/media"
	"github.com/raphaelgruber/vidtalk/internal/metrics"
	"github.com/raphaelgruber/vidtalk/internal/parser"
)

// IngestorConfig holds the tunables of the ingestion pipeline.
type IngestorConfig struct {
	// DataDir is the root under which each session gets a working dir.
	DataDir string
	// FrameInterval is the sampling interval for frame extraction.
	FrameInterval time.Duration
	// Chunks configures transcript chunking.
	Chunks parser.ChunkConfig
}

// Ingestor runs the video processing pipeline: download, extract,
// transcribe, embed, publish, register. Each submitted URL becomes a
// job; a successful job yields a queryable session.
type Ingestor struct {
	jobs        *JobManager
	sessions    *SessionStore
	extractor   Extractor
	transcriber Transcriber
	embedder    Embedder
	index       Index
	metrics     *metrics.Collector
	cfg         IngestorConfig
}

// NewIngestor creates an ingestor. The metrics collector may be nil.
func NewIngestor(
	jobs *JobManager,
	sessions *SessionStore,
	extractor Extractor,
	transcriber Transcriber,
	embedder Embedder,
	idx Index,
	collector *metrics.Collector,
	cfg IngestorConfig,
) *Ingestor {
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = time.Second
	}
	if cfg.Chunks.MaxTokens <= 0 {
		cfg.Chunks = parser.DefaultChunkConfig()
	}
	return &Ingestor{
		jobs:        jobs,
		sessions:    sessions,
		extractor:   extractor,
		transcriber: transcriber,
		embedder:    embedder,
		index:       idx,
		metrics:     collector,
		cfg:         cfg,
	}
}

// Submit accepts a video URL, creates a job and starts processing in the
// background. It returns immediately with the pending job.
func (s *Ingestor) Submit(url string) *Job {
	job := s.jobs.Create()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("ingest goroutine panicked", "job_id", job.ID, "panic", r)
				s.jobs.Fail(job, fmt.Errorf("internal panic: %v", r))
			}
		}()

		s.process(context.Background(), job, url)
	}()

	return job
}

// process runs the pipeline for one job. On any failure the job is
// marked failed and the session's partial artifacts are released; no
// session becomes visible.
func (s *Ingestor) process(ctx context.Context, job *Job, url string) {
	sessionID := uuid.New().String()
	sessionDir := filepath.Join(s.cfg.DataDir, sessionID)

	if err := s.run(ctx, job, url, sessionID, sessionDir); err != nil {
		s.jobs.Fail(job, err)

		// Release anything the failed run left behind.
		if err := s.index.DropSession(ctx, sessionID); err != nil {
			slog.Warn("failed to drop partial index data", "session_id", sessionID, "error", err)
		}
		if err := os.RemoveAll(sessionDir); err != nil {
			slog.Warn("failed to remove partial session dir", "dir", sessionDir, "error", err)
		}
		return
	}

	s.jobs.Complete(job, sessionID)
}

func (s *Ingestor) run(ctx context.Context, job *Job, url, sessionID, sessionDir string) error {
	// Stage 1: working storage and download. The job enters processing
	// before the first side effect so pollers never see it jump from
	// pending straight to a terminal state.
	s.jobs.SetProcessing(job, 1, MsgDownloading)

	framesDir := filepath.Join(sessionDir, "frames")
	if err := os.MkdirAll(framesDir, 0755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	videoPath, err := s.extractor.Download(ctx, url, sessionDir)
	if err != nil {
		return err
	}

	hasAudio, err := s.extractor.HasAudioStream(ctx, videoPath)
	if err != nil {
		return err
	}
	if !hasAudio {
		return media.ErrNoAudioStream
	}

	// Stage 2: audio and frames.
	s.jobs.SetProcessing(job, 2, MsgExtracting)
	audioPath := filepath.Join(sessionDir, "audio.wav")

	extractStart := time.Now()
	if err := s.extractor.ExtractAudio(ctx, videoPath, audioPath); err != nil {
		return err
	}
	frames, err := s.extractor.ExtractFrames(ctx, videoPath, framesDir, s.cfg.FrameInterval.Seconds())
	if err != nil {
		return err
	}
	s.recordTiming(metrics.OpExtract, extractStart)

	// Stage 3: transcription.
	s.jobs.SetProcessing(job, 3, MsgTranscribing)
	transcribeStart := time.Now()
	transcript, err := s.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return err
	}
	s.recordTiming(metrics.OpTranscribe, transcribeStart)

	// Stage 4: embeddings.
	s.jobs.SetProcessing(job, 4, MsgEmbedding)
	segments, err := s.buildSegments(ctx, sessionID, transcript, framesDir, frames)
	if err != nil {
		return err
	}

	// Stage 5: publish, then register. Nothing is queryable before the
	// bulk insert returns and the session is registered.
	insertStart := time.Now()
	if err := s.index.BulkInsert(ctx, segments); err != nil {
		return err
	}
	s.recordTiming(metrics.OpIndexInsert, insertStart)

	if err := s.sessions.Register(sessionID, sessionDir); err != nil {
		return fmt.Errorf("register session: %w", err)
	}

	slog.Info("ingestion complete",
		"job_id", job.ID,
		"session_id", sessionID,
		"segments", len(segments),
		"frames", len(frames))
	return nil
}

// buildSegments embeds the transcript chunks and frames into index records.
func (s *Ingestor) buildSegments(ctx context.Context, sessionID, transcript, framesDir string, frames []string) ([]index.SegmentInput, error) {
	chunks, err := parser.ChunkTranscript(transcript, s.cfg.Chunks, func(text string) (int, error) {
		return s.embedder.CountTokens(ctx, text)
	})
	if err != nil {
		return nil, fmt.Errorf("chunk transcript: %w", err)
	}

	segments := make([]index.SegmentInput, 0, len(chunks)+len(frames))

	if len(chunks) > 0 {
		embedStart := time.Now()
		embeddings, err := s.embedder.EmbedTextBatch(ctx, chunks)
		if err != nil {
			return nil, fmt.Errorf("embed transcript chunks: %w", err)
		}
		s.recordTiming(metrics.OpEmbedText, embedStart)

		for i, chunk := range chunks {
			segments = append(segments, index.SegmentInput{
				Session:   sessionID,
				Kind:      index.KindText,
				Payload:   chunk,
				Embedding: embeddings[i],
			})
		}
	}

	for _, frame := range frames {
		data, err := os.ReadFile(filepath.Join(framesDir, frame))
		if err != nil {
			return nil, fmt.Errorf("read frame %s: %w", frame, err)
		}

		embedStart := time.Now()
		embedding, err := s.embedder.EmbedImage(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("embed frame %s: %w", frame, err)
		}
		s.recordTiming(metrics.OpEmbedImage, embedStart)

		segments = append(segments, index.SegmentInput{
			Session:   sessionID,
			Kind:      index.KindImage,
			Payload:   frame,
			Embedding: embedding,
		})
	}

	return segments, nil
}

func (s *Ingestor) recordTiming(op string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordTiming(op, time.Since(start))
	}
}
