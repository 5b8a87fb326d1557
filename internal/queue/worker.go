package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/codebuildervaibhav/speaker-transcription/internal/storage"
	"github.com/codebuildervaibhav/speaker-transcription/internal/transcript"
	"github.com/codebuildervaibhav/speaker-transcription/internal/transcription"
	"github.com/codebuildervaibhav/speaker-transcription/internal/types"
)

var (
	// ErrQueueFull is returned when the job buffer has no room
	ErrQueueFull = errors.New("job queue is full")
	// ErrJobNotFound is returned for unknown job ids
	ErrJobNotFound = errors.New("job not found")
)

const driveUploadAttempts = 3

// Producer turns a source into a speaker-labeled transcript
type Producer interface {
	ProduceTranscript(ctx context.Context, url string, opts transcription.Options) (*transcription.Result, error)
	ProduceFromFile(ctx context.Context, audioPath string, opts transcription.Options) (*transcription.Result, error)
}

// TranscriptSaver writes transcripts to local disk
type TranscriptSaver interface {
	SaveTranscript(requestName string, result *types.TranscriptionResult) (storage.SavedFiles, error)
}

// Uploader copies transcripts to remote storage and returns a link
type Uploader interface {
	Upload(ctx context.Context, requestName string, result *types.TranscriptionResult) (string, error)
}

// Archiver stores transcript text under an object key
type Archiver interface {
	PutTranscript(ctx context.Context, key, text string) error
}

// MetadataStore records completed transcripts
type MetadataStore interface {
	SaveTranscript(rec storage.TranscriptRecord) error
}

// FileHolder protects files of queued and running jobs from cleanup sweeps
type FileHolder interface {
	Hold(path string) (release func())
}

// Sinks are the destinations of a finished transcript. Only Local is required.
type Sinks struct {
	Local    TranscriptSaver
	Drive    Uploader
	Archive  Archiver
	Metadata MetadataStore
}

// WorkerPool manages a pool of workers processing transcription jobs
type WorkerPool struct {
	jobQueue    chan *Job
	workerCount int
	producer    Producer
	sinks       Sinks
	logger      *zap.Logger

	mu   sync.RWMutex
	jobs map[string]*Job

	wg         sync.WaitGroup
	retryDelay func(attempt int) time.Duration
	holder     FileHolder
}

// NewWorkerPool creates a new worker pool with room for queueSize pending jobs
func NewWorkerPool(workerCount, queueSize int, producer Producer, sinks Sinks, logger *zap.Logger) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	if queueSize < 1 {
		queueSize = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkerPool{
		jobQueue:    make(chan *Job, queueSize),
		workerCount: workerCount,
		producer:    producer,
		sinks:       sinks,
		logger:      logger,
		jobs:        make(map[string]*Job),
		retryDelay: func(attempt int) time.Duration {
			return time.Duration(attempt*attempt) * time.Second
		},
	}
}

// WithFileHolder holds the input file of every file job from enqueue until
// the job finishes
func (wp *WorkerPool) WithFileHolder(h FileHolder) *WorkerPool {
	wp.holder = h
	return wp
}

// Start launches the workers. Jobs run under ctx.
func (wp *WorkerPool) Start(ctx context.Context) {
	wp.logger.Info("Starting worker pool", zap.Int("workers", wp.workerCount))
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// Stop closes the queue and waits for in-flight jobs to finish
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
}

// EnqueueJob registers job and adds it to the queue without blocking
func (wp *WorkerPool) EnqueueJob(job *Job) error {
	if job.done == nil {
		job.done = make(chan struct{})
	}
	if wp.holder != nil && job.FilePath != "" {
		job.release = wp.holder.Hold(job.FilePath)
	}

	wp.mu.Lock()
	job.Status = types.StatusQueued
	job.CreatedAt = time.Now()
	wp.jobs[job.ID] = job
	wp.mu.Unlock()

	select {
	case wp.jobQueue <- job:
	default:
		wp.mu.Lock()
		delete(wp.jobs, job.ID)
		wp.mu.Unlock()
		job.releaseFile()
		return ErrQueueFull
	}

	wp.logger.Info("Job enqueued",
		zap.String("job_id", job.ID),
		zap.String("source", job.SourceType),
		zap.String("name", job.RequestName),
	)
	return nil
}

// Get returns a snapshot of the job with the given id
func (wp *WorkerPool) Get(id string) (Job, error) {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	job, ok := wp.jobs[id]
	if !ok {
		return Job{}, ErrJobNotFound
	}
	return *job, nil
}

// Wait blocks until the job finishes or ctx ends and returns its snapshot
func (wp *WorkerPool) Wait(ctx context.Context, id string) (Job, error) {
	wp.mu.RLock()
	job, ok := wp.jobs[id]
	wp.mu.RUnlock()
	if !ok {
		return Job{}, ErrJobNotFound
	}

	select {
	case <-job.done:
		return wp.Get(id)
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

func (wp *WorkerPool) update(job *Job, fn func(j *Job)) {
	wp.mu.Lock()
	fn(job)
	wp.mu.Unlock()
}

func (wp *WorkerPool) finish(job *Job, result *types.TranscriptionResult, err error) {
	wp.update(job, func(j *Job) {
		j.CompletedAt = time.Now()
		if err != nil {
			j.Status = types.StatusFailed
			j.Error = err
			return
		}
		j.Status = types.StatusCompleted
		j.Result = result
	})
	close(job.done)
}

// worker processes jobs from the queue
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()
	logger := wp.logger.With(zap.Int("worker", id))
	logger.Debug("Worker started")

	for job := range wp.jobQueue {
		wp.runJob(ctx, logger, job)
	}
}

func (wp *WorkerPool) runJob(ctx context.Context, logger *zap.Logger, job *Job) {
	logger = logger.With(zap.String("job_id", job.ID))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic processing job",
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())),
			)
			wp.releaseInput(logger, job)
			wp.finish(job, nil, fmt.Errorf("worker panic: %v", r))
		}
	}()

	result, err := wp.processJob(ctx, logger, job)
	wp.releaseInput(logger, job)
	wp.finish(job, result, err)
}

// releaseInput removes the job's input file and drops its hold before
// waiters are notified
func (wp *WorkerPool) releaseInput(logger *zap.Logger, job *Job) {
	wp.cleanupTempFile(logger, job.FilePath)
	job.releaseFile()
}

// processJob handles the complete transcription pipeline
func (wp *WorkerPool) processJob(ctx context.Context, logger *zap.Logger, job *Job) (*types.TranscriptionResult, error) {
	logger.Info("Processing job")
	wp.update(job, func(j *Job) { j.Status = types.StatusProcessing })

	opts := transcription.Options{
		MinSegmentMs: job.MinSegmentMs,
		Speakers:     job.Speakers,
		Policy:       job.Policy,
	}

	// Step 1: Diarize and transcribe
	var (
		produced *transcription.Result
		err      error
	)
	if job.URL != "" {
		produced, err = wp.producer.ProduceTranscript(ctx, job.URL, opts)
	} else {
		produced, err = wp.producer.ProduceFromFile(ctx, job.FilePath, opts)
	}
	if err != nil {
		logger.Error("Transcription failed", zap.Error(err))
		return nil, err
	}

	result := &types.TranscriptionResult{
		JobID:        job.ID,
		Text:         produced.Text,
		Duration:     float64(produced.DurationMs) / 1000,
		Segments:     produced.Segments,
		SpeakerCount: produced.SpeakerCount,
		WordCount:    countWords(produced.Segments),
		ProcessedAt:  time.Now(),
	}
	if job.Clean {
		result.CleanText = transcript.Clean(produced.Text)
	}

	// Step 2: Save locally
	files, err := wp.sinks.Local.SaveTranscript(job.RequestName, result)
	if err != nil {
		logger.Error("Local save failed", zap.Error(err))
		return nil, fmt.Errorf("local save failed: %w", err)
	}
	result.LocalPath = files.TextPath

	// Step 3: Upload to Google Drive (with retry)
	if wp.sinks.Drive != nil {
		result.GDriveURL = wp.uploadToDrive(ctx, logger, job, result)
	}

	// Step 4: Archive to object storage
	if wp.sinks.Archive != nil {
		key := storage.TranscriptKey(job.ID, result.ProcessedAt)
		if err := wp.sinks.Archive.PutTranscript(ctx, key, result.Text); err != nil {
			logger.Warn("Object store archive failed", zap.String("key", key), zap.Error(err))
		} else {
			result.ObjectKey = key
		}
	}

	// Step 5: Save metadata to database
	if wp.sinks.Metadata != nil {
		err := wp.sinks.Metadata.SaveTranscript(storage.TranscriptRecord{
			JobID:        job.ID,
			RequestName:  job.RequestName,
			SourceType:   job.SourceType,
			SourceURL:    job.URL,
			GDriveURL:    result.GDriveURL,
			ObjectKey:    result.ObjectKey,
			LocalPath:    files.TextPath,
			CleanPath:    files.CleanPath,
			CreatedAt:    result.ProcessedAt,
			Duration:     result.Duration,
			WordCount:    result.WordCount,
			SpeakerCount: result.SpeakerCount,
			SegmentCount: len(result.Segments),
		})
		if err != nil {
			logger.Error("Database save failed", zap.Error(err))
		}
	}

	logger.Info("Job completed successfully",
		zap.String("local", files.TextPath),
		zap.String("gdrive", result.GDriveURL),
		zap.Int("speakers", result.SpeakerCount),
	)
	return result, nil
}

func (wp *WorkerPool) uploadToDrive(ctx context.Context, logger *zap.Logger, job *Job, result *types.TranscriptionResult) string {
	var err error
	for attempt := 1; attempt <= driveUploadAttempts; attempt++ {
		var driveURL string
		driveURL, err = wp.sinks.Drive.Upload(ctx, job.RequestName, result)
		if err == nil {
			return driveURL
		}
		logger.Warn("Google Drive upload attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", driveUploadAttempts),
			zap.Error(err),
		)
		if attempt < driveUploadAttempts {
			select {
			case <-time.After(wp.retryDelay(attempt)):
			case <-ctx.Done():
				return ""
			}
		}
	}
	logger.Warn("Google Drive upload failed, continuing with local save only", zap.Error(err))
	return ""
}

// cleanupTempFile removes a temporary file
func (wp *WorkerPool) cleanupTempFile(logger *zap.Logger, filePath string) {
	if filePath == "" {
		return
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to cleanup temp file", zap.String("path", filePath), zap.Error(err))
	}
}

func countWords(segments []types.Segment) int {
	n := 0
	for _, s := range segments {
		n += len(strings.Fields(s.Text))
	}
	return n
}
