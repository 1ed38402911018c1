package transcriber

import "context"

// TranscriptionResult represents a single transcription result from an engine
type TranscriptionResult struct {
	Text    string // the transcription text (partial or final)
	IsFinal bool   // true if this is a final result, false for interim results
	Error   error  // non-nil if an error occurred
}

// Engine is a speech-to-text backend fed with raw PCM audio.
type Engine interface {
	// Start initiates the engine session with the given language setting
	Start(ctx context.Context, language string) error

	// SendChunk sends a chunk of audio data to the engine
	SendChunk(audio []byte) error

	// Results returns a channel that receives transcription results (partial and final).
	// The channel is closed once the engine is closed or the session is lost.
	Results() <-chan TranscriptionResult

	// Finalize signals end of audio input and waits for final transcription results.
	// The ctx controls the timeout for waiting on final results.
	Finalize(ctx context.Context) error

	// Close releases the session
	Close() error
}

// EngineFactory builds an engine for one recording attempt.
type EngineFactory func(Config) (Engine, error)
