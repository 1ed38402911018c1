package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/leonardotrapani/hyprinterview/internal/language"
	"github.com/sashabaranov/go-openai"
)

// OpenAIEngine buffers the whole answer and transcribes it in one request on Finalize.
// It never emits interim results.
type OpenAIEngine struct {
	client     *openai.Client
	model      string
	language   string
	sampleRate int

	mu        sync.Mutex
	buf       bytes.Buffer
	started   bool
	closed    bool
	resultsCh chan TranscriptionResult
}

// NewOpenAIEngine creates a batch engine. baseURL may be empty for the public API.
func NewOpenAIEngine(apiKey, baseURL, model, lang string, sampleRate int) *OpenAIEngine {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	return &OpenAIEngine{
		client:     openai.NewClientWithConfig(cfg),
		model:      model,
		language:   lang,
		sampleRate: sampleRate,
		resultsCh:  make(chan TranscriptionResult, 2),
	}
}

func (e *OpenAIEngine) Start(ctx context.Context, lang string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return fmt.Errorf("engine already started")
	}
	if lang != "" {
		e.language = lang
	}
	e.started = true
	return nil
}

func (e *OpenAIEngine) SendChunk(audio []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return fmt.Errorf("engine not started")
	}
	e.buf.Write(audio)
	return nil
}

func (e *OpenAIEngine) Results() <-chan TranscriptionResult {
	return e.resultsCh
}

func (e *OpenAIEngine) Finalize(ctx context.Context) error {
	e.mu.Lock()
	audio := append([]byte(nil), e.buf.Bytes()...)
	e.buf.Reset()
	e.mu.Unlock()

	if len(audio) == 0 {
		return nil
	}

	req := openai.AudioRequest{
		Model:    e.model,
		Reader:   bytes.NewReader(encodeWAV(audio, e.sampleRate)),
		FilePath: "answer.wav",
		Language: language.Base(e.language),
	}

	start := time.Now()
	resp, err := e.client.CreateTranscription(ctx, req)
	if err != nil {
		log.Printf("OpenAI: transcription failed after %v: %v", time.Since(start), err)
		e.emit(TranscriptionResult{Error: fmt.Errorf("openai transcription: %w", err)})
		return err
	}

	log.Printf("OpenAI: transcribed %d bytes in %v", len(audio), time.Since(start))
	e.emit(TranscriptionResult{Text: resp.Text, IsFinal: true})
	return nil
}

func (e *OpenAIEngine) emit(res TranscriptionResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	select {
	case e.resultsCh <- res:
	default:
		log.Printf("OpenAI: results channel full, dropping result")
	}
}

func (e *OpenAIEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.started = false
	close(e.resultsCh)
	return nil
}
