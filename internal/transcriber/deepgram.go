package transcriber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/leonardotrapani/hyprinterview/internal/provider"
)

// wait before each redial attempt after the socket drops
var deepgramBackoff = []time.Duration{0, time.Second, 2 * time.Second}

// DeepgramEngine streams PCM to Deepgram's live endpoint and relays interim
// and final hypotheses. A dropped socket is redialled a few times before the
// session reports an error.
type DeepgramEngine struct {
	endpoint   *provider.EndpointConfig
	apiKey     string
	model      string
	language   string
	sampleRate int
	backoff    []time.Duration

	results chan TranscriptionResult
	flushed chan struct{}

	mu       sync.Mutex
	conn     *websocket.Conn
	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	draining bool // CloseStream sent; the server hangs up once it has flushed
	wg       sync.WaitGroup
}

func NewDeepgramEngine(endpoint *provider.EndpointConfig, apiKey, model, lang string, sampleRate int) *DeepgramEngine {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	return &DeepgramEngine{
		endpoint:   endpoint,
		apiKey:     apiKey,
		model:      model,
		language:   lang,
		sampleRate: sampleRate,
		backoff:    deepgramBackoff,
		results:    make(chan TranscriptionResult, 100),
		flushed:    make(chan struct{}, 1),
	}
}

func (d *DeepgramEngine) Start(ctx context.Context, lang string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return fmt.Errorf("engine already started")
	}
	if lang != "" {
		d.language = lang
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.dialLocked(); err != nil {
		d.cancel()
		return err
	}
	d.started = true

	d.wg.Add(1)
	go d.listen()

	log.Printf("Deepgram: connected, model=%s, language=%s", d.model, d.language)
	return nil
}

func (d *DeepgramEngine) streamURL() (string, error) {
	u, err := url.Parse(d.endpoint.BaseURL + d.endpoint.Path)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	q := url.Values{}
	q.Set("model", d.model)
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(d.sampleRate))
	q.Set("channels", "1")
	q.Set("interim_results", "true")
	q.Set("punctuate", "true")
	q.Set("smart_format", "true")
	if lang := normalizeDeepgramLanguage(d.language); lang != "" {
		q.Set("language", lang)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// dialLocked replaces d.conn. Callers hold d.mu.
func (d *DeepgramEngine) dialLocked() error {
	target, err := d.streamURL()
	if err != nil {
		return fmt.Errorf("build websocket url: %w", err)
	}

	header := http.Header{"Authorization": []string{"Token " + d.apiKey}}
	conn, resp, err := websocket.DefaultDialer.DialContext(d.ctx, target, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("websocket dial: %w (status %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("websocket dial: %w", err)
	}
	if d.conn != nil {
		d.conn.Close()
	}
	d.conn = conn
	return nil
}

// redial reports whether a fresh socket is in place.
func (d *DeepgramEngine) redial() bool {
	for i, wait := range d.backoff {
		if wait > 0 {
			log.Printf("Deepgram: redial %d/%d in %v", i+1, len(d.backoff), wait)
		}
		select {
		case <-d.ctx.Done():
			return false
		case <-time.After(wait):
		}

		d.mu.Lock()
		if d.draining {
			d.mu.Unlock()
			return false
		}
		err := d.dialLocked()
		d.mu.Unlock()

		if err == nil {
			log.Printf("Deepgram: reconnected")
			return true
		}
		log.Printf("Deepgram: redial failed: %v", err)
	}
	return false
}

func (d *DeepgramEngine) snapshot() (*websocket.Conn, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conn, d.draining
}

func (d *DeepgramEngine) emit(res TranscriptionResult) {
	select {
	case d.results <- res:
	case <-d.ctx.Done():
	}
}

func (d *DeepgramEngine) markFlushed() {
	select {
	case d.flushed <- struct{}{}:
	default:
	}
}

func (d *DeepgramEngine) listen() {
	defer d.wg.Done()
	defer close(d.results)

	for d.ctx.Err() == nil {
		conn, _ := d.snapshot()
		_, raw, err := conn.ReadMessage()
		if err == nil {
			d.handle(raw)
			continue
		}
		if d.ctx.Err() != nil {
			return
		}
		current, draining := d.snapshot()
		if draining {
			d.markFlushed()
			return
		}
		if current != conn {
			// a writer already redialled
			continue
		}

		log.Printf("Deepgram: read error: %v", err)
		if !d.redial() {
			d.emit(TranscriptionResult{Error: fmt.Errorf("websocket read: %w (gave up after %d redials)", err, len(d.backoff))})
			return
		}
	}
}

func (d *DeepgramEngine) handle(raw []byte) {
	var msg dgMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Printf("Deepgram: bad frame: %v", err)
		return
	}

	switch msg.Type {
	case "Results":
		if text := msg.transcript(); text != "" {
			d.emit(TranscriptionResult{Text: text, IsFinal: msg.final()})
		}
	case "Metadata":
		if msg.Metadata != nil {
			log.Printf("Deepgram: request_id=%s model=%s", msg.Metadata.RequestID, msg.Metadata.ModelInfo.Name)
		}
		// metadata is the last frame after CloseStream
		if _, draining := d.snapshot(); draining {
			d.markFlushed()
		}
	case "Error":
		if msg.Error != nil {
			log.Printf("Deepgram: server error: %s", msg.Error)
			d.emit(TranscriptionResult{Error: fmt.Errorf("deepgram: %s", msg.Error)})
		}
	case "SpeechStarted", "UtteranceEnd":
	default:
		log.Printf("Deepgram: ignoring %q frame", msg.Type)
	}
}

// write reports socket failures separately from engine state errors, only
// the former are worth a redial.
func (d *DeepgramEngine) write(audio []byte) (socketErr bool, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case !d.started:
		return false, fmt.Errorf("engine not started")
	case d.draining:
		return false, nil
	case d.ctx.Err() != nil:
		return false, d.ctx.Err()
	case d.conn == nil:
		return false, fmt.Errorf("no connection")
	}
	if err := d.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return true, err
	}
	return false, nil
}

// SendChunk writes one binary frame. Audio after Finalize is discarded.
func (d *DeepgramEngine) SendChunk(audio []byte) error {
	socketErr, err := d.write(audio)
	if !socketErr {
		return err
	}

	log.Printf("Deepgram: write error: %v", err)
	if d.redial() {
		if _, err = d.write(audio); err == nil {
			return nil
		}
	}
	return fmt.Errorf("websocket write: %w", err)
}

func (d *DeepgramEngine) Results() <-chan TranscriptionResult {
	return d.results
}

// Finalize sends CloseStream and blocks until Deepgram has flushed or ctx ends.
func (d *DeepgramEngine) Finalize(ctx context.Context) error {
	d.mu.Lock()
	if !d.started || d.conn == nil || d.draining {
		d.mu.Unlock()
		return nil
	}
	select {
	case <-d.flushed:
	default:
	}
	d.draining = true
	err := d.conn.WriteJSON(dgCloseStream)
	d.mu.Unlock()

	if err != nil {
		return fmt.Errorf("finalize write: %w", err)
	}

	select {
	case <-d.flushed:
		return nil
	case <-ctx.Done():
		log.Printf("Deepgram: finalize timed out")
		return ctx.Err()
	case <-d.ctx.Done():
		if errors.Is(d.ctx.Err(), context.Canceled) {
			return nil
		}
		return d.ctx.Err()
	}
}

// Close tears the socket down and waits for the reader to exit.
func (d *DeepgramEngine) Close() error {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return nil
	}
	d.started = false
	d.cancel()
	conn := d.conn
	d.mu.Unlock()

	// the reader may be blocked in ReadMessage, so close without the lock
	if conn != nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}
	d.wg.Wait()

	log.Printf("Deepgram: closed")
	return nil
}
