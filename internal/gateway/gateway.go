// Package gateway is the sole point of contact with the remote generative
// service. It exposes two operations: streamed text completion and
// synchronous-from-the-caller's-view video synthesis over a bounded poll
// loop. Every invocation emits one activity-log record.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log"
	"sync"

	"google.golang.org/genai"

	"github.com/abdul34602/novaaipro1/internal/activity"
	"github.com/abdul34602/novaaipro1/internal/config"
	"github.com/abdul34602/novaaipro1/internal/persona"
	"github.com/abdul34602/novaaipro1/internal/storage"
	"github.com/abdul34602/novaaipro1/internal/video"
)

// ErrMaintenance is the policy-gated refusal returned while the admin
// maintenance flag is set. Enforced here, server-side, for every caller.
var ErrMaintenance = errors.New("gateway: service is in maintenance mode")

// CompletionRequest carries one turn's input to the streaming operation.
// History must alternate between already-finalized user and assistant
// content; attachments must already be transport-encoded.
type CompletionRequest struct {
	History           []storage.Message
	Text              string
	Attachments       []storage.Attachment
	SystemInstruction string
	PersonaID         string
}

// Gateway wraps the Gemini SDK behind the two operations the orchestration
// layer needs. Policy (maintenance flag, credential) comes from the injected
// settings store; activity records go to the injected sink.
type Gateway struct {
	cfg      *config.Config
	settings *config.SettingsStore
	sink     activity.Sink

	// clientMu guards the lazy client cache: independent sessions stream
	// concurrently, so two turns may race to build the first client.
	clientMu  sync.Mutex
	client    *genai.Client
	clientKey string

	backend video.Backend
	poller  *video.Poller
}

// Option customizes gateway construction.
type Option func(*Gateway)

// WithVideoBackend substitutes the video submission/polling backend.
// Tests use this to drive the poll loop deterministically.
func WithVideoBackend(backend video.Backend) Option {
	return func(g *Gateway) {
		g.backend = backend
	}
}

// New creates a gateway. The SDK client is created lazily on first use so
// construction never needs network access.
func New(cfg *config.Config, settings *config.SettingsStore, sink activity.Sink, opts ...Option) *Gateway {
	g := &Gateway{
		cfg:      cfg,
		settings: settings,
		sink:     sink,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.backend == nil {
		g.backend = &genaiBackend{gateway: g}
	}
	g.poller = video.NewPoller(g.backend, cfg.PollInterval, cfg.MaxPollAttempts)
	return g
}

// ensureClient returns the SDK client for the credential currently in
// effect, rebuilding it when an admin rotates the key.
func (g *Gateway) ensureClient(ctx context.Context) (*genai.Client, error) {
	key := g.settings.APIKey()

	g.clientMu.Lock()
	defer g.clientMu.Unlock()

	if g.client != nil && g.clientKey == key {
		return g.client, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	g.client = client
	g.clientKey = key
	return client, nil
}

// StreamCompletion starts a streamed completion for one turn and returns a
// lazy sequence of text fragments in emission order. The sequence is
// exhausted when the remote model signals completion; a transport failure
// terminates it with an error chunk and a status-500 activity record.
func (g *Gateway) StreamCompletion(ctx context.Context, req CompletionRequest) (Stream, error) {
	g.sink.Record(activity.FeatureChat, req.Text, 200)

	client, err := g.ensureClient(ctx)
	if err != nil {
		g.sink.Record(activity.FeatureChat, req.Text, 500)
		return nil, err
	}

	contents, err := buildContents(req)
	if err != nil {
		g.sink.Record(activity.FeatureChat, req.Text, 500)
		return nil, err
	}

	genCfg := buildGenerationConfig(req.PersonaID, req.SystemInstruction)
	seq := client.Models.GenerateContentStream(ctx, g.cfg.ChatModel, contents, genCfg)

	ch := make(chan StreamChunk, 100)
	go g.pump(ctx, req.Text, seq, ch)

	return ch, nil
}

// pump forwards SDK responses into ch. When the caller's context ends the
// remaining tail is abandoned rather than sent, so a consumer that stops
// reading mid-stream never pins the goroutine on a full buffer.
func (g *Gateway) pump(ctx context.Context, prompt string, seq iter.Seq2[*genai.GenerateContentResponse, error], ch chan<- StreamChunk) {
	defer close(ch)

	for result, err := range seq {
		if err != nil {
			log.Printf("Gemini stream error: %v", err)
			g.sink.Record(activity.FeatureChat, prompt, 500)
			g.send(ctx, ch, ErrorChunk{Err: fmt.Errorf("stream failed: %w", err)})
			return
		}
		if ctx.Err() != nil {
			return
		}

		if len(result.Candidates) > 0 && result.Candidates[0].Content != nil {
			for _, part := range result.Candidates[0].Content.Parts {
				if part.Text != "" {
					if !g.send(ctx, ch, TextChunk{Text: part.Text}) {
						return
					}
				}
			}
		}
	}
}

func (g *Gateway) send(ctx context.Context, ch chan<- StreamChunk, chunk StreamChunk) bool {
	select {
	case ch <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

// SynthesizeVideo submits a video job and blocks until the remote job is
// terminal, returning the playable URL with the access credential appended.
// Refused outright while the maintenance flag is set.
func (g *Gateway) SynthesizeVideo(ctx context.Context, prompt, aspectRatio string) (string, error) {
	if g.settings.Maintenance() {
		g.sink.Record(activity.FeatureVideo, prompt, 503)
		return "", ErrMaintenance
	}

	g.sink.Record(activity.FeatureVideo, prompt, 200)

	if aspectRatio == "" {
		aspectRatio = "16:9"
	}

	assetURI, err := g.poller.Run(ctx, prompt, video.JobConfig{
		AspectRatio: aspectRatio,
		Resolution:  "1080p",
		Count:       1,
	})
	if err != nil {
		log.Printf("Video generation failed: %v", err)
		g.sink.Record(activity.FeatureVideo, prompt, 500)
		return "", err
	}

	// The provider requires the API key on the download link for playback.
	return fmt.Sprintf("%s&key=%s", assetURI, g.settings.APIKey()), nil
}

// buildContents converts a turn into the SDK's content list: prior turns as
// alternating user/model text parts, then the new user text with any
// attachments as inline blobs.
func buildContents(req CompletionRequest) ([]*genai.Content, error) {
	var contents []*genai.Content
	for _, msg := range req.History {
		role := "user"
		if msg.Role == storage.RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}

	parts := []*genai.Part{{Text: req.Text}}
	for _, att := range req.Attachments {
		if att.Payload == "" {
			continue
		}
		blob, err := decodePayload(att)
		if err != nil {
			return nil, fmt.Errorf("attachment %q: %w", att.Name, err)
		}
		parts = append(parts, &genai.Part{InlineData: blob})
	}
	contents = append(contents, &genai.Content{Role: "user", Parts: parts})

	return contents, nil
}

// buildGenerationConfig applies the fixed per-persona tuning table.
func buildGenerationConfig(personaID, systemInstruction string) *genai.GenerateContentConfig {
	tuning := persona.TuningFor(personaID)

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(tuning.Temperature),
		TopP:        genai.Ptr(tuning.TopP),
		ThinkingConfig: &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(tuning.ThinkingBudget),
		},
	}
	if systemInstruction != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		}
	}
	return cfg
}

// genaiBackend implements video.Backend over the SDK's long-running
// operations API.
type genaiBackend struct {
	gateway *Gateway
}

func (b *genaiBackend) Submit(ctx context.Context, prompt string, cfg video.JobConfig) (video.Handle, video.Status, error) {
	client, err := b.gateway.ensureClient(ctx)
	if err != nil {
		return nil, video.Status{}, err
	}

	op, err := client.Models.GenerateVideos(ctx, b.gateway.cfg.VideoModel, prompt, nil, &genai.GenerateVideosConfig{
		NumberOfVideos: cfg.Count,
		Resolution:     cfg.Resolution,
		AspectRatio:    cfg.AspectRatio,
	})
	if err != nil {
		return nil, video.Status{}, err
	}
	return op, operationStatus(op), nil
}

func (b *genaiBackend) Poll(ctx context.Context, handle video.Handle) (video.Handle, video.Status, error) {
	client, err := b.gateway.ensureClient(ctx)
	if err != nil {
		return nil, video.Status{}, err
	}

	op, ok := handle.(*genai.GenerateVideosOperation)
	if !ok {
		return nil, video.Status{}, fmt.Errorf("unexpected job handle type %T", handle)
	}

	op, err = client.Operations.GetVideosOperation(ctx, op, nil)
	if err != nil {
		return nil, video.Status{}, err
	}
	return op, operationStatus(op), nil
}

func operationStatus(op *genai.GenerateVideosOperation) video.Status {
	status := video.Status{Done: op.Done}
	if op.Response != nil && len(op.Response.GeneratedVideos) > 0 {
		if v := op.Response.GeneratedVideos[0].Video; v != nil {
			status.AssetURI = v.URI
		}
	}
	return status
}
