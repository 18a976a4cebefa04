package gateway

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/abdul34602/novaaipro1/internal/activity"
	"github.com/abdul34602/novaaipro1/internal/config"
	"github.com/abdul34602/novaaipro1/internal/storage"
	"github.com/abdul34602/novaaipro1/internal/video"
)

// recordingSink captures activity records for assertions.
type recordingSink struct {
	records []record
}

type record struct {
	feature string
	prompt  string
	status  int
}

func (r *recordingSink) Record(feature, prompt string, status int) {
	r.records = append(r.records, record{feature, prompt, status})
}

// scriptedBackend yields canned poll outcomes.
type scriptedBackend struct {
	submitStatus video.Status
	submitErr    error
	polls        []video.Status
	pollCalls    int
}

func (s *scriptedBackend) Submit(ctx context.Context, prompt string, cfg video.JobConfig) (video.Handle, video.Status, error) {
	return "h", s.submitStatus, s.submitErr
}

func (s *scriptedBackend) Poll(ctx context.Context, handle video.Handle) (video.Handle, video.Status, error) {
	status := s.polls[s.pollCalls]
	s.pollCalls++
	return handle, status, nil
}

func testConfig() *config.Config {
	return &config.Config{
		ChatModel:    config.DefaultChatModel,
		VideoModel:   config.DefaultVideoModel,
		APIKey:       "test-credential",
		PollInterval: time.Millisecond,
	}
}

func newTestGateway(backend video.Backend, maintenance bool) (*Gateway, *recordingSink) {
	cfg := testConfig()
	cfg.Maintenance = maintenance
	sink := &recordingSink{}
	gw := New(cfg, config.NewSettingsStore(cfg), sink, WithVideoBackend(backend))
	return gw, sink
}

func TestSynthesizeVideoAppendsCredential(t *testing.T) {
	backend := &scriptedBackend{
		polls: []video.Status{
			{Done: false},
			{Done: true, AssetURI: "https://provider/asset123"},
		},
	}
	gw, sink := newTestGateway(backend, false)

	url, err := gw.SynthesizeVideo(context.Background(), "a city at night", "9:16")
	require.NoError(t, err)
	assert.Equal(t, "https://provider/asset123&key=test-credential", url)
	assert.Equal(t, 2, backend.pollCalls)

	require.Len(t, sink.records, 1)
	assert.Equal(t, activity.FeatureVideo, sink.records[0].feature)
	assert.Equal(t, 200, sink.records[0].status)
}

func TestSynthesizeVideoNoAsset(t *testing.T) {
	backend := &scriptedBackend{
		polls: []video.Status{{Done: true}},
	}
	gw, sink := newTestGateway(backend, false)

	_, err := gw.SynthesizeVideo(context.Background(), "p", "16:9")
	assert.ErrorIs(t, err, video.ErrNoAsset)

	require.Len(t, sink.records, 2)
	assert.Equal(t, 200, sink.records[0].status)
	assert.Equal(t, 500, sink.records[1].status)
}

func TestSynthesizeVideoMaintenanceRefusal(t *testing.T) {
	backend := &scriptedBackend{}
	gw, sink := newTestGateway(backend, true)

	_, err := gw.SynthesizeVideo(context.Background(), "p", "16:9")
	assert.ErrorIs(t, err, ErrMaintenance)
	assert.Equal(t, 0, backend.pollCalls)

	require.Len(t, sink.records, 1)
	assert.Equal(t, activity.FeatureVideo, sink.records[0].feature)
	assert.Equal(t, 503, sink.records[0].status)
}

func TestSynthesizeVideoMaintenanceLiftedAtRuntime(t *testing.T) {
	backend := &scriptedBackend{
		submitStatus: video.Status{Done: true, AssetURI: "https://provider/v"},
	}
	cfg := testConfig()
	cfg.Maintenance = true
	settings := config.NewSettingsStore(cfg)
	gw := New(cfg, settings, &recordingSink{}, WithVideoBackend(backend))

	_, err := gw.SynthesizeVideo(context.Background(), "p", "16:9")
	require.ErrorIs(t, err, ErrMaintenance)

	off := false
	settings.Apply(config.SettingsUpdate{Maintenance: &off})

	url, err := gw.SynthesizeVideo(context.Background(), "p", "16:9")
	require.NoError(t, err)
	assert.Equal(t, "https://provider/v&key=test-credential", url)
}

func TestBuildGenerationConfigTuning(t *testing.T) {
	cfg := buildGenerationConfig("default", "be helpful")
	require.NotNil(t, cfg.Temperature)
	assert.Equal(t, float32(0.4), *cfg.Temperature)
	assert.Equal(t, float32(0.95), *cfg.TopP)
	require.NotNil(t, cfg.ThinkingConfig)
	assert.Equal(t, int32(12000), *cfg.ThinkingConfig.ThinkingBudget)
	require.NotNil(t, cfg.SystemInstruction)

	creative := buildGenerationConfig("roast-master", "")
	assert.Equal(t, float32(0.8), *creative.Temperature)
	assert.Equal(t, int32(0), *creative.ThinkingConfig.ThinkingBudget)
	assert.Nil(t, creative.SystemInstruction)
}

func TestBuildContentsRolesAndAttachments(t *testing.T) {
	req := CompletionRequest{
		History: []storage.Message{
			{Role: storage.RoleUser, Content: "hi"},
			{Role: storage.RoleAssistant, Content: "hello"},
		},
		Text: "analyze this",
		Attachments: []storage.Attachment{
			{Name: "note.txt", MimeType: "text/plain", Payload: "data:text/plain;base64,aGVsbG8="},
		},
	}

	contents, err := buildContents(req)
	require.NoError(t, err)
	require.Len(t, contents, 3)

	assert.Equal(t, "user", string(contents[0].Role))
	assert.Equal(t, "model", string(contents[1].Role))
	assert.Equal(t, "user", string(contents[2].Role))

	require.Len(t, contents[2].Parts, 2)
	assert.Equal(t, "analyze this", contents[2].Parts[0].Text)
	require.NotNil(t, contents[2].Parts[1].InlineData)
	assert.Equal(t, "text/plain", contents[2].Parts[1].InlineData.MIMEType)
	assert.Equal(t, []byte("hello"), contents[2].Parts[1].InlineData.Data)
}

func TestDecodePayload(t *testing.T) {
	att := storage.Attachment{MimeType: "image/png", Payload: "data:image/png;base64,AQID"}

	blob, err := decodePayload(att)
	require.NoError(t, err)
	assert.Equal(t, "image/png", blob.MIMEType)
	assert.Equal(t, []byte{1, 2, 3}, blob.Data)
}

func TestDecodePayloadRawBase64(t *testing.T) {
	att := storage.Attachment{Payload: "AQID"}

	blob, err := decodePayload(att)
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", blob.MIMEType)
	assert.Equal(t, []byte{1, 2, 3}, blob.Data)
}

func TestDecodePayloadMalformed(t *testing.T) {
	_, err := decodePayload(storage.Attachment{Payload: "data:text/plain"})
	assert.Error(t, err)

	_, err = decodePayload(storage.Attachment{Payload: "!!not-base64!!"})
	assert.Error(t, err)
}

// collect drains a stream into its concatenated text or first error.
func collect(stream Stream) (string, error) {
	var sb strings.Builder
	for chunk := range stream {
		switch c := chunk.(type) {
		case TextChunk:
			sb.WriteString(c.Text)
		case ErrorChunk:
			return "", c.Err
		}
	}
	return sb.String(), nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: text}}}},
		},
	}
}

func TestPumpDeliversFragmentsInOrder(t *testing.T) {
	gw, _ := newTestGateway(&scriptedBackend{}, false)

	ch := make(chan StreamChunk, 8)
	go gw.pump(context.Background(), "Hello", func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, text := range []string{"He", "llo", " there!"} {
			if !yield(textResponse(text), nil) {
				return
			}
		}
	}, ch)

	text, err := collect(ch)
	require.NoError(t, err)
	assert.Equal(t, "Hello there!", text)
}

func TestPumpSurfacesStreamError(t *testing.T) {
	gw, sink := newTestGateway(&scriptedBackend{}, false)

	ch := make(chan StreamChunk, 1)
	go gw.pump(context.Background(), "p", func(yield func(*genai.GenerateContentResponse, error) bool) {
		yield(nil, errors.New("connection reset"))
	}, ch)

	_, err := collect(ch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	require.Len(t, sink.records, 1)
	assert.Equal(t, 500, sink.records[0].status)
}

func TestPumpAbandonsTailOnContextCancel(t *testing.T) {
	gw, _ := newTestGateway(&scriptedBackend{}, false)
	ctx, cancel := context.WithCancel(context.Background())

	// An endless stream: without the context check the pump would block
	// forever on the full buffer once the consumer walks away.
	ch := make(chan StreamChunk, 4)
	go gw.pump(ctx, "p", func(yield func(*genai.GenerateContentResponse, error) bool) {
		for {
			if !yield(textResponse("x"), nil) {
				return
			}
		}
	}, ch)

	<-ch
	<-ch
	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, open := <-ch:
			return !open
		default:
			return false
		}
	}, time.Second, time.Millisecond)
}

func TestEnsureClientConcurrentTurns(t *testing.T) {
	gw, _ := newTestGateway(&scriptedBackend{}, false)

	var wg sync.WaitGroup
	clients := make([]*genai.Client, 8)
	for i := range clients {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			client, err := gw.ensureClient(context.Background())
			assert.NoError(t, err)
			clients[i] = client
		}(i)
	}
	wg.Wait()

	for _, client := range clients {
		assert.Same(t, clients[0], client)
	}
}

func TestEnsureClientRebuiltOnCredentialRotation(t *testing.T) {
	cfg := testConfig()
	settings := config.NewSettingsStore(cfg)
	gw := New(cfg, settings, &recordingSink{}, WithVideoBackend(&scriptedBackend{}))

	first, err := gw.ensureClient(context.Background())
	require.NoError(t, err)

	again, err := gw.ensureClient(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, again)

	rotated := "rotated-credential"
	settings.Apply(config.SettingsUpdate{GeminiAPIKey: &rotated})

	rebuilt, err := gw.ensureClient(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, first, rebuilt)
}
