package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kapu/vn-en-translate-go/internal/domain"
	"github.com/kapu/vn-en-translate-go/internal/util"
	apperrors "github.com/kapu/vn-en-translate-go/pkg/errors"
	"go.uber.org/zap"
)

type fakeTranslator struct {
	mu          sync.Mutex
	requests    []domain.SelectionRequest
	interactive int
	delay       time.Duration
	err         error
	inFlight    int32
	maxSeen     int32
}

func (f *fakeTranslator) TranslateRequest(ctx context.Context, req domain.SelectionRequest) (string, error) {
	return f.translate(ctx, req, false)
}

func (f *fakeTranslator) TranslateInteractive(ctx context.Context, req domain.SelectionRequest) (string, error) {
	return f.translate(ctx, req, true)
}

func (f *fakeTranslator) interactiveCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.interactive
}

func (f *fakeTranslator) translate(ctx context.Context, req domain.SelectionRequest, interactive bool) (string, error) {
	current := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		seen := atomic.LoadInt32(&f.maxSeen)
		if current <= seen || atomic.CompareAndSwapInt32(&f.maxSeen, seen, current) {
			break
		}
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	if interactive {
		f.interactive++
	}
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return "translated: " + req.Text, nil
}

type fakeStatus struct {
	status    util.CircuitBreakerStatus
	reachable bool
	pings     int32
}

func (f *fakeStatus) GetCircuitStatus() util.CircuitBreakerStatus {
	return f.status
}

func (f *fakeStatus) Ping(ctx context.Context) bool {
	atomic.AddInt32(&f.pings, 1)
	return f.reachable
}

func newTestServer(t *testing.T, translator Translator, status StatusReporter, mutate func(*ServerOptions)) (*Server, *httptest.Server) {
	t.Helper()
	options := DefaultServerOptions()
	if mutate != nil {
		mutate(&options)
	}
	server := NewServer(translator, status, options, zap.NewNop())
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(func() {
		_ = server.Shutdown(context.Background())
		ts.Close()
	})
	return server, ts
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func TestHandleSuccess(t *testing.T) {
	translator := &fakeTranslator{}
	server := NewServer(translator, nil, DefaultServerOptions(), zap.NewNop())

	resp := server.Handle(context.Background(), domain.Message{
		ID:             "req-1",
		Action:         domain.ActionTranslate,
		Text:           "xin chào",
		SourceLanguage: domain.LanguageVietnamese,
		TargetLanguage: domain.LanguageEnglish,
	})

	if resp.ID != "req-1" {
		t.Fatalf("expected id to be echoed, got %q", resp.ID)
	}
	if resp.Translation != "translated: xin chào" || resp.Error != "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestHandleHidesFailureDetail(t *testing.T) {
	translator := &fakeTranslator{
		err: apperrors.NewTranslationError("model call failed", "vi", "en", fmt.Errorf("secret upstream detail")),
	}
	server := NewServer(translator, nil, DefaultServerOptions(), zap.NewNop())

	resp := server.Handle(context.Background(), domain.Message{
		Action:         domain.ActionTranslateContextMenu,
		Text:           "xin chào",
		SourceLanguage: domain.LanguageVietnamese,
		TargetLanguage: domain.LanguageEnglish,
	})

	if resp.Error != "Translation failed" {
		t.Fatalf("expected generic error, got %q", resp.Error)
	}
	if resp.Translation != "" {
		t.Fatalf("expected no translation, got %q", resp.Translation)
	}
}

func TestHandleRejectsUnknownAction(t *testing.T) {
	translator := &fakeTranslator{}
	server := NewServer(translator, nil, DefaultServerOptions(), zap.NewNop())

	resp := server.Handle(context.Background(), domain.Message{Action: "summarize", Text: "hello"})
	if resp.Error != "Translation failed" {
		t.Fatalf("expected error for unknown action, got %+v", resp)
	}
	if len(translator.requests) != 0 {
		t.Fatal("translator must not be called for unknown actions")
	}
}

func TestHandleAppliesRequestTimeout(t *testing.T) {
	translator := &fakeTranslator{delay: time.Second}
	options := DefaultServerOptions()
	options.RequestTimeout = 20 * time.Millisecond
	server := NewServer(translator, nil, options, zap.NewNop())

	start := time.Now()
	resp := server.Handle(context.Background(), domain.Message{
		Action:         domain.ActionTranslate,
		Text:           "hello",
		SourceLanguage: domain.LanguageEnglish,
		TargetLanguage: domain.LanguageVietnamese,
	})

	if resp.Error == "" {
		t.Fatal("expected timeout to produce an error response")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatalf("request outlived its deadline: %v", time.Since(start))
	}
}

func TestPostTranslate(t *testing.T) {
	_, ts := newTestServer(t, &fakeTranslator{}, nil, nil)

	client := NewClient(ts.URL, 5*time.Second, zap.NewNop())
	result, err := client.Translate(context.Background(), domain.SelectionRequest{
		Text:           "hello",
		SourceLanguage: domain.LanguageEnglish,
		TargetLanguage: domain.LanguageVietnamese,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Succeeded() || result.Translation != "translated: hello" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestPostTranslateFailure(t *testing.T) {
	_, ts := newTestServer(t, &fakeTranslator{err: fmt.Errorf("boom")}, nil, nil)

	resp, err := http.Post(ts.URL+"/translate", "application/json",
		strings.NewReader(`{"text":"hello","sourceLanguage":"en","targetLanguage":"vi"}`))
	if err != nil {
		t.Fatalf("post failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if body["error"] != "Translation failed" {
		t.Fatalf("unexpected body: %v", body)
	}
	if _, ok := body["translation"]; ok {
		t.Fatalf("failure body must not carry a translation: %v", body)
	}

	client := NewClient(ts.URL, 5*time.Second, zap.NewNop())
	result, err := client.Translate(context.Background(), domain.SelectionRequest{
		Text:           "hello",
		SourceLanguage: domain.LanguageEnglish,
		TargetLanguage: domain.LanguageVietnamese,
	})
	if err != nil {
		t.Fatalf("relay failures should come back as results, got %v", err)
	}
	if result.Succeeded() || result.Error != "Translation failed" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestHealthReportsCircuit(t *testing.T) {
	status := &fakeStatus{status: util.CircuitBreakerStatus{State: util.CircuitStateOpen, ConsecutiveFailures: 3}}
	_, ts := newTestServer(t, &fakeTranslator{}, status, nil)

	client := NewClient(ts.URL, 5*time.Second, zap.NewNop())
	health, err := client.Health(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if health.Status != "degraded" || health.Circuit != util.CircuitStateOpen || health.ConsecutiveFailures != 3 {
		t.Fatalf("unexpected health: %+v", health)
	}
	if !client.Ping(context.Background()) {
		t.Fatal("expected ping to succeed")
	}
	if health.Upstream != nil || atomic.LoadInt32(&status.pings) != 0 {
		t.Fatal("plain health check must not ping the model service")
	}
}

func TestDeepHealthPingsModelService(t *testing.T) {
	tests := []struct {
		name       string
		reachable  bool
		wantStatus string
	}{
		{"reachable", true, "ok"},
		{"unreachable", false, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := &fakeStatus{
				status:    util.CircuitBreakerStatus{State: util.CircuitStateClosed},
				reachable: tt.reachable,
			}
			_, ts := newTestServer(t, &fakeTranslator{}, status, nil)

			resp, err := http.Get(ts.URL + "/healthz?deep=1")
			if err != nil {
				t.Fatalf("get failed: %v", err)
			}
			defer resp.Body.Close()

			var health HealthResponse
			if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if health.Status != tt.wantStatus {
				t.Fatalf("expected status %s, got %s", tt.wantStatus, health.Status)
			}
			if health.Upstream == nil || *health.Upstream != tt.reachable {
				t.Fatalf("unexpected upstream: %v", health.Upstream)
			}
			if atomic.LoadInt32(&status.pings) != 1 {
				t.Fatalf("expected one ping, got %d", status.pings)
			}
		})
	}
}

func TestStartAndShutdownFromDifferentGoroutines(t *testing.T) {
	server := NewServer(&fakeTranslator{}, nil, DefaultServerOptions(), zap.NewNop())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start("127.0.0.1:0")
	}()

	time.Sleep(10 * time.Millisecond)
	if err := server.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("start returned %v after shutdown", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestInteractiveRequestsReachInteractiveTranslation(t *testing.T) {
	translator := &fakeTranslator{}
	_, ts := newTestServer(t, translator, nil, nil)

	req := domain.SelectionRequest{
		Text:           "hello",
		SourceLanguage: domain.LanguageEnglish,
		TargetLanguage: domain.LanguageVietnamese,
	}

	client := NewClient(ts.URL, 5*time.Second, zap.NewNop())
	if _, err := client.Translate(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if translator.interactiveCalls() != 0 {
		t.Fatal("plain requests must use the configured preset")
	}

	client.Interactive = true
	if _, err := client.Translate(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ws := NewWebSocket(wsURL(ts), 0, 10*time.Millisecond, zap.NewNop())
	channel := NewChannel(ws, zap.NewNop())
	channel.Interactive = true
	defer channel.Close()

	if err := ws.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	result, err := channel.Translate(context.Background(), req)
	if err != nil || !result.Succeeded() {
		t.Fatalf("unexpected result: %+v, %v", result, err)
	}

	if got := translator.interactiveCalls(); got != 2 {
		t.Fatalf("expected 2 interactive translations, got %d", got)
	}
}

func TestChannelRoundTrip(t *testing.T) {
	_, ts := newTestServer(t, &fakeTranslator{}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ws := NewWebSocket(wsURL(ts), 0, 10*time.Millisecond, zap.NewNop())
	channel := NewChannel(ws, zap.NewNop())
	defer channel.Close()

	if err := ws.Connect(ctx); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	result, err := channel.Translate(ctx, domain.SelectionRequest{
		Text:           "xin chào",
		SourceLanguage: domain.LanguageVietnamese,
		TargetLanguage: domain.LanguageEnglish,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Translation != "translated: xin chào" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if channel.Pending() != 0 {
		t.Fatalf("expected no pending requests, got %d", channel.Pending())
	}
}

func TestChannelCorrelatesConcurrentRequests(t *testing.T) {
	translator := &fakeTranslator{delay: 20 * time.Millisecond}
	_, ts := newTestServer(t, translator, nil, func(o *ServerOptions) {
		o.MaxConcurrency = 2
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ws := NewWebSocket(wsURL(ts), 0, 10*time.Millisecond, zap.NewNop())
	channel := NewChannel(ws, zap.NewNop())
	defer channel.Close()

	if err := ws.Connect(ctx); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	const total = 6
	var wg sync.WaitGroup
	errs := make(chan error, total)
	for i := 0; i < total; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			text := fmt.Sprintf("hello %d", i)
			result, err := channel.Translate(ctx, domain.SelectionRequest{
				Text:           text,
				SourceLanguage: domain.LanguageEnglish,
				TargetLanguage: domain.LanguageVietnamese,
			})
			if err != nil {
				errs <- err
				return
			}
			if result.Translation != "translated: "+text {
				errs <- fmt.Errorf("request %d got %q", i, result.Translation)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	if peak := atomic.LoadInt32(&translator.maxSeen); peak > 2 {
		t.Fatalf("expected at most 2 concurrent translations, saw %d", peak)
	}
}

func TestChannelFailsPendingWhenConnectionDrops(t *testing.T) {
	server, ts := newTestServer(t, &fakeTranslator{delay: 2 * time.Second}, nil, nil)

	ws := NewWebSocket(wsURL(ts), 0, 10*time.Millisecond, zap.NewNop())
	channel := NewChannel(ws, zap.NewNop())
	defer channel.Close()

	if err := ws.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	time.AfterFunc(50*time.Millisecond, func() {
		_ = server.Shutdown(context.Background())
	})

	start := time.Now()
	result, err := channel.Translate(context.Background(), domain.SelectionRequest{
		Text:           "hello",
		SourceLanguage: domain.LanguageEnglish,
		TargetLanguage: domain.LanguageVietnamese,
	})
	if err != nil {
		t.Fatalf("dropped requests should fail as results, got %v", err)
	}
	if result.Succeeded() || result.Error != "Translation failed" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("pending request outlived the connection: %v", elapsed)
	}
	if channel.Pending() != 0 {
		t.Fatalf("expected no pending requests, got %d", channel.Pending())
	}
	waitForState(t, ws, WSStateFailed)

	ws.connMu.RLock()
	conn := ws.conn
	ws.connMu.RUnlock()
	if conn != nil {
		t.Fatal("failed connection must be closed and released")
	}
}

func TestWebSocketReconnectsAfterDrop(t *testing.T) {
	server, ts := newTestServer(t, &fakeTranslator{}, nil, nil)

	ws := NewWebSocket(wsURL(ts), 3, 10*time.Millisecond, zap.NewNop())
	channel := NewChannel(ws, zap.NewNop())
	defer channel.Close()

	var reconnecting int32
	ws.OnStateChange(func(state WebSocketState) {
		if state == WSStateReconnecting {
			atomic.AddInt32(&reconnecting, 1)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := ws.Connect(ctx); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	if err := server.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&reconnecting) == 0 || !ws.IsConnected() {
		if time.Now().After(deadline) {
			t.Fatalf("socket did not reconnect, state %s", ws.GetState())
		}
		time.Sleep(5 * time.Millisecond)
	}

	result, err := channel.Translate(ctx, domain.SelectionRequest{
		Text:           "hello again",
		SourceLanguage: domain.LanguageEnglish,
		TargetLanguage: domain.LanguageVietnamese,
	})
	if err != nil || result.Translation != "translated: hello again" {
		t.Fatalf("unexpected result after reconnect: %+v, %v", result, err)
	}
}

func waitForState(t *testing.T, ws *WebSocket, want WebSocketState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for ws.GetState() != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected state %s, got %s", want, ws.GetState())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestChannelFailsWhenNotConnected(t *testing.T) {
	ws := NewWebSocket("ws://127.0.0.1:1/ws", 0, time.Millisecond, zap.NewNop())
	channel := NewChannel(ws, zap.NewNop())

	_, err := channel.Translate(context.Background(), domain.SelectionRequest{Text: "hello"})
	if err == nil {
		t.Fatal("expected error while disconnected")
	}
	if channel.Pending() != 0 {
		t.Fatal("failed sends must not leave pending requests")
	}
}

func TestChannelHonoursContext(t *testing.T) {
	_, ts := newTestServer(t, &fakeTranslator{delay: time.Second}, nil, nil)

	ws := NewWebSocket(wsURL(ts), 0, 10*time.Millisecond, zap.NewNop())
	channel := NewChannel(ws, zap.NewNop())
	defer channel.Close()

	if err := ws.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := channel.Translate(ctx, domain.SelectionRequest{
		Text:           "hello",
		SourceLanguage: domain.LanguageEnglish,
		TargetLanguage: domain.LanguageVietnamese,
	})
	if !apperrors.IsTranslation(err) {
		t.Fatalf("expected TranslationError, got %v", err)
	}
}

func TestMalformedMessageGetsErrorReply(t *testing.T) {
	_, ts := newTestServer(t, &fakeTranslator{}, nil, nil)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var resp domain.Response
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if resp.Error != "Translation failed" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}
