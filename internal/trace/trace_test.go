package trace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGenerateTraceID(t *testing.T) {
	id := generateTraceID()
	if len(id) != 32 {
		t.Errorf("trace ID should be 32 chars, got %d", len(id))
	}
}

func TestGenerateSpanID(t *testing.T) {
	id := generateSpanID()
	if len(id) != 16 {
		t.Errorf("span ID should be 16 chars, got %d", len(id))
	}
}

func TestIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := generateTraceID()
		if seen[id] {
			t.Error("generated duplicate trace ID")
		}
		seen[id] = true
	}
}

func TestNewChild(t *testing.T) {
	parent := New()
	child := NewChild(parent)

	if child.TraceID != parent.TraceID {
		t.Error("child should share trace ID with parent")
	}
	if child.SpanID == parent.SpanID {
		t.Error("child should have its own span ID")
	}
	if child.ParentSpanID != parent.SpanID {
		t.Error("child's parent span should be parent's span")
	}
}

func TestContextRoundTrip(t *testing.T) {
	tc := New()
	ctx := WithContext(context.Background(), tc)

	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("trace context not found")
	}
	if got.TraceID != tc.TraceID || got.SpanID != tc.SpanID {
		t.Error("trace context changed in round trip")
	}
}

func TestEnsureContext(t *testing.T) {
	ctx, tc := EnsureContext(context.Background())
	if tc.TraceID == "" {
		t.Error("EnsureContext should create a trace ID")
	}

	ctx2, tc2 := EnsureContext(ctx)
	if ctx2 != ctx || tc2.TraceID != tc.TraceID {
		t.Error("EnsureContext should reuse existing context")
	}
}

func TestMiddleware(t *testing.T) {
	var got Context
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", http.NoBody)
	req.Header.Set(TraceIDKey, "abc123")
	req.Header.Set(SpanIDKey, "parent-span")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got.TraceID != "abc123" {
		t.Errorf("TraceID = %q, want %q", got.TraceID, "abc123")
	}
	if got.ParentSpanID != "parent-span" {
		t.Errorf("ParentSpanID = %q, want caller's span", got.ParentSpanID)
	}

	// Without headers a fresh trace is created.
	req = httptest.NewRequest("GET", "/", http.NoBody)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if got.TraceID == "" {
		t.Error("middleware should create a trace ID when none supplied")
	}
}

func TestInject(t *testing.T) {
	tc := New()
	req := httptest.NewRequest("POST", "/", http.NoBody)
	Inject(req, tc)

	if req.Header.Get(TraceIDKey) != tc.TraceID {
		t.Error("trace ID not injected")
	}
	if req.Header.Get(SpanIDKey) != tc.SpanID {
		t.Error("span ID not injected")
	}
}

func TestExtractFromJSON(t *testing.T) {
	tc, ok := ExtractFromJSON([]byte(`{"type":"observe","trace_id":"deadbeef"}`))
	if !ok || tc.TraceID != "deadbeef" {
		t.Errorf("ExtractFromJSON = (%+v, %v)", tc, ok)
	}

	tc, ok = ExtractFromJSON([]byte(`{"type":"observe"}`))
	if ok {
		t.Error("missing trace_id should report not found")
	}
	if tc.TraceID == "" {
		t.Error("a fresh trace should still be returned")
	}

	if _, ok := ExtractFromJSON([]byte(`not json`)); ok {
		t.Error("invalid JSON should report not found")
	}
}
