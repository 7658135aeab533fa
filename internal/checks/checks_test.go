package checks

import (
	"testing"
	"time"

	"github.com/volleyhq/volley/internal/httpx"
	"github.com/volleyhq/volley/internal/metrics"
	"github.com/volleyhq/volley/pkg/jsonschema"
)

type fakeRecorder struct {
	outcomes map[string]bool
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{outcomes: make(map[string]bool)}
}

func (f *fakeRecorder) RecordCheck(label string, passed bool) {
	f.outcomes[label] = passed
}

func jsonResponse(status int, body string, d time.Duration) *httpx.Response {
	return &httpx.Response{
		StatusCode: status,
		Body:       []byte(body),
		Duration:   d,
	}
}

func TestRunAggregatesAndRecordsEveryCheck(t *testing.T) {
	resp := jsonResponse(200, `{"ok":true}`, 50*time.Millisecond)
	rec := newFakeRecorder()

	ok := Run(resp, rec,
		StatusIs(200),
		ResponseTimeUnder(100*time.Millisecond),
		StatusIs(201),
	)

	if ok {
		t.Error("expected aggregate failure when one check fails")
	}
	if len(rec.outcomes) != 3 {
		t.Errorf("expected all 3 checks recorded, got %d", len(rec.outcomes))
	}
	if !rec.outcomes["status is 200"] {
		t.Error("expected 'status is 200' to pass")
	}
	if rec.outcomes["status is 201"] {
		t.Error("expected 'status is 201' to fail")
	}
}

func TestRunWithNilRecorder(t *testing.T) {
	resp := jsonResponse(200, `{}`, time.Millisecond)
	if !Run(resp, nil, StatusIs(200)) {
		t.Error("expected pass with nil recorder")
	}
}

func TestStatusBetween(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{199, false},
		{200, true},
		{204, true},
		{299, true},
		{300, false},
	}
	check := StatusBetween(200, 299)
	for _, tt := range tests {
		resp := jsonResponse(tt.status, `{}`, time.Millisecond)
		if got := check.Fn(resp); got != tt.want {
			t.Errorf("StatusBetween(200,299) on %d = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestBodyChecks(t *testing.T) {
	empty := jsonResponse(200, "", time.Millisecond)
	if BodyNotEmpty().Fn(empty) {
		t.Error("BodyNotEmpty passed on empty body")
	}
	if BodyIsJSON().Fn(jsonResponse(200, "<html>oops</html>", time.Millisecond)) {
		t.Error("BodyIsJSON passed on HTML body")
	}
	if !BodyIsJSON().Fn(jsonResponse(200, `{"a":[1,2,3]}`, time.Millisecond)) {
		t.Error("BodyIsJSON failed on valid JSON")
	}
}

func TestFieldChecks(t *testing.T) {
	resp := jsonResponse(200, `{"user":{"id":42,"name":"ada"},"items":[{"sku":"x1"}]}`, time.Millisecond)

	if !FieldEquals("user.name", "ada").Fn(resp) {
		t.Error("FieldEquals failed on present matching field")
	}
	if FieldEquals("user.name", "bob").Fn(resp) {
		t.Error("FieldEquals passed on mismatched value")
	}
	if FieldEquals("user.missing.deep", "x").Fn(resp) {
		t.Error("FieldEquals passed on missing intermediate key")
	}
	if !FieldEquals("items.0.sku", "x1").Fn(resp) {
		t.Error("FieldEquals failed on array index path")
	}
	if !FieldPresent("user.id").Fn(resp) {
		t.Error("FieldPresent failed on present field")
	}
	if FieldPresent("user.email").Fn(resp) {
		t.Error("FieldPresent passed on absent field")
	}
}

func TestHeaderChecks(t *testing.T) {
	resp := jsonResponse(200, `{}`, time.Millisecond)
	resp.Headers = map[string][]string{"Content-Type": {"application/json"}}

	if !HeaderPresent("Content-Type").Fn(resp) {
		t.Error("HeaderPresent failed on present header")
	}
	if HeaderPresent("X-Request-Id").Fn(resp) {
		t.Error("HeaderPresent passed on absent header")
	}
	if !HeaderEquals("Content-Type", "application/json").Fn(resp) {
		t.Error("HeaderEquals failed on matching header")
	}
	if HeaderEquals("Content-Type", "text/html").Fn(resp) {
		t.Error("HeaderEquals passed on mismatched header")
	}
}

func TestBodyMatchesSchema(t *testing.T) {
	schema, err := jsonschema.Compile(`{
		"type": "object",
		"required": ["id", "name"],
		"properties": {
			"id": {"type": "integer"},
			"name": {"type": "string"}
		}
	}`)
	if err != nil {
		t.Fatalf("compile schema: %v", err)
	}

	check := BodyMatchesSchema("user", schema)
	if !check.Fn(jsonResponse(200, `{"id":1,"name":"ada"}`, time.Millisecond)) {
		t.Error("schema check failed on conforming body")
	}
	if check.Fn(jsonResponse(200, `{"id":"not-a-number"}`, time.Millisecond)) {
		t.Error("schema check passed on non-conforming body")
	}
}

func TestGetSuccessHappyPath(t *testing.T) {
	resp := jsonResponse(200, `{"ok":true}`, 50*time.Millisecond)
	if !GetSuccess(resp, newFakeRecorder(), 500*time.Millisecond) {
		t.Error("expected GetSuccess on fast 200 with JSON body")
	}
}

func TestGetSuccessFailsOnSlow200(t *testing.T) {
	resp := jsonResponse(200, `{"ok":true}`, 2*time.Second)
	if GetSuccess(resp, newFakeRecorder(), 500*time.Millisecond) {
		t.Error("expected GetSuccess to fail when response time exceeds ceiling")
	}
}

func TestGetSuccessFailsOnNonJSON200(t *testing.T) {
	resp := jsonResponse(200, "plain text", 50*time.Millisecond)
	if GetSuccess(resp, newFakeRecorder(), 500*time.Millisecond) {
		t.Error("expected GetSuccess to fail when 200 body is not JSON")
	}
}

func TestAPISuccess(t *testing.T) {
	ceiling := 500 * time.Millisecond

	if !APISuccess(jsonResponse(201, `{"id":7}`, 30*time.Millisecond), newFakeRecorder(), ceiling) {
		t.Error("expected APISuccess on fast 201 with JSON body")
	}
	if APISuccess(jsonResponse(204, "", 30*time.Millisecond), newFakeRecorder(), ceiling) {
		t.Error("expected APISuccess to fail on empty body")
	}
	if APISuccess(jsonResponse(500, `{"error":"boom"}`, 30*time.Millisecond), newFakeRecorder(), ceiling) {
		t.Error("expected APISuccess to fail on 5xx")
	}
}

func TestChecksFeedMetricsRegistry(t *testing.T) {
	reg := metrics.NewRegistry()
	resp := jsonResponse(200, `{"ok":true}`, 50*time.Millisecond)

	GetSuccess(resp, reg, 500*time.Millisecond)
	GetSuccess(resp, reg, 500*time.Millisecond)
	GetSuccess(jsonResponse(503, "oops", 50*time.Millisecond), reg, 500*time.Millisecond)

	snap := reg.Snapshot()
	status := snap.Checks["status is 200"]
	if status.Passes != 2 || status.Fails != 1 {
		t.Errorf("status check counts = %d/%d, want 2 passes 1 fail", status.Passes, status.Fails)
	}
	if got := status.PassRate(); got < 0.66 || got > 0.67 {
		t.Errorf("pass rate = %v, want ~0.667", got)
	}
}
