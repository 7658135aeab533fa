// Package checks provides named boolean predicates evaluated against HTTP
// responses. Every predicate carries a human-readable label; composite
// checks bundle several predicates, report the aggregate verdict, and
// still record each individual outcome under its own label.
package checks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/volleyhq/volley/internal/httpx"
	"github.com/volleyhq/volley/pkg/fieldpath"
	"github.com/volleyhq/volley/pkg/jsonschema"
)

// Recorder receives per-label pass/fail outcomes. metrics.Registry
// satisfies this; tests use in-memory fakes.
type Recorder interface {
	RecordCheck(label string, passed bool)
}

// Check is a labeled predicate over a response.
type Check struct {
	Label string
	Fn    func(*httpx.Response) bool
}

// Run evaluates every check against the response, records each outcome
// under its label, and returns the logical AND. All checks run even after
// a failure so the per-label counts stay complete.
func Run(resp *httpx.Response, rec Recorder, checks ...Check) bool {
	all := true
	for _, check := range checks {
		passed := check.Fn(resp)
		if rec != nil {
			rec.RecordCheck(check.Label, passed)
		}
		if !passed {
			all = false
		}
	}
	return all
}

// StatusIs passes when the status code matches exactly.
func StatusIs(code int) Check {
	return Check{
		Label: fmt.Sprintf("status is %d", code),
		Fn: func(resp *httpx.Response) bool {
			return resp.StatusCode == code
		},
	}
}

// StatusBetween passes when lo <= status <= hi.
func StatusBetween(lo, hi int) Check {
	return Check{
		Label: fmt.Sprintf("status in %d..%d", lo, hi),
		Fn: func(resp *httpx.Response) bool {
			return resp.StatusCode >= lo && resp.StatusCode <= hi
		},
	}
}

// ResponseTimeUnder passes when the total duration is below the ceiling.
func ResponseTimeUnder(ceiling time.Duration) Check {
	return Check{
		Label: fmt.Sprintf("response time < %s", ceiling),
		Fn: func(resp *httpx.Response) bool {
			return resp.Duration < ceiling
		},
	}
}

// BodyNotEmpty passes when the body has at least one byte.
func BodyNotEmpty() Check {
	return Check{
		Label: "body is not empty",
		Fn: func(resp *httpx.Response) bool {
			return len(resp.Body) > 0
		},
	}
}

// BodyIsJSON passes when the body parses as JSON.
func BodyIsJSON() Check {
	return Check{
		Label: "body is valid JSON",
		Fn: func(resp *httpx.Response) bool {
			return json.Valid(resp.Body)
		},
	}
}

// FieldEquals passes when the dot-separated path resolves and its string
// rendering equals want. A missing intermediate key fails the check
// rather than raising an error.
func FieldEquals(path, want string) Check {
	return Check{
		Label: fmt.Sprintf("body field %s == %s", path, want),
		Fn: func(resp *httpx.Response) bool {
			return fieldpath.Lookup(resp.Body, path).Equals(want)
		},
	}
}

// FieldPresent passes when the dot-separated path resolves.
func FieldPresent(path string) Check {
	return Check{
		Label: fmt.Sprintf("body field %s present", path),
		Fn: func(resp *httpx.Response) bool {
			return fieldpath.Lookup(resp.Body, path).Present()
		},
	}
}

// HeaderPresent passes when the named header has a value.
func HeaderPresent(name string) Check {
	return Check{
		Label: fmt.Sprintf("header %s present", name),
		Fn: func(resp *httpx.Response) bool {
			return resp.GetHeader(name) != ""
		},
	}
}

// HeaderEquals passes when the named header equals want.
func HeaderEquals(name, want string) Check {
	return Check{
		Label: fmt.Sprintf("header %s == %s", name, want),
		Fn: func(resp *httpx.Response) bool {
			return resp.GetHeader(name) == want
		},
	}
}

// BodyMatchesSchema passes when the body conforms to the compiled schema.
func BodyMatchesSchema(name string, schema *jsonschema.Schema) Check {
	return Check{
		Label: fmt.Sprintf("body matches schema %s", name),
		Fn: func(resp *httpx.Response) bool {
			return schema.Valid(resp.Body)
		},
	}
}

// GetSuccess is the composite for a successful GET: exact 200, response
// time under the ceiling, and a JSON body. A 200 that is slow or carries
// an unparseable body fails the composite.
func GetSuccess(resp *httpx.Response, rec Recorder, ceiling time.Duration) bool {
	return Run(resp, rec,
		StatusIs(200),
		ResponseTimeUnder(ceiling),
		BodyIsJSON(),
	)
}

// APISuccess is the broader composite for any API call: 2xx status,
// response time under the ceiling, and a non-empty JSON body.
func APISuccess(resp *httpx.Response, rec Recorder, ceiling time.Duration) bool {
	return Run(resp, rec,
		StatusBetween(200, 299),
		ResponseTimeUnder(ceiling),
		BodyNotEmpty(),
		BodyIsJSON(),
	)
}
