package vat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	POSTWithHeaders(path string, body interface{}, headers map[string]string) error
	GetResponseField(field string) (interface{}, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers VAT check and batch step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &vatSteps{tc: tc}

	ctx.Step(`^I check country "([^"]*)" number "([^"]*)"$`, steps.checkOne)
	ctx.Step(`^I submit the batch:$`, steps.submitBatch)
	ctx.Step(`^I submit the batch as a stream:$`, steps.streamBatch)
	ctx.Step(`^the batch should have (\d+) results?$`, steps.resultCount)
	ctx.Step(`^result (\d+) should have status "([^"]*)"$`, steps.resultStatus)
	ctx.Step(`^result (\d+) should be a duplicate$`, steps.resultDuplicate)
	ctx.Step(`^the skipped identifiers should be "([^"]*)"$`, steps.skippedShouldBe)
	ctx.Step(`^the stream should contain (\d+) rows?$`, steps.streamRowCount)
	ctx.Step(`^the stream summary "([^"]*)" should be "([^"]*)"$`, steps.streamSummaryField)
}

type vatSteps struct {
	tc TestContext
}

type streamLine struct {
	Type    string                 `json:"type"`
	Row     map[string]interface{} `json:"row"`
	Summary map[string]interface{} `json:"summary"`
	Error   string                 `json:"error"`
}

func (s *vatSteps) checkOne(ctx context.Context, country, number string) error {
	return s.tc.POST("/vat/check", map[string]string{"country": country, "number": number})
}

func (s *vatSteps) submitBatch(ctx context.Context, doc *godog.DocString) error {
	return s.tc.POST("/vat/batch", map[string]string{"text": doc.Content})
}

func (s *vatSteps) streamBatch(ctx context.Context, doc *godog.DocString) error {
	return s.tc.POSTWithHeaders("/vat/batch", map[string]string{"text": doc.Content},
		map[string]string{"Accept": "application/x-ndjson"})
}

func (s *vatSteps) resultCount(ctx context.Context, want int) error {
	v, err := s.tc.GetResponseField("results")
	if err != nil {
		if want == 0 {
			return nil
		}
		return err
	}
	rows, ok := v.([]interface{})
	if !ok {
		return fmt.Errorf("results is not a list")
	}
	if len(rows) != want {
		return fmt.Errorf("expected %d results, got %d", want, len(rows))
	}
	return nil
}

func (s *vatSteps) resultStatus(ctx context.Context, n int, want string) error {
	v, err := s.tc.GetResponseField(fmt.Sprintf("results.%d.status", n-1))
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != want {
		return fmt.Errorf("result %d: expected status %q, got %q", n, want, got)
	}
	return nil
}

func (s *vatSteps) resultDuplicate(ctx context.Context, n int) error {
	v, err := s.tc.GetResponseField(fmt.Sprintf("results.%d.duplicate", n-1))
	if err != nil {
		return err
	}
	if v != true {
		return fmt.Errorf("result %d is not marked duplicate", n)
	}
	return nil
}

func (s *vatSteps) skippedShouldBe(ctx context.Context, want string) error {
	v, err := s.tc.GetResponseField("skipped")
	if err != nil {
		return err
	}
	list, _ := v.([]interface{})
	got := make([]string, 0, len(list))
	for _, item := range list {
		got = append(got, fmt.Sprint(item))
	}
	if strings.Join(got, ",") != want {
		return fmt.Errorf("expected skipped %q, got %q", want, strings.Join(got, ","))
	}
	return nil
}

func (s *vatSteps) lines() ([]streamLine, error) {
	var out []streamLine
	sc := bufio.NewScanner(bytes.NewReader(s.tc.GetLastResponseBody()))
	for sc.Scan() {
		if len(bytes.TrimSpace(sc.Bytes())) == 0 {
			continue
		}
		var line streamLine
		if err := json.Unmarshal(sc.Bytes(), &line); err != nil {
			return nil, fmt.Errorf("bad NDJSON line %q: %w", sc.Text(), err)
		}
		out = append(out, line)
	}
	return out, sc.Err()
}

func (s *vatSteps) streamRowCount(ctx context.Context, want int) error {
	lines, err := s.lines()
	if err != nil {
		return err
	}
	rows := 0
	for _, l := range lines {
		if l.Type == "row" {
			rows++
		}
	}
	if rows != want {
		return fmt.Errorf("expected %d streamed rows, got %d", want, rows)
	}
	return nil
}

func (s *vatSteps) streamSummaryField(ctx context.Context, field, want string) error {
	lines, err := s.lines()
	if err != nil {
		return err
	}
	for _, l := range lines {
		if l.Type != "summary" {
			continue
		}
		if got := fmt.Sprint(l.Summary[field]); got != want {
			return fmt.Errorf("summary %s: expected %q, got %q", field, want, got)
		}
		return nil
	}
	return fmt.Errorf("stream has no summary line")
}
