package acceptance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cucumber/godog"

	shared "github.com/coursescope/server/pkg"
	"github.com/coursescope/server/pkg/api"
	"github.com/coursescope/server/pkg/bootstrap"
	"github.com/coursescope/server/pkg/domain/analysis"
	"github.com/coursescope/server/pkg/domain/gpx_parser"
	"github.com/coursescope/server/pkg/domain/telemetry"
	"github.com/coursescope/server/pkg/narrative"
	"github.com/coursescope/server/pkg/testing/mocks"
)

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("acceptance scenarios failed")
	}
}

type world struct {
	table *telemetry.Table
	res   *analysis.Result
	err   error

	router   http.Handler
	lastResp *httptest.ResponseRecorder
	uploadID string
}

func initializeScenario(sc *godog.ScenarioContext) {
	w := &world{}

	sc.Step(`^a GPX activity of (\d+) points at ([\d.]+) m/s$`, w.aSteadyActivity)
	sc.Step(`^a GPX activity with a (\d+) second stop halfway$`, w.anActivityWithStop)
	sc.Step(`^a telemetry table whose time runs backwards$`, w.aBackwardsTable)
	sc.Step(`^I analyze the activity$`, w.analyze)
	sc.Step(`^the distance is about ([\d.]+) km$`, w.distanceIsAbout)
	sc.Step(`^the average pace is about ([\d.]+) s/km$`, w.paceIsAbout)
	sc.Step(`^every point is moving$`, w.everyPointMoving)
	sc.Step(`^the pause time is at least (\d+) seconds$`, w.pauseAtLeast)
	sc.Step(`^the longest pause is at least (\d+) seconds$`, w.longestPauseAtLeast)
	sc.Step(`^the analysis fails with rule "([^"]*)"$`, w.failsWithRule)

	sc.Step(`^a running API$`, w.aRunningAPI)
	sc.Step(`^I upload a GPX activity named "([^"]*)"$`, w.uploadGPX)
	sc.Step(`^the upload response status is (\d+)$`, w.responseStatusIs)
	sc.Step(`^the response status is (\d+)$`, w.responseStatusIs)
	sc.Step(`^the activity list has (\d+) entry$`, w.listHasEntries)
	sc.Step(`^requesting the analysis returns engine version "([^"]*)"$`, w.analysisEngineVersion)
	sc.Step(`^I request the activity "([^"]*)"$`, w.requestActivity)
}

// buildGPX renders points one second apart moving north at speed m/s, with
// an optional time gap injected halfway.
func buildGPX(n int, speed float64, gapSeconds int) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">` + "\n")
	b.WriteString("<trk><name>Acceptance Run</name><type>running</type><trkseg>\n")
	start := time.Date(2024, 5, 12, 7, 0, 0, 0, time.UTC)
	offset := 0
	for i := 0; i < n; i++ {
		if gapSeconds > 0 && i == n/2 {
			offset = gapSeconds
		}
		lat := 47.0 + float64(i)*speed/111194.9
		ts := start.Add(time.Duration(i+offset) * time.Second)
		b.WriteString(fmt.Sprintf(
			`<trkpt lat="%.7f" lon="6.0"><ele>120</ele><time>%s</time></trkpt>`+"\n",
			lat, ts.Format(time.RFC3339)))
	}
	b.WriteString("</trkseg></trk></gpx>\n")
	return []byte(b.String())
}

func (w *world) parseGPX(data []byte) error {
	tbl, _, err := gpx_parser.Parse(data)
	if err != nil {
		return err
	}
	w.table = tbl
	return nil
}

func (w *world) aSteadyActivity(points int, speed float64) error {
	return w.parseGPX(buildGPX(points, speed, 0))
}

func (w *world) anActivityWithStop(gapSeconds int) error {
	return w.parseGPX(buildGPX(600, 3.0, gapSeconds))
}

func (w *world) aBackwardsTable() error {
	if err := w.parseGPX(buildGPX(60, 3.0, 0)); err != nil {
		return err
	}
	// Corrupt one timestamp so the contract check trips.
	w.table.Time[5] = w.table.Time[4] - 1
	return nil
}

func (w *world) analyze() error {
	w.res, w.err = analysis.Analyze(w.table, analysis.Params{})
	return nil
}

func (w *world) distanceIsAbout(want float64) error {
	if w.err != nil {
		return w.err
	}
	if math.Abs(w.res.Summary.DistanceKM-want) > 0.05 {
		return fmt.Errorf("distance %.3f km, want about %.2f", w.res.Summary.DistanceKM, want)
	}
	return nil
}

func (w *world) paceIsAbout(want float64) error {
	if w.err != nil {
		return w.err
	}
	pace := w.res.Summary.AveragePaceSPerKM
	if pace == nil {
		return fmt.Errorf("average pace undefined")
	}
	if math.Abs(*pace-want) > 5 {
		return fmt.Errorf("pace %.1f s/km, want about %.0f", *pace, want)
	}
	return nil
}

func (w *world) everyPointMoving() error {
	if w.err != nil {
		return w.err
	}
	for i, m := range w.res.Derived.Moving {
		if !m {
			return fmt.Errorf("point %d not moving", i)
		}
	}
	return nil
}

func (w *world) pauseAtLeast(seconds int) error {
	if w.err != nil {
		return w.err
	}
	if w.res.Summary.PauseTimeS < float64(seconds) {
		return fmt.Errorf("pause time %.0f s, want >= %d", w.res.Summary.PauseTimeS, seconds)
	}
	return nil
}

func (w *world) longestPauseAtLeast(seconds int) error {
	if w.err != nil {
		return w.err
	}
	if w.res.Summary.LongestPauseS < float64(seconds) {
		return fmt.Errorf("longest pause %.0f s, want >= %d", w.res.Summary.LongestPauseS, seconds)
	}
	return nil
}

func (w *world) failsWithRule(rule string) error {
	if w.err == nil {
		return fmt.Errorf("expected analysis to fail")
	}
	var verr *telemetry.ValidationError
	if !asValidationError(w.err, &verr) {
		return fmt.Errorf("expected a validation error, got %v", w.err)
	}
	if verr.Rule != rule {
		return fmt.Errorf("rule %q, want %q", verr.Rule, rule)
	}
	return nil
}

func asValidationError(err error, target **telemetry.ValidationError) bool {
	for err != nil {
		if verr, ok := err.(*telemetry.ValidationError); ok {
			*target = verr
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}

// --- API scenarios ---

func (w *world) aRunningAPI() error {
	server := &api.Server{
		DB:    mocks.NewMemoryDatabase(),
		Store: mocks.NewMemoryBlobStore(),
		Pub:   mocks.NewMemoryPublisher(),
		Config: &bootstrap.Config{
			GCSActivityBucket: "acceptance-uploads",
			AuthDisabled:      true,
		},
		Logger:    slog.New(slog.NewTextHandler(new(bytes.Buffer), nil)),
		Narrative: narrative.TemplateGenerator{},
	}
	w.router = server.Router()
	return nil
}

func (w *world) serve(method, target string, body *bytes.Reader, contentType string) {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, body)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w.lastResp = httptest.NewRecorder()
	w.router.ServeHTTP(w.lastResp, req)
}

func (w *world) uploadGPX(filename string) error {
	w.serve(http.MethodPost, "/api/v1/activities?filename="+filename,
		bytes.NewReader(buildGPX(120, 3.0, 0)), "application/gpx+xml")

	if w.lastResp.Code == http.StatusCreated {
		var created shared.ActivityRecord
		if err := json.Unmarshal(w.lastResp.Body.Bytes(), &created); err != nil {
			return err
		}
		w.uploadID = created.ID
	}
	return nil
}

func (w *world) responseStatusIs(status int) error {
	if w.lastResp.Code != status {
		return fmt.Errorf("status %d, want %d: %s", w.lastResp.Code, status, w.lastResp.Body.String())
	}
	return nil
}

func (w *world) listHasEntries(count int) error {
	w.serve(http.MethodGet, "/api/v1/activities", nil, "")
	if w.lastResp.Code != http.StatusOK {
		return fmt.Errorf("list returned %d", w.lastResp.Code)
	}
	var body struct {
		Activities []shared.ActivityRecord `json:"activities"`
	}
	if err := json.Unmarshal(w.lastResp.Body.Bytes(), &body); err != nil {
		return err
	}
	if len(body.Activities) != count {
		return fmt.Errorf("%d activities, want %d", len(body.Activities), count)
	}
	return nil
}

func (w *world) analysisEngineVersion(version string) error {
	w.serve(http.MethodGet, "/api/v1/activities/"+w.uploadID+"/analysis", nil, "")
	if w.lastResp.Code != http.StatusOK {
		return fmt.Errorf("analysis returned %d: %s", w.lastResp.Code, w.lastResp.Body.String())
	}
	var body shared.AnalysisRecord
	if err := json.Unmarshal(w.lastResp.Body.Bytes(), &body); err != nil {
		return err
	}
	if body.EngineVersion != version {
		return fmt.Errorf("engine version %q, want %q", body.EngineVersion, version)
	}
	return nil
}

func (w *world) requestActivity(id string) error {
	w.serve(http.MethodGet, "/api/v1/activities/"+id, nil, "")
	return nil
}
