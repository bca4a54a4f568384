package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	shared "github.com/coursescope/server/pkg"
	"github.com/coursescope/server/pkg/domain/activity"
	"github.com/coursescope/server/pkg/domain/analysis"
	"github.com/coursescope/server/pkg/domain/fit_parser"
	"github.com/coursescope/server/pkg/domain/gpx_parser"
	"github.com/coursescope/server/pkg/domain/telemetry"
	"github.com/coursescope/server/pkg/export"
	httputil "github.com/coursescope/server/pkg/infrastructure/http"
	infrapubsub "github.com/coursescope/server/pkg/infrastructure/pubsub"
)

// maxUploadBytes caps raw uploads; FIT files from watches run well under
// this even for ultras.
const maxUploadBytes = 32 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	data, filename, err := readUpload(r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	ext := uploadExt(filename, r.Header.Get("Content-Type"))
	if ext == "" {
		httputil.WriteError(w, http.StatusBadRequest, "unsupported_format",
			"upload must be a .fit or .gpx file")
		return
	}

	tbl, meta, err := parseUpload(ext, data)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "unparseable_upload", err.Error())
		return
	}

	ctx := r.Context()
	id := uuid.NewString()
	object := fmt.Sprintf("activities/%s/raw.%s", id, ext)
	if err := s.Store.Write(ctx, s.Config.GCSActivityBucket, object, data); err != nil {
		httputil.WriteErrorFrom(w, fmt.Errorf("storing upload: %w", err))
		return
	}

	now := time.Now().UTC()
	rec := &shared.ActivityRecord{
		ID:             id,
		Name:           meta.Name,
		Slug:           activity.Slug(meta.Name),
		Type:           meta.Type,
		Source:         meta.Source,
		Sport:          meta.Sport,
		StartTime:      meta.StartTime,
		TotalDistanceM: meta.TotalDistanceM,
		TotalElapsedS:  meta.TotalElapsedS,
		RawObject:      object,
		ContentType:    contentTypeForExt(ext),
		Status:         shared.ActivityStatusUploaded,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.DB.SetActivity(ctx, rec); err != nil {
		httputil.WriteErrorFrom(w, fmt.Errorf("storing activity: %w", err))
		return
	}

	s.publishUploaded(r, rec)

	s.Logger.Info("activity uploaded",
		"activity_id", id, "source", meta.Source, "points", tbl.Len())
	httputil.WriteJSON(w, http.StatusCreated, rec)
}

// publishUploaded hands the activity to the analyzer. Publish failures are
// logged, not surfaced: the upload itself succeeded and the analysis route
// can still run on demand.
func (s *Server) publishUploaded(r *http.Request, rec *shared.ActivityRecord) {
	evt, err := infrapubsub.NewCloudEvent(shared.EventSourceAPI, shared.EventTypeActivityUploaded,
		shared.ActivityUploadedPayload{
			ActivityID:  rec.ID,
			Object:      rec.RawObject,
			ContentType: rec.ContentType,
		})
	if err != nil {
		s.Logger.Warn("failed to build upload event", "error", err)
		return
	}
	if _, err := s.Pub.PublishCloudEvent(r.Context(), shared.TopicActivityUploaded, evt); err != nil {
		s.Logger.Warn("failed to publish upload event", "activity_id", rec.ID, "error", err)
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := s.DB.ListActivities(r.Context())
	if err != nil {
		httputil.WriteErrorFrom(w, err)
		return
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].StartTime.After(records[j].StartTime)
	})
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"activities": records})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.DB.GetActivity(r.Context(), chi.URLParam(r, "activityID"))
	if err != nil {
		httputil.WriteErrorFrom(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "activityID")

	rec, err := s.DB.GetActivity(ctx, id)
	if err != nil {
		httputil.WriteErrorFrom(w, err)
		return
	}

	if rec.RawObject != "" {
		if err := s.Store.Delete(ctx, s.Config.GCSActivityBucket, rec.RawObject); err != nil {
			s.Logger.Warn("failed to delete raw object", "activity_id", id, "error", err)
		}
	}
	if err := s.DB.DeleteActivity(ctx, id); err != nil {
		httputil.WriteErrorFrom(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAnalysis returns the stored analysis for the current engine version
// or computes, stores and returns it on the spot.
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "activityID")

	rec, err := s.DB.GetActivity(ctx, id)
	if err != nil {
		httputil.WriteErrorFrom(w, err)
		return
	}

	stored, err := s.DB.GetAnalysis(ctx, id, analysis.EngineVersion)
	if err == nil {
		httputil.WriteJSON(w, http.StatusOK, stored)
		return
	}
	if !errors.Is(err, shared.ErrNotFound) {
		httputil.WriteErrorFrom(w, err)
		return
	}

	tbl, meta, err := s.loadTable(r, rec)
	if err != nil {
		httputil.WriteErrorFrom(w, err)
		return
	}
	res, err := analysis.Analyze(tbl, analysis.Params{})
	if err != nil {
		httputil.WriteErrorFrom(w, err)
		return
	}

	text, err := s.Narrative.Generate(ctx, meta, res)
	if err != nil {
		s.Logger.Warn("narrative generation failed", "activity_id", id, "error", err)
	}

	out := &shared.AnalysisRecord{
		ActivityID:    id,
		EngineVersion: analysis.EngineVersion,
		Narrative:     text,
		Result:        res,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.DB.SetAnalysis(ctx, out); err != nil {
		httputil.WriteErrorFrom(w, fmt.Errorf("storing analysis: %w", err))
		return
	}
	if err := s.DB.UpdateActivity(ctx, id, map[string]interface{}{
		"status":     shared.ActivityStatusAnalyzed,
		"updated_at": out.CreatedAt,
	}); err != nil {
		s.Logger.Warn("failed to update activity status", "activity_id", id, "error", err)
	}

	httputil.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	rec, err := s.DB.GetActivity(r.Context(), chi.URLParam(r, "activityID"))
	if err != nil {
		httputil.WriteErrorFrom(w, err)
		return
	}

	maxPoints := 0
	if raw := r.URL.Query().Get("max_points"); raw != "" {
		maxPoints, err = strconv.Atoi(raw)
		if err != nil || maxPoints < 2 {
			httputil.WriteError(w, http.StatusBadRequest, "bad_request",
				"max_points must be an integer >= 2")
			return
		}
	}

	tbl, _, err := s.loadTable(r, rec)
	if err != nil {
		httputil.WriteErrorFrom(w, err)
		return
	}
	res, err := analysis.Analyze(tbl, analysis.Params{})
	if err != nil {
		httputil.WriteErrorFrom(w, err)
		return
	}

	set := buildSeriesSet(tbl, res.Derived)

	keys := set.Keys()
	if raw := r.URL.Query().Get("keys"); raw != "" {
		keys = strings.Split(raw, ",")
	}

	out := make([]telemetry.Series, 0, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		ser, ok := set.Get(key)
		if !ok {
			httputil.WriteError(w, http.StatusBadRequest, "unknown_series",
				fmt.Sprintf("no series %q; known keys: %s", key, strings.Join(set.Keys(), ", ")))
			return
		}
		if maxPoints > 0 {
			ser.Values = telemetry.Downsample(ser.Values, maxPoints)
		}
		out = append(out, ser)
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"activity_id": rec.ID,
		"series":      out,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	rec, err := s.DB.GetActivity(r.Context(), chi.URLParam(r, "activityID"))
	if err != nil {
		httputil.WriteErrorFrom(w, err)
		return
	}

	format := r.URL.Query().Get("format")
	if format != "csv" && format != "parquet" {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request",
			"format must be csv or parquet")
		return
	}

	tbl, _, err := s.loadTable(r, rec)
	if err != nil {
		httputil.WriteErrorFrom(w, err)
		return
	}
	res, err := analysis.Analyze(tbl, analysis.Params{})
	if err != nil {
		httputil.WriteErrorFrom(w, err)
		return
	}

	name := rec.Slug
	if name == "" {
		name = rec.ID
	}

	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".csv"))
		if err := export.WritePointsCSV(w, tbl, res.Derived); err != nil {
			s.Logger.Error("csv export failed", "activity_id", rec.ID, "error", err)
		}
	case "parquet":
		blob, err := export.MarshalPointsParquet(tbl, res.Derived)
		if err != nil {
			httputil.WriteErrorFrom(w, fmt.Errorf("parquet export: %w", err))
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".parquet"))
		_, _ = w.Write(blob)
	}
}

// loadTable re-parses the raw upload of a stored activity.
func (s *Server) loadTable(r *http.Request, rec *shared.ActivityRecord) (*telemetry.Table, *activity.Metadata, error) {
	if rec.RawObject == "" {
		return nil, nil, fmt.Errorf("activity %s has no raw upload: %w", rec.ID, shared.ErrNotFound)
	}
	data, err := s.Store.Read(r.Context(), s.Config.GCSActivityBucket, rec.RawObject)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", rec.RawObject, err)
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(rec.RawObject)), ".")
	return parseUpload(ext, data)
}

func parseUpload(ext string, data []byte) (*telemetry.Table, *activity.Metadata, error) {
	switch ext {
	case "fit":
		return fit_parser.Parse(data)
	case "gpx":
		return gpx_parser.Parse(data)
	}
	return nil, nil, fmt.Errorf("unsupported format %q", ext)
}

// buildSeriesSet extends the raw table series with the derived analysis
// columns. Moving is exposed as 0/1 so every series stays numeric.
func buildSeriesSet(tbl *telemetry.Table, derived *analysis.DerivedSeries) *telemetry.SeriesSet {
	set := telemetry.BaseSeriesSet(tbl)
	if derived == nil {
		return set
	}
	set.Add("grade", "Grade", "%", derived.Grade)
	set.Add("gap", "Grade-adjusted pace", "s/km", derived.GAP)
	moving := make([]float64, len(derived.Moving))
	for i, m := range derived.Moving {
		if m {
			moving[i] = 1
		}
	}
	set.Add("moving", "Moving", "", moving)
	return set
}

func readUpload(r *http.Request) (data []byte, filename string, err error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, "", fmt.Errorf("parsing multipart form: %w", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, "", fmt.Errorf("multipart upload needs a %q part: %w", "file", err)
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
		if err != nil {
			return nil, "", err
		}
		return data, header.Filename, nil
	}

	data, err = io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("empty request body")
	}
	return data, r.URL.Query().Get("filename"), nil
}

// uploadExt resolves the storage extension from the filename, then from the
// request content type.
func uploadExt(filename, contentType string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".fit":
		return "fit"
	case ".gpx":
		return "gpx"
	}
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	switch strings.TrimSpace(contentType) {
	case "application/vnd.ant.fit", "application/fit":
		return "fit"
	case "application/gpx+xml":
		return "gpx"
	}
	return ""
}

func contentTypeForExt(ext string) string {
	if ext == "fit" {
		return "application/vnd.ant.fit"
	}
	return "application/gpx+xml"
}
