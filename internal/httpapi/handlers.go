package httpapi

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/videochop/videochop/internal/jobs"
	"github.com/videochop/videochop/internal/timecode"
	"github.com/videochop/videochop/pkg/file"
	"github.com/videochop/videochop/pkg/icron"
)

type createJobRequest struct {
	YoutubeURL      string `json:"youtube_url"`
	InputTimestamp  string `json:"input_timestamp"`
	OutputTimestamp string `json:"output_timestamp"`
	Quality         string `json:"quality"`
}

// decodeCreateJobRequest accepts either a JSON body or form data.
func decodeCreateJobRequest(r *http.Request) (createJobRequest, bool) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req createJobRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return createJobRequest{}, false
		}
		return req, true
	}
	return createJobRequest{
		YoutubeURL:      r.FormValue("youtube_url"),
		InputTimestamp:  r.FormValue("input_timestamp"),
		OutputTimestamp: r.FormValue("output_timestamp"),
		Quality:         r.FormValue("quality"),
	}, true
}

func (s *Server) handleProcessVideo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.manager.Sweep(time.Now())

	req, ok := decodeCreateJobRequest(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.YoutubeURL == "" || req.InputTimestamp == "" || req.OutputTimestamp == "" {
		writeError(w, http.StatusBadRequest, "Missing required parameters")
		return
	}

	start, err := timecode.Parse(req.InputTimestamp)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid timestamp format. Use HH:MM:SS.mmm")
		return
	}
	end, err := timecode.Parse(req.OutputTimestamp)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid timestamp format. Use HH:MM:SS.mmm")
		return
	}
	if end <= start {
		writeError(w, http.StatusBadRequest, "Output timestamp must be greater than input timestamp")
		return
	}

	s.createJob(w, jobs.KindClip, jobs.Request{
		SourceURL: req.YoutubeURL,
		StartSec:  start,
		EndSec:    end,
	})
}

func (s *Server) handleDownloadVideo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.manager.Sweep(time.Now())

	req, ok := decodeCreateJobRequest(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.YoutubeURL == "" {
		writeError(w, http.StatusBadRequest, "Missing required parameters")
		return
	}
	quality := req.Quality
	if quality == "" {
		quality = "720p"
	}
	if quality != "720p" && quality != "1080p" {
		writeError(w, http.StatusBadRequest, "Quality must be 720p or 1080p")
		return
	}

	s.createJob(w, jobs.KindDownload, jobs.Request{
		SourceURL: req.YoutubeURL,
		Quality:   quality,
	})
}

func (s *Server) handleExtractAudio(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.manager.Sweep(time.Now())

	req, ok := decodeCreateJobRequest(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.YoutubeURL == "" {
		writeError(w, http.StatusBadRequest, "Missing required parameters")
		return
	}

	s.createJob(w, jobs.KindAudio, jobs.Request{SourceURL: req.YoutubeURL})
}

// createJob registers the record, hands the task to the pool and answers
// with the queued record. The task's outcome is visible only by polling.
func (s *Server) createJob(w http.ResponseWriter, kind jobs.Kind, req jobs.Request) {
	rec := s.manager.Create(kind, req)
	s.pool.Submit(s.executor.Task(rec))

	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":     rec.ID,
		"status":     rec.Status,
		"message":    rec.Message,
		"status_url": s.baseURL + "/job/" + rec.ID,
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/job/")
	id = strings.TrimSuffix(id, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing job id")
		return
	}

	rec, err := s.manager.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	filename := strings.TrimPrefix(r.URL.Path, "/download/")
	if filename == "" || strings.ContainsAny(filename, "/\\") || strings.Contains(filename, "..") {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	// artifacts are keyed by job id plus suffix
	path, err := s.manager.ArtifactPath(file.StripExt(filename))
	if err != nil {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	http.ServeFile(w, r, path)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status": "healthy",
	}
	if s.sweepCron != "" {
		if info, err := icron.GetTriggerInfo(s.sweepCron, time.Now()); err == nil {
			resp["next_sweep"] = info.Next
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}
