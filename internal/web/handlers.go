package web

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JonMunkholm/emailclean/internal/core"
	"github.com/JonMunkholm/emailclean/internal/csv"
	"github.com/JonMunkholm/emailclean/internal/history"
	"github.com/JonMunkholm/emailclean/internal/logging"
	"github.com/JonMunkholm/emailclean/internal/report"
	"github.com/JonMunkholm/emailclean/internal/web/templates"
)

// multipartMemory is how much of an upload is buffered in memory before the
// rest spills to a temporary file.
const multipartMemory = 32 << 20

// RunResponse is the JSON shape of a run.
type RunResponse struct {
	Run       history.Run    `json:"run"`
	Read      *csv.ReadStats `json:"read,omitempty"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
	Links     *RunLinks      `json:"links,omitempty"`
}

// RunLinks points at the downloadable files of a run.
type RunLinks struct {
	Kept    string `json:"kept"`
	Removed string `json:"removed"`
}

func newRunResponse(res *core.RunResult) RunResponse {
	id := res.Run.ID.String()
	return RunResponse{
		Run:       res.Run,
		Read:      &res.Stats,
		ExpiresAt: &res.ExpiresAt,
		Links: &RunLinks{
			Kept:    "/api/runs/" + id + "/kept.csv",
			Removed: "/api/runs/" + id + "/removed.csv",
		},
	}
}

// handleHealth reports liveness and run capacity.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"runs":   s.service.LimiterStatus(),
	})
}

// handleStatus returns the current state of the run limiter.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.LimiterStatus())
}

// handleIndex renders the upload page with recent runs.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// The page still works when the history store is unavailable.
	runs, err := s.service.History(ctx)
	if err != nil {
		logging.FromContext(ctx).Warn("failed to list runs", "error", err)
	}

	enc, _ := csv.ParseEncoding(s.cfg.Rules.Encoding)
	page := templates.UploadPage(templates.UploadPageParams{
		Runs:            runs,
		DefaultEncoding: enc,
		MaxFileSize:     s.cfg.Upload.MaxFileSize,
		PatternCount:    s.service.Catalogue().Len(),
		NameRule:        s.cfg.Rules.NameRule,
	})
	s.renderHTML(w, r, page)
}

// handleRunForm cleans a file posted by the upload page and redirects to its
// result page.
func (s *Server) handleRunForm(w http.ResponseWriter, r *http.Request) {
	res, err := s.clean(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	http.Redirect(w, r, "/runs/"+res.Run.ID.String(), http.StatusSeeOther)
}

// handleRunPage renders the report of one run. Runs whose files expired are
// shown from history without download links.
func (s *Server) handleRunPage(w http.ResponseWriter, r *http.Request) {
	id, err := runIDParam(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}

	params := templates.RunPageParams{SampleSize: report.DefaultSampleSize}
	if res, err := s.service.Result(id); err == nil {
		params.Run = res.Run
		params.Stats = res.Stats
		params.Removed = res.Removed
		params.ExpiresAt = res.ExpiresAt
		params.Downloadable = true
	} else {
		run, err := s.service.Summary(r.Context(), id)
		if err != nil {
			s.respondError(w, r, err, 0)
			return
		}
		params.Run = run
	}

	s.renderHTML(w, r, templates.RunPage(params))
}

// handleClean cleans an uploaded file and returns the run as JSON.
//
// Form fields:
//   - file: the CSV file (required)
//   - encoding: latin1, cp1252 or utf8 (optional, defaults to the server setting)
func (s *Server) handleClean(w http.ResponseWriter, r *http.Request) {
	res, err := s.clean(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusCreated, newRunResponse(res))
}

// clean reads the multipart upload and runs it through the service.
func (s *Server) clean(w http.ResponseWriter, r *http.Request) (*core.RunResult, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, uploadError(err)
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, uploadError(err)
	}
	defer file.Close()

	var enc csv.Encoding
	if name := r.FormValue("encoding"); name != "" {
		if enc, err = csv.ParseEncoding(name); err != nil {
			return nil, err
		}
	}

	logging.FromContext(r.Context()).Info("upload received",
		"file", header.Filename,
		"size", header.Size,
		"encoding", enc,
	)

	return s.service.Clean(r.Context(), core.CleanRequest{
		FileName: header.Filename,
		Source:   core.SourceWeb,
		Input:    file,
		Encoding: enc,
	})
}

// handleListRuns returns recent runs, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.service.History(r.Context())
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// handleGetRun returns one run. Expired runs come back without read stats
// or download links.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := runIDParam(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}

	if res, err := s.service.Result(id); err == nil {
		writeJSON(w, http.StatusOK, newRunResponse(res))
		return
	}

	run, err := s.service.Summary(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, RunResponse{Run: run})
}

// handleDownloadKept streams the kept records of a run as CSV.
func (s *Server) handleDownloadKept(w http.ResponseWriter, r *http.Request) {
	s.download(w, r, csv.KeptFileName, (*core.RunResult).WriteKept)
}

// handleDownloadRemoved streams the addresses excluded by pattern as CSV.
func (s *Server) handleDownloadRemoved(w http.ResponseWriter, r *http.Request) {
	s.download(w, r, csv.RemovedFileName, (*core.RunResult).WriteRemoved)
}

func (s *Server) download(w http.ResponseWriter, r *http.Request, name string, write func(*core.RunResult, io.Writer) error) {
	id, err := runIDParam(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}
	res, err := s.service.Result(id)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if err := write(res, w); err != nil {
		// Headers are already sent; the client sees a truncated file.
		logging.FromContext(r.Context()).Error("download failed", "run_id", id, "file", name, "error", err)
	}
}

// renderHTML renders a page with a 200 status.
func (s *Server) renderHTML(w http.ResponseWriter, r *http.Request, page templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render page", "path", r.URL.Path, "error", err)
	}
}

// runIDParam parses the {runID} URL parameter.
func runIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		return uuid.Nil, core.ErrRunNotFound
	}
	return id, nil
}
