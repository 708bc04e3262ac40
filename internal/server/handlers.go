package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hyperjump/paperselect/internal/export"
	"github.com/hyperjump/paperselect/internal/library"
	"github.com/hyperjump/paperselect/internal/models"
	"github.com/hyperjump/paperselect/internal/pipeline"
	"github.com/hyperjump/paperselect/internal/selection"
	"github.com/hyperjump/paperselect/internal/similarity"
	"github.com/hyperjump/paperselect/internal/storage"
	"go.uber.org/zap"
)

var allowedLibraryExts = map[string]bool{".csv": true, ".tsv": true, ".xlsx": true}

type uploadResponse struct {
	ID         string                   `json:"id"`
	Filename   string                   `json:"filename"`
	PaperCount int                      `json:"paper_count"`
	Columns    library.Columns          `json:"columns"`
	Report     library.ValidationReport `json:"validation"`
}

func (s *Server) handleUploadLibrary(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.config.Server.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %s", humanize.IBytes(uint64(maxBytes))))
			return
		}
		s.respondError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		s.respondError(w, http.StatusBadRequest, "no file selected")
		return
	}
	if !allowedLibraryExts[strings.ToLower(filepath.Ext(filename))] {
		s.respondError(w, http.StatusBadRequest, "only .csv, .tsv and .xlsx files are allowed")
		return
	}

	id := uuid.NewString()
	path, err := storage.SaveUpload(s.config.Storage.UploadDir, id, filename, file, maxBytes)
	if err != nil {
		s.logger.Error("saving upload failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	lib, err := library.Load(path)
	var (
		cols   library.Columns
		report library.ValidationReport
	)
	if err == nil {
		cols, err = library.DetectColumns(lib, s.config.Library.TitleColumns, s.config.Library.AbstractColumns)
	}
	if err == nil {
		report, err = library.Validate(lib, cols)
	}
	if err != nil {
		_ = os.Remove(path)
		s.respondError(w, statusFor(err), err.Error())
		return
	}

	lib.ID = id
	lib.Filename = filename
	if err := s.storage.CreateLibrary(r.Context(), lib); err != nil {
		_ = os.Remove(path)
		s.logger.Error("storing library failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("library uploaded",
		zap.String("id", id),
		zap.String("filename", filename),
		zap.Int("papers", lib.PaperCount),
		zap.String("size", humanize.IBytes(uint64(header.Size))))
	s.respondJSON(w, http.StatusCreated, uploadResponse{
		ID:         id,
		Filename:   filename,
		PaperCount: lib.PaperCount,
		Columns:    cols,
		Report:     report,
	})
}

func (s *Server) handleListLibraries(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 50)
	libs, err := s.storage.ListLibraries(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("listing libraries failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if libs == nil {
		libs = []*models.Library{}
	}
	s.respondJSON(w, http.StatusOK, libs)
}

func (s *Server) handleGetLibrary(w http.ResponseWriter, r *http.Request) {
	lib, err := s.storage.GetLibrary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, lib)
}

func (s *Server) handleDeleteLibrary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	lib, err := s.storage.GetLibrary(r.Context(), id)
	if err != nil {
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	if err := s.storage.DeleteLibrary(r.Context(), id); err != nil {
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	if err := os.Remove(lib.Path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("removing library file failed", zap.String("path", lib.Path), zap.Error(err))
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.storage.GetLibrary(r.Context(), id); err != nil {
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	runs, err := s.storage.ListRuns(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []*models.Run{}
	}
	s.respondJSON(w, http.StatusOK, runs)
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req models.ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	lib, err := s.storage.GetLibrary(ctx, req.LibraryID)
	if err != nil {
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.logger.Debug("process request",
		zap.String("library_id", lib.ID),
		zap.String("method", req.ThresholdMethod),
		zap.Int("reference_len", len(req.ReferenceText)))

	res, err := s.pipeline.Run(ctx, pipeline.Request{
		LibraryPath:     lib.Path,
		Reference:       req.ReferenceText,
		Method:          selection.Policy(req.ThresholdMethod),
		CustomThreshold: req.CustomThreshold,
	})
	if err != nil {
		s.logger.Error("selection failed", zap.String("library_id", lib.ID), zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}

	run := &models.Run{
		LibraryID:       lib.ID,
		ReferenceText:   req.ReferenceText,
		ThresholdMethod: string(res.Method),
		Threshold:       res.Threshold,
		Statistics:      res.Statistics,
		Scores:          res.Scores,
		Selection:       res.Selection,
	}
	if err := s.storage.CreateRun(ctx, run); err != nil {
		s.logger.Error("storing run failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, models.ProcessResponse{
		RunID:         run.ID,
		Stats:         res.Statistics,
		Similarities:  res.Scores,
		Threshold:     res.Threshold,
		SelectedCount: res.SelectedCount(),
		TotalCount:    len(res.Scores),
	})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.storage.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, run)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	if format != "csv" && format != "bib" {
		s.respondError(w, http.StatusBadRequest, "invalid file type")
		return
	}
	ctx := r.Context()
	run, err := s.storage.GetRun(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	meta, err := s.storage.GetLibrary(ctx, run.LibraryID)
	if err != nil {
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	lib, err := library.Load(meta.Path)
	if err != nil {
		s.logger.Error("reloading library failed", zap.String("path", meta.Path), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if lib.Len() != len(run.Scores) || lib.Len() != len(run.Selection) {
		s.respondError(w, http.StatusConflict, "library changed since the run was computed")
		return
	}
	papers := make([]models.ScoredPaper, lib.Len())
	for i, rec := range lib.Records {
		papers[i] = models.ScoredPaper{Index: i, Record: rec, Score: run.Scores[i], Selected: run.Selection[i]}
	}

	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="selected_papers.csv"`)
		_, err = export.WriteCSV(w, lib, papers)
	case "bib":
		w.Header().Set("Content-Type", "application/x-bibtex")
		w.Header().Set("Content-Disposition", `attachment; filename="selected_papers.bib"`)
		err = export.WriteSelectedBibTeX(w, papers)
	}
	if err != nil {
		s.logger.Error("download failed", zap.String("run_id", run.ID), zap.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	libCount, err := s.storage.CountLibraries(ctx)
	if err != nil {
		s.logger.Error("status: count libraries failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	runCount, err := s.storage.CountRuns(ctx)
	if err != nil {
		s.logger.Error("status: count runs failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"libraries": libCount,
		"runs":      runCount,
		"config": map[string]interface{}{
			"threshold_method":     s.config.Selection.ThresholdMethod,
			"embedding_dimensions": s.config.Embedding.Dimensions,
			"database_path":        s.config.Storage.DatabasePath,
			"upload_dir":           s.config.Storage.UploadDir,
		},
	}
	if diskBytes, err := storage.DiskUsageBytes(s.config.Storage.DatabasePath, s.config.Storage.UploadDir); err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var degenerate *similarity.DegenerateVectorError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidRequest),
		errors.Is(err, selection.ErrUnknownPolicy),
		errors.Is(err, selection.ErrMissingArgument),
		errors.Is(err, library.ErrEmptyReference),
		errors.Is(err, library.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, library.ErrEmptyLibrary),
		errors.Is(err, library.ErrNoTitles),
		errors.Is(err, library.ErrColumnNotFound),
		errors.Is(err, similarity.ErrDimensionMismatch),
		errors.Is(err, similarity.ErrEmptyBatch),
		errors.As(err, &degenerate):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func queryInt(r *http.Request, key string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil && v >= 0 {
		return v
	}
	return def
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
