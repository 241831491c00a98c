package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"opticore/internal/export"
	"opticore/internal/sweep"
	"opticore/pkg/domain"
)

func (s *Server) handleListMaterials(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.ListMaterials())
}

func (s *Server) handleAddMaterial(w http.ResponseWriter, r *http.Request) {
	var m domain.Material
	if err := decodeBody(r, &m); err != nil {
		writeError(w, err)
		return
	}
	if err := s.session.AddMaterial(m); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleGetMaterial(w http.ResponseWriter, r *http.Request) {
	m, err := s.session.GetMaterial(mux.Vars(r)["name"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleRemoveMaterial(w http.ResponseWriter, r *http.Request) {
	if err := s.session.RemoveMaterial(mux.Vars(r)["name"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMaterialIndex(w http.ResponseWriter, r *http.Request) {
	wavelength, err := strconv.ParseFloat(r.URL.Query().Get("wavelength_nm"), 64)
	if err != nil {
		writeError(w, domain.ValidationError{Field: "wavelength_nm", Message: "must be a number"})
		return
	}
	index, extrapolated, err := s.session.MaterialIndexAt(r.Context(), mux.Vars(r)["name"], wavelength)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"wavelength_nm": wavelength,
		"n":             real(index),
		"k":             imag(index),
		"extrapolated":  extrapolated,
	})
}

func (s *Server) handleListArrays(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.ListArrays())
}

func (s *Server) handleAddArray(w http.ResponseWriter, r *http.Request) {
	var a domain.Array
	if err := decodeBody(r, &a); err != nil {
		writeError(w, err)
		return
	}
	if err := s.session.AddArray(a); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleGetArray(w http.ResponseWriter, r *http.Request) {
	a, err := s.session.GetArray(mux.Vars(r)["name"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleRemoveArray(w http.ResponseWriter, r *http.Request) {
	if err := s.session.RemoveArray(mux.Vars(r)["name"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type mediaPayload struct {
	Incidence string `json:"incidence"`
	Substrate string `json:"substrate"`
}

func (s *Server) handleGetMedia(w http.ResponseWriter, _ *http.Request) {
	incidence, substrate := s.session.Media()
	writeJSON(w, http.StatusOK, mediaPayload{Incidence: incidence, Substrate: substrate})
}

func (s *Server) handleSetMedia(w http.ResponseWriter, r *http.Request) {
	var p mediaPayload
	if err := decodeBody(r, &p); err != nil {
		writeError(w, err)
		return
	}
	if err := s.session.SetMedia(p.Incidence, p.Substrate); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type validatePayload struct {
	Expression         string  `json:"expression"`
	DefaultThicknessNm float64 `json:"default_thickness_nm"`
}

func (s *Server) handleValidateStructure(w http.ResponseWriter, r *http.Request) {
	var p validatePayload
	if err := decodeBody(r, &p); err != nil {
		writeError(w, err)
		return
	}
	fs, err := s.session.ValidateExpression(p.Expression, p.DefaultThicknessNm)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fs)
}

func (s *Server) handleCreateSweep(w http.ResponseWriter, r *http.Request) {
	req := s.session.Request()
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, err)
		return
	}
	stack, _, err := s.session.BuildStructure(r.Context(), req.Expression, req.DefaultThicknessNm)
	if err != nil {
		writeError(w, err)
		return
	}
	job, err := s.worker.Enqueue(sweep.Input{Stack: stack, Request: req})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleListSweeps(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.worker.ListJobs())
}

func (s *Server) handleGetSweep(w http.ResponseWriter, r *http.Request) {
	job, ok := s.worker.GetJob(mux.Vars(r)["id"])
	if !ok {
		writeError(w, domain.NotFoundError{Kind: "sweep", Name: mux.Vars(r)["id"]})
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleCancelSweep(w http.ResponseWriter, r *http.Request) {
	if err := s.worker.Cancel(mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSweepResult serves a finished sweep's result, honoring Accept:
// text/csv for spreadsheet consumers and JSON otherwise.
func (s *Server) handleSweepResult(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	job, ok := s.worker.GetJob(id)
	if !ok {
		writeError(w, domain.NotFoundError{Kind: "sweep", Name: id})
		return
	}
	if job.Result == nil {
		writeError(w, domain.ValidationError{Field: "status", Message: "sweep " + string(job.Status) + ", no result available"})
		return
	}
	if strings.Contains(r.Header.Get("Accept"), "text/csv") {
		artifact, err := export.Materialize(*job.Result, export.FormatCSV)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(artifact.Data)
		return
	}
	writeJSON(w, http.StatusOK, job.Result)
}

type exportPayload struct {
	Format string `json:"format"`
}

func (s *Server) handleCreateExport(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	job, ok := s.worker.GetJob(id)
	if !ok {
		writeError(w, domain.NotFoundError{Kind: "sweep", Name: id})
		return
	}
	if job.Result == nil {
		writeError(w, domain.ValidationError{Field: "status", Message: "sweep " + string(job.Status) + ", nothing to export"})
		return
	}
	var p exportPayload
	if err := decodeBody(r, &p); err != nil {
		writeError(w, err)
		return
	}
	format, err := export.ParseFormat(p.Format)
	if err != nil {
		writeError(w, err)
		return
	}
	info, err := s.exporter.Export(r.Context(), id, *job.Result, format)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListExports(w http.ResponseWriter, r *http.Request) {
	infos, err := s.exporter.List(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleDownloadExport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	info, data, err := s.exporter.Open(r.Context(), vars["id"], vars["filename"])
	if err != nil {
		writeError(w, err)
		return
	}
	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+vars["filename"]+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	docs, err := s.session.ListProjects(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleSaveProject(w http.ResponseWriter, r *http.Request) {
	doc, err := s.session.SaveProject(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleLoadProject(w http.ResponseWriter, r *http.Request) {
	doc, err := s.session.LoadProject(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.session.DeleteProject(r.Context(), mux.Vars(r)["name"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCatalogSearch(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, domain.ValidationError{Field: "limit", Message: "must be a positive integer"})
			return
		}
		limit = n
	}
	entries, err := s.catalog.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type catalogImportPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *Server) handleCatalogImport(w http.ResponseWriter, r *http.Request) {
	var p catalogImportPayload
	if err := decodeBody(r, &p); err != nil {
		writeError(w, err)
		return
	}
	m, err := s.session.ImportMaterialFromCatalog(r.Context(), p.ID, p.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}
