package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"RestoLedger/api/constants"
	"RestoLedger/api/ingest/channel"
	"RestoLedger/api/ingest/formats"
	"RestoLedger/api/ingest/pipeline"
	"RestoLedger/api/ingest/salesdata"
	"RestoLedger/api/ingest/staging"
)

func StartIngestService(store staging.Store, repo salesdata.Repository, coordinator *pipeline.Coordinator, gateway *pipeline.ApprovalGateway, registry *channel.Registry) {
	r := mux.NewRouter()
	r.HandleFunc("/ingest/health", healthHandler).Methods("GET")
	r.HandleFunc("/ingest/sales/upload", uploadHandler(coordinator)).Methods("POST")
	r.HandleFunc("/ingest/sales/preview-date", previewDateHandler()).Methods("POST")
	r.HandleFunc("/ingest/sales/batches", listBatchesHandler(store)).Methods("GET")
	r.HandleFunc("/ingest/sales/batch/{id}", getBatchHandler(store)).Methods("GET")
	r.HandleFunc("/ingest/sales/batch/{id}/cancel", cancelBatchHandler(coordinator, store)).Methods("POST")
	r.HandleFunc("/ingest/sales/staged", listStagedHandler(store)).Methods("GET")
	r.HandleFunc("/ingest/sales/staged/{id}", getStagedHandler(store)).Methods("GET")
	r.HandleFunc("/ingest/sales/staged/{id}", updateStagedHandler(store)).Methods("POST")
	r.HandleFunc("/ingest/sales/commit", commitHandler(gateway)).Methods("POST")
	r.HandleFunc("/ingest/sales/check-existing", checkExistingHandler(repo)).Methods("GET")
	r.HandleFunc("/ingest/sales/validation-logs", listValidationLogsHandler(store)).Methods("GET")
	r.HandleFunc("/ingest/sales/validation-logs/{id}/resolve", resolveValidationLogHandler(store)).Methods("POST")
	r.HandleFunc("/ingest/sales/channels", listChannelsHandler(registry)).Methods("GET")
	r.HandleFunc("/ingest/sales/record", getRecordHandler(repo, registry)).Methods("GET")

	ingestServer = &http.Server{Addr: ":6155", Handler: r}
	log.Println("Ingest Service started on :6155")
	if err := ingestServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Ingest Service failed: %v", err)
	}
}

var ingestServer *http.Server

// StopIngestService shuts the HTTP listener down, draining in-flight
// requests.
func StopIngestService(ctx context.Context) error {
	if ingestServer == nil {
		return nil
	}
	return ingestServer.Shutdown(ctx)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", constants.ContentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[INGEST-HTTP] response encode failed: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]interface{}{"success": false, "error": msg})
}

func uploadHandler(coordinator *pipeline.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(64 << 20); err != nil {
			respondError(w, http.StatusBadRequest, constants.ErrInvalidMultipart)
			return
		}
		teamID := r.FormValue("team_id")
		if teamID == "" {
			respondError(w, http.StatusBadRequest, constants.ErrTeamIDRequired)
			return
		}
		opts := pipeline.SubmitOptions{
			TeamID:       teamID,
			BatchName:    r.FormValue("batch_name"),
			ForcedFormat: formats.Format(r.FormValue("format")),
			SubmittedBy:  r.FormValue("user_id"),
		}
		if raw := r.FormValue("date"); raw != "" {
			t, err := time.Parse(constants.DateFormatISO, raw)
			if err != nil {
				respondError(w, http.StatusBadRequest, constants.ErrInvalidDate)
				return
			}
			opts.Date = t
		}
		if raw := r.FormValue("manual_channels"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &opts.ManualChannels); err != nil {
				respondError(w, http.StatusBadRequest, "manual_channels must be a JSON array")
				return
			}
		}

		fhs := r.MultipartForm.File["files"]
		files := make([]pipeline.UploadFile, 0, len(fhs))
		for _, fh := range fhs {
			src, err := fh.Open()
			if err != nil {
				respondError(w, http.StatusBadRequest, constants.ErrFileUnreadable)
				return
			}
			data, err := io.ReadAll(src)
			src.Close()
			if err != nil {
				respondError(w, http.StatusBadRequest, constants.ErrFileUnreadable)
				return
			}
			files = append(files, pipeline.UploadFile{Name: fh.Filename, Data: data})
		}

		result, err := coordinator.Submit(r.Context(), files, opts)
		if err != nil {
			switch {
			case errors.Is(err, pipeline.ErrNoFiles),
				errors.Is(err, pipeline.ErrTooManyFiles),
				errors.Is(err, pipeline.ErrFileTooLarge),
				errors.Is(err, pipeline.ErrBatchTooBig):
				respondError(w, http.StatusBadRequest, err.Error())
			default:
				respondError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}
		respondJSON(w, http.StatusAccepted, map[string]interface{}{
			"success":   true,
			"batch_id":  result.BatchID,
			"duplicate": result.Duplicate,
		})
	}
}

func previewDateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(64 << 20); err != nil {
			respondError(w, http.StatusBadRequest, constants.ErrInvalidMultipart)
			return
		}
		file, fh, err := r.FormFile("file")
		if err != nil {
			respondError(w, http.StatusBadRequest, constants.ErrFileUnreadable)
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			respondError(w, http.StatusBadRequest, constants.ErrFileUnreadable)
			return
		}
		date, format, err := pipeline.PreviewDate(r.Context(), fh.Filename, r.FormValue("team_id"), data, formats.Format(r.FormValue("format")))
		if err != nil {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		resp := map[string]interface{}{"success": true, "detected_format": format}
		if date != nil {
			resp["extracted_date"] = date.Format(constants.DateFormatISO)
		}
		respondJSON(w, http.StatusOK, resp)
	}
}

func listBatchesHandler(store staging.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batches, err := store.ListBatches(r.Context(), r.URL.Query().Get("team_id"))
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "batches": batches})
	}
}

func getBatchHandler(store staging.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batch, err := store.GetBatch(r.Context(), mux.Vars(r)["id"])
		if errors.Is(err, staging.ErrBatchNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "batch": batch})
	}
}

func cancelBatchHandler(coordinator *pipeline.Coordinator, store staging.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		if _, err := store.GetBatch(r.Context(), id); errors.Is(err, staging.ErrBatchNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		accepted := coordinator.Cancel(id)
		respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "cancelling": accepted})
	}
}

func listStagedHandler(store staging.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := store.ListStaged(r.Context(), r.URL.Query().Get("batch_id"))
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "records": records})
	}
}

func getStagedHandler(store staging.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := store.GetStaged(r.Context(), mux.Vars(r)["id"])
		if errors.Is(err, staging.ErrStagedNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "record": rec})
	}
}

func updateStagedHandler(store staging.Store) http.HandlerFunc {
	type updateRequest struct {
		Corrections map[string]interface{} `json:"corrections"`
		Status      string                 `json:"status"`
		UserID      string                 `json:"user_id"`
	}
	validStatus := map[string]bool{
		"": true, staging.StagedPending: true, staging.StagedApproved: true,
		staging.StagedRejected: true, staging.StagedNeedsReview: true,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		if !validStatus[req.Status] {
			respondError(w, http.StatusBadRequest, "invalid status "+req.Status)
			return
		}
		rec, err := store.UpdateStaged(r.Context(), mux.Vars(r)["id"], req.Corrections, req.Status, req.UserID)
		if errors.Is(err, staging.ErrStagedNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "record": rec})
	}
}

func commitHandler(gateway *pipeline.ApprovalGateway) http.HandlerFunc {
	type commitRequest struct {
		StagedIDs       []string `json:"staged_ids"`
		ReplaceExisting bool     `json:"replace_existing"`
		UserID          string   `json:"user_id"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req commitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		if len(req.StagedIDs) == 0 {
			respondError(w, http.StatusBadRequest, "staged_ids is required")
			return
		}
		outcomes := gateway.Commit(r.Context(), req.StagedIDs, req.ReplaceExisting)
		committed, failed := 0, 0
		for _, o := range outcomes {
			switch o.Status {
			case pipeline.OutcomeCommitted:
				committed++
			case pipeline.OutcomeFailed, pipeline.OutcomeConflict:
				failed++
			}
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success":   true,
			"committed": committed,
			"failed":    failed,
			"outcomes":  outcomes,
		})
	}
}

func checkExistingHandler(repo salesdata.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teamID := r.URL.Query().Get("team_id")
		rawDate := r.URL.Query().Get("date")
		if teamID == "" || rawDate == "" {
			respondError(w, http.StatusBadRequest, "team_id and date are required")
			return
		}
		date, err := time.Parse(constants.DateFormatISO, rawDate)
		if err != nil {
			respondError(w, http.StatusBadRequest, constants.ErrInvalidDate)
			return
		}
		rec, err := repo.FindByTeamAndDate(r.Context(), teamID, date)
		if errors.Is(err, salesdata.ErrNotFound) {
			respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "exists": false})
			return
		}
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "exists": true, "record": rec})
	}
}

func listValidationLogsHandler(store staging.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logs, err := store.ListValidationLogs(r.Context(), r.URL.Query().Get("batch_id"))
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "logs": logs})
	}
}

func resolveValidationLogHandler(store staging.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := store.ResolveValidationLog(r.Context(), mux.Vars(r)["id"])
		if errors.Is(err, staging.ErrLogNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}
}

func listChannelsHandler(registry *channel.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success":  true,
			"channels": registry.List(r.Context(), r.URL.Query().Get("team_id")),
		})
	}
}

// getRecordHandler returns a committed day with its channel attribution
// recomputed against the current channel configuration.
func getRecordHandler(repo salesdata.Repository, registry *channel.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teamID := r.URL.Query().Get("team_id")
		rawDate := r.URL.Query().Get("date")
		if teamID == "" || rawDate == "" {
			respondError(w, http.StatusBadRequest, "team_id and date are required")
			return
		}
		date, err := time.Parse(constants.DateFormatISO, rawDate)
		if err != nil {
			respondError(w, http.StatusBadRequest, constants.ErrInvalidDate)
			return
		}
		rec, err := repo.FindByTeamAndDate(r.Context(), teamID, date)
		if errors.Is(err, salesdata.ErrNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success":  true,
			"record":   rec,
			"channels": channel.Attribute(rec, registry),
		})
	}
}
