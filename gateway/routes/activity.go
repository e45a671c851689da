package routes

import (
	"net/http"
	"os"
	"path/filepath"

	"onecoupon/gateway/middleware"
	"onecoupon/integrations/exports"
)

const headerChecksum = "X-Checksum-SHA256"

func (a *api) network(w http.ResponseWriter, r *http.Request) {
	if err := a.screens.Network.Refresh(r.Context()); err != nil {
		a.logger.Debug("chain identifier refresh failed", "error", err)
	}
	middleware.WriteJSON(w, http.StatusOK, a.screens.Network.Render())
}

func (a *api) activity(w http.ResponseWriter, r *http.Request) {
	if err := a.screens.Activity.Refresh(r.Context()); err != nil {
		a.logger.Debug("activity refresh failed", "error", err)
	}
	a.respond(w, r, http.StatusOK, "", nil, a.screens.Activity.Render())
}

// exportActivity streams the latest history as csv (default), jsonl or
// parquet.
func (a *api) exportActivity(w http.ResponseWriter, r *http.Request) {
	if err := a.screens.Activity.Refresh(r.Context()); err != nil {
		middleware.WriteError(w, statusFor(err), err.Error())
		return
	}
	txs, explorerURL := a.screens.Activity.Transactions()
	rows := exports.NewActivityRows(txs, explorerURL)

	var (
		data        []byte
		sum         string
		err         error
		contentType string
	)
	switch format := r.URL.Query().Get("format"); format {
	case "", "csv":
		data, sum, err = exports.ActivityCSV(rows)
		contentType = "text/csv"
	case "jsonl":
		data, sum, err = exports.ActivityJSONL(rows)
		contentType = "application/x-ndjson"
	case "parquet":
		data, err = parquetBytes(rows)
		contentType = "application/vnd.apache.parquet"
	default:
		middleware.WriteError(w, http.StatusBadRequest, "unsupported export format "+format)
		return
	}
	if err != nil {
		a.logger.Warn("activity export failed", "error", err)
		middleware.WriteError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", contentType)
	if sum != "" {
		w.Header().Set(headerChecksum, sum)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func parquetBytes(rows []exports.ActivityRow) ([]byte, error) {
	dir, err := os.MkdirTemp("", "onecoupon-export-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "activity.parquet")
	if err := exports.WriteActivityParquet(path, rows); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}
