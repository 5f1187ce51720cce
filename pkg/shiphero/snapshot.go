package shiphero

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/saturnines/shiphero-core/pkg/core"
	"github.com/saturnines/shiphero-core/pkg/errors"
	"github.com/saturnines/shiphero-core/pkg/record"
	"github.com/saturnines/shiphero-core/pkg/transform"
)

// SnapshotState is the observed state of a snapshot job.
type SnapshotState string

const (
	SnapshotRequested SnapshotState = "requested"
	SnapshotReady     SnapshotState = "ready"
	SnapshotFailed    SnapshotState = "error"
)

// Snapshot is an inventory snapshot job as reported by the API.
type Snapshot struct {
	SnapshotID         string  `json:"snapshot_id"`
	JobUserID          string  `json:"job_user_id"`
	JobAccountID       string  `json:"job_account_id"`
	WarehouseID        string  `json:"warehouse_id"`
	CustomerAccountID  string  `json:"customer_account_id"`
	NotificationEmail  string  `json:"notification_email"`
	EmailError         string  `json:"email_error"`
	PostURL            string  `json:"post_url"`
	PostError          string  `json:"post_error"`
	PostURLPreCheck    *bool   `json:"post_url_pre_check"`
	Status             string  `json:"status"`
	Error              *string `json:"error"`
	CreatedAt          string  `json:"created_at"`
	EnqueuedAt         string  `json:"enqueued_at"`
	UpdatedAt          string  `json:"updated_at"`
	SnapshotURL        *string `json:"snapshot_url"`
	SnapshotExpiration string  `json:"snapshot_expiration"`
}

// State reports error before ready: a job carrying both is failed.
func (s *Snapshot) State() SnapshotState {
	switch {
	case s.Error != nil && *s.Error != "":
		return SnapshotFailed
	case s.SnapshotURL != nil && *s.SnapshotURL != "":
		return SnapshotReady
	default:
		return SnapshotRequested
	}
}

// Record converts the job metadata into a single record.
func (s *Snapshot) Record() *record.Record {
	var preCheck, jobErr, url interface{}
	if s.PostURLPreCheck != nil {
		preCheck = *s.PostURLPreCheck
	}
	if s.Error != nil {
		jobErr = *s.Error
	}
	if s.SnapshotURL != nil {
		url = *s.SnapshotURL
	}
	return record.New(17).
		Set("snapshot_id", s.SnapshotID).
		Set("job_user_id", s.JobUserID).
		Set("job_account_id", s.JobAccountID).
		Set("warehouse_id", s.WarehouseID).
		Set("customer_account_id", s.CustomerAccountID).
		Set("notification_email", s.NotificationEmail).
		Set("email_error", s.EmailError).
		Set("post_url", s.PostURL).
		Set("post_error", s.PostError).
		Set("post_url_pre_check", preCheck).
		Set("status", s.Status).
		Set("error", jobErr).
		Set("created_at", s.CreatedAt).
		Set("enqueued_at", s.EnqueuedAt).
		Set("updated_at", s.UpdatedAt).
		Set("snapshot_url", url).
		Set("snapshot_expiration", s.SnapshotExpiration)
}

func (s *Service) snapshotRequest(ctx context.Context, query, field string, vars map[string]interface{}) (*Snapshot, error) {
	resp, err := s.client.Request(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	raw, err := core.RequireObject(resp.Data, field+".snapshot")
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(raw)
}

func decodeSnapshot(raw map[string]interface{}) (*Snapshot, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrValidation, "encode snapshot")
	}
	var snap Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, errors.WrapError(err, errors.ErrValidation, "decode snapshot")
	}
	return &snap, nil
}

// GenerateSnapshot starts a snapshot job for a warehouse and returns its id.
func (s *Service) GenerateSnapshot(ctx context.Context, warehouseID string) (string, error) {
	if warehouseID == "" {
		return "", errors.WrapError(fmt.Errorf("warehouse id is required"), errors.ErrValidation, "generate snapshot")
	}
	snap, err := s.snapshotRequest(ctx, generateSnapshotMutation, "inventory_generate_snapshot",
		map[string]interface{}{"warehouse_id": warehouseID})
	if err != nil {
		return "", err
	}
	if snap.SnapshotID == "" {
		return "", errors.WrapError(fmt.Errorf("response has no snapshot_id"), errors.ErrValidation, "generate snapshot")
	}
	s.logger.Info("snapshot requested", "snapshot_id", snap.SnapshotID, "warehouse_id", warehouseID)
	return snap.SnapshotID, nil
}

// GetSnapshot fetches the current state of a snapshot job.
func (s *Service) GetSnapshot(ctx context.Context, snapshotID string) (*Snapshot, error) {
	if snapshotID == "" {
		return nil, errors.WrapError(fmt.Errorf("snapshot id is required"), errors.ErrValidation, "get snapshot")
	}
	return s.snapshotRequest(ctx, snapshotQuery, "inventory_snapshot",
		map[string]interface{}{"snapshot_id": snapshotID})
}

// AbortSnapshot cancels a snapshot job.
func (s *Service) AbortSnapshot(ctx context.Context, snapshotID string) (*Snapshot, error) {
	if snapshotID == "" {
		return nil, errors.WrapError(fmt.Errorf("snapshot id is required"), errors.ErrValidation, "abort snapshot")
	}
	snap, err := s.snapshotRequest(ctx, abortSnapshotMutation, "inventory_abort_snapshot",
		map[string]interface{}{"snapshot_id": snapshotID})
	if err != nil {
		return nil, err
	}
	s.logger.Info("snapshot aborted", "snapshot_id", snapshotID, "status", snap.Status)
	return snap, nil
}

// PollSnapshot polls a job until it is ready, failed or the attempt bound
// is reached. A failed job yields ErrAPI, the bound yields ErrTimeout.
func (s *Service) PollSnapshot(ctx context.Context, snapshotID string) (*Snapshot, error) {
	for attempt := 1; attempt <= s.pollAttempts; attempt++ {
		snap, err := s.GetSnapshot(ctx, snapshotID)
		if err != nil {
			return nil, err
		}
		switch snap.State() {
		case SnapshotFailed:
			return snap, &errors.APIError{
				Kind:    errors.ErrAPI,
				Message: fmt.Sprintf("snapshot %s failed: %s", snapshotID, *snap.Error),
			}
		case SnapshotReady:
			s.logger.Info("snapshot ready", "snapshot_id", snapshotID, "attempts", attempt)
			return snap, nil
		}

		s.logger.Debug("snapshot pending", "snapshot_id", snapshotID, "attempt", attempt, "status", snap.Status)
		if attempt == s.pollAttempts {
			break
		}
		if err := s.sleep(ctx, s.pollInterval); err != nil {
			return nil, err
		}
	}
	return nil, errors.WrapError(
		fmt.Errorf("snapshot %s not ready after %d attempts", snapshotID, s.pollAttempts),
		errors.ErrTimeout,
		"poll snapshot",
	)
}

// DownloadSnapshot fetches the snapshot document from its pre-signed URL.
// The URL carries its own credentials so no auth header is sent.
func (s *Service) DownloadSnapshot(ctx context.Context, url string) (map[string]interface{}, error) {
	if url == "" {
		return nil, errors.WrapError(fmt.Errorf("snapshot url is required"), errors.ErrValidation, "download snapshot")
	}
	if s.downloadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.downloadTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrValidation, "build download request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.downloader.Do(req)
	if err != nil {
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.WrapError(err, errors.ErrTimeout, "download snapshot")
		}
		return nil, errors.WrapError(err, errors.ErrTransport, "download snapshot")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.WrapError(err, errors.ErrTimeout, "read snapshot")
		}
		return nil, errors.WrapError(err, errors.ErrTransport, "read snapshot")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &errors.APIError{
			Kind:       errors.ErrAPI,
			StatusCode: resp.StatusCode,
			Body:       string(body),
			Message:    "snapshot download failed",
		}
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, errors.WrapError(err, errors.ErrValidation, "snapshot document is not JSON")
	}
	s.logger.Info("snapshot downloaded", "bytes", len(body))
	return doc, nil
}

// FlattenSnapshot turns a snapshot document into one record per sku and
// warehouse, sorted by sku then warehouse id. Missing figures are zero.
func FlattenSnapshot(doc map[string]interface{}) (*record.Set, error) {
	products, ok := doc["products"].(map[string]interface{})
	if !ok {
		return nil, errors.WrapError(fmt.Errorf("missing key %q", "products"), errors.ErrValidation, "flatten snapshot")
	}

	snapshotID := transform.String(doc["snapshot_id"])
	started := doc["snapshot_started_at"]
	finished := doc["snapshot_finished_at"]

	set := record.NewSet("snapshot_detail")
	for _, sku := range sortedKeys(products) {
		product, _ := products[sku].(map[string]interface{})
		if product == nil {
			continue
		}
		vendorID, vendorName := primaryVendor(core.Object(product, "vendors"))
		warehouses := core.Object(product, "warehouse_products")
		for _, warehouseID := range sortedKeys(warehouses) {
			wp, _ := warehouses[warehouseID].(map[string]interface{})
			if wp == nil {
				wp = map[string]interface{}{}
			}
			set.Append(record.New(14).
				Set("snapshot_id", snapshotID).
				Set("warehouse_id", warehouseID).
				Set("snapshot_started_at", started).
				Set("snapshot_finished_at", finished).
				Set("sku", sku).
				Set("account_id", transform.String(product["account_id"])).
				Set("vendor_id", vendorID).
				Set("vendor_name", vendorName).
				Set("on_hand", transform.IntOr(wp["on_hand"], 0)).
				Set("allocated", transform.IntOr(wp["allocated"], 0)).
				Set("backorder", transform.IntOr(wp["backorder"], 0)).
				Set("available", transform.IntOr(wp["available"], 0)).
				Set("reserve", transform.IntOr(wp["reserve"], 0)).
				Set("non_sellable", transform.IntOr(wp["non_sellable"], 0)))
		}
	}
	return set, nil
}

// primaryVendor accepts either a flat vendor object or a map of vendors
// keyed by id, in which case the lowest id wins.
func primaryVendor(vendors map[string]interface{}) (string, string) {
	if id, ok := vendors["vendor_id"]; ok {
		return transform.String(id), transform.String(vendors["vendor_name"])
	}
	for _, key := range sortedKeys(vendors) {
		if v, ok := vendors[key].(map[string]interface{}); ok {
			id := transform.String(v["vendor_id"])
			if id == "" {
				id = key
			}
			return id, transform.String(v["vendor_name"])
		}
	}
	return "", ""
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CaptureSnapshot generates a snapshot for a warehouse, waits for it and
// returns the job together with its flattened detail rows.
func (s *Service) CaptureSnapshot(ctx context.Context, warehouseID string) (*Snapshot, *record.Set, error) {
	id, err := s.GenerateSnapshot(ctx, warehouseID)
	if err != nil {
		return nil, nil, err
	}
	snap, err := s.PollSnapshot(ctx, id)
	if err != nil {
		return snap, nil, err
	}
	doc, err := s.DownloadSnapshot(ctx, *snap.SnapshotURL)
	if err != nil {
		return snap, nil, err
	}
	details, err := FlattenSnapshot(doc)
	if err != nil {
		return snap, nil, err
	}
	return snap, details, nil
}
