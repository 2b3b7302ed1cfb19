package api

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/contentanonymity/backend/internal/cli/client"
	"github.com/contentanonymity/backend/internal/cli/logger"
	json "github.com/json-iterator/go"
)

type ImportOptions struct {
	Entity string
	Path   string
	// Format overrides detection from the file extension (csv or json)
	Format string
	DryRun bool
}

// Import uploads a CSV or JSON file of catalog rows
func Import(opts ImportOptions) (*ImportReport, error) {
	f, err := os.Open(opts.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	form := map[string]string{"dry_run": strconv.FormatBool(opts.DryRun)}
	if opts.Format != "" {
		form["format"] = opts.Format
	}
	logger.Debug("Uploading import", "entity", opts.Entity, "file", opts.Path, "dry_run", opts.DryRun)

	resp, err := client.GetClient().R().
		SetFileReader("file", filepath.Base(opts.Path), f).
		SetFormData(form).
		Post("/api/v1/admin/import/" + opts.Entity)
	if err := client.CheckResponse(resp, err); err != nil {
		return nil, err
	}
	var report ImportReport
	if err := json.Unmarshal(resp.Body(), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// ImportRuns lists stored import reports, newest first
func ImportRuns(limit, offset int) (*Page[ImportReport], error) {
	resp, err := client.GetClient().R().
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetQueryParam("offset", strconv.Itoa(offset)).
		Get("/api/v1/admin/import/runs")
	if err := client.CheckResponse(resp, err); err != nil {
		return nil, err
	}
	var page Page[ImportReport]
	if err := json.Unmarshal(resp.Body(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Reindex rebuilds the search index; recreate drops it first
func Reindex(recreate bool) (*ReindexReport, error) {
	resp, err := client.GetClient().R().
		SetQueryParam("recreate", strconv.FormatBool(recreate)).
		Post("/api/v1/admin/search/reindex")
	if err := client.CheckResponse(resp, err); err != nil {
		return nil, err
	}
	var report ReindexReport
	if err := json.Unmarshal(resp.Body(), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// SetRole changes a member's role
func SetRole(username, role string) (*User, error) {
	resp, err := client.GetClient().R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"role": role}).
		Put("/api/v1/admin/users/" + username + "/role")
	if err := client.CheckResponse(resp, err); err != nil {
		return nil, err
	}
	var out struct {
		User *User `json:"user"`
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// Stats returns row counts per entity
func Stats() (map[string]int64, error) {
	resp, err := client.GetClient().R().Get("/api/v1/admin/stats")
	if err := client.CheckResponse(resp, err); err != nil {
		return nil, err
	}
	var out struct {
		Counts map[string]int64 `json:"counts"`
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, err
	}
	return out.Counts, nil
}
