package web

import (
	"time"

	"github.com/JonMunkholm/csvdash/internal/core"
	"github.com/JonMunkholm/csvdash/internal/dataset"
)

// headRows is how many leading rows the dataset view includes.
const headRows = 10

// DatasetResponse is the JSON view of the dataset of record.
type DatasetResponse struct {
	FileName    string                         `json:"fileName,omitempty"`
	Shape       [2]int                         `json:"shape"`
	Columns     []string                       `json:"columns"`
	ColumnStats map[string]dataset.ColumnStats `json:"columnStats"`
	Duplicates  int                            `json:"duplicates"`
	Missing     int                            `json:"missing"`
	Warnings    []string                       `json:"warnings,omitempty"`
	Data        dataset.Table                  `json:"data"`
}

func newDatasetResponse(fileName string, ds *dataset.Dataset) DatasetResponse {
	return DatasetResponse{
		FileName:    fileName,
		Shape:       ds.Shape,
		Columns:     ds.Columns,
		ColumnStats: ds.Stats,
		Duplicates:  ds.Duplicates,
		Missing:     ds.MissingTotal(),
		Warnings:    ds.Summary().Warnings,
		Data:        ds.Head(headRows),
	}
}

// RowsResponse is one page of rows.
type RowsResponse struct {
	Page       int           `json:"page"`
	Size       int           `json:"size"`
	TotalRows  int           `json:"totalRows"`
	TotalPages int           `json:"totalPages"`
	Columns    []string      `json:"columns"`
	Data       dataset.Table `json:"data"`
}

// PendingResponse describes a previewed edit.
type PendingResponse struct {
	Kind        core.EditKind                  `json:"kind"`
	Detail      string                         `json:"detail"`
	CreatedAt   time.Time                      `json:"createdAt"`
	Shape       [2]int                         `json:"shape"`
	BaseShape   [2]int                         `json:"baseShape"`
	Columns     []string                       `json:"columns"`
	ColumnStats map[string]dataset.ColumnStats `json:"columnStats"`
	Duplicates  int                            `json:"duplicates"`
	Preview     dataset.Table                  `json:"preview"`
}

func newPendingResponse(p *core.PendingEdit, previewRows int) PendingResponse {
	return PendingResponse{
		Kind:        p.Kind,
		Detail:      p.Detail,
		CreatedAt:   p.CreatedAt,
		Shape:       p.Result.Shape,
		BaseShape:   p.Base.Shape,
		Columns:     p.Result.Columns,
		ColumnStats: p.Result.Stats,
		Duplicates:  p.Result.Duplicates,
		Preview:     p.Result.Head(previewRows),
	}
}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status   string             `json:"status"`
	Sessions int                `json:"sessions"`
	Ingest   core.LimiterStatus `json:"ingest"`
}
