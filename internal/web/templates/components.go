// Package templates holds the dashboard's HTML components. The *_templ.go
// files are generated from the .templ sources with `templ generate`.
package templates

//go:generate templ generate

import (
	"math"
	"strconv"

	"github.com/JonMunkholm/csvdash/internal/dataset"
)

// Page identifiers used to highlight the active navigation link.
const (
	PageDashboard = "dashboard"
	PageCleaning  = "cleaning"
	PageDownload  = "download"
)

// PreviewRows is how many rows of a pending edit are shown.
const PreviewRows = 5

type navLink struct{ page, href, label string }

var navLinks = []navLink{
	{PageDashboard, "/", "Dashboard"},
	{PageCleaning, "/cleaning", "Data Cleaning"},
	{PageDownload, "/download", "Download"},
}

type downloadFormat struct {
	format dataset.Format
	label  string
}

var downloadFormats = []downloadFormat{
	{dataset.FormatCSV, "CSV"},
	{dataset.FormatTSV, "TSV"},
	{dataset.FormatJSON, "JSON"},
	{dataset.FormatXLSX, "Excel"},
}

func (f downloadFormat) href() string {
	return "/api/export?format=" + string(f.format)
}

// statNumber renders an optional statistic rounded to four decimals.
func statNumber(p *float64) string {
	if p == nil {
		return "-"
	}
	return dataset.FormatNumber(math.Round(*p*1e4) / 1e4)
}

func statInt(p *int) string {
	if p == nil {
		return "-"
	}
	return strconv.Itoa(*p)
}
