// Package dataset turns uploaded CSV text into an in-memory table with
// per-column statistics, and provides the cleaning transformations and
// download renderings that operate on it.
//
// # Ingestion
//
// [Parse] splits the text on newlines and commas. The first line is the
// header; every following non-blank line must have exactly as many fields as
// the header or parsing fails with a [*MalformedRowError]. Each trimmed field
// becomes a number when the whole string is numeric, otherwise it stays text.
// Empty fields stay empty and count as missing.
//
// # Statistics
//
// A column whose non-missing values are all numbers is numeric and carries
// min, max and mean. Anything else is categorical and carries a distinct
// count. A column with no values at all is categorical with zero distinct
// values.
//
// # Editing
//
// [RemoveColumns], [RemoveDuplicates] and [FillMissing] never modify their
// input. Each returns a new [Dataset] whose statistics, shape and duplicate
// count are recomputed from the new rows.
//
// # Known limitation
//
// Header names are not checked for uniqueness. When two header tokens share a
// name the later column's values overwrite the earlier one in every row.
// [Dataset.DuplicateHeaders] reports the affected names so callers can warn.
package dataset
