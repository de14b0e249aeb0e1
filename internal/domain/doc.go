// Package domain models US traffic accident records and the descriptive
// reports derived from them.
//
// # Data Source
//
// Records follow the layout of the public "US Accidents" dataset (Sobhan
// Moosavi et al.), distributed as one large CSV, often zip compressed. Each
// row is one accident report with ~46 columns; only fifteen are analysed
// here (see [CleanColumns]).
//
// # Conventions
//
// Severity:
//
//	Ordinal impact on traffic, 1 (low) to 4 (very high). Rendered with the
//	names Low, Moderate, High and Very High (see [SeverityName]).
//
// Time format:
//
//	Start_Time is a naive local timestamp, usually "2016-02-08 05:46:00",
//	sometimes with a nanosecond fraction ("2016-02-08 05:46:00.000000000")
//	or in ISO 8601 form. Unparseable values are treated as null and the row
//	is dropped during cleaning. See [ParseStartTime] for accepted layouts.
//
// Derived calendar fields:
//
//	Hour    0–23
//	Month   1–12
//	Weekday 0=Monday … 6=Sunday
//
// Nulls:
//
//	Empty fields and the tokens "NA", "NaN" and "<nil>" load as null.
//
// # Lifecycle
//
// A [RawTable] is produced by the loader. [Clean] projects, filters and
// derives columns into a new [Table]; the raw table is never modified. A
// Table is read-only: every accessor returns a fresh slice.
package domain
