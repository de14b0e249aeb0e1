package domain

import "errors"

var (
	// ErrDataLoad marks a fatal failure to read or parse the input dataset,
	// including a dataset that lacks required columns.
	ErrDataLoad = errors.New("data load")

	// ErrRender marks a report step that could not compute or draw its chart.
	ErrRender = errors.New("render")

	// ErrWrite marks an artifact that could not be written to disk.
	ErrWrite = errors.New("write")

	// ErrMissingColumn is returned by Table accessors for unknown columns.
	ErrMissingColumn = errors.New("missing column")
)
