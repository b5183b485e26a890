package services

import "errors"

// Dataset errors
var (
	// ErrDatasetUnavailable wraps every failure of the one-time load
	ErrDatasetUnavailable   = errors.New("dataset unavailable")
	ErrDatasetNotConfigured = errors.New("emissions file not configured")
	ErrEmptyDataset         = errors.New("dataset has no valid records")
)

// View errors
var (
	ErrYearOutOfRange    = errors.New("year outside dataset bounds")
	ErrMetricUnavailable = errors.New("metric not present in dataset")
	ErrUnknownCountry    = errors.New("unknown country code")
	ErrInvalidTopN       = errors.New("top n out of range")
)
