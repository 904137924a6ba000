package config

import "errors"

// Sentinel error kinds returned by Validate and Load.
var (
	ErrInvalidConfig = errors.New("invalid parkprice config")
	ErrLoadConfig    = errors.New("load parkprice config failed")
)
