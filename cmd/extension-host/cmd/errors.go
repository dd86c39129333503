package cmd

import "errors"

var (
	errUnknownLogLevel = errors.New("unknown log level")
	errIDSource        = errors.New("pass either an archive path or --key")
)
