package render

import "errors"

var ErrUnknownChartMode = errors.New("unknown chart mode")
