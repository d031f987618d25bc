package ui

import "sync/atomic"

type Stats struct {
	Succeeded  atomic.Int64
	Failed     atomic.Int64
	TotalBytes atomic.Int64
}
