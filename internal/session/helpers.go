package session

import (
	"log"
	"strconv"
)

func formatCoord(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func logWarn(format string, args ...any) { log.Printf("[WARN] "+format, args...) }
