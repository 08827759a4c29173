package registry

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Serials follow <PRODUCT CODE>-<YEAR>-NNN with a zero-padded counter that
// restarts each year, e.g. PRJ-4K-2026-007.

func serialPrefix(productCode string, now time.Time) string {
	return fmt.Sprintf("%s-%d-", productCode, now.Year())
}

func formatSerial(prefix string, n int) string {
	return fmt.Sprintf("%s%03d", prefix, n)
}

// nextSerialNumber parses the counter out of the last issued serial for a
// prefix. An empty last serial starts the counter at 1.
func nextSerialNumber(prefix, lastSerial string) (int, error) {
	if lastSerial == "" {
		return 1, nil
	}
	suffix := strings.TrimPrefix(lastSerial, prefix)
	if suffix == lastSerial {
		return 0, fmt.Errorf("serial %q does not match prefix %q", lastSerial, prefix)
	}
	n, err := strconv.Atoi(suffix)
	if err != nil {
		return 0, fmt.Errorf("serial %q has non-numeric counter: %w", lastSerial, err)
	}
	return n + 1, nil
}
