package bigquery

import (
	"log/slog"

	"github.com/leapstack-labs/dfbridge/pkg/adapter"
)

func init() {
	adapter.Register("bigquery", func(logger *slog.Logger) adapter.Adapter { return New(logger) },
		"gcpbigquery", "google_cloud_platform")
}
