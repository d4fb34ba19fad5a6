package ui

import (
	"context"
	"fmt"

	"github.com/safe-ro/safe-ro/internal/sentinel"
)

// ListRegions prints the monitored regions and their bounding boxes.
func (m *Menu) ListRegions(ctx context.Context) error {
	fmt.Fprintf(m.out, "%s\nMonitored regions:%s\n", ColorGreen, ColorReset)
	for i, name := range sentinel.RegionNames() {
		b := sentinel.Regions[name]
		fmt.Fprintf(m.out, "%s%d. %s (%.2f, %.2f, %.2f, %.2f)%s\n",
			ColorGreen, i+1, name, b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat(), ColorReset)
	}
	return nil
}
