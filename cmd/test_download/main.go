package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/safe-ro/safe-ro/internal/log"
	"github.com/safe-ro/safe-ro/internal/properties"
	"github.com/safe-ro/safe-ro/internal/sentinel"
)

// Lists the catalogue products the downloader would pick for every region,
// without downloading them.
func main() {
	start := time.Now().AddDate(0, 0, -30)
	if len(os.Args) > 1 {
		parsed, err := time.Parse("2006-01-02", os.Args[1])
		if err != nil {
			fmt.Printf("Invalid date %q. Please use YYYY-MM-DD\n", os.Args[1])
			os.Exit(1)
		}
		start = parsed
	}

	cfg, err := properties.Load()
	if err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
	if err := log.Init(cfg.Debug); err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
	defer log.Sync()

	fmt.Println("=== SAFE-RO catalogue check ===")
	fmt.Printf("Since: %s\n\n", start.Format("2006-01-02"))

	ctx := context.Background()
	client := sentinel.NewClient(sentinel.ConfigFromProperties(cfg))
	if err := client.Authenticate(ctx); err != nil {
		fmt.Printf("Failed to authenticate: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✓ Authenticated")

	for _, name := range sentinel.RegionNames() {
		bound := sentinel.Regions[name]
		for _, q := range []sentinel.Query{
			{Mission: sentinel.Sentinel2, Bound: bound, Start: start, MaxCloudCover: sentinel.MaxCloudCover, Top: 3},
			{Mission: sentinel.Sentinel1, Bound: bound, Start: start, Top: 3},
		} {
			products, err := client.Search(ctx, q)
			if err != nil {
				fmt.Printf("✗ %s %s: %v\n", name, q.Mission, err)
				continue
			}
			fmt.Printf("%s %s: %d products\n", name, q.Mission, len(products))
			for _, p := range products {
				fmt.Printf("  - %s (%s)\n", p.Name, humanize.Bytes(uint64(p.ContentLength)))
			}
		}
	}
}
