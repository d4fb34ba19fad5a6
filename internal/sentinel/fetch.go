package sentinel

import (
	"context"
	"fmt"
	"os"

	"github.com/paulmach/orb"

	"github.com/safe-ro/safe-ro/internal/log"
)

// MaxCloudCover is the Sentinel-2 cloud cover limit used by FetchLatest.
const MaxCloudCover = 20.0

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// FetchLatest downloads the newest clear Sentinel-2 scene over b, falling
// back to the newest Sentinel-1 GRD IW scene when none is clear enough.
func (c *Client) FetchLatest(ctx context.Context, region string, b orb.Bound, dir string) (*Scene, error) {
	if c.http == nil {
		if err := c.Authenticate(ctx); err != nil {
			return nil, err
		}
	}

	products, err := c.Search(ctx, Query{Mission: Sentinel2, Bound: b, MaxCloudCover: MaxCloudCover})
	if err != nil {
		return nil, err
	}
	mission := Sentinel2
	if len(products) == 0 {
		log.Infof("%s is cloudy, switching to radar", region)
		products, err = c.Search(ctx, Query{Mission: Sentinel1, Bound: b})
		if err != nil {
			return nil, err
		}
		mission = Sentinel1
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoProduct, region)
	}

	product := products[0]
	log.Infof("selected %s (%s) for %s", product.Name, mission, region)

	red, nir, vv := bandPaths(dir, product.Name)
	if mission == Sentinel2 && exists(red) && exists(nir) {
		log.Infof("%s already extracted", product.Name)
		return &Scene{Mission: mission, Product: product, RedPath: red, NIRPath: nir}, nil
	}
	if mission == Sentinel1 && exists(vv) {
		log.Infof("%s already extracted", product.Name)
		return &Scene{Mission: mission, Product: product, VVPath: vv}, nil
	}

	zipPath, err := c.Download(ctx, product, dir)
	if err != nil {
		return nil, err
	}
	return ExtractBands(zipPath, product, mission, dir)
}
