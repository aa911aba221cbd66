package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ivlev/adboard/internal/scene"
	"github.com/ivlev/adboard/internal/source"
	"golang.org/x/sync/errgroup"
)

// BannerAssignment - назначение баннера: <billboard-id|index>=<path|qr:payload>.
type BannerAssignment struct {
	Billboard string
	Ref       string
}

func ParseBanner(s string) (BannerAssignment, error) {
	key, ref, ok := strings.Cut(s, "=")
	key, ref = strings.TrimSpace(key), strings.TrimSpace(ref)
	if !ok || key == "" || ref == "" {
		return BannerAssignment{}, fmt.Errorf("неверное назначение баннера %q, ожидается <billboard>=<файл>", s)
	}
	return BannerAssignment{Billboard: key, Ref: ref}, nil
}

// resolveBillboard принимает id или индекс билборда (с 0).
func resolveBillboard(sc *scene.Scene, key string) (string, error) {
	if _, ok := sc.Billboard(key); ok {
		return key, nil
	}
	if i, err := strconv.Atoi(key); err == nil {
		bbs := sc.Billboards()
		if i >= 0 && i < len(bbs) {
			return bbs[i].ID, nil
		}
	}
	return "", fmt.Errorf("%w: %s", scene.ErrUnknownBillboard, key)
}

// loadBanners открывает баннеры параллельно (до workers одновременно)
// и назначает их билбордам в порядке назначений.
func loadBanners(ctx context.Context, sc *scene.Scene, assigns []BannerAssignment, opts source.Options, workers int) ([]source.Raster, error) {
	ids := make([]string, len(assigns))
	for i, s := range assigns {
		id, err := resolveBillboard(sc, s.Billboard)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}

	rasters := make([]source.Raster, len(assigns))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, s := range assigns {
		g.Go(func() error {
			r, err := source.Open(gctx, s.Ref, opts)
			if err != nil {
				return fmt.Errorf("баннер %s: %w", s.Ref, err)
			}
			rasters[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		closeAll(rasters)
		return nil, err
	}

	for i, r := range rasters {
		if err := sc.Assign(ids[i], r); err != nil {
			closeAll(rasters)
			return nil, err
		}
	}
	return rasters, nil
}

func closeAll(rasters []source.Raster) {
	for _, s := range source.Streams(rasters...) {
		s.Close()
	}
}
