package ingest

import (
	"context"
	"fmt"

	"github.com/addresskit/addresskit/internal/checkpoint"
)

// loadRegion loads one region's constituent files in the fixed
// dependency order of spec.md §4.8 step 7, skipping any file already
// recorded complete in cp (resume support). summaryCounts is the
// archive's declared expected-row-count table (spec.md:160, spec.md:193);
// a nil/empty map simply disables the mismatch check.
func (r *Runner) loadRegion(ctx context.Context, cp *checkpoint.RunCheckpoint, extractedDir, region string, summaryCounts map[string]int64) error {
	sat := newRegionSatellites()

	for _, t := range loadOrder {
		if t == tableSiteGeocode || t == tableDefaultGeocode {
			if !r.cfg.EnableGeo {
				continue
			}
		}

		fileKey := region + "/" + string(t)
		if containsString(cp.FilesCompleted, fileKey) {
			continue
		}

		cp.CurrentTable = string(t)
		path, err := discoverRegionFile(extractedDir, region, t)
		if err != nil {
			return err
		}

		var rowsParsed int64
		switch t {
		case tableLocality:
			rowsParsed, err = r.loadLocality(ctx, path, sat)
		case tableStreetLocality:
			rowsParsed, err = r.loadStreetLocality(ctx, path, sat)
		case tableSiteGeocode:
			rowsParsed, err = r.loadGeocodes(ctx, path, sat.siteGeocodes)
		case tableDefaultGeocode:
			rowsParsed, err = r.loadGeocodes(ctx, path, sat.defaultGeocodes)
		case tableAddressDetail:
			var rows int64
			rows, rowsParsed, err = r.loadAddressDetail(ctx, path, sat)
			cp.RowsIngested += rows
		default:
			err = fmt.Errorf("unhandled table %s", t)
		}
		if err != nil {
			return fmt.Errorf("load %s: %w", fileKey, err)
		}
		r.checkRowCount(summaryCounts, path, rowsParsed)

		cp.FilesCompleted = append(cp.FilesCompleted, fileKey)
		r.saveCheckpoint(ctx, cp)
		r.log.Info("file completed", "run_id", cp.RunID, "region", region, "table", t)
	}

	return nil
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
