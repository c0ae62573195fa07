package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/addresskit/addresskit/internal/address"
	"github.com/addresskit/addresskit/internal/gnafcsv"
	"github.com/addresskit/addresskit/internal/metrics"
	"github.com/addresskit/addresskit/internal/searchindex"
)

// regionSatellites holds the small, fully-resident joined tables a region
// needs before its address-detail file can be streamed: locality and
// street-locality are themselves modest (tens of thousands of rows per
// state), so keeping them in memory for the duration of one region's load
// is cheap next to the multi-million-row address-detail stream.
type regionSatellites struct {
	locality        map[string]address.LocalityRow
	streetLocality  map[string]address.StreetLocalityRow
	siteGeocodes    map[string][]address.GeocodeRow
	defaultGeocodes map[string][]address.GeocodeRow
}

func newRegionSatellites() *regionSatellites {
	return &regionSatellites{
		locality:        make(map[string]address.LocalityRow),
		streetLocality:  make(map[string]address.StreetLocalityRow),
		siteGeocodes:    make(map[string][]address.GeocodeRow),
		defaultGeocodes: make(map[string][]address.GeocodeRow),
	}
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func parseConfidence(s string) *int {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

func (r *Runner) loadLocality(ctx context.Context, path string, sat *regionSatellites) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	return gnafcsv.Parse(ctx, f, r.csvOptions(), func(h *gnafcsv.Header, rows []gnafcsv.Row, errs []*gnafcsv.RowError) error {
		for _, rowErr := range errs {
			r.log.Warn("locality row parse error", "line", rowErr.LineNumber, "err", rowErr.Err)
		}
		for _, row := range rows {
			pid := h.Get(row, "LOCALITY_PID")
			if pid == "" {
				continue
			}
			sat.locality[pid] = address.LocalityRow{
				PID:       pid,
				Name:      h.Get(row, "LOCALITY_NAME"),
				ClassCode: h.Get(row, "LOCALITY_CLASS_CODE"),
				State:     h.Get(row, "STATE_ABBREVIATION"),
			}
		}
		return nil
	})
}

func (r *Runner) loadStreetLocality(ctx context.Context, path string, sat *regionSatellites) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	return gnafcsv.Parse(ctx, f, r.csvOptions(), func(h *gnafcsv.Header, rows []gnafcsv.Row, errs []*gnafcsv.RowError) error {
		for _, rowErr := range errs {
			r.log.Warn("street-locality row parse error", "line", rowErr.LineNumber, "err", rowErr.Err)
		}
		for _, row := range rows {
			pid := h.Get(row, "STREET_LOCALITY_PID")
			if pid == "" {
				continue
			}
			sat.streetLocality[pid] = address.StreetLocalityRow{
				PID:        pid,
				StreetName: h.Get(row, "STREET_NAME"),
				TypeCode:   h.Get(row, "STREET_TYPE_CODE"),
				SuffixCode: h.Get(row, "STREET_SUFFIX_CODE"),
				ClassCode:  h.Get(row, "STREET_CLASS_CODE"),
			}
		}
		return nil
	})
}

func (r *Runner) loadGeocodes(ctx context.Context, path string, dst map[string][]address.GeocodeRow) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	return gnafcsv.Parse(ctx, f, r.csvOptions(), func(h *gnafcsv.Header, rows []gnafcsv.Row, errs []*gnafcsv.RowError) error {
		for _, rowErr := range errs {
			r.log.Warn("geocode row parse error", "line", rowErr.LineNumber, "err", rowErr.Err)
		}
		for _, row := range rows {
			pid := h.Get(row, "ADDRESS_DETAIL_PID")
			if pid == "" {
				continue
			}
			dst[pid] = append(dst[pid], address.GeocodeRow{
				Latitude:        parseFloat(h.Get(row, "LATITUDE")),
				Longitude:       parseFloat(h.Get(row, "LONGITUDE")),
				ReliabilityCode: h.Get(row, "RELIABILITY_CODE"),
				TypeCode:        h.Get(row, "GEOCODE_TYPE_CODE"),
				LevelTypeCode:   h.Get(row, "GEOCODED_LEVEL_TYPE_CODE"),
			})
		}
		return nil
	})
}

// loadAddressDetail streams address-detail, joins each row against the
// region's already-resident satellites, maps it, and submits mapped
// documents to the search backend in chunk-sized batches — the sole
// suspension point within C5/C6 per spec.md §5: the parser is paused at
// end-of-chunk until Submit returns.
func (r *Runner) loadAddressDetail(ctx context.Context, path string, sat *regionSatellites) (rowsIngested, rowsParsed int64, err error) {
	f, ferr := os.Open(path)
	if ferr != nil {
		return 0, 0, ferr
	}
	defer f.Close()

	mapper := address.NewMapper(r.authority, r.cfg.EnableGeo)

	rowsParsed, err = gnafcsv.Parse(ctx, f, r.csvOptions(), func(h *gnafcsv.Header, rows []gnafcsv.Row, errs []*gnafcsv.RowError) error {
		chunkStart := time.Now()
		defer func() {
			metrics.ChunkProcessingDuration.WithLabelValues(string(tableAddressDetail)).Observe(time.Since(chunkStart).Seconds())
		}()

		for _, rowErr := range errs {
			r.log.Warn("address-detail row parse error", "line", rowErr.LineNumber, "err", rowErr.Err)
			metrics.RowsRejected.WithLabelValues(string(tableAddressDetail), "parse").Inc()
		}

		ops := make([]searchindex.Operation, 0, len(rows))
		for _, row := range rows {
			pid := h.Get(row, "ADDRESS_DETAIL_PID")
			if pid == "" {
				continue
			}

			joined := address.JoinedRow{
				Detail: address.DetailRow{
					PID:               pid,
					BuildingName:      h.Get(row, "BUILDING_NAME"),
					FlatTypeCode:      h.Get(row, "FLAT_TYPE_CODE"),
					FlatPrefix:        h.Get(row, "FLAT_NUMBER_PREFIX"),
					FlatNumber:        h.Get(row, "FLAT_NUMBER"),
					FlatSuffix:        h.Get(row, "FLAT_NUMBER_SUFFIX"),
					LevelTypeCode:     h.Get(row, "LEVEL_TYPE_CODE"),
					LevelPrefix:       h.Get(row, "LEVEL_NUMBER_PREFIX"),
					LevelNumber:       h.Get(row, "LEVEL_NUMBER"),
					LevelSuffix:       h.Get(row, "LEVEL_NUMBER_SUFFIX"),
					NumberFirstPrefix: h.Get(row, "NUMBER_FIRST_PREFIX"),
					NumberFirst:       h.Get(row, "NUMBER_FIRST"),
					NumberFirstSuffix: h.Get(row, "NUMBER_FIRST_SUFFIX"),
					NumberLastPrefix:  h.Get(row, "NUMBER_LAST_PREFIX"),
					NumberLast:        h.Get(row, "NUMBER_LAST"),
					NumberLastSuffix:  h.Get(row, "NUMBER_LAST_SUFFIX"),
					LotNumber:         h.Get(row, "LOT_NUMBER"),
					StreetLocalityPID: h.Get(row, "STREET_LOCALITY_PID"),
					LocalityPID:       h.Get(row, "LOCALITY_PID"),
					Postcode:          h.Get(row, "POSTCODE"),
					Confidence:        parseConfidence(h.Get(row, "CONFIDENCE")),
				},
				Locality:       sat.locality[h.Get(row, "LOCALITY_PID")],
				StreetLocality: sat.streetLocality[h.Get(row, "STREET_LOCALITY_PID")],
			}
			if r.cfg.EnableGeo {
				joined.SiteGeocodes = sat.siteGeocodes[pid]
				joined.DefaultGeocodes = sat.defaultGeocodes[pid]
			}

			doc, mapErr := mapper.Map(joined)
			if mapErr != nil {
				r.log.Error("fatal row rejection", "pid", pid, "err", mapErr)
				metrics.RowsRejected.WithLabelValues(string(tableAddressDetail), "fatal").Inc()
				continue
			}
			metrics.RowsMapped.WithLabelValues(string(tableAddressDetail)).Inc()
			ops = append(ops, searchindex.Operation{DocumentID: doc.DocumentID(), Document: toDocument(doc)})
		}

		if len(ops) == 0 {
			return nil
		}
		if err := r.search.Submit(ctx, ops, false); err != nil {
			return fmt.Errorf("submit bulk batch: %w", err)
		}
		rowsIngested += int64(len(ops))
		return nil
	})
	return rowsIngested, rowsParsed, err
}

func (r *Runner) csvOptions() gnafcsv.Options {
	return gnafcsv.Options{
		Delimiter:  '|',
		ChunkBytes: int64(r.cfg.LoadingChunkMB) * 1024 * 1024,
	}
}

// toDocument flattens an AddressDetail into the generic document shape
// the search backend indexes, per spec.md §3's sla/ssla/mla/geo fields.
// Round-tripping through its own JSON tags keeps this in lockstep with
// AddressDetail's fields instead of re-listing them by hand.
func toDocument(d address.AddressDetail) map[string]any {
	data, err := json.Marshal(d)
	if err != nil {
		return map[string]any{"pid": d.PID, "sla": d.SLA, "ssla": d.SSLA, "mla": d.MLA}
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return map[string]any{"pid": d.PID, "sla": d.SLA, "ssla": d.SSLA, "mla": d.MLA}
	}
	doc["pid"] = d.PID
	return doc
}
