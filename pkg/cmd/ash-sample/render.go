// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/cockroachdb/ash/pkg/util/ash"
	"github.com/cockroachdb/ash/pkg/util/timeutil"
	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

// renderer writes a snapshot of samples taken at the given time.
type renderer func(w io.Writer, now time.Time, samples []ash.Sample) error

func makeRenderer(format string) (renderer, error) {
	switch format {
	case "text":
		return renderTable, nil
	case "json":
		return renderJSON, nil
	default:
		return nil, errors.Newf("unknown format %q, expected text or json", format)
	}
}

var tableHeader = []string{"goroutine", "name", "status", "query_id", "request", "client", "table", "tablet", "method", "registered"}

func renderTable(w io.Writer, now time.Time, samples []ash.Sample) error {
	if _, err := fmt.Fprintf(w, "sampled at %s\n", now.Format(timeutil.FullTimeFormat)); err != nil {
		return err
	}
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader(tableHeader)
	for _, s := range samples {
		meta := ash.MetadataFromProto(s.State.GetMetadata())
		aux := ash.AuxInfoFromProto(s.State.GetAuxInfo())
		table.Append([]string{
			strconv.FormatInt(s.GoroutineID, 10),
			s.Name,
			ash.Code(s.State.WaitStatusCode).String(),
			strconv.FormatInt(meta.QueryID, 10),
			strconv.FormatInt(meta.CurrentRequestID, 10),
			meta.ClientNodeAddr(),
			aux.TableID,
			aux.TabletID,
			aux.Method,
			humanize.RelTime(s.Registered, now, "ago", "from now"),
		})
	}
	table.Render()
	_, err := fmt.Fprintf(w, "(%d goroutines)\n", len(samples))
	return err
}

func renderJSON(w io.Writer, _ time.Time, samples []ash.Sample) error {
	enc := json.NewEncoder(w)
	for _, s := range samples {
		if err := enc.Encode(s); err != nil {
			return errors.Wrap(err, "rendering sample")
		}
	}
	return nil
}
