package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/benithors/dotquote/internal/availability"
	"github.com/benithors/dotquote/internal/pricing"
	"github.com/benithors/dotquote/internal/registrar"
)

type outputFormat int

const (
	formatTable outputFormat = iota
	formatNDJSON
	formatJSON
	formatPlain
)

func resolveFormat(flagVal string, stdout *os.File) outputFormat {
	switch strings.ToLower(strings.TrimSpace(flagVal)) {
	case "table":
		return formatTable
	case "ndjson":
		return formatNDJSON
	case "json":
		return formatJSON
	case "plain":
		return formatPlain
	}

	if stdout != nil && term.IsTerminal(int(stdout.Fd())) {
		return formatTable
	}
	return formatNDJSON
}

// result is one output line: the record plus the input that produced it.
type result struct {
	Input string `json:"input"`
	availability.Record
}

func (r result) status() string {
	switch {
	case r.Error != "":
		return "error"
	case r.Available:
		return "available"
	default:
		return "taken"
	}
}

func (r result) price() string {
	if r.Price == nil {
		return ""
	}
	s := registrar.FormatMicros(*r.Price)
	if r.Currency != "" {
		s += " " + r.Currency
	}
	return s
}

func (r result) providers() string {
	names := make([]string, 0, len(r.Providers))
	for name := range r.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+registrar.FormatMicros(r.Providers[name]))
	}
	return strings.Join(parts, " ")
}

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func writeResults(w io.Writer, format outputFormat, results []result) error {
	switch format {
	case formatNDJSON:
		enc := json.NewEncoder(w)
		for _, r := range results {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	case formatJSON:
		return json.NewEncoder(w).Encode(results)
	case formatPlain:
		for _, r := range results {
			if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Domain, r.status(), r.price(), r.providers()); err != nil {
				return err
			}
		}
		return nil
	default:
		tw := newTabWriter(w)
		fmt.Fprintln(tw, "DOMAIN\tSTATUS\tPRICE\tPROVIDERS\tDETAIL")
		for _, r := range results {
			name := r.Domain
			if name == "" {
				name = r.Input
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", name, r.status(), r.price(), r.providers(), r.Error)
		}
		return tw.Flush()
	}
}

// priceRow is one extension of a provider's price table.
type priceRow struct {
	Extension string `json:"extension"`
	pricing.Info
}

func priceRows(table map[string]pricing.Info) []priceRow {
	rows := make([]priceRow, 0, len(table))
	for ext, info := range table {
		rows = append(rows, priceRow{Extension: ext, Info: info})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Extension < rows[j].Extension })
	return rows
}

func micros(v *int64) string {
	if v == nil {
		return "-"
	}
	return registrar.FormatMicros(*v)
}

func writePricing(w io.Writer, format outputFormat, rows []priceRow) error {
	switch format {
	case formatNDJSON:
		enc := json.NewEncoder(w)
		for _, r := range rows {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	case formatJSON:
		return json.NewEncoder(w).Encode(rows)
	case formatPlain:
		for _, r := range rows {
			if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				r.Extension, micros(r.Registration), micros(r.Renewal), micros(r.Transfer)); err != nil {
				return err
			}
		}
		return nil
	default:
		tw := newTabWriter(w)
		fmt.Fprintln(tw, "EXTENSION\tREGISTRATION\tRENEWAL\tTRANSFER\tCURRENCY")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				r.Extension, micros(r.Registration), micros(r.Renewal), micros(r.Transfer), r.Currency)
		}
		return tw.Flush()
	}
}
