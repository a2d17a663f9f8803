package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// tableColumn describes one rendered column. A positive maxWidth trims
// longer cells.
type tableColumn struct {
	header   string
	align    text.Align
	maxWidth int
}

func col(header string) tableColumn {
	return tableColumn{header: header, align: text.AlignLeft}
}

func (c tableColumn) right() tableColumn {
	c.align = text.AlignRight
	return c
}

func (c tableColumn) max(width int) tableColumn {
	c.maxWidth = width
	return c
}

func renderTable(columns []tableColumn, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, 0, len(columns))
	for i, column := range columns {
		header[i] = column.header
		cfg := table.ColumnConfig{
			Number:      i + 1,
			Align:       column.align,
			AlignHeader: text.AlignLeft,
		}
		if column.maxWidth > 0 {
			cfg.WidthMax = column.maxWidth
			cfg.WidthMaxEnforcer = text.Trim
		}
		configs = append(configs, cfg)
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(columns))
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}
