package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/samber/lo"
)

// renderTable renders a rounded table. rightAligned lists 1-based column numbers.
func renderTable(headers []string, rows [][]string, rightAligned ...int) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(lo.ToAnySlice(headers))
	for _, row := range rows {
		tw.AppendRow(lo.ToAnySlice(row))
	}
	tw.SetColumnConfigs(lo.Map(rightAligned, func(column, _ int) table.ColumnConfig {
		return table.ColumnConfig{Number: column, Align: text.AlignRight, AlignHeader: text.AlignLeft}
	}))
	return tw.Render()
}
