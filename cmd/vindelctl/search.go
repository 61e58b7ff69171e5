package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/vindel10/vindel-api/internal/dto"
	"github.com/vindel10/vindel-api/internal/models"
	"github.com/vindel10/vindel-api/internal/repository"
	"github.com/vindel10/vindel-api/internal/service"
)

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Run a listing search against the configured database",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "q", Usage: "Free-text query"},
			&cli.StringFlag{Name: "categoria", Usage: "Category name"},
			&cli.StringFlag{Name: "ubicacion", Usage: "Location or region"},
			&cli.IntFlag{Name: "page-size", Usage: "Results per page"},
			&cli.StringFlag{Name: "cursor", Usage: "Cursor returned by the previous page"},
			&cli.BoolFlag{Name: "json", Usage: "Print the raw response body"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			e, err := openEnv(ctx, c.Bool("debug"))
			if err != nil {
				return err
			}
			defer e.close()

			svc := service.NewSearchService(repository.NewListingRepository(e.db), e.cfg.Search, nil, e.logger)
			resp, err := svc.Search(ctx, dto.SearchRequest{
				Query:    c.String("q"),
				Category: c.String("categoria"),
				Location: c.String("ubicacion"),
				PageSize: int(c.Int("page-size")),
				Cursor:   c.String("cursor"),
			})
			if err != nil {
				return fmt.Errorf("searching listings: %w", err)
			}
			if c.Bool("json") {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			renderSearch(os.Stdout, resp)
			return nil
		},
	}
}

func renderSearch(w io.Writer, resp dto.SearchResponse) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%d listings match", resp.Total)))
	if len(resp.Results) == 0 {
		fmt.Fprintln(w, noDataStyle.Render("No results found"))
		return
	}
	for _, l := range resp.Results {
		fmt.Fprintln(w, listingStyle.Render(renderListing(l)))
	}
	if resp.NextCursor != nil {
		fmt.Fprintln(w, metaStyle.Render(fmt.Sprintf("next page: --cursor %d", *resp.NextCursor)))
	}
	if resp.TotalCapped {
		fmt.Fprintln(w, warnStyle.Render("total is a lower bound: the fetch limit was reached"))
	}
}

func renderListing(l models.Listing) string {
	var b strings.Builder
	b.WriteString(headingStyle.Render(l.Title))
	b.WriteString("\n")
	place := strings.TrimSpace(strings.Join(nonEmpty(l.Location, l.Region), ", "))
	meta := []string{l.ID, l.Category}
	if place != "" {
		meta = append(meta, place)
	}
	if l.PublicationDate != nil {
		meta = append(meta, time.UnixMilli(*l.PublicationDate).UTC().Format("2006-01-02"))
	}
	b.WriteString(metaStyle.Render(strings.Join(meta, " · ")))
	if l.Price != nil {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%.2f %s", *l.Price, l.Currency))
	}
	return b.String()
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
