package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/vindel10/vindel-api/internal/realtime"
	"github.com/vindel10/vindel-api/internal/repository"
	"github.com/vindel10/vindel-api/internal/service"
)

func expireCommand() *cli.Command {
	return &cli.Command{
		Name:  "expire",
		Usage: "Expire active listings older than the configured TTL",
		Action: func(ctx context.Context, c *cli.Command) error {
			e, err := openEnv(ctx, c.Bool("debug"))
			if err != nil {
				return err
			}
			defer e.close()

			notifications := service.NewNotificationService(repository.NewNotificationRepository(e.db), realtime.NewHub(0), e.logger)
			listings := service.NewListingService(repository.NewListingRepository(e.db), nil, notifications, nil, nil, nil, e.logger, service.ListingServiceConfig{
				RequireReview: e.cfg.Listings.RequireReview,
				TTL:           e.cfg.Listings.TTL,
			})
			summary, err := listings.ExpireStale(ctx)
			if err != nil {
				return fmt.Errorf("expiring listings: %w", err)
			}
			fmt.Fprintln(os.Stdout, summaryStyle.Render(fmt.Sprintf("%d listings expired", len(summary.Expired))))
			for _, id := range summary.Expired {
				fmt.Fprintln(os.Stdout, metaStyle.Render("  "+id))
			}
			return nil
		},
	}
}
