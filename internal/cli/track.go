package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-shipment-tracker/internal/repo"
	"github.com/tbourn/go-shipment-tracker/internal/services"
	"github.com/tbourn/go-shipment-tracker/internal/trackid"
)

// TrackCmd prints the public tracking view of one shipment.
func TrackCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "track <tracking-id>",
		Short: "Show the public tracking view of a shipment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := openDB()
			if err != nil {
				return err
			}
			defer repo.Close(db)

			svc := services.NewTrackingViewService(db, nil, cfg.Location(), cfg.FallbackSender)
			v, err := svc.Get(cmd.Context(), args[0])
			if errors.Is(err, services.ErrShipmentNotFound) {
				return fmt.Errorf("no shipment with tracking id %q", strings.ToUpper(args[0]))
			}
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(v)
			}
			printView(cmd.OutOrStdout(), v)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the view as JSON")
	return cmd
}

// statusColor maps a status slug to its badge color.
func statusColor(slug string) *color.Color {
	switch slug {
	case "delivered":
		return color.New(color.FgGreen, color.Bold)
	case "in-transit":
		return color.New(color.FgCyan, color.Bold)
	case "delayed":
		return color.New(color.FgYellow, color.Bold)
	case "exception":
		return color.New(color.FgRed, color.Bold)
	default:
		return color.New(color.FgWhite, color.Bold)
	}
}

func printView(w io.Writer, v *services.TrackingView) {
	fmt.Fprintf(w, "%s  %s\n", bold(v.TrackingID), statusColor(v.Status).Sprint(v.StatusText))
	fmt.Fprintf(w, "  %s → %s\n", v.Origin, v.Destination)
	fmt.Fprintf(w, "  %s %s\n", dim("current:"), v.CurrentLocation)
	fmt.Fprintf(w, "  %s %s\n", dim("estimated delivery:"), v.EstimatedDelivery.Format("2006-01-02"))
	if v.ActualDelivery != nil {
		fmt.Fprintf(w, "  %s %s\n", dim("delivered:"), v.ActualDelivery.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(w, "  %s %s, %s\n", dim("from:"), v.Sender.Name, v.Sender.Phone)
	fmt.Fprintf(w, "  %s %s, %s\n", dim("to:"), v.Recipient.Name, v.Recipient.Address)

	if len(v.Events) == 0 {
		return
	}
	fmt.Fprintln(w)
	for _, e := range v.Events {
		mark := warnMark("○")
		if e.Completed {
			mark = okMark("●")
		}
		fmt.Fprintf(w, "  %s %s %s  %s  %s\n", mark, e.Date, e.Time, bold(e.Status), e.Location)
		if e.Description != "" {
			fmt.Fprintf(w, "      %s\n", dim(e.Description))
		}
	}
}

// GenIDCmd prints fresh tracking identifiers. With --check the datastore is
// consulted so printed ids are unused at the time of the call.
func GenIDCmd() *cobra.Command {
	var count int
	var prefix string
	var check bool
	cmd := &cobra.Command{
		Use:   "gen-id",
		Short: "Generate tracking identifiers",
		RunE: func(cmd *cobra.Command, args []string) error {
			var exists trackid.ExistsFunc
			if check {
				_, db, err := openDB()
				if err != nil {
					return err
				}
				defer repo.Close(db)
				exists = func(ctx context.Context, id string) (bool, error) {
					return repo.TrackingIDExists(ctx, db, id)
				}
			}
			return genIDs(cmd.Context(), cmd.OutOrStdout(), trackid.New(prefix), count, exists)
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of identifiers")
	cmd.Flags().StringVar(&prefix, "prefix", "LF", "two-letter prefix")
	cmd.Flags().BoolVar(&check, "check", false, "skip identifiers already stored")
	return cmd
}

// genIDs prints n distinct identifiers. Ids printed earlier in the same run
// count as taken.
func genIDs(ctx context.Context, w io.Writer, g *trackid.Generator, n int, exists trackid.ExistsFunc) error {
	if len(g.Prefix) != 2 {
		return fmt.Errorf("prefix must be two letters, got %q", g.Prefix)
	}
	seen := make(map[string]struct{}, n)
	taken := func(ctx context.Context, id string) (bool, error) {
		if _, ok := seen[id]; ok {
			return true, nil
		}
		if exists == nil {
			return false, nil
		}
		return exists(ctx, id)
	}
	for i := 0; i < n; i++ {
		id, err := g.Next(ctx, taken)
		if err != nil {
			return err
		}
		seen[id] = struct{}{}
		fmt.Fprintln(w, id)
	}
	return nil
}
