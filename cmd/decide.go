package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/binfleet/app"
	"github.com/kilianp07/binfleet/core/model"
	"github.com/kilianp07/binfleet/core/spatial"
)

func newAssignCmd(opts *options) *cobra.Command {
	var orderID string
	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Assign pending orders of the snapshot to drivers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return oneShot(cmd, opts, func(ctx context.Context, svc *app.Service) (any, error) {
				if orderID != "" {
					return svc.Manager.AssignOne(ctx, orderID)
				}
				return svc.Manager.AssignPending(ctx)
			})
		},
	}
	cmd.Flags().StringVar(&orderID, "order", "", "assign only this order")
	return cmd
}

func newRouteCmd(opts *options) *cobra.Command {
	var (
		driverID string
		c        model.RouteConstraints
	)
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Assign pending orders, then optimize the route of one driver",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if driverID == "" {
				return fmt.Errorf("--driver is required")
			}
			return oneShot(cmd, opts, func(ctx context.Context, svc *app.Service) (any, error) {
				if _, err := svc.Manager.AssignPending(ctx); err != nil {
					return nil, err
				}
				return svc.Manager.PlanRoute(ctx, driverID, c)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&driverID, "driver", "", "driver id")
	f.Float64Var(&c.MaxDistanceKm, "max-distance", 0, "maximum route distance in km (0 = unbounded)")
	f.Float64Var(&c.MaxTimeMinutes, "max-time", 0, "maximum route time in minutes (0 = unbounded)")
	f.Float64Var(&c.VehicleCapacityKg, "capacity", 0, "vehicle capacity in kg (0 = driver's vehicle)")
	f.Float64Var(&c.FuelEfficiencyKmPerLiter, "fuel-efficiency", 0, "fuel efficiency in km per liter")
	f.Float64Var(&c.FuelPricePerLiter, "fuel-price", 0, "fuel price per liter")
	f.Float64Var(&c.AverageSpeedKmh, "speed", 0, "average speed in km/h (0 = configured rate)")
	return cmd
}

func newQuoteCmd(opts *options) *cobra.Command {
	var (
		f          model.PricingFactors
		wasteType  string
		surcharges []string
		zone       string
		lat, lon   float64
	)
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a collection job under the snapshot's demand",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f.WasteType = model.WasteType(wasteType)
			f.Surcharges = f.Surcharges[:0]
			for _, s := range surcharges {
				f.Surcharges = append(f.Surcharges, model.Surcharge(s))
			}
			z := spatial.Zone(zone)
			if z == "" && (cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon")) {
				p := model.GeoPoint{Lat: lat, Lon: lon}
				if err := p.Validate(); err != nil {
					return err
				}
				z = spatial.ZoneOf(p)
			}
			return oneShot(cmd, opts, func(ctx context.Context, svc *app.Service) (any, error) {
				return svc.Manager.Quote(ctx, f, z)
			})
		},
	}
	fl := cmd.Flags()
	fl.Float64Var(&f.DistanceKm, "distance", 0, "distance in km")
	fl.Float64Var(&f.WeightKg, "weight", 0, "weight in kg")
	fl.StringVar(&wasteType, "waste-type", string(model.WasteHousehold), "waste type")
	fl.StringSliceVar(&surcharges, "surcharge", nil, "surcharge flags, e.g. weekend,express")
	fl.StringVar(&zone, "zone", "", "geohash zone scoping demand")
	fl.Float64Var(&lat, "lat", 0, "job latitude, used to derive the zone")
	fl.Float64Var(&lon, "lon", 0, "job longitude, used to derive the zone")
	return cmd
}

func newMaintenanceCmd(opts *options) *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "maintenance",
		Short: "List maintenance alerts for the snapshot's vehicles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var at time.Time
			if asOf != "" {
				var err error
				if at, err = time.Parse(time.RFC3339, asOf); err != nil {
					return fmt.Errorf("invalid --as-of: %w", err)
				}
			}
			return oneShot(cmd, opts, func(ctx context.Context, svc *app.Service) (any, error) {
				return svc.Manager.MaintenanceSweep(ctx, at)
			})
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "evaluation time (RFC3339), defaults to now")
	return cmd
}
