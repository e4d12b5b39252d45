package main

import (
	"context"
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	redisclient "github.com/redis/go-redis/v9"
	mongoadapter "github.com/robertarktes/travel-storefront/internal/adapters/mongo"
	redisadapter "github.com/robertarktes/travel-storefront/internal/adapters/redis"
	"github.com/robertarktes/travel-storefront/internal/domain"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Destinations []seedDestination `yaml:"destinations"`
	Packages     []seedPackage     `yaml:"packages"`
	Listings     []seedListing     `yaml:"listings"`
	Deals        []seedDeal        `yaml:"deals"`
}

type seedDestination struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	Country    string   `yaml:"country"`
	Price      float64  `yaml:"price"`
	Currency   string   `yaml:"currency"`
	Img        string   `yaml:"img"`
	Highlights []string `yaml:"highlights"`
	Featured   bool     `yaml:"featured"`
}

type seedPackage struct {
	ID         string   `yaml:"id"`
	Title      string   `yaml:"title"`
	Category   string   `yaml:"category"`
	Duration   string   `yaml:"duration"`
	Price      float64  `yaml:"price"`
	Currency   string   `yaml:"currency"`
	Img        string   `yaml:"img"`
	Highlights []string `yaml:"highlights"`
	Featured   bool     `yaml:"featured"`
}

type seedListing struct {
	ID          string  `yaml:"id"`
	Type        string  `yaml:"type"`
	Title       string  `yaml:"title"`
	Departure   string  `yaml:"departure"`
	Arrival     string  `yaml:"arrival"`
	Description string  `yaml:"description"`
	Price       float64 `yaml:"price"`
	Currency    string  `yaml:"currency"`
	Duration    string  `yaml:"duration"`
	Rating      float64 `yaml:"rating"`
	Img         string  `yaml:"img"`
}

type seedDeal struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Img         string `yaml:"img"`
	Active      bool   `yaml:"active"`
}

// parseSeed decodes a catalog seed document. Every record needs an id.
func parseSeed(data []byte) (*seedFile, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "decode seed file")
	}
	check := func(kind string, i int, id string) error {
		if id == "" {
			return errors.Newf("%s #%d has no id", kind, i+1)
		}
		return nil
	}
	for i, d := range f.Destinations {
		if err := check("destination", i, d.ID); err != nil {
			return nil, err
		}
	}
	for i, p := range f.Packages {
		if err := check("package", i, p.ID); err != nil {
			return nil, err
		}
	}
	for i, l := range f.Listings {
		if err := check("listing", i, l.ID); err != nil {
			return nil, err
		}
		if l.Type == "" {
			return nil, errors.Newf("listing %s has no type", l.ID)
		}
	}
	for i, d := range f.Deals {
		if err := check("deal", i, d.ID); err != nil {
			return nil, err
		}
	}
	return &f, nil
}

type catalogWriter interface {
	UpsertDestination(ctx context.Context, d domain.Destination) error
	UpsertPackage(ctx context.Context, p domain.Package) error
	UpsertListing(ctx context.Context, l domain.CategoryListing) error
	UpsertDeal(ctx context.Context, d domain.Deal) error
}

func (f *seedFile) apply(ctx context.Context, w catalogWriter) (int, error) {
	n := 0
	for _, d := range f.Destinations {
		if err := w.UpsertDestination(ctx, domain.Destination{
			ID: d.ID, Name: d.Name, Country: d.Country, Price: d.Price, Currency: d.Currency,
			Img: d.Img, Highlights: d.Highlights, IsFeatured: d.Featured,
		}); err != nil {
			return n, errors.Wrapf(err, "destination %s", d.ID)
		}
		n++
	}
	for _, p := range f.Packages {
		if err := w.UpsertPackage(ctx, domain.Package{
			ID: p.ID, Title: p.Title, Category: p.Category, Duration: p.Duration, Price: p.Price,
			Currency: p.Currency, Img: p.Img, Highlights: p.Highlights, IsFeatured: p.Featured,
		}); err != nil {
			return n, errors.Wrapf(err, "package %s", p.ID)
		}
		n++
	}
	for _, l := range f.Listings {
		if err := w.UpsertListing(ctx, domain.CategoryListing{
			ID: l.ID, Type: l.Type, Title: l.Title, Departure: l.Departure, Arrival: l.Arrival,
			Description: l.Description, Price: l.Price, Currency: l.Currency, Duration: l.Duration,
			Rating: l.Rating, Img: l.Img,
		}); err != nil {
			return n, errors.Wrapf(err, "listing %s", l.ID)
		}
		n++
	}
	for _, d := range f.Deals {
		if err := w.UpsertDeal(ctx, domain.Deal{
			ID: d.ID, Title: d.Title, Description: d.Description, Img: d.Img, IsActive: d.Active,
		}); err != nil {
			return n, errors.Wrapf(err, "deal %s", d.ID)
		}
		n++
	}
	return n, nil
}

type seedOptions struct {
	file string
}

func newSeedCmd(flags *rootFlags) *cobra.Command {
	opts := &seedOptions{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load catalog records from a YAML file and drop cached result sets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, flags, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Path to the seed YAML file")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runSeed(cmd *cobra.Command, flags *rootFlags, opts *seedOptions) error {
	data, err := os.ReadFile(opts.file)
	if err != nil {
		return errors.Wrapf(err, "read %s", opts.file)
	}
	seed, err := parseSeed(data)
	if err != nil {
		return err
	}

	cfg, logger, err := loadEnv(flags)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return errors.Wrap(err, "connect to mongo")
	}
	defer client.Disconnect(context.Background())

	n, err := seed.apply(ctx, mongoadapter.NewCatalogRepository(client.Database(cfg.MongoDB), logger))
	if err != nil {
		return err
	}

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	dropped, err := redisadapter.NewCache(redisClient).Invalidate(ctx, "catalog:*")
	if err != nil {
		logger.WithError(err).Warn("failed to invalidate catalog cache")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d records, dropped %d cached result sets\n", n, dropped)
	return nil
}
